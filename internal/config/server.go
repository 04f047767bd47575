package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ApplicationSettings contains the HTTP server configuration
type ApplicationSettings struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Validate validates the application settings. Port 0 asks the operating
// system for an ephemeral port.
func (a *ApplicationSettings) Validate() error {
	var errs []error
	if a.Host == "" {
		errs = append(errs, errors.New("application.host cannot be empty"))
	}
	if err := validatePort(a.Port, "application.port", true); err != nil {
		errs = append(errs, err)
	}
	if a.ReadTimeout <= 0 {
		errs = append(errs, errors.New("application.read_timeout must be positive"))
	}
	if a.WriteTimeout <= 0 {
		errs = append(errs, errors.New("application.write_timeout must be positive"))
	}
	if a.IdleTimeout <= 0 {
		errs = append(errs, errors.New("application.idle_timeout must be positive"))
	}
	if a.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("application.shutdown_timeout must be positive"))
	}
	return errors.Join(errs...)
}

// Address returns host:port for binding
func (a ApplicationSettings) Address() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// validatePort validates a TCP port number
func validatePort(port int, fieldName string, allowEphemeral bool) error {
	if port == 0 && allowEphemeral {
		return nil
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", fieldName, port)
	}
	return nil
}
