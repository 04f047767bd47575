package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/leslieo2/dota-analytics/internal/constants"
)

// DatabaseSettings contains the Postgres connection parameters
type DatabaseSettings struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	Username        string        `json:"username" yaml:"username"`
	Password        Secret        `json:"password" yaml:"password"`
	DatabaseName    string        `json:"database_name" yaml:"database_name"`
	RequireSSL      bool          `json:"require_ssl" yaml:"require_ssl"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// ConnectionString addresses DatabaseName on the configured server
func (d DatabaseSettings) ConnectionString() Secret {
	u := d.baseURL()
	u.Path = "/" + d.DatabaseName
	return NewSecret(u.String())
}

// ConnectionStringWithoutDB addresses the server without selecting a
// database; it is used to issue CREATE DATABASE.
func (d DatabaseSettings) ConnectionStringWithoutDB() Secret {
	return NewSecret(d.baseURL().String())
}

func (d DatabaseSettings) baseURL() *url.URL {
	sslMode := "disable"
	if d.RequireSSL {
		sslMode = "require"
	}
	return &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password.Expose()),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
}

// WithDatabaseName returns a copy of the settings addressing another database
func (d DatabaseSettings) WithDatabaseName(name string) DatabaseSettings {
	d.DatabaseName = name
	return d
}

// Validate validates the database settings
func (d *DatabaseSettings) Validate() error {
	var errs []error
	if d.Host == "" {
		errs = append(errs, errors.New("database.host cannot be empty"))
	}
	if err := validatePort(d.Port, "database.port", false); err != nil {
		errs = append(errs, err)
	}
	if d.Username == "" {
		errs = append(errs, errors.New("database.username cannot be empty"))
	}
	if d.DatabaseName == "" {
		errs = append(errs, errors.New("database.database_name cannot be empty"))
	}
	if len(d.DatabaseName) > constants.DatabaseMaxIdentifierLength {
		errs = append(errs, fmt.Errorf("database.database_name exceeds %d bytes", constants.DatabaseMaxIdentifierLength))
	}
	if d.MaxOpenConns < 0 || d.MaxIdleConns < 0 {
		errs = append(errs, errors.New("database pool sizes must be non-negative"))
	}
	if d.ConnMaxLifetime < 0 {
		errs = append(errs, errors.New("database.conn_max_lifetime must be non-negative"))
	}
	return errors.Join(errs...)
}
