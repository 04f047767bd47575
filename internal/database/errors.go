package database

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidDatabaseName  = errors.New("invalid database name")
	ErrInvalidMigrationName = errors.New("invalid migration file name")
	ErrDuplicateMigration   = errors.New("duplicate migration version")
	ErrChecksumMismatch     = errors.New("applied migration was modified")
	ErrDirtyMigration       = errors.New("migration previously failed")
)

const redacted = "[REDACTED]"

// Error reports the provisioning step that failed. Its text never contains
// the database password; the cause is still reachable through errors.Is and
// errors.As.
type Error struct {
	Step     string
	Database string

	cause    error
	password string
}

func newError(step, database, password string, cause error) *Error {
	return &Error{Step: step, Database: database, cause: cause, password: password}
}

func (e *Error) Error() string {
	msg := e.cause.Error()
	if e.Database != "" {
		msg = fmt.Sprintf("database %q: %s: %s", e.Database, e.Step, msg)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Step, msg)
	}
	return redact(msg, e.password)
}

func (e *Error) Unwrap() error {
	return e.cause
}

var (
	// scheme://user:password@
	urlPassword = regexp.MustCompile(`(://[^:/@\s"']*:)[^@/\s"']*@`)

	// password=value or password='quoted value'
	keywordPassword = regexp.MustCompile(`(?i)(\bpassword\s*=\s*)('(?:[^'\\]|\\.)*'|[^\s'"]+)`)
)

// redact removes the password from the places a driver error can echo it:
// connection URLs, keyword/value connection strings and quoted values.
// Bare words are left alone so that messages such as "password
// authentication failed" stay readable.
func redact(msg, password string) string {
	msg = urlPassword.ReplaceAllString(msg, "${1}"+redacted+"@")
	msg = keywordPassword.ReplaceAllString(msg, "${1}"+redacted)
	if password == "" {
		return msg
	}
	for _, quoted := range []string{
		strconv.Quote(password),
		`"` + password + `"`,
		"'" + password + "'",
	} {
		msg = strings.ReplaceAll(msg, quoted, `"`+redacted+`"`)
	}
	return msg
}
