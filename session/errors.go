package session

import (
	"fmt"
	"strings"
)

// ErrorKind names the failure classes a session can surface.
type ErrorKind string

const (
	KindAuthFailed    ErrorKind = "authentication-failed"
	KindUnreachable   ErrorKind = "unreachable-host"
	KindShellInactive ErrorKind = "shell-inactive"
	KindCommandIO     ErrorKind = "command-io"
)

// Error is a discriminated session failure. Callers branch on Kind rather
// than on error text.
type Error struct {
	Kind ErrorKind
	Host string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Host, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Host, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// classifyDialError maps an ssh.Dial failure to an error kind. The ssh
// package reports bad credentials inside the handshake error text.
func classifyDialError(host string, err error) *Error {
	if strings.Contains(err.Error(), "unable to authenticate") {
		return &Error{Kind: KindAuthFailed, Host: host, Err: err}
	}
	return &Error{Kind: KindUnreachable, Host: host, Err: err}
}
