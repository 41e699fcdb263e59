// Package session provides an SSH interface for running ordered command
// sequences over a single interactive shell on a network device.
package session

import (
	"context"
)

// Runner defines the minimal shell interaction contract.
type Runner interface {
	Connect(ctx context.Context) error
	RunCommand(ctx context.Context, command string) (string, error)
	Close()
}
