package sshutil

import "time"

// Runner defines the interface for remote command execution.
// Both the real Client and test fakes satisfy this interface, which lets the
// collector and analysis layers be exercised without live SSH connections.
type Runner interface {
	// Run executes a command with the given timeout and returns stdout,
	// stderr, and the exit code. Exit code is -1 if the command couldn't
	// be executed at all; a non-zero exit code with nil error means the
	// command ran but failed.
	Run(cmd string, timeout time.Duration) (stdout, stderr []byte, exitCode int, err error)

	// Close releases the session.
	Close() error

	// Host returns the host this runner is connected to.
	Host() string
}

// Dialer opens a Runner for a target. Injected into the collector and the
// analysis scanner so tests can substitute scripted sessions.
type Dialer func(cfg Config, timeout time.Duration) (Runner, error)

// DefaultDialer dials a real SSH connection.
func DefaultDialer(cfg Config, timeout time.Duration) (Runner, error) {
	return Dial(cfg, timeout)
}
