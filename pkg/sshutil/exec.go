package sshutil

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/spacefleet/spacefleet/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Run executes a command on the remote host and returns the output.
// A zero timeout falls back to DefaultCommandTimeout. The command is subject
// to the client's privileged wrapping. Exit code is -1 if the command couldn't
// be executed at all; a non-zero exit code with nil error means the command
// ran but failed.
func (c *Client) Run(cmd string, timeout time.Duration) (stdout, stderr []byte, exitCode int, err error) {
	if timeout == 0 {
		timeout = DefaultCommandTimeout
	}

	session, err := c.Client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	done := make(chan error, 1)
	go func() {
		done <- session.Run(c.Wrap(cmd))
	}()

	select {
	case <-time.After(timeout):
		// Closing the session tears down the remote channel; the goroutine's
		// eventual result is discarded.
		_ = session.Close()
		return nil, nil, -1, errors.New(errors.ErrExec,
			fmt.Sprintf("Command timed out after %s: %s", timeout, truncateCmd(cmd)),
			"The host may be overloaded, or the scan may need the extended timeout.")
	case runErr := <-done:
		if runErr != nil {
			if exitErr, ok := runErr.(*ssh.ExitError); ok {
				return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitStatus(), nil
			}
			return nil, nil, -1, errors.WrapWithCode(runErr, errors.ErrExec,
				fmt.Sprintf("Failed to execute command: %s", truncateCmd(cmd)),
				"Check if the command exists on the remote host.")
		}
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
	}
}

// TestConnection dials the target, runs a trivial command, and closes the
// session. Returns ok and a human-readable message.
func TestConnection(cfg Config) (bool, string) {
	client, err := Dial(cfg, DefaultConnectTimeout)
	if err != nil {
		return false, err.Error()
	}
	defer client.Close()

	stdout, stderr, code, err := client.Run("echo OK", 30*time.Second)
	if err != nil {
		return false, err.Error()
	}
	if code != 0 || !strings.Contains(string(stdout), "OK") {
		return false, fmt.Sprintf("Command failed: %s", strings.TrimSpace(string(stderr)))
	}
	return true, "Connection successful"
}

func truncateCmd(cmd string) string {
	if len(cmd) > 80 {
		return cmd[:77] + "..."
	}
	return cmd
}
