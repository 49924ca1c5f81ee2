package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// Runner executes a command and waits for it.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExitError reports a command that ran and exited with a non-zero status.
// A command killed by a signal carries 128 plus the signal number.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// ExitCode returns the exit status carried by err: 0 for nil, the child's status for
// an *ExitError and 1 for any other error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return 1
}

// DefaultGracePeriod applies when an ExecRunner leaves GracePeriod unset.
const DefaultGracePeriod = 10 * time.Second

// ExecRunner runs commands with os/exec, streaming their output.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	// GracePeriod is how long a cancelled command gets after the interrupt before it is killed.
	GracePeriod time.Duration
}

// NewExecRunner streams to the current process output.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		GracePeriod: DefaultGracePeriod,
	}
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	//nolint:gosec // running the configured renderer is the point of this package
	execCmd := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	execCmd.Dir = cmd.Dir
	execCmd.Stdout = r.Stdout
	execCmd.Stderr = r.Stderr
	execCmd.Stdin = nil

	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), cmd.Env...)
	}

	execCmd.Cancel = func() error {
		return execCmd.Process.Signal(os.Interrupt)
	}
	execCmd.WaitDelay = r.GracePeriod
	if execCmd.WaitDelay <= 0 {
		execCmd.WaitDelay = DefaultGracePeriod
	}

	err := execCmd.Run()
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrapf(ctxErr, "%s interrupted", cmd.Path)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return &ExitError{Command: cmd.Path, Code: code}
		}

		// Killed by a signal: report it the way a shell would, 128 plus the signal number.
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return &ExitError{Command: cmd.Path, Code: 128 + int(status.Signal())}
		}
	}

	return errors.Wrapf(err, "unable to run %s", cmd.Path)
}

var _ Runner = (*ExecRunner)(nil)
