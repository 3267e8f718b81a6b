package multipass

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Output is the raw result of a finished process. StatusCode is -1 when the
// process did not exit normally (for example it was killed by a signal).
type Output struct {
	StatusCode int
	Stdout     string
	Stderr     string
}

// Success returns a zero-status Output carrying stdout.
func Success(stdout string) Output {
	return Output{StatusCode: 0, Stdout: stdout}
}

// Executor runs an external program to completion without interpreting its
// output. A non-zero exit is not an error; only spawn or wait failures are.
type Executor interface {
	Run(ctx context.Context, program string, args []string) (Output, error)
}

// ExecExecutor runs programs with os/exec. Cancelling ctx terminates the
// child; see configureCancel for the platform-specific signal.
type ExecExecutor struct {
	// WaitDelay bounds how long Run waits for a cancelled child before it
	// is killed outright. Zero selects five seconds.
	WaitDelay time.Duration
}

var _ Executor = ExecExecutor{}

func (e ExecExecutor) Run(ctx context.Context, program string, args []string) (Output, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = e.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 5 * time.Second
	}
	configureCancel(cmd)

	runErr := cmd.Run()

	out := Output{
		StatusCode: -1,
		Stdout:     strings.ToValidUTF8(stdout.String(), "\uFFFD"),
		Stderr:     strings.ToValidUTF8(stderr.String(), "\uFFFD"),
	}
	if cmd.ProcessState != nil {
		out.StatusCode = cmd.ProcessState.ExitCode()
	}
	if runErr == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return out, nil
	}
	return out, runErr
}
