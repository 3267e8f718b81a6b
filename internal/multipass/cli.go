package multipass

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ccheshirecat/safepaw/internal/vm"
)

// DefaultBinary is the multipass client looked up on PATH.
const DefaultBinary = "multipass"

// CLI builds multipass invocations and turns their output into vm records.
type CLI struct {
	Binary   string
	Executor Executor
	Logger   *slog.Logger
	// CommandTimeout bounds each invocation when positive.
	CommandTimeout time.Duration
}

var _ vm.Multipass = (*CLI)(nil)

// New returns a CLI. Empty binary selects DefaultBinary; nil executor selects
// ExecExecutor.
func New(binary string, executor Executor, logger *slog.Logger) *CLI {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	if executor == nil {
		executor = ExecExecutor{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CLI{Binary: binary, Executor: executor, Logger: logger}
}

func (c *CLI) Launch(ctx context.Context, name string) error {
	_, err := c.run(ctx, "launch", []string{"launch", "--name", name})
	return err
}

func (c *CLI) Start(ctx context.Context, name string) error {
	_, err := c.run(ctx, "start", []string{"start", name})
	return err
}

func (c *CLI) Stop(ctx context.Context, name string) error {
	_, err := c.run(ctx, "stop", []string{"stop", name})
	return err
}

func (c *CLI) Restart(ctx context.Context, name string) error {
	_, err := c.run(ctx, "restart", []string{"restart", name})
	return err
}

func (c *CLI) Delete(ctx context.Context, name string) error {
	_, err := c.run(ctx, "delete", []string{"delete", name, "--purge"})
	return err
}

func (c *CLI) Info(ctx context.Context, name string) (vm.Status, error) {
	out, err := c.run(ctx, "info", []string{"info", name, "--format", "json"})
	if err != nil {
		return vm.Status{}, err
	}
	return parseInfo(name, out.Stdout)
}

func (c *CLI) List(ctx context.Context) ([]vm.Summary, error) {
	out, err := c.run(ctx, "list", []string{"list", "--format", "json"})
	if err != nil {
		return nil, err
	}
	return parseList(out.Stdout)
}

func (c *CLI) run(ctx context.Context, action string, args []string) (Output, error) {
	logger := c.Logger.With("action", action)
	logger.Info("running multipass command", "command", c.Binary+" "+strings.Join(args, " "))

	if c.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.CommandTimeout)
		defer cancel()
	}

	out, err := c.Executor.Run(ctx, c.Binary, args)
	if err != nil {
		return Output{}, &vm.ProcessIOError{Err: err}
	}

	stderr := strings.TrimSpace(out.Stderr)
	if out.StatusCode != 0 {
		if stdout := strings.TrimSpace(out.Stdout); stdout != "" {
			logger.Debug("multipass stdout", "stdout", stdout)
		}
		if stderr != "" {
			logger.Warn("multipass stderr", "stderr", stderr)
		}
		return Output{}, &vm.CommandFailedError{Action: action, StatusCode: out.StatusCode, Stderr: stderr}
	}

	if stderr != "" {
		logger.Debug("multipass stderr", "stderr", stderr)
	}
	logger.Info("multipass command completed")
	return out, nil
}
