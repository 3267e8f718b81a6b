package vm

import (
	"context"
	"fmt"
	"log/slog"
)

// Multipass is the tool adapter contract the facade depends on.
type Multipass interface {
	Launch(ctx context.Context, name string) error
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	Info(ctx context.Context, name string) (Status, error)
	List(ctx context.Context) ([]Summary, error)
}

// API is the transport-independent VM operation set shared by the CLI and
// the HTTP surface.
type API interface {
	Launch(ctx context.Context, name string) error
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	Info(ctx context.Context, name string) (Status, error)
	List(ctx context.Context) ([]Summary, error)
}

// LocalAPI drives a local multipass installation. It holds no per-call state
// and is safe for concurrent use.
type LocalAPI struct {
	multipass Multipass
	logger    *slog.Logger
}

var _ API = (*LocalAPI)(nil)

// NewLocalAPI wraps the adapter. A nil logger discards records.
func NewLocalAPI(multipass Multipass, logger *slog.Logger) *LocalAPI {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalAPI{multipass: multipass, logger: logger}
}

func (a *LocalAPI) Launch(ctx context.Context, name string) error {
	return a.lifecycle(ctx, "launch", name, a.multipass.Launch)
}

func (a *LocalAPI) Start(ctx context.Context, name string) error {
	return a.lifecycle(ctx, "start", name, a.multipass.Start)
}

func (a *LocalAPI) Stop(ctx context.Context, name string) error {
	return a.lifecycle(ctx, "stop", name, a.multipass.Stop)
}

func (a *LocalAPI) Restart(ctx context.Context, name string) error {
	return a.lifecycle(ctx, "restart", name, a.multipass.Restart)
}

func (a *LocalAPI) Delete(ctx context.Context, name string) error {
	return a.lifecycle(ctx, "delete", name, a.multipass.Delete)
}

func (a *LocalAPI) Info(ctx context.Context, name string) (Status, error) {
	if err := ValidateName(name); err != nil {
		return Status{}, err
	}
	a.logger.Info("fetching vm info", "vm", name)
	status, err := a.multipass.Info(ctx, name)
	if err != nil {
		return Status{}, fmt.Errorf("failed to get info for VM %s: %w", name, err)
	}
	a.logger.Info("vm info retrieved", "vm", name, "state", status.State)
	return status, nil
}

func (a *LocalAPI) List(ctx context.Context) ([]Summary, error) {
	a.logger.Info("listing vms")
	vms, err := a.multipass.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list VMs: %w", err)
	}
	a.logger.Info("vms listed", "count", len(vms))
	return vms, nil
}

func (a *LocalAPI) lifecycle(ctx context.Context, action, name string, op func(context.Context, string) error) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	a.logger.Info("vm operation starting", "action", action, "vm", name)
	if err := op(ctx, name); err != nil {
		return fmt.Errorf("failed to %s VM %s: %w", action, name, err)
	}
	a.logger.Info("vm operation completed", "action", action, "vm", name)
	return nil
}
