// Package handlers turns vm.API calls into a success-or-failure Result that
// both the CLI and the HTTP API render, so the two never disagree on outcome.
package handlers

import (
	"context"
	"fmt"

	"github.com/ccheshirecat/safepaw/internal/vm"
)

// Result is the shared envelope. On success Message and/or Data are set; on
// failure Message carries the error text and Err the underlying error.
type Result[T any] struct {
	Success bool
	Message string
	Data    *T
	Err     error
}

func ok[T any](message string, data *T) Result[T] {
	return Result[T]{Success: true, Message: message, Data: data}
}

func failed[T any](err error) Result[T] {
	return Result[T]{Success: false, Message: err.Error(), Err: err}
}

// Empty is the payload type of operations that return no data.
type Empty struct{}

func LaunchVM(ctx context.Context, api vm.API, name string) Result[Empty] {
	return mutate(ctx, api.Launch, name, "launched")
}

func StartVM(ctx context.Context, api vm.API, name string) Result[Empty] {
	return mutate(ctx, api.Start, name, "started")
}

func StopVM(ctx context.Context, api vm.API, name string) Result[Empty] {
	return mutate(ctx, api.Stop, name, "stopped")
}

func RestartVM(ctx context.Context, api vm.API, name string) Result[Empty] {
	return mutate(ctx, api.Restart, name, "restarted")
}

func DeleteVM(ctx context.Context, api vm.API, name string) Result[Empty] {
	return mutate(ctx, api.Delete, name, "deleted")
}

func GetVMInfo(ctx context.Context, api vm.API, name string) Result[vm.Status] {
	status, err := api.Info(ctx, name)
	if err != nil {
		return failed[vm.Status](err)
	}
	return ok(fmt.Sprintf("retrieved info for `%s`", name), &status)
}

func ListVMs(ctx context.Context, api vm.API) Result[[]vm.Summary] {
	vms, err := api.List(ctx)
	if err != nil {
		return failed[[]vm.Summary](err)
	}
	if vms == nil {
		vms = []vm.Summary{}
	}
	return ok(fmt.Sprintf("found %d VMs", len(vms)), &vms)
}

func mutate(ctx context.Context, op func(context.Context, string) error, name, verb string) Result[Empty] {
	if err := op(ctx, name); err != nil {
		return failed[Empty](err)
	}
	return ok[Empty](fmt.Sprintf("%s `%s`", verb, name), nil)
}
