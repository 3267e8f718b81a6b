package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ccheshirecat/safepaw/internal/cli/standard"
)

// exitInterrupted follows the shell convention of 128+SIGINT.
const exitInterrupted = 130

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := standard.Execute(ctx)
	interrupted := ctx.Err() != nil
	cancel()
	if code := report(os.Stderr, err, interrupted); code != 0 {
		os.Exit(code)
	}
}

// report prints err with its cause chain and returns the process exit code.
// Commands that stop cleanly on a signal return nil; anything else that fails
// after a signal exits with exitInterrupted.
func report(w io.Writer, err error, interrupted bool) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "error: %v\n", err)
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(w, "caused by: %v\n", cause)
	}
	if interrupted {
		return exitInterrupted
	}
	return 1
}
