//go:build linux || darwin || freebsd || netbsd || openbsd

package multipass

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestExecExecutorCapturesFailingOutput(t *testing.T) {
	sh := requireShell(t)

	out, err := ExecExecutor{}.Run(context.Background(), sh, []string{"-c", "echo out; echo err >&2; exit 3"})
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if out.StatusCode != 3 {
		t.Fatalf("status = %d", out.StatusCode)
	}
	if strings.TrimSpace(out.Stdout) != "out" || strings.TrimSpace(out.Stderr) != "err" {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestExecExecutorSpawnFailure(t *testing.T) {
	_, err := ExecExecutor{}.Run(context.Background(), "/nonexistent/safepaw-multipass", nil)
	if err == nil {
		t.Fatalf("expected spawn error")
	}
}

func TestExecExecutorCancellationTerminatesChild(t *testing.T) {
	sh := requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ExecExecutor{WaitDelay: time.Second}.Run(ctx, sh, []string{"-c", "sleep 30"})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("child outlived cancellation: %s", elapsed)
	}
}
