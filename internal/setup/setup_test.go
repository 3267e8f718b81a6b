package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stubEnv(t *testing.T, euid int, found bool) *[][]string {
	t.Helper()
	origLook, origRun, origEuid := lookPath, runner, geteuid
	t.Cleanup(func() {
		lookPath, runner, geteuid = origLook, origRun, origEuid
	})
	var calls [][]string
	lookPath = func(name string) (string, error) {
		if !found {
			return "", errors.New("not found")
		}
		return "/snap/bin/" + name, nil
	}
	runner = func(ctx context.Context, args []string) error {
		calls = append(calls, args)
		return nil
	}
	geteuid = func() int { return euid }
	return &calls
}

func TestDryRunDoesNotTouchHost(t *testing.T) {
	calls := stubEnv(t, 1000, false)
	dir := t.TempDir()
	servicePath := filepath.Join(dir, "safepaw.service")

	res, err := Run(context.Background(), Options{
		BinaryPath:  "/usr/local/bin/safepaw",
		ServicePath: servicePath,
		DryRun:      true,
	})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(*calls) != 0 {
		t.Fatalf("dry run executed commands: %v", *calls)
	}
	if _, err := os.Stat(servicePath); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote service file")
	}
	want := []string{
		"write service file " + servicePath,
		"systemctl daemon-reload",
		"systemctl enable --now safepaw",
	}
	if strings.Join(res.Commands, "\n") != strings.Join(want, "\n") {
		t.Fatalf("commands = %q", res.Commands)
	}
	if !strings.Contains(res.Unit, "ExecStart=/usr/local/bin/safepaw start --host 0.0.0.0 --ui-port 8888 --api-port 8889") {
		t.Fatalf("unit missing ExecStart:\n%s", res.Unit)
	}
}

func TestRunRequiresRoot(t *testing.T) {
	stubEnv(t, 1000, true)
	_, err := Run(context.Background(), Options{BinaryPath: "/usr/local/bin/safepaw"})
	if err == nil || !strings.Contains(err.Error(), "must be run as root") {
		t.Fatalf("expected root error, got %v", err)
	}
}

func TestRunRequiresMultipass(t *testing.T) {
	stubEnv(t, 0, false)
	_, err := Run(context.Background(), Options{
		BinaryPath:  "/usr/local/bin/safepaw",
		ServicePath: filepath.Join(t.TempDir(), "safepaw.service"),
	})
	if err == nil || !strings.Contains(err.Error(), "multipass not found") {
		t.Fatalf("expected missing multipass error, got %v", err)
	}
}

func TestRunWritesUnitAndEnables(t *testing.T) {
	calls := stubEnv(t, 0, true)
	servicePath := filepath.Join(t.TempDir(), "systemd", "safepaw.service")

	_, err := Run(context.Background(), Options{
		BinaryPath:  "/usr/local/bin/safepaw",
		ServicePath: servicePath,
		Host:        "127.0.0.1",
		UIPort:      9000,
		APIPort:     9001,
		User:        "paw",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(servicePath)
	if err != nil {
		t.Fatalf("read unit: %v", err)
	}
	unit := string(data)
	for _, want := range []string{
		"User=paw",
		"Environment=SAFEPAW_MULTIPASS=/snap/bin/multipass",
		"ExecStart=/usr/local/bin/safepaw start --host 127.0.0.1 --ui-port 9000 --api-port 9001",
		"WantedBy=multi-user.target",
	} {
		if !strings.Contains(unit, want) {
			t.Fatalf("unit missing %q:\n%s", want, unit)
		}
	}
	if len(*calls) != 2 || (*calls)[1][1] != "enable" {
		t.Fatalf("systemctl calls = %v", *calls)
	}
}

func TestNoEnableSkipsSystemctl(t *testing.T) {
	calls := stubEnv(t, 0, true)
	_, err := Run(context.Background(), Options{
		BinaryPath:  "/usr/local/bin/safepaw",
		ServicePath: filepath.Join(t.TempDir(), "safepaw.service"),
		NoEnable:    true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(*calls) != 0 {
		t.Fatalf("unexpected systemctl calls: %v", *calls)
	}
}
