// Package setup installs SafePaw as a systemd service on the host.
package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultServicePath = "/etc/systemd/system/safepaw.service"
	serviceName        = "safepaw"
)

// Options controls the behaviour of the setup routine.
type Options struct {
	// BinaryPath is the safepaw executable the unit runs.
	BinaryPath string
	// MultipassBinary must resolve on PATH unless DryRun is set.
	MultipassBinary string
	Host            string
	UIPort          int
	APIPort         int
	ServicePath     string
	// User runs the service; multipass needs a user in its socket group.
	User   string
	DryRun bool
	// NoEnable skips systemctl enable --now.
	NoEnable bool
}

// Result collects output and executed commands.
type Result struct {
	Commands []string
	Unit     string
}

// Host hooks; tests replace them.
var (
	lookPath = exec.LookPath
	geteuid  = os.Geteuid
	runner   = func(ctx context.Context, args []string) error {
		return exec.CommandContext(ctx, args[0], args[1:]...).Run()
	}
)

func (o *Options) applyDefaults() {
	if strings.TrimSpace(o.MultipassBinary) == "" {
		o.MultipassBinary = "multipass"
	}
	if strings.TrimSpace(o.Host) == "" {
		o.Host = "0.0.0.0"
	}
	if o.UIPort == 0 {
		o.UIPort = 8888
	}
	if o.APIPort == 0 {
		o.APIPort = 8889
	}
	if strings.TrimSpace(o.ServicePath) == "" {
		o.ServicePath = DefaultServicePath
	}
}

// Run writes the unit file and enables the service.
func Run(ctx context.Context, opts Options) (*Result, error) {
	opts.applyDefaults()
	if strings.TrimSpace(opts.BinaryPath) == "" {
		return nil, errors.New("safepaw binary path required when writing service file")
	}
	if !opts.DryRun && geteuid() != 0 {
		return nil, errors.New("safepaw setup must be run as root (use --dry-run to preview)")
	}

	multipassPath, err := lookPath(opts.MultipassBinary)
	if err != nil {
		if !opts.DryRun {
			return nil, fmt.Errorf("required binary %s not found in PATH", opts.MultipassBinary)
		}
		multipassPath = opts.MultipassBinary
	}

	binaryPath, err := filepath.Abs(opts.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("resolve binary path: %w", err)
	}

	res := &Result{Unit: RenderUnit(binaryPath, multipassPath, opts)}
	if err := writeServiceFile(opts.ServicePath, res.Unit, opts.DryRun, res); err != nil {
		return nil, err
	}
	if opts.NoEnable {
		return res, nil
	}
	if err := runCommand(ctx, []string{"systemctl", "daemon-reload"}, opts.DryRun, res); err != nil {
		return nil, err
	}
	if err := runCommand(ctx, []string{"systemctl", "enable", "--now", serviceName}, opts.DryRun, res); err != nil {
		return nil, err
	}
	return res, nil
}

// RenderUnit returns the systemd unit text for the given options.
func RenderUnit(binaryPath, multipassPath string, opts Options) string {
	var b strings.Builder
	b.WriteString("[Unit]\n")
	b.WriteString("Description=SafePaw Control Plane\n")
	b.WriteString("After=network-online.target snap.multipass.multipassd.service\n")
	b.WriteString("Wants=network-online.target\n\n")
	b.WriteString("[Service]\n")
	b.WriteString("Type=simple\n")
	if opts.User != "" {
		fmt.Fprintf(&b, "User=%s\n", opts.User)
	}
	fmt.Fprintf(&b, "Environment=SAFEPAW_MULTIPASS=%s\n", multipassPath)
	fmt.Fprintf(&b, "ExecStart=%s start --host %s --ui-port %s --api-port %s\n",
		binaryPath, opts.Host, strconv.Itoa(opts.UIPort), strconv.Itoa(opts.APIPort))
	b.WriteString("Restart=always\n")
	b.WriteString("RestartSec=5\n\n")
	b.WriteString("[Install]\n")
	b.WriteString("WantedBy=multi-user.target\n")
	return b.String()
}

func runCommand(ctx context.Context, args []string, dryRun bool, res *Result) error {
	res.Commands = append(res.Commands, strings.Join(args, " "))
	if dryRun {
		return nil
	}
	if err := runner(ctx, args); err != nil {
		return fmt.Errorf("run %v: %w", args, err)
	}
	return nil
}

func writeServiceFile(path, unit string, dryRun bool, res *Result) error {
	res.Commands = append(res.Commands, fmt.Sprintf("write service file %s", path))
	if dryRun {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare service directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create service file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(unit); err != nil {
		return fmt.Errorf("write service file: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush service file: %w", err)
	}
	return nil
}
