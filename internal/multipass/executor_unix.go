//go:build linux || darwin || freebsd || netbsd || openbsd

package multipass

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureCancel places the child in its own process group and signals the
// whole group on cancellation so helper processes spawned by the tool exit too.
func configureCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}
}
