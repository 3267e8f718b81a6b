//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package multipass

import "os/exec"

// configureCancel keeps the os/exec default of killing the child process.
func configureCancel(cmd *exec.Cmd) {}
