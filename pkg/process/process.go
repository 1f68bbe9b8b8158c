// Package process inspects operating system processes.
package process

import (
	"os"
	"syscall"
)

// IsAlive reports whether a process with the given PID exists. Signal 0
// probes for existence without delivering anything; EPERM still means the
// process is there, just owned by someone else.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = p.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}

// Terminate asks the process to shut down with SIGTERM.
func Terminate(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(syscall.SIGTERM)
}
