//go:build unix

package upstream

import (
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the child in its own process group so terminate can
// reach any grandchildren it spawns (npx wrapping a node process, for
// example) rather than only the direct child.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate signals the child's whole process group, escalating to SIGKILL
// if it hasn't exited within the grace period.
func terminate(cmd *exec.Cmd, exited <-chan struct{}, grace time.Duration) {
	pgid := cmd.Process.Pid
	_ = unix.Kill(-pgid, syscall.SIGTERM)

	select {
	case <-exited:
		return
	case <-time.After(grace):
	}

	_ = unix.Kill(-pgid, syscall.SIGKILL)
}
