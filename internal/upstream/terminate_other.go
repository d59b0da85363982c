//go:build !unix

package upstream

import (
	"os/exec"
	"time"
)

func setProcessGroup(cmd *exec.Cmd) {}

func terminate(cmd *exec.Cmd, exited <-chan struct{}, grace time.Duration) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
