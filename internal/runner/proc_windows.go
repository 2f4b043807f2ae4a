//go:build windows

package runner

import "os/exec"

func configureCommandProcess(cmd *exec.Cmd, _ bool) {
	cmd.Cancel = func() error {
		terminateCommandProcess(cmd, false)
		return nil
	}
}

func terminateCommandProcess(cmd *exec.Cmd, _ bool) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
