//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// configureCommandProcess puts the game in its own process group so a
// timeout takes down anything it spawned as well. Interactive games stay in
// the launcher's group: a background group cannot read the terminal.
func configureCommandProcess(cmd *exec.Cmd, interactive bool) {
	if !interactive {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
	cmd.Cancel = func() error {
		terminateCommandProcess(cmd, !interactive)
		return nil
	}
}

func terminateCommandProcess(cmd *exec.Cmd, group bool) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if pid <= 0 {
		return
	}
	if group {
		if pgid, err := syscall.Getpgid(pid); err == nil && pgid == pid {
			_ = syscall.Kill(-pgid, syscall.SIGKILL)
			return
		}
	}
	_ = cmd.Process.Kill()
}
