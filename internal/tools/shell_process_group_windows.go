//go:build windows

package tools

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {
	_ = cmd
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
