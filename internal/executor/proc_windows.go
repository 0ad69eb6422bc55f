//go:build windows

package executor

import "os/exec"

func setProcAttr(cmd *exec.Cmd) {
	// No process groups on Windows; rely on Kill below.
}

func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
