//go:build !windows

// Package process terminates the headless Chrome process tree left behind
// by a renderer.
package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group led by pid.
// Non-positive PIDs are ignored: -0 would target the caller's own group.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	// Best-effort; launcher.Kill() runs afterwards as a fallback
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
