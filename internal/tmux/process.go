package tmux

import (
	"context"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// panePID returns the PID of the process running in the session's pane, or
// 0 if it cannot be determined.
func (m *Multiplexer) panePID(ctx context.Context, target string) int {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out, err := m.execCommand(ctx, m.socket, "display-message", "-t", target, "-p", "#{pane_pid}").Output()
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0
	}
	return pid
}

// IsProcessAlive checks if a process with the given PID exists.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	// Signal 0 checks existence without delivering anything.
	return syscall.Kill(pid, 0) == nil
}

// WaitForProcessExit polls until the given PID exits, the timeout passes or
// ctx is done. It reports whether the process is gone.
func WaitForProcessExit(ctx context.Context, pid int, timeout time.Duration) bool {
	if !IsProcessAlive(pid) {
		return true
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return !IsProcessAlive(pid)
		case <-deadline.C:
			return !IsProcessAlive(pid)
		case <-ticker.C:
			if !IsProcessAlive(pid) {
				return true
			}
		}
	}
}
