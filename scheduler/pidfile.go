package scheduler

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// AcquirePIDFile writes the current process id to path, refusing to
// start if the file already names another live process (§4.9).
func AcquirePIDFile(path string) (release func() error, err error) {
	if existing, ok := readLivePID(path); ok {
		return nil, fmt.Errorf("scheduler already running with pid %d (pid file %s)", existing, path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}

	return func() error {
		return os.Remove(path)
	}, nil
}

// readLivePID returns the pid recorded in path and whether that
// process is still alive. A missing or unparsable file is treated as
// no live holder.
func readLivePID(path string) (int, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	if !processAlive(pid) {
		return 0, false
	}
	return pid, true
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds; signal 0 probes liveness
	// without actually sending a signal.
	return proc.Signal(syscall.Signal(0)) == nil
}
