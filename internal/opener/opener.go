// Package opener opens a directory in the desktop file manager.
package opener

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Opener opens a path for the user. Implementations must not block on the
// launched application.
type Opener interface {
	Open(path string) error
}

// System opens paths with the platform file manager: xdg-open on Linux and
// BSD, open on macOS, explorer on Windows.
type System struct {
	// GOOS overrides runtime.GOOS when set.
	GOOS string
}

// Command returns the argv used to open path.
func (s System) Command(path string) []string {
	goos := s.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	switch goos {
	case "darwin":
		return []string{"open", path}
	case "windows":
		return []string{"explorer", path}
	default:
		return []string{"xdg-open", path}
	}
}

// Open starts the file manager and returns without waiting for it.
func (s System) Open(path string) error {
	argv := s.Command(path)
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s with %s: %w", path, argv[0], err)
	}
	// Reap the child; its exit status is of no interest.
	go func() { _ = cmd.Wait() }()
	return nil
}
