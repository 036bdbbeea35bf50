// Package workspace manages the per-VM target directories under the base
// directory: creating them, and writing the Vagrantfile, bootstrap script,
// seed ISO and saved log into them.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jbweber/vagrant-ninja/internal/artifacts"
	"github.com/jbweber/vagrant-ninja/internal/naming"
)

const (
	// DirPermissions are the permissions for target directories.
	DirPermissions = 0755

	// FilePermissions are the permissions for written files.
	FilePermissions = 0644

	// ScriptPermissions are the permissions for bootstrap.sh.
	ScriptPermissions = 0775
)

// ErrDirectoryExists is returned by CreateTargetDirectory when the target
// directory is already present. Callers may treat it as non-fatal.
var ErrDirectoryExists = errors.New("target directory already exists")

// ArtifactWriteError reports a failure to write a Vagrantfile or bootstrap
// script.
type ArtifactWriteError struct {
	Path string
	Err  error
}

func (e *ArtifactWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *ArtifactWriteError) Unwrap() error { return e.Err }

// Manager handles the target directories below a base directory.
type Manager struct {
	base string
}

// NewManager creates a manager rooted at base.
func NewManager(base string) *Manager {
	return &Manager{base: base}
}

// Base returns the base directory.
func (m *Manager) Base() string {
	return m.base
}

// TargetDirectory returns the full path of a VM's target directory.
func (m *Manager) TargetDirectory(name string) string {
	return naming.TargetDirectory(m.base, name)
}

// DirectoryExists checks if the VM's target directory already exists.
func (m *Manager) DirectoryExists(name string) (bool, error) {
	dir := m.TargetDirectory(name)

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check target directory %s: %w", dir, err)
	}

	return info.IsDir(), nil
}

// CreateTargetDirectory creates <base>/<name>, including the base itself.
// It returns the directory path in all cases; the error wraps
// ErrDirectoryExists if the directory was already there.
func (m *Manager) CreateTargetDirectory(name string) (string, error) {
	dir := m.TargetDirectory(name)

	exists, err := m.DirectoryExists(name)
	if err != nil {
		return dir, err
	}
	if exists {
		return dir, fmt.Errorf("%w: %s", ErrDirectoryExists, dir)
	}

	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return dir, fmt.Errorf("failed to create target directory %s: %w", dir, err)
	}

	return dir, nil
}

// RemoveDescriptor deletes a stale Vagrantfile from dir. It reports whether
// a file was removed; a missing file is not an error.
func (m *Manager) RemoveDescriptor(dir string) (bool, error) {
	path := filepath.Join(dir, naming.VagrantfileName)

	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return true, nil
}

// HasDescriptor reports whether dir contains a Vagrantfile.
func (m *Manager) HasDescriptor(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, naming.VagrantfileName))
	return err == nil && !info.IsDir()
}

// WriteArtifacts writes the Vagrantfile and an executable bootstrap.sh
// into dir. Failures are returned as *ArtifactWriteError.
func (m *Manager) WriteArtifacts(dir string, set artifacts.Set) error {
	vagrantfile := filepath.Join(dir, naming.VagrantfileName)
	if err := os.WriteFile(vagrantfile, []byte(set.Vagrantfile), FilePermissions); err != nil {
		return &ArtifactWriteError{Path: vagrantfile, Err: err}
	}

	script := filepath.Join(dir, naming.BootstrapScriptName)
	if err := os.WriteFile(script, []byte(set.BootstrapScript), ScriptPermissions); err != nil {
		return &ArtifactWriteError{Path: script, Err: err}
	}

	// WriteFile leaves the mode of an existing file alone and applies umask.
	if err := os.Chmod(script, ScriptPermissions); err != nil {
		return &ArtifactWriteError{Path: script, Err: err}
	}

	return nil
}

// WriteSeedISO writes the seed ISO into dir and returns its path.
func (m *Manager) WriteSeedISO(dir string, isoData []byte) (string, error) {
	if len(isoData) == 0 {
		return "", fmt.Errorf("ISO data cannot be empty")
	}

	path := filepath.Join(dir, naming.SeedISOName)
	if err := os.WriteFile(path, isoData, FilePermissions); err != nil {
		return "", fmt.Errorf("failed to write seed ISO %s: %w", path, err)
	}

	return path, nil
}

// SaveLog writes the log panel dump to vagrant_ninja.log in dir and
// returns its path.
func (m *Manager) SaveLog(dir, text string) (string, error) {
	path := filepath.Join(dir, naming.LogFileName)
	if err := os.WriteFile(path, []byte(text), FilePermissions); err != nil {
		return "", fmt.Errorf("failed to write log %s: %w", path, err)
	}

	return path, nil
}
