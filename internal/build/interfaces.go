package build

import (
	"context"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/artifacts"
	"github.com/jbweber/vagrant-ninja/internal/logpanel"
	"github.com/jbweber/vagrant-ninja/internal/metadata"
	"github.com/jbweber/vagrant-ninja/internal/runner"
)

// Workspace defines the target directory operations needed for a build.
//
// In production, this is satisfied by *workspace.Manager.
// In tests, this is satisfied by mock implementations.
type Workspace interface {
	// CreateTargetDirectory creates <base>/<name> and returns its path,
	// with an error wrapping workspace.ErrDirectoryExists if it existed
	CreateTargetDirectory(name string) (string, error)

	// RemoveDescriptor deletes a stale Vagrantfile
	RemoveDescriptor(dir string) (bool, error)

	// HasDescriptor reports whether dir contains a Vagrantfile
	HasDescriptor(dir string) bool

	// WriteArtifacts writes the Vagrantfile and bootstrap.sh
	WriteArtifacts(dir string, set artifacts.Set) error

	// WriteSeedISO writes the seed ISO
	WriteSeedISO(dir string, isoData []byte) (string, error)

	// SaveLog writes the log panel dump
	SaveLog(dir, text string) (string, error)
}

// ProcessRunner supervises the long-running provisioning tool process.
//
// In production, this is satisfied by *runner.Runner.
type ProcessRunner interface {
	Start(ctx context.Context, c runner.Command, onComplete runner.CompletionFunc) error
	RequestStop() bool
	RequestKill() bool
	Phase() v1alpha1.RunPhase
	Wait(ctx context.Context) error
}

// Executor runs short commands to completion.
//
// In production, this is satisfied by runner.Exec.
type Executor interface {
	CombinedOutput(ctx context.Context, c runner.Command) ([]byte, error)
}

// RecordStore persists run records next to the Vagrantfile.
type RecordStore interface {
	// Store replaces the record in dir
	Store(dir string, rec *metadata.Record) error

	// Update replaces the run and keeps the stored config
	Update(dir string, run *v1alpha1.BuildRun) error
}

// ProjectLocator reports the project directory quick commands run in.
type ProjectLocator interface {
	CurrentProjectDirectory() (string, error)
}

// PanelHost displays the log panel of a Service.
type PanelHost interface {
	RegisterPanel(panel *logpanel.Panel)
}

// fileRecords stores run records with the metadata package.
type fileRecords struct{}

func (fileRecords) Store(dir string, rec *metadata.Record) error {
	return metadata.Store(dir, rec)
}

func (fileRecords) Update(dir string, run *v1alpha1.BuildRun) error {
	return metadata.Update(dir, run)
}
