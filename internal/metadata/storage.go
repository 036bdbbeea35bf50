// Package metadata stores the run record of a target directory: the last
// BuildRun and the ProvisioningConfig it was built from. The record lives
// next to the Vagrantfile, so a project directory describes itself.
package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
	"github.com/jbweber/vagrant-ninja/internal/naming"
)

// Record is the YAML document written to .vagrant-ninja.yaml.
type Record struct {
	// Config is absent for quick commands run against projects that were
	// not built by this tool.
	Config *v1alpha1.ProvisioningConfig `yaml:"config,omitempty"`
	Run    *v1alpha1.BuildRun           `yaml:"run"`
}

// ErrNotFound is returned by Load when the directory has no record.
var ErrNotFound = errors.New("run record not found")

// Path returns the record path for a target directory.
func Path(dir string) string {
	return filepath.Join(dir, naming.RecordFileName)
}

// Store writes the record into dir, replacing any previous one.
func Store(dir string, rec *Record) error {
	if rec == nil || rec.Run == nil {
		return fmt.Errorf("run record requires a run")
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run record to YAML: %w", err)
	}

	path := Path(dir)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run record %s: %w", path, err)
	}

	return nil
}

// Update keeps the stored config and replaces the run. A missing record
// is created with the run alone.
func Update(dir string, run *v1alpha1.BuildRun) error {
	rec, err := Load(dir)
	if errors.Is(err, ErrNotFound) {
		rec = &Record{}
	} else if err != nil {
		return err
	}

	rec.Run = run

	return Store(dir, rec)
}

// Load reads the record from dir.
func Load(dir string) (*Record, error) {
	path := Path(dir)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run record %s: %w", path, err)
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record %s: %w", path, err)
	}
	if rec.Run == nil {
		return nil, fmt.Errorf("run record %s has no run", path)
	}

	return &rec, nil
}

// Exists reports whether dir holds a record.
func Exists(dir string) bool {
	_, err := os.Stat(Path(dir))
	return err == nil
}

// Delete removes the record from dir. A missing record is not an error.
func Delete(dir string) error {
	err := os.Remove(Path(dir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete run record: %w", err)
	}
	return nil
}

// List loads the records of every direct subdirectory of base, sorted by
// run name. Directories without a record are skipped; unreadable records
// are returned as errors alongside the records that did load.
func List(base string) ([]*Record, error) {
	entries, err := os.ReadDir(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read base directory %s: %w", base, err)
	}

	var records []*Record
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(base, entry.Name())
		if !Exists(dir) {
			continue
		}
		rec, err := Load(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Run.Name < records[j].Run.Name
	})

	return records, errors.Join(errs...)
}
