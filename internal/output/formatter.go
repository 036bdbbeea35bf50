// Package output provides formatters for displaying provisioning configs
// and build runs in various formats (table, YAML, JSON).
package output

import (
	"fmt"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format for declarative configs.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Formatter formats vagrant-ninja resources for output.
type Formatter interface {
	// FormatConfig formats a single ProvisioningConfig.
	FormatConfig(cfg *v1alpha1.ProvisioningConfig) (string, error)

	// FormatRun formats a single BuildRun.
	FormatRun(run *v1alpha1.BuildRun) (string, error)

	// FormatRunList formats a list of BuildRuns.
	FormatRunList(runs []*v1alpha1.BuildRun) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	f := Format(format)
	switch f {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}
