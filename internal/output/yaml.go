package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
)

// YAMLFormatter formats resources as YAML.
type YAMLFormatter struct{}

// FormatConfig formats a ProvisioningConfig as YAML, the same document
// the loader reads.
func (f *YAMLFormatter) FormatConfig(cfg *v1alpha1.ProvisioningConfig) (string, error) {
	v1alpha1.SetDefaultAPIVersion(cfg)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	return string(data), nil
}

// FormatRun formats a single BuildRun as YAML.
func (f *YAMLFormatter) FormatRun(run *v1alpha1.BuildRun) (string, error) {
	v1alpha1.SetDefaultRunAPIVersion(run)

	data, err := yaml.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("failed to marshal run to YAML: %w", err)
	}

	return string(data), nil
}

// FormatRunList formats BuildRuns as a YAML stream (documents separated
// by ---).
func (f *YAMLFormatter) FormatRunList(runs []*v1alpha1.BuildRun) (string, error) {
	if len(runs) == 0 {
		return "", nil
	}

	var buf bytes.Buffer

	for i, run := range runs {
		v1alpha1.SetDefaultRunAPIVersion(run)

		data, err := yaml.Marshal(run)
		if err != nil {
			return "", fmt.Errorf("failed to marshal run %s to YAML: %w", run.Name, err)
		}

		if i > 0 {
			buf.WriteString("---\n")
		}

		buf.Write(data)
	}

	return buf.String(), nil
}
