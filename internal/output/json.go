package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
)

// JSONFormatter formats resources as JSON.
type JSONFormatter struct{}

// FormatConfig formats a ProvisioningConfig as JSON.
func (f *JSONFormatter) FormatConfig(cfg *v1alpha1.ProvisioningConfig) (string, error) {
	v1alpha1.SetDefaultAPIVersion(cfg)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal config to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatRun formats a single BuildRun as JSON.
func (f *JSONFormatter) FormatRun(run *v1alpha1.BuildRun) (string, error) {
	v1alpha1.SetDefaultRunAPIVersion(run)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatRunList formats BuildRuns as a JSON array.
func (f *JSONFormatter) FormatRunList(runs []*v1alpha1.BuildRun) (string, error) {
	if len(runs) == 0 {
		return "[]\n", nil
	}

	for _, run := range runs {
		v1alpha1.SetDefaultRunAPIVersion(run)
	}

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal runs to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatRunListAsItems formats BuildRuns as a Kubernetes style list:
//
//	{
//	  "apiVersion": "ninja.cofront.xyz/v1alpha1",
//	  "kind": "BuildRunList",
//	  "items": [...]
//	}
func (f *JSONFormatter) FormatRunListAsItems(runs []*v1alpha1.BuildRun) (string, error) {
	for _, run := range runs {
		v1alpha1.SetDefaultRunAPIVersion(run)
	}
	if runs == nil {
		runs = []*v1alpha1.BuildRun{}
	}

	wrapper := map[string]interface{}{
		"apiVersion": v1alpha1.APIVersion(),
		"kind":       v1alpha1.BuildRunKind + "List",
		"items":      runs,
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(wrapper); err != nil {
		return "", fmt.Errorf("failed to marshal run list to JSON: %w", err)
	}

	return buf.String(), nil
}
