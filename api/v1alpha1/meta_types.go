// Package v1alpha1 contains API types for ninja.cofront.xyz/v1alpha1.
//
// The types follow Kubernetes object conventions (TypeMeta, ObjectMeta,
// Spec, Status) so provisioning configs read like any other declarative
// resource, without pulling in k8s.io/apimachinery.
package v1alpha1

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// TypeMeta identifies the kind and API version of a serialized object.
type TypeMeta struct {
	// Kind is the CamelCase resource kind, e.g. "ProvisioningConfig".
	// +optional
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// APIVersion is "<group>/<version>".
	// +optional
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
}

// ObjectMeta holds the identifying metadata shared by all resources.
type ObjectMeta struct {
	// Name identifies the object. For a ProvisioningConfig it is also the
	// VM hostname and the target directory name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Labels are free-form key/value pairs for grouping objects.
	// +optional
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`

	// Annotations are free-form key/value pairs set by tools.
	// +optional
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`

	// CreationTimestamp is when the object was created. Read-only.
	// +optional
	CreationTimestamp Time `json:"creationTimestamp,omitempty" yaml:"creationTimestamp,omitempty"`

	// UID uniquely identifies the object. Read-only.
	// +optional
	UID string `json:"uid,omitempty" yaml:"uid,omitempty"`
}

// Time wraps time.Time with RFC3339 JSON and YAML encoding.
// The zero value encodes as null.
type Time struct {
	time.Time `json:"-" yaml:"-"`
}

// Now returns the current time as a Time.
func Now() Time {
	return Time{Time: time.Now()}
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(b []byte) error {
	if string(b) == "null" || string(b) == `""` {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t Time) MarshalYAML() (interface{}, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.Format(time.RFC3339), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Time) UnmarshalYAML(node *yaml.Node) error {
	if node.Value == "" || node.Value == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, node.Value)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Condition records one observed aspect of a run, e.g. whether the
// artifacts were written.
type Condition struct {
	// Type is the CamelCase condition name.
	Type string `json:"type" yaml:"type"`

	// Status is True, False or Unknown.
	Status ConditionStatus `json:"status" yaml:"status"`

	// LastTransitionTime is when Status last changed.
	// +optional
	LastTransitionTime Time `json:"lastTransitionTime,omitempty" yaml:"lastTransitionTime,omitempty"`

	// Reason is a CamelCase machine-readable cause.
	// +optional
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Message is a human-readable detail.
	// +optional
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ConditionStatus is the tri-state value of a Condition.
type ConditionStatus string

const (
	// ConditionTrue means the condition holds.
	ConditionTrue ConditionStatus = "True"
	// ConditionFalse means the condition does not hold.
	ConditionFalse ConditionStatus = "False"
	// ConditionUnknown means the condition could not be determined.
	ConditionUnknown ConditionStatus = "Unknown"
)

// DeepCopy creates a deep copy of ObjectMeta.
func (in *ObjectMeta) DeepCopy() *ObjectMeta {
	if in == nil {
		return nil
	}
	out := new(ObjectMeta)
	*out = *in
	out.Labels = copyStringMap(in.Labels)
	out.Annotations = copyStringMap(in.Annotations)
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
