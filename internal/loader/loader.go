// Package loader provides functions for loading ProvisioningConfig resources
// from YAML files.
package loader

import (
	"fmt"
	"os"
	"os/user"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
)

var (
	nameRegex       = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*[a-z0-9]$`)
	singleCharRegex = regexp.MustCompile(`^[a-z0-9]$`)
)

// currentUser returns the login name of the invoking user.
// Replaced in tests.
var currentUser = func() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "vagrant"
}

// LoadFromFile loads a ProvisioningConfig resource from a YAML file.
// The file must be in the ninja.cofront.xyz/v1alpha1 format.
func LoadFromFile(path string) (*v1alpha1.ProvisioningConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return LoadFromYAML(data)
}

// LoadFromYAML loads a ProvisioningConfig resource from YAML bytes.
// The YAML must be in the ninja.cofront.xyz/v1alpha1 format.
func LoadFromYAML(data []byte) (*v1alpha1.ProvisioningConfig, error) {
	var cfg v1alpha1.ProvisioningConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if cfg.APIVersion == "" {
		return nil, fmt.Errorf("missing required field: apiVersion")
	}
	if cfg.Kind == "" {
		return nil, fmt.Errorf("missing required field: kind")
	}

	expectedAPIVersion := v1alpha1.APIVersion()
	if cfg.APIVersion != expectedAPIVersion {
		return nil, fmt.Errorf("unsupported apiVersion: %s (expected: %s)", cfg.APIVersion, expectedAPIVersion)
	}
	if cfg.Kind != v1alpha1.ProvisioningConfigKind {
		return nil, fmt.Errorf("unsupported kind: %s (expected: %s)", cfg.Kind, v1alpha1.ProvisioningConfigKind)
	}

	cfg.Normalize()
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveToFile saves a ProvisioningConfig resource to a YAML file.
func SaveToFile(cfg *v1alpha1.ProvisioningConfig, path string) error {
	v1alpha1.SetDefaultAPIVersion(cfg)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}

// ApplyGuestDefaults fills the git identity from the invoking user.
func ApplyGuestDefaults(cfg *v1alpha1.ProvisioningConfig) {
	if cfg.Spec.Guest.GitUser == "" {
		cfg.Spec.Guest.GitUser = currentUser()
	}
	if cfg.Spec.Guest.GitEmail == "" {
		cfg.Spec.Guest.GitEmail = cfg.Spec.Guest.GitUser + "@gmail.com"
	}
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *v1alpha1.ProvisioningConfig) {
	if cfg.Spec.Box.Codename == "" {
		cfg.Spec.Box.Codename = v1alpha1.DefaultCodename
	}
	if cfg.Spec.Box.Protocol == "" {
		cfg.Spec.Box.Protocol = v1alpha1.DefaultProtocol
	}
	if cfg.Spec.Desktop == "" {
		cfg.Spec.Desktop = v1alpha1.DesktopNone
	}
	ApplyGuestDefaults(cfg)
}

// Validate checks the ProvisioningConfig for required fields and consistency.
// Package lists, the PPA and the requirements path are free text and are
// never validated.
func Validate(cfg *v1alpha1.ProvisioningConfig) error {
	if err := ValidateName(cfg.Name); err != nil {
		return err
	}

	box := cfg.Spec.Box
	if !slices.Contains(v1alpha1.Codenames, box.Codename) {
		return fmt.Errorf("spec.box.codename %q must be one of %v", box.Codename, v1alpha1.Codenames)
	}
	if box.Architecture != v1alpha1.ArchAMD64 && box.Architecture != v1alpha1.ArchI386 {
		return fmt.Errorf("spec.box.architecture %q must be amd64 or i386", box.Architecture)
	}
	if !slices.Contains(v1alpha1.Protocols, box.Protocol) {
		return fmt.Errorf("spec.box.protocol %q must be one of %v", box.Protocol, v1alpha1.Protocols)
	}

	portsSeen := make(map[int]bool)
	for i, port := range cfg.Spec.Network.ForwardedPorts {
		if port < 1 || port > 65535 {
			return fmt.Errorf("spec.network.forwardedPorts[%d] %d must be between 1 and 65535", i, port)
		}
		if portsSeen[port] {
			return fmt.Errorf("spec.network.forwardedPorts[%d] %d is duplicated", i, port)
		}
		portsSeen[port] = true
	}

	if gui := cfg.Spec.GUI; gui != nil {
		if gui.CPUExecutionCap < 1 || gui.CPUExecutionCap > 100 {
			return fmt.Errorf("spec.gui.cpuExecutionCap %d must be between 1 and 100", gui.CPUExecutionCap)
		}
		if gui.MemoryMiB < 512 {
			return fmt.Errorf("spec.gui.memoryMiB %d must be at least 512", gui.MemoryMiB)
		}
	}

	if !slices.Contains(v1alpha1.Desktops, cfg.Spec.Desktop) {
		return fmt.Errorf("spec.desktop %q must be one of %v", cfg.Spec.Desktop, v1alpha1.Desktops)
	}

	return nil
}

// ValidateName checks a VM name: lowercase alphanumerics, '-' and '_',
// starting and ending with an alphanumeric.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("metadata.name is required")
	}
	if len(name) == 1 {
		if !singleCharRegex.MatchString(name) {
			return fmt.Errorf("metadata.name %q must be a lowercase letter or digit", name)
		}
		return nil
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("metadata.name %q must contain only lowercase letters, digits, '-' and '_', and start and end with a letter or digit", name)
	}
	return nil
}
