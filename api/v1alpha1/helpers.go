package v1alpha1

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// GroupName is the API group for vagrant-ninja resources.
	GroupName = "ninja.cofront.xyz"

	// Version is the API version.
	Version = "v1alpha1"

	// ProvisioningConfigKind is the kind string for ProvisioningConfig resources.
	ProvisioningConfigKind = "ProvisioningConfig"

	// BuildRunKind is the kind string for BuildRun resources.
	BuildRunKind = "BuildRun"
)

// Defaults applied by NewProvisioningConfig.
const (
	DefaultCodename        = "saucy"
	DefaultProtocol        = "https"
	DefaultAPTPackages     = "build-essential git python-pip vim mc wget"
	DefaultPipPackages     = "virtualenv yolk"
	DefaultCPUExecutionCap = 99
	DefaultMemoryMiB       = 1024
)

// DefaultForwardedPorts are the host/guest ports forwarded by a new config.
var DefaultForwardedPorts = []int{8000, 9000}

// APIVersion returns "<group>/<version>".
func APIVersion() string {
	return GroupName + "/" + Version
}

// NewProvisioningConfig creates a ProvisioningConfig with every option set
// to its default: the newest supported box, two forwarded ports, a GUI with
// 99% CPU and 1 GiB RAM, all maintenance steps enabled, and the directory
// opened and the log saved after the build.
func NewProvisioningConfig(name string) *ProvisioningConfig {
	ports := make([]int, len(DefaultForwardedPorts))
	copy(ports, DefaultForwardedPorts)

	return &ProvisioningConfig{
		TypeMeta: TypeMeta{
			APIVersion: APIVersion(),
			Kind:       ProvisioningConfigKind,
		},
		ObjectMeta: ObjectMeta{
			Name:              name,
			UID:               uuid.New().String(),
			CreationTimestamp: Time{Time: time.Now()},
		},
		Spec: ProvisioningSpec{
			Box: BoxSpec{
				Codename:     DefaultCodename,
				Architecture: ArchAMD64,
				Protocol:     DefaultProtocol,
			},
			Network: NetworkSpec{
				ForwardedPorts: ports,
			},
			GUI: &GUISpec{
				CPUExecutionCap: DefaultCPUExecutionCap,
				MemoryMiB:       DefaultMemoryMiB,
			},
			Packages: PackageSpec{
				APT: DefaultAPTPackages,
				Pip: DefaultPipPackages,
			},
			Desktop: DesktopNone,
			Maintenance: MaintenanceSpec{
				Update:      true,
				DistUpgrade: true,
				Autoremove:  true,
				Clean:       true,
				Configure:   true,
				FixBroken:   true,
				Check:       true,
			},
			Run: RunOptions{
				OpenDirectory: true,
				SaveLog:       true,
				LowPriority:   true,
			},
		},
	}
}

// NewBuildRun creates a BuildRun in the Idle phase.
func NewBuildRun(name, directory, verb string, command []string) *BuildRun {
	return &BuildRun{
		TypeMeta: TypeMeta{
			APIVersion: APIVersion(),
			Kind:       BuildRunKind,
		},
		ObjectMeta: ObjectMeta{
			Name:              name,
			UID:               uuid.New().String(),
			CreationTimestamp: Time{Time: time.Now()},
		},
		Spec: BuildRunSpec{
			Directory: directory,
			Verb:      verb,
			Command:   command,
		},
		Status: RunStatus{
			Phase: RunPhaseIdle,
		},
	}
}

// SetDefaultAPIVersion ensures the config has the correct apiVersion and kind.
// Useful when loading from files that might be missing these fields.
func SetDefaultAPIVersion(cfg *ProvisioningConfig) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = APIVersion()
	}
	if cfg.Kind == "" {
		cfg.Kind = ProvisioningConfigKind
	}
}

// SetDefaultRunAPIVersion is SetDefaultAPIVersion for BuildRun records.
func SetDefaultRunAPIVersion(run *BuildRun) {
	if run.APIVersion == "" {
		run.APIVersion = APIVersion()
	}
	if run.Kind == "" {
		run.Kind = BuildRunKind
	}
}

// NormalizeArchitecture maps the accepted aliases onto amd64 or i386.
// Unknown values are returned lowercased so validation can reject them.
func NormalizeArchitecture(arch string) Architecture {
	a := strings.ToLower(strings.TrimSpace(arch))
	switch a {
	case "", "amd64", "64-bit", "64bit", "x86_64":
		return ArchAMD64
	case "i386", "32-bit", "32bit", "x86":
		return ArchI386
	default:
		return Architecture(a)
	}
}

// Normalize sanitizes user input to consistent formats.
// This is called automatically before validation.
func (cfg *ProvisioningConfig) Normalize() {
	cfg.Name = strings.ToLower(strings.TrimSpace(cfg.Name))

	cfg.Spec.Box.Codename = strings.ToLower(strings.TrimSpace(cfg.Spec.Box.Codename))
	cfg.Spec.Box.Architecture = NormalizeArchitecture(string(cfg.Spec.Box.Architecture))
	cfg.Spec.Box.Protocol = strings.ToLower(strings.TrimSpace(cfg.Spec.Box.Protocol))

	cfg.Spec.Desktop = DesktopEnvironment(strings.ToLower(strings.TrimSpace(string(cfg.Spec.Desktop))))
	if cfg.Spec.Desktop == "" {
		cfg.Spec.Desktop = DesktopNone
	}

	// Package fields and the proxy are free text and stay verbatim.
}

// HasProxy reports whether the proxy is long enough to be rendered: at
// least five characters, surrounding whitespace included.
func (cfg *ProvisioningConfig) HasProxy() bool {
	return utf8.RuneCountInString(cfg.Spec.Network.Proxy) >= 5
}

// IsGUI reports whether the VM runs with a VirtualBox window.
func (cfg *ProvisioningConfig) IsGUI() bool {
	return cfg.Spec.GUI != nil
}

// SetPhase sets the run phase in status.
func (run *BuildRun) SetPhase(phase RunPhase) {
	run.Status.Phase = phase
}

// GetPhase returns the current run phase.
func (run *BuildRun) GetPhase() RunPhase {
	return run.Status.Phase
}
