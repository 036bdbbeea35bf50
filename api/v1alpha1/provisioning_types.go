package v1alpha1

// ProvisioningConfig describes one Vagrant-managed VM: which Ubuntu cloud
// box to boot, how to reach it, and what the bootstrap script installs.
//
// A ProvisioningConfig is the immutable input of a build. The build takes a
// DeepCopy when it starts and never writes back to the caller's value.
type ProvisioningConfig struct {
	TypeMeta   `json:",inline" yaml:",inline"`
	ObjectMeta `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Spec is the desired VM and guest configuration.
	Spec ProvisioningSpec `json:"spec" yaml:"spec"`
}

// ProvisioningSpec holds every option that feeds the Vagrantfile and the
// bootstrap script.
type ProvisioningSpec struct {
	// Box selects the Ubuntu cloud image.
	Box BoxSpec `json:"box" yaml:"box"`

	// Network holds port forwards and the guest package proxy.
	// +optional
	Network NetworkSpec `json:"network,omitempty" yaml:"network,omitempty"`

	// GUI enables a VirtualBox window with CPU and RAM caps.
	// A nil GUI means headless and no provider block is rendered.
	// +optional
	GUI *GUISpec `json:"gui,omitempty" yaml:"gui,omitempty"`

	// Packages are installed by the bootstrap script.
	// +optional
	Packages PackageSpec `json:"packages,omitempty" yaml:"packages,omitempty"`

	// Desktop is the desktop environment to install in the guest.
	// +optional
	// +kubebuilder:validation:Enum=none;unity;kde;lxde;xfce
	Desktop DesktopEnvironment `json:"desktop,omitempty" yaml:"desktop,omitempty"`

	// Maintenance gates the package-manager housekeeping commands.
	// +optional
	Maintenance MaintenanceSpec `json:"maintenance,omitempty" yaml:"maintenance,omitempty"`

	// Guest holds guest identity settings used by the bootstrap script.
	// +optional
	Guest GuestSpec `json:"guest,omitempty" yaml:"guest,omitempty"`

	// Run holds options that affect the build itself rather than the VM.
	// +optional
	Run RunOptions `json:"run,omitempty" yaml:"run,omitempty"`
}

// BoxSpec selects the Vagrant box published on cloud-images.ubuntu.com.
type BoxSpec struct {
	// Codename is the Ubuntu release codename.
	// +kubebuilder:validation:Enum=saucy;raring;quantal;precise
	Codename string `json:"codename" yaml:"codename"`

	// Architecture is amd64 (64-bit) or i386 (32-bit).
	// +kubebuilder:default=amd64
	Architecture Architecture `json:"architecture,omitempty" yaml:"architecture,omitempty"`

	// Protocol is the scheme used to download the box, https or http.
	// +kubebuilder:default=https
	Protocol string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
}

// NetworkSpec holds the guest networking options.
type NetworkSpec struct {
	// ForwardedPorts are mapped host port N -> guest port N, in order.
	// +optional
	ForwardedPorts []int `json:"forwardedPorts,omitempty" yaml:"forwardedPorts,omitempty"`

	// Proxy is "user:password@host:port", used for apt and the shell
	// environment inside the guest. Values shorter than 5 characters are
	// treated as unset.
	// +optional
	Proxy string `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

// GUISpec caps the resources of a VM that runs with a VirtualBox window.
type GUISpec struct {
	// CPUExecutionCap is the VirtualBox CPU execution cap in percent.
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=100
	CPUExecutionCap int `json:"cpuExecutionCap" yaml:"cpuExecutionCap"`

	// MemoryMiB is the guest RAM in mebibytes.
	// +kubebuilder:validation:Minimum=512
	MemoryMiB int `json:"memoryMiB" yaml:"memoryMiB"`
}

// PackageSpec lists what the bootstrap script installs.
//
// All fields are copied verbatim into the shell script. They are not
// escaped or validated.
type PackageSpec struct {
	// APT is a space separated list of apt packages.
	APT string `json:"apt,omitempty" yaml:"apt,omitempty"`

	// PPA is passed to add-apt-repository, e.g. "ppa:ninja-ide-developers/daily".
	PPA string `json:"ppa,omitempty" yaml:"ppa,omitempty"`

	// Pip is a space separated list of pip packages.
	Pip string `json:"pip,omitempty" yaml:"pip,omitempty"`

	// RequirementsFile is a pip requirements file path inside the guest.
	RequirementsFile string `json:"requirementsFile,omitempty" yaml:"requirementsFile,omitempty"`
}

// MaintenanceSpec gates each package-manager maintenance command.
type MaintenanceSpec struct {
	Update      bool `json:"update,omitempty" yaml:"update,omitempty"`
	DistUpgrade bool `json:"distUpgrade,omitempty" yaml:"distUpgrade,omitempty"`
	Autoremove  bool `json:"autoremove,omitempty" yaml:"autoremove,omitempty"`
	Clean       bool `json:"clean,omitempty" yaml:"clean,omitempty"`
	Configure   bool `json:"configure,omitempty" yaml:"configure,omitempty"`
	FixBroken   bool `json:"fixBroken,omitempty" yaml:"fixBroken,omitempty"`
	Check       bool `json:"check,omitempty" yaml:"check,omitempty"`
}

// GuestSpec holds the git identity configured inside the guest.
type GuestSpec struct {
	// GitUser defaults to the invoking OS user.
	GitUser string `json:"gitUser,omitempty" yaml:"gitUser,omitempty"`

	// GitEmail defaults to "<GitUser>@gmail.com".
	GitEmail string `json:"gitEmail,omitempty" yaml:"gitEmail,omitempty"`
}

// RunOptions controls the side effects of a build.
type RunOptions struct {
	// OpenDirectory opens the target directory in the file manager when
	// the provisioning tool exits.
	OpenDirectory bool `json:"openDirectory,omitempty" yaml:"openDirectory,omitempty"`

	// SaveLog writes the log panel to vagrant_ninja.log when the
	// provisioning tool exits.
	SaveLog bool `json:"saveLog,omitempty" yaml:"saveLog,omitempty"`

	// LowPriority runs vagrant under the configured CPU priority wrapper.
	LowPriority bool `json:"lowPriority,omitempty" yaml:"lowPriority,omitempty"`
}

// Architecture is the guest CPU architecture in Ubuntu naming.
type Architecture string

const (
	// ArchAMD64 is x86_64, 64-bit.
	ArchAMD64 Architecture = "amd64"
	// ArchI386 is x86, 32-bit.
	ArchI386 Architecture = "i386"
)

// DesktopEnvironment is the single desktop selection for the guest.
type DesktopEnvironment string

const (
	DesktopNone  DesktopEnvironment = "none"
	DesktopUnity DesktopEnvironment = "unity"
	DesktopKDE   DesktopEnvironment = "kde"
	DesktopLXDE  DesktopEnvironment = "lxde"
	DesktopXFCE  DesktopEnvironment = "xfce"
)

// Package returns the apt meta-package for the desktop, or "" for none.
func (d DesktopEnvironment) Package() string {
	switch d {
	case DesktopUnity:
		return "ubuntu-desktop"
	case DesktopKDE:
		return "kubuntu-desktop"
	case DesktopLXDE:
		return "lubuntu-desktop"
	case DesktopXFCE:
		return "xubuntu-desktop"
	default:
		return ""
	}
}

// Supported values for BoxSpec fields.
var (
	Codenames = []string{"saucy", "raring", "quantal", "precise"}
	Protocols = []string{"https", "http"}
	Desktops  = []DesktopEnvironment{DesktopNone, DesktopUnity, DesktopKDE, DesktopLXDE, DesktopXFCE}
)

// DeepCopy creates a deep copy of ProvisioningConfig.
func (in *ProvisioningConfig) DeepCopy() *ProvisioningConfig {
	if in == nil {
		return nil
	}
	out := new(ProvisioningConfig)
	out.TypeMeta = in.TypeMeta
	out.ObjectMeta = *in.ObjectMeta.DeepCopy()
	out.Spec = *in.Spec.DeepCopy()
	return out
}

// DeepCopy creates a deep copy of ProvisioningSpec.
func (in *ProvisioningSpec) DeepCopy() *ProvisioningSpec {
	if in == nil {
		return nil
	}
	out := new(ProvisioningSpec)
	*out = *in
	if in.Network.ForwardedPorts != nil {
		out.Network.ForwardedPorts = make([]int, len(in.Network.ForwardedPorts))
		copy(out.Network.ForwardedPorts, in.Network.ForwardedPorts)
	}
	if in.GUI != nil {
		gui := *in.GUI
		out.GUI = &gui
	}
	return out
}
