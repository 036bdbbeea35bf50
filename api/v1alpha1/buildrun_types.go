package v1alpha1

// BuildRun records one invocation of the provisioning tool: the full build
// of a ProvisioningConfig or a quick command against an existing project.
//
// +kubebuilder:object:root=true
// +kubebuilder:resource:shortName=run;runs
// +kubebuilder:printcolumn:name="Verb",type=string,JSONPath=`.spec.verb`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type BuildRun struct {
	TypeMeta   `json:",inline" yaml:",inline"`
	ObjectMeta `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Spec describes what was run and where.
	Spec BuildRunSpec `json:"spec" yaml:"spec"`

	// Status is the observed state of the run.
	// +optional
	Status RunStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// BuildRunSpec describes the external command of a run.
type BuildRunSpec struct {
	// Directory is the working directory of the provisioning tool.
	Directory string `json:"directory" yaml:"directory"`

	// Verb is the provisioning tool subcommand, e.g. "up" or "halt".
	Verb string `json:"verb" yaml:"verb"`

	// Command is the full argv, including any priority wrapper.
	// +optional
	Command []string `json:"command,omitempty" yaml:"command,omitempty"`
}

// RunStatus is the observed state of a process run.
type RunStatus struct {
	// Phase is the lifecycle phase of the run.
	// +optional
	Phase RunPhase `json:"phase,omitempty" yaml:"phase,omitempty"`

	// StartTime is when the process was launched.
	// +optional
	StartTime Time `json:"startTime,omitempty" yaml:"startTime,omitempty"`

	// CompletionTime is when the run reached a terminal phase.
	// +optional
	CompletionTime Time `json:"completionTime,omitempty" yaml:"completionTime,omitempty"`

	// ExitCode is the process exit code, unset if the process never exited
	// normally.
	// +optional
	ExitCode *int `json:"exitCode,omitempty" yaml:"exitCode,omitempty"`

	// Message is a human-readable description of the last transition.
	// +optional
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Conditions are the observations made while preparing the run.
	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// RunPhase is the lifecycle phase of a process run.
type RunPhase string

const (
	// RunPhaseIdle means no process is running.
	RunPhaseIdle RunPhase = "Idle"

	// RunPhaseStarting means the process is being launched.
	RunPhaseStarting RunPhase = "Starting"

	// RunPhaseRunning means the process is alive and its output is relayed.
	RunPhaseRunning RunPhase = "Running"

	// RunPhaseCompleted means the process exited with status 0.
	RunPhaseCompleted RunPhase = "Completed"

	// RunPhaseFailed means the process could not launch or exited non-zero.
	RunPhaseFailed RunPhase = "Failed"

	// RunPhaseKilled means the process ended after a stop or kill request.
	RunPhaseKilled RunPhase = "Killed"
)

// Condition types for BuildRun.
const (
	// ConditionDirectoryReady indicates the target directory exists.
	ConditionDirectoryReady = "DirectoryReady"

	// ConditionArtifactsWritten indicates the Vagrantfile and bootstrap
	// script were written.
	ConditionArtifactsWritten = "ArtifactsWritten"

	// ConditionProcessStarted indicates the provisioning tool was launched.
	ConditionProcessStarted = "ProcessStarted"
)

// DeepCopy creates a deep copy of BuildRun.
func (in *BuildRun) DeepCopy() *BuildRun {
	if in == nil {
		return nil
	}
	out := new(BuildRun)
	out.TypeMeta = in.TypeMeta
	out.ObjectMeta = *in.ObjectMeta.DeepCopy()
	out.Spec = in.Spec
	if in.Spec.Command != nil {
		out.Spec.Command = make([]string, len(in.Spec.Command))
		copy(out.Spec.Command, in.Spec.Command)
	}
	out.Status = *in.Status.DeepCopy()
	return out
}

// DeepCopy creates a deep copy of RunStatus.
func (in *RunStatus) DeepCopy() *RunStatus {
	if in == nil {
		return nil
	}
	out := new(RunStatus)
	*out = *in
	if in.ExitCode != nil {
		code := *in.ExitCode
		out.ExitCode = &code
	}
	if in.Conditions != nil {
		out.Conditions = make([]Condition, len(in.Conditions))
		copy(out.Conditions, in.Conditions)
	}
	return out
}
