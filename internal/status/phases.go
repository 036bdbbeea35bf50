package status

import (
	"fmt"

	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
)

// TransitionToStarting transitions the run phase to Starting.
// This should be called before the process is launched.
func TransitionToStarting(st *v1alpha1.RunStatus) error {
	// Only an idle runner may start a process
	if st.Phase != v1alpha1.RunPhaseIdle && st.Phase != "" {
		return fmt.Errorf("cannot transition to Starting from phase %s", st.Phase)
	}

	st.Phase = v1alpha1.RunPhaseStarting
	st.Message = "launching process"
	st.ExitCode = nil
	st.StartTime = v1alpha1.Time{}
	st.CompletionTime = v1alpha1.Time{}
	return nil
}

// TransitionToRunning transitions the run phase to Running.
// This should be called once the process has been launched.
func TransitionToRunning(st *v1alpha1.RunStatus) error {
	if st.Phase != v1alpha1.RunPhaseStarting {
		return fmt.Errorf("cannot transition to Running from phase %s", st.Phase)
	}

	st.Phase = v1alpha1.RunPhaseRunning
	st.StartTime = v1alpha1.Now()
	st.Message = "process running"
	SetCondition(st, v1alpha1.ConditionProcessStarted, v1alpha1.ConditionTrue, "Launched", "process launched")
	return nil
}

// TransitionToCompleted records a zero exit status.
func TransitionToCompleted(st *v1alpha1.RunStatus) error {
	if st.Phase != v1alpha1.RunPhaseRunning {
		return fmt.Errorf("cannot transition to Completed from phase %s", st.Phase)
	}

	code := 0
	st.Phase = v1alpha1.RunPhaseCompleted
	st.ExitCode = &code
	st.CompletionTime = v1alpha1.Now()
	st.Message = "process exited successfully"
	return nil
}

// TransitionToKilled records the end of a process that was asked to stop.
// exitCode is -1 when the process was terminated by a signal.
func TransitionToKilled(st *v1alpha1.RunStatus, exitCode int) error {
	if st.Phase != v1alpha1.RunPhaseRunning {
		return fmt.Errorf("cannot transition to Killed from phase %s", st.Phase)
	}

	st.Phase = v1alpha1.RunPhaseKilled
	st.ExitCode = &exitCode
	st.CompletionTime = v1alpha1.Now()
	st.Message = "process stopped on request"
	return nil
}

// TransitionToFailed transitions the run phase to Failed.
// This can happen from Starting (launch failure) or Running (non-zero exit).
// exitCode is nil when the process never ran.
func TransitionToFailed(st *v1alpha1.RunStatus, exitCode *int, reason, message string) error {
	if st.Phase != v1alpha1.RunPhaseStarting && st.Phase != v1alpha1.RunPhaseRunning {
		return fmt.Errorf("cannot transition to Failed from phase %s", st.Phase)
	}

	if st.Phase == v1alpha1.RunPhaseStarting {
		SetCondition(st, v1alpha1.ConditionProcessStarted, v1alpha1.ConditionFalse, reason, message)
	}
	st.Phase = v1alpha1.RunPhaseFailed
	st.ExitCode = exitCode
	st.CompletionTime = v1alpha1.Now()
	st.Message = message
	return nil
}

// TransitionToIdle returns a finished run to Idle so the next one may start.
// The exit code and times of the finished run are kept for inspection.
func TransitionToIdle(st *v1alpha1.RunStatus) error {
	if !IsTerminal(st.Phase) {
		return fmt.Errorf("cannot transition to Idle from phase %s", st.Phase)
	}

	st.Phase = v1alpha1.RunPhaseIdle
	return nil
}

// IsTerminal returns true if the phase is terminal (Completed, Failed or Killed).
func IsTerminal(phase v1alpha1.RunPhase) bool {
	return phase == v1alpha1.RunPhaseCompleted ||
		phase == v1alpha1.RunPhaseFailed ||
		phase == v1alpha1.RunPhaseKilled
}

// IsActive returns true while a process is being launched or is running.
func IsActive(phase v1alpha1.RunPhase) bool {
	return phase == v1alpha1.RunPhaseStarting || phase == v1alpha1.RunPhaseRunning
}

// IsIdle returns true if a new process may be started.
func IsIdle(phase v1alpha1.RunPhase) bool {
	return phase == v1alpha1.RunPhaseIdle || phase == ""
}
