// Package status provides utilities for managing run status fields,
// including conditions and phase transitions.
package status

import (
	"github.com/jbweber/vagrant-ninja/api/v1alpha1"
)

// SetCondition adds or updates a condition in the run status.
// If a condition with the same type already exists, it updates it.
// The LastTransitionTime is only updated if the status changes.
func SetCondition(st *v1alpha1.RunStatus, condType string, status v1alpha1.ConditionStatus, reason, message string) {
	now := v1alpha1.Now()

	for i := range st.Conditions {
		if st.Conditions[i].Type == condType {
			existing := &st.Conditions[i]

			// Only update LastTransitionTime if status changed
			if existing.Status != status {
				existing.LastTransitionTime = now
			}

			existing.Status = status
			existing.Reason = reason
			existing.Message = message
			return
		}
	}

	st.Conditions = append(st.Conditions, v1alpha1.Condition{
		Type:               condType,
		Status:             status,
		LastTransitionTime: now,
		Reason:             reason,
		Message:            message,
	})
}

// GetCondition returns a condition by type, or nil if not found.
func GetCondition(st *v1alpha1.RunStatus, condType string) *v1alpha1.Condition {
	for i := range st.Conditions {
		if st.Conditions[i].Type == condType {
			return &st.Conditions[i]
		}
	}
	return nil
}

// IsConditionTrue returns true if the condition exists and has status True.
func IsConditionTrue(st *v1alpha1.RunStatus, condType string) bool {
	cond := GetCondition(st, condType)
	return cond != nil && cond.Status == v1alpha1.ConditionTrue
}

// IsConditionFalse returns true if the condition exists and has status False.
func IsConditionFalse(st *v1alpha1.RunStatus, condType string) bool {
	cond := GetCondition(st, condType)
	return cond != nil && cond.Status == v1alpha1.ConditionFalse
}

// MarkDirectoryReady marks the target directory condition as True.
// reason distinguishes a fresh directory from one that already existed.
func MarkDirectoryReady(st *v1alpha1.RunStatus, reason, message string) {
	SetCondition(st, v1alpha1.ConditionDirectoryReady, v1alpha1.ConditionTrue, reason, message)
}

// MarkDirectoryFailed marks the target directory condition as False.
func MarkDirectoryFailed(st *v1alpha1.RunStatus, err error) {
	SetCondition(st, v1alpha1.ConditionDirectoryReady, v1alpha1.ConditionFalse, "DirectoryFailed", err.Error())
}

// MarkArtifactsWritten marks the artifacts condition as True.
func MarkArtifactsWritten(st *v1alpha1.RunStatus) {
	SetCondition(st, v1alpha1.ConditionArtifactsWritten, v1alpha1.ConditionTrue, "ArtifactsWritten", "Vagrantfile and bootstrap script written")
}

// MarkArtifactsFailed marks the artifacts condition as False and fails the run.
// No process is started after this.
func MarkArtifactsFailed(st *v1alpha1.RunStatus, err error) {
	SetCondition(st, v1alpha1.ConditionArtifactsWritten, v1alpha1.ConditionFalse, "ArtifactWriteFailed", err.Error())
	st.Phase = v1alpha1.RunPhaseFailed
	st.CompletionTime = v1alpha1.Now()
	st.Message = err.Error()
}
