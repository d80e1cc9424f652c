// Package metrics records signup form activity.
package metrics

// Settle outcomes for tracked activities.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
)

// Signup attempt results.
const (
	ResultSignedIn = "signed_in"
	ResultRejected = "rejected"
)

// Recorder defines the interface for recording form metrics.
//
// Recorders are called from the delivery thread and must not block.
type Recorder interface {
	// ActivityStarted records a tracked operation entering flight.
	ActivityStarted()

	// ActivitySettled records a tracked operation leaving flight.
	// outcome is OutcomeCompleted or OutcomeCancelled.
	ActivitySettled(outcome string)

	// SignupAttempt records the final boolean of a signup attempt.
	SignupAttempt(result string)

	// ValidationResult records a validation result kind for a field.
	ValidationResult(field, kind string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ActivityStarted does nothing in the no-op recorder.
func (n *NoopRecorder) ActivityStarted() {}

// ActivitySettled does nothing in the no-op recorder.
func (n *NoopRecorder) ActivitySettled(_ string) {}

// SignupAttempt does nothing in the no-op recorder.
func (n *NoopRecorder) SignupAttempt(_ string) {}

// ValidationResult does nothing in the no-op recorder.
func (n *NoopRecorder) ValidationResult(_, _ string) {}
