package acquire

// PhaseStatus is the outcome of one acquisition phase.
type PhaseStatus string

const (
	// PhaseSuccess means the phase extracted and persisted its facts.
	PhaseSuccess PhaseStatus = "success"
	// PhasePartial means the phase persisted some facts but not all it
	// looked for.
	PhasePartial PhaseStatus = "partial"
	// PhaseFailed means the phase hit an error (fetch failure, timeout,
	// unusable content). A failed phase never aborts the run.
	PhaseFailed PhaseStatus = "failed"
	// PhaseSkipped means a required upstream input was missing, so the
	// phase did not execute and fabricated nothing.
	PhaseSkipped PhaseStatus = "skipped"
)

// Terminal progress event phases. A run emits exactly one of these and
// then closes the stream.
const (
	PhaseComplete = "complete"
	PhaseError    = "error"
)

// ProgressEvent is one record of the acquisition progress stream. Events
// are ephemeral; they are never persisted.
type ProgressEvent struct {
	Phase    string `json:"phase"`
	Progress int    `json:"progress"` // 0-100, non-decreasing within a run
	Message  string `json:"message"`
	Data     any    `json:"data,omitempty"`
}

// PhaseResult is the Data payload of a phase completion event.
type PhaseResult struct {
	Status PhaseStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}
