package domain

// Progress stages emitted during embedding generation, in order.
const (
	StageStarting         = "starting"
	StageLoading          = "loading"
	StageGenerating       = "generating"
	StageStoring          = "storing"
	StageDocumentComplete = "document_complete"
	StageComplete         = "complete"
	StageBatchStart       = "batch_start"
	StageBatchComplete    = "batch_complete"
)

// Event is implemented by all broadcast payloads. Events are
// fire-and-forget: slow consumers never block the producer.
type Event interface {
	EventName() string
}

// ProgressEvent reports embedding pipeline progress.
type ProgressEvent struct {
	// Stage is one of the Stage* constants.
	Stage string

	// DocumentID is set for per-document stages, empty for run-level ones.
	DocumentID string

	// Progress is the overall completion percentage (0-100). It is
	// monotonically non-decreasing within a bulk run and reaches
	// exactly 100 on the last document.
	Progress int
}

// EventName implements Event.
func (ProgressEvent) EventName() string { return "progress" }

// BatchEvent brackets one size-limited sub-batch of a bulk run.
type BatchEvent struct {
	// Stage is StageBatchStart or StageBatchComplete.
	Stage string

	// BatchNumber counts batches from 1.
	BatchNumber int

	// TotalBatches is ceil(totalDocuments / batchSize), fixed for the run.
	TotalBatches int
}

// EventName implements Event.
func (BatchEvent) EventName() string { return "batch" }

// ErrorEvent reports a per-document failure during a bulk run.
type ErrorEvent struct {
	DocumentID string
	Err        error
}

// EventName implements Event.
func (ErrorEvent) EventName() string { return "error" }

// ProviderChangedEvent announces a successful provider switch.
type ProviderChangedEvent struct {
	Provider string
}

// EventName implements Event.
func (ProviderChangedEvent) EventName() string { return "provider-changed" }
