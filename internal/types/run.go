package types

import "time"

// RunStatus is the terminal state of a run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunNoReviews RunStatus = "no_reviews"
	RunFailed    RunStatus = "failed"
)

// Run is one collect-then-analyze session for a product URL.
// A new Run replaces the previous one; nothing is shared between runs.
type Run struct {
	ID              string           `json:"id"`
	URL             string           `json:"url"`
	Status          RunStatus        `json:"status"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
	MaxReviews      int              `json:"max_reviews"`
	Collected       int              `json:"collected"`
	AdvertisedTotal int              `json:"advertised_total"`
	Pages           int              `json:"pages"`
	FailedBatches   int              `json:"failed_batches"`
	ProductImage    string           `json:"product_image,omitempty"`
	Reviews         []Review         `json:"reviews"`
	Report          *AggregateReport `json:"report,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Warn records a partial-result condition.
func (r *Run) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
