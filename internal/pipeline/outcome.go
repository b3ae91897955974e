package pipeline

import (
	"time"

	"github.com/Lllllllleong/dailyuploadflow/internal/models"
)

// Status is the tag of an Outcome.
type Status string

const (
	StatusDone        Status = "done"
	StatusNoCandidate Status = "no_candidate"
	StatusFailed      Status = "failed"
)

// Outcome is the terminal result of one run. Item is set once a candidate
// was selected; Bundle once it was enriched; Record once it was published.
// Stage is set only for failed runs. Err is the *StageError of a failed
// run and ErrNoCandidate for an idle one.
type Outcome struct {
	RunID      string
	Status     Status
	Item       *models.CandidateItem
	Bundle     *models.ContentBundle
	Record     *models.PublishRecord
	Stage      Stage
	Err        error
	Trace      []State
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time of the run.
func (o Outcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// ItemID returns the selected item's ID or "".
func (o Outcome) ItemID() string {
	if o.Item == nil {
		return ""
	}
	return o.Item.ID
}

// PublishedID returns the published video ID or "".
func (o Outcome) PublishedID() string {
	if o.Record == nil {
		return ""
	}
	return o.Record.PublishedID
}

// Response converts the outcome into the HTTP payload of the function.
func (o Outcome) Response() models.RunResponse {
	resp := models.RunResponse{
		RunID:       o.RunID,
		Status:      string(o.Status),
		Stage:       string(o.Stage),
		ItemID:      o.ItemID(),
		PublishedID: o.PublishedID(),
	}
	if o.Record != nil {
		resp.URL = o.Record.URL
	}
	if o.Status == StatusFailed && o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}
