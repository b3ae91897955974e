package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoCandidate is the Err of a NO_CANDIDATE outcome: every listed item
// is already in the ledger. It is the normal idle state, not a failure.
var ErrNoCandidate = errors.New("no unprocessed item")

// Stage sentinels. A *StageError matches the sentinel of its stage with
// errors.Is.
var (
	ErrSelect     = errors.New("selection failed")
	ErrEnrichment = errors.New("enrichment failed")
	ErrPublish    = errors.New("publish failed")
	ErrCommit     = errors.New("commit failed")
)

// Stage names the step of a run that failed.
type Stage string

const (
	StageSelect  Stage = "select"
	StageEnrich  Stage = "enrich"
	StagePublish Stage = "publish"
	StageCommit  Stage = "commit"
)

func (s Stage) sentinel() error {
	switch s {
	case StageSelect:
		return ErrSelect
	case StageEnrich:
		return ErrEnrichment
	case StagePublish:
		return ErrPublish
	case StageCommit:
		return ErrCommit
	default:
		return nil
	}
}

// StageError is the failure detail of a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	if s := e.Stage.sentinel(); s != nil {
		return []error{s, e.Err}
	}
	return []error{e.Err}
}
