package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FailureRecorder writes run.json/failure.json artifacts for invocations.
//
// It is intentionally small: callers provide Run metadata and the
// triggering error, and the recorder classifies the error into the §7
// taxonomy and persists it using Store (atomic + durable).
type FailureRecorder struct {
	Store *Store
}

// NewRunID mints a fresh run identifier. Run IDs are purely operational —
// nothing in the ledger schema depends on their format.
func (r *FailureRecorder) NewRunID() (string, error) {
	return uuid.NewString(), nil
}

func (r *FailureRecorder) StartRun(run Run) error {
	if r == nil || r.Store == nil {
		return errors.New("Store is required")
	}
	if run.StartTime.IsZero() {
		run.StartTime = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}
	return r.Store.SaveRun(run)
}

func (r *FailureRecorder) RecordFailure(runID string, err error) error {
	if r == nil || r.Store == nil {
		return errors.New("Store is required")
	}
	return r.Store.SaveFailure(runID, failureFromError(err))
}
