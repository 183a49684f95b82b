package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the overall outcome of a planning run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusAborted   RunStatus = "aborted"
)

// RequestStatus represents the outcome of a single download request.
type RequestStatus string

const (
	RequestStatusSucceeded RequestStatus = "succeeded"
	RequestStatusFailed    RequestStatus = "failed"
	RequestStatusSkipped   RequestStatus = "skipped"
)

// RunRecord is the persisted summary of one planning run.
type RunRecord struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	Mode        Mode       `json:"mode" gorm:"not null;index"`
	FromYear    int        `json:"from_year" gorm:"not null"`
	ToYear      int        `json:"to_year" gorm:"not null"`
	OutDir      string     `json:"out_dir"`
	DryRun      bool       `json:"dry_run"`
	Status      RunStatus  `json:"status" gorm:"not null;index"`
	Total       int        `json:"total"`
	Succeeded   int        `json:"succeeded"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewRunRecord creates a running record for a planning run.
func NewRunRecord(mode Mode, fromYear, toYear int, outDir string, dryRun bool) *RunRecord {
	return &RunRecord{
		ID:        uuid.New().String(),
		Mode:      mode,
		FromYear:  fromYear,
		ToYear:    toYear,
		OutDir:    outDir,
		DryRun:    dryRun,
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}
}

// MarkFinished records the final counters and derives the run status.
func (r *RunRecord) MarkFinished(result *PlanResult, aborted bool) {
	r.Total = result.Total
	r.Succeeded = result.Succeeded
	r.Skipped = result.Skipped
	r.Failed = len(result.Failed)
	now := time.Now()
	r.CompletedAt = &now

	switch {
	case aborted:
		r.Status = RunStatusAborted
	case len(result.Failed) > 0:
		r.Status = RunStatusPartial
	default:
		r.Status = RunStatusCompleted
	}
}

// RequestRecord is the persisted outcome of one download request.
type RequestRecord struct {
	ID           uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID        string        `json:"run_id" gorm:"not null;index"`
	Variable     string        `json:"variable"`
	Scenario     string        `json:"scenario"`
	Model        string        `json:"model"`
	Year         int           `json:"year"`
	OutPath      string        `json:"out_path"`
	Status       RequestStatus `json:"status" gorm:"not null;index"`
	ErrorMessage string        `json:"error_message,omitempty"`
	DurationMS   int64         `json:"duration_ms"`
	CreatedAt    time.Time     `json:"created_at" gorm:"autoCreateTime"`
}

// NewRequestRecord records the outcome of one request within a run.
func NewRequestRecord(runID string, req *DownloadRequest, status RequestStatus, err error, duration time.Duration) *RequestRecord {
	rec := &RequestRecord{
		RunID:      runID,
		Variable:   req.Variable,
		Scenario:   req.Scenario,
		Model:      req.Model,
		Year:       req.Year,
		OutPath:    req.OutPath,
		Status:     status,
		DurationMS: duration.Milliseconds(),
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	return rec
}

// RequestFailure pairs a failed request with the error it encountered.
type RequestFailure struct {
	Request DownloadRequest `json:"request"`
	Err     error           `json:"-"`
}

// PlanResult summarizes an executed planning run.
type PlanResult struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    []RequestFailure
}

// OK reports whether every enumerated request either succeeded or was
// deliberately skipped.
func (r *PlanResult) OK() bool {
	return len(r.Failed) == 0
}

// HistoryStats aggregates the persisted run history.
type HistoryStats struct {
	Runs              int64 `json:"runs"`
	Completed         int64 `json:"completed"`
	Partial           int64 `json:"partial"`
	Aborted           int64 `json:"aborted"`
	Running           int64 `json:"running"`
	RequestsSucceeded int64 `json:"requests_succeeded"`
	RequestsFailed    int64 `json:"requests_failed"`
	RequestsSkipped   int64 `json:"requests_skipped"`
}
