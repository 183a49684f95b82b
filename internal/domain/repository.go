package domain

// HistoryRepository persists runs and per-request outcomes.
type HistoryRepository interface {
	CreateRun(run *RunRecord) error
	UpdateRun(run *RunRecord) error
	FindRunByID(id string) (*RunRecord, error)
	FindRuns(limit int) ([]*RunRecord, error)

	CreateRequest(rec *RequestRecord) error
	FindRequestsByRun(runID string) ([]*RequestRecord, error)

	GetStats() (*HistoryStats, error)
	Close() error
}
