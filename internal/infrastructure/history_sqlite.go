package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/cmip6-fetch-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteHistoryRepository implements domain.HistoryRepository using SQLite
type SQLiteHistoryRepository struct {
	db *gorm.DB
}

// NewSQLiteHistoryRepository opens (creating if needed) the history database
func NewSQLiteHistoryRepository(dbPath string) (*SQLiteHistoryRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.RunRecord{}, &domain.RequestRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

// CreateRun creates a new run record
func (r *SQLiteHistoryRepository) CreateRun(run *domain.RunRecord) error {
	return r.db.Create(run).Error
}

// UpdateRun updates an existing run record
func (r *SQLiteHistoryRepository) UpdateRun(run *domain.RunRecord) error {
	return r.db.Save(run).Error
}

// FindRunByID finds a run by ID
func (r *SQLiteHistoryRepository) FindRunByID(id string) (*domain.RunRecord, error) {
	var run domain.RunRecord
	err := r.db.First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// FindRuns returns the most recent runs, newest first. A limit of zero or
// less returns everything.
func (r *SQLiteHistoryRepository) FindRuns(limit int) ([]*domain.RunRecord, error) {
	var runs []*domain.RunRecord
	query := r.db.Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

// CreateRequest records the outcome of one request
func (r *SQLiteHistoryRepository) CreateRequest(rec *domain.RequestRecord) error {
	return r.db.Create(rec).Error
}

// FindRequestsByRun returns the request outcomes of a run in recording order
func (r *SQLiteHistoryRepository) FindRequestsByRun(runID string) ([]*domain.RequestRecord, error) {
	var records []*domain.RequestRecord
	err := r.db.Where("run_id = ?", runID).Order("id ASC").Find(&records).Error
	return records, err
}

// GetStats aggregates the persisted history
func (r *SQLiteHistoryRepository) GetStats() (*domain.HistoryStats, error) {
	stats := &domain.HistoryStats{}

	if err := r.db.Model(&domain.RunRecord{}).Count(&stats.Runs).Error; err != nil {
		return nil, err
	}

	runCounts := []struct {
		Status domain.RunStatus
		Count  int64
	}{}
	if err := r.db.Model(&domain.RunRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&runCounts).Error; err != nil {
		return nil, err
	}

	for _, rc := range runCounts {
		switch rc.Status {
		case domain.RunStatusCompleted:
			stats.Completed = rc.Count
		case domain.RunStatusPartial:
			stats.Partial = rc.Count
		case domain.RunStatusAborted:
			stats.Aborted = rc.Count
		case domain.RunStatusRunning:
			stats.Running = rc.Count
		}
	}

	requestCounts := []struct {
		Status domain.RequestStatus
		Count  int64
	}{}
	if err := r.db.Model(&domain.RequestRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&requestCounts).Error; err != nil {
		return nil, err
	}

	for _, rc := range requestCounts {
		switch rc.Status {
		case domain.RequestStatusSucceeded:
			stats.RequestsSucceeded = rc.Count
		case domain.RequestStatusFailed:
			stats.RequestsFailed = rc.Count
		case domain.RequestStatusSkipped:
			stats.RequestsSkipped = rc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteHistoryRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
