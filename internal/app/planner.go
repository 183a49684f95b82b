package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/cmip6-fetch-go/internal/domain"
	"github.com/yourusername/cmip6-fetch-go/internal/infrastructure"
	"go.uber.org/zap"
)

// PlanSpec is the user's request: an output directory, a mode, a year range
// and one filter per identifier kind.
type PlanSpec struct {
	OutDir    string
	Mode      domain.Mode
	FromYear  int
	ToYear    int
	Variables domain.Filter
	Scenarios domain.Filter
	Models    domain.Filter
}

// Plan is a validated, fully resolved enumeration of download requests over
// variable x scenario x model x year. The effective sets are sorted, so
// enumeration order is deterministic. Requests are generated lazily; a Plan
// can be enumerated any number of times.
type Plan struct {
	OutDir    string
	Mode      domain.Mode
	FromYear  int
	ToYear    int
	Variables []string
	Scenarios []string
	Models    []string
}

// Count returns the number of requests the plan enumerates.
func (p *Plan) Count() int {
	years := p.ToYear - p.FromYear + 1
	return len(p.Variables) * len(p.Scenarios) * len(p.Models) * years
}

// Each calls fn for every request in enumeration order. Enumeration stops at
// the first error fn returns, which is passed through.
func (p *Plan) Each(fn func(domain.DownloadRequest) error) error {
	for _, variable := range p.Variables {
		for _, scenario := range p.Scenarios {
			for _, model := range p.Models {
				for year := p.FromYear; year <= p.ToYear; year++ {
					req := domain.NewDownloadRequest(p.OutDir, p.Mode, variable, scenario, model, year)
					if err := fn(req); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// RunOptions control plan execution.
type RunOptions struct {
	// DryRun creates empty output files instead of downloading.
	DryRun bool
	// SkipExisting skips requests whose output file already exists.
	SkipExisting bool
	// SkipIncompatible skips model/variable pairs the catalog marks as not
	// provided by that model.
	SkipIncompatible bool
	// FailureDelay pauses after a failed request before continuing.
	FailureDelay time.Duration
}

// Planner turns user filters into a validated plan and executes it request by
// request against the fetcher.
type Planner struct {
	catalog  *domain.Catalog
	fetcher  domain.Fetcher
	history  domain.HistoryRepository
	notifier *infrastructure.NotificationService
	logger   *zap.Logger
}

// NewPlanner creates a planner. The history repository and notifier may be
// nil; the fetcher may be nil for dry-run-only use.
func NewPlanner(
	catalog *domain.Catalog,
	fetcher domain.Fetcher,
	history domain.HistoryRepository,
	notifier *infrastructure.NotificationService,
	logger *zap.Logger,
) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		catalog:  catalog,
		fetcher:  fetcher,
		history:  history,
		notifier: notifier,
		logger:   logger,
	}
}

// Plan validates the spec against the catalog and resolves the effective
// identifier sets. Configuration errors are returned before any side effect
// takes place.
func (p *Planner) Plan(spec PlanSpec) (*Plan, error) {
	if spec.OutDir == "" {
		return nil, fmt.Errorf("output directory not specified")
	}

	if _, err := p.catalog.Lookup(spec.Mode); err != nil {
		return nil, err
	}

	if err := p.catalog.ValidateYearRange(spec.Mode, spec.FromYear, spec.ToYear); err != nil {
		return nil, err
	}

	p.logger.Debug("Resolving plan",
		zap.String("mode", string(spec.Mode)),
		zap.Int("from_year", spec.FromYear),
		zap.Int("to_year", spec.ToYear),
		zap.Stringer("variables", spec.Variables),
		zap.Stringer("scenarios", spec.Scenarios),
		zap.Stringer("models", spec.Models))

	variables, err := p.catalog.Resolve(spec.Mode, domain.KindVariable, spec.Variables)
	if err != nil {
		return nil, err
	}
	scenarios, err := p.catalog.Resolve(spec.Mode, domain.KindScenario, spec.Scenarios)
	if err != nil {
		return nil, err
	}
	models, err := p.catalog.Resolve(spec.Mode, domain.KindModel, spec.Models)
	if err != nil {
		return nil, err
	}

	return &Plan{
		OutDir:    spec.OutDir,
		Mode:      spec.Mode,
		FromYear:  spec.FromYear,
		ToYear:    spec.ToYear,
		Variables: variables,
		Scenarios: scenarios,
		Models:    models,
	}, nil
}

// Run executes the plan sequentially in enumeration order. A failed request
// is recorded and the run continues with the next one; only a cancelled
// context or an unusable output directory aborts the run.
func (p *Planner) Run(ctx context.Context, plan *Plan, opts RunOptions) (*domain.PlanResult, error) {
	// An unwritable destination is a systemic problem, not a per-request one.
	if err := os.MkdirAll(plan.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", plan.OutDir, err)
	}

	var run *domain.RunRecord
	if p.history != nil {
		run = domain.NewRunRecord(plan.Mode, plan.FromYear, plan.ToYear, plan.OutDir, opts.DryRun)
		if err := p.history.CreateRun(run); err != nil {
			p.logger.Warn("Failed to record run start", zap.Error(err))
			run = nil
		}
	}

	p.logger.Info("Starting run",
		zap.String("mode", string(plan.Mode)),
		zap.Int("from_year", plan.FromYear),
		zap.Int("to_year", plan.ToYear),
		zap.Int("requests", plan.Count()),
		zap.Bool("dry_run", opts.DryRun))

	result := &domain.PlanResult{}
	runErr := plan.Each(func(req domain.DownloadRequest) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		result.Total++

		if opts.SkipIncompatible && !p.catalog.Compatible(req.Mode, req.Model, req.Variable) {
			result.Skipped++
			p.record(run, &req, domain.RequestStatusSkipped, nil, 0)
			p.logger.Debug("Skipping incompatible request", zap.String("tuple", req.Tuple()))
			return nil
		}

		if opts.SkipExisting {
			if _, err := os.Stat(req.OutPath); err == nil {
				result.Skipped++
				p.record(run, &req, domain.RequestStatusSkipped, nil, 0)
				p.logger.Debug("Skipping existing file", zap.String("path", req.OutPath))
				return nil
			}
		}

		start := time.Now()
		err := p.execute(ctx, &req, opts.DryRun)
		duration := time.Since(start)

		if err != nil {
			result.Failed = append(result.Failed, domain.RequestFailure{Request: req, Err: err})
			p.record(run, &req, domain.RequestStatusFailed, err, duration)
			p.logger.Warn("Request failed",
				zap.String("tuple", req.Tuple()),
				zap.Error(err))

			if opts.FailureDelay > 0 {
				select {
				case <-time.After(opts.FailureDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		}

		result.Succeeded++
		p.record(run, &req, domain.RequestStatusSucceeded, nil, duration)
		p.logger.Info("Request completed",
			zap.String("tuple", req.Tuple()),
			zap.String("path", req.OutPath),
			zap.Duration("duration", duration))
		return nil
	})

	aborted := runErr != nil
	if run != nil {
		run.MarkFinished(result, aborted)
		if err := p.history.UpdateRun(run); err != nil {
			p.logger.Warn("Failed to record run completion", zap.Error(err))
		}
	}

	if p.notifier != nil {
		p.notifier.NotifyRunFinished(plan.Mode, result)
	}

	p.logger.Info("Run finished",
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Failed)))

	if aborted {
		return result, runErr
	}
	return result, nil
}

// execute performs one request: directory creation plus either an empty file
// (dry run) or a fetch streamed to disk.
func (p *Planner) execute(ctx context.Context, req *domain.DownloadRequest, dryRun bool) error {
	if err := os.MkdirAll(filepath.Dir(req.OutPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories for %s: %w", req.OutPath, err)
	}

	if dryRun {
		f, err := os.Create(req.OutPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", req.OutPath, err)
		}
		return f.Close()
	}

	body, err := p.fetcher.Fetch(ctx, req)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(req.OutPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", req.OutPath, err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		// A truncated file would be mistaken for real data on the next run.
		os.Remove(req.OutPath)
		return fmt.Errorf("failed to write %s: %w", req.OutPath, err)
	}

	return f.Close()
}

func (p *Planner) record(run *domain.RunRecord, req *domain.DownloadRequest, status domain.RequestStatus, err error, duration time.Duration) {
	if run == nil {
		return
	}
	rec := domain.NewRequestRecord(run.ID, req, status, err, duration)
	if dbErr := p.history.CreateRequest(rec); dbErr != nil {
		p.logger.Warn("Failed to record request outcome", zap.Error(dbErr))
	}
}
