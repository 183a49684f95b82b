package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yourusername/cmip6-fetch-go/internal/domain"
)

// fakeFetcher implements domain.Fetcher for testing
type fakeFetcher struct {
	calls   []string
	failOn  map[string]error
	payload []byte
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		failOn:  make(map[string]error),
		payload: []byte("netcdf-bytes"),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, req *domain.DownloadRequest) (io.ReadCloser, error) {
	key := req.Tuple()
	f.calls = append(f.calls, key)
	if err, ok := f.failOn[key]; ok {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(f.payload)), nil
}

// mockHistoryRepo implements domain.HistoryRepository for testing
type mockHistoryRepo struct {
	runs     map[string]*domain.RunRecord
	requests []*domain.RequestRecord
}

func newMockHistoryRepo() *mockHistoryRepo {
	return &mockHistoryRepo{runs: make(map[string]*domain.RunRecord)}
}

func (m *mockHistoryRepo) CreateRun(run *domain.RunRecord) error {
	m.runs[run.ID] = run
	return nil
}

func (m *mockHistoryRepo) UpdateRun(run *domain.RunRecord) error {
	m.runs[run.ID] = run
	return nil
}

func (m *mockHistoryRepo) FindRunByID(id string) (*domain.RunRecord, error) {
	return m.runs[id], nil
}

func (m *mockHistoryRepo) FindRuns(limit int) ([]*domain.RunRecord, error) {
	return nil, nil
}

func (m *mockHistoryRepo) CreateRequest(rec *domain.RequestRecord) error {
	m.requests = append(m.requests, rec)
	return nil
}

func (m *mockHistoryRepo) FindRequestsByRun(runID string) ([]*domain.RequestRecord, error) {
	return nil, nil
}

func (m *mockHistoryRepo) GetStats() (*domain.HistoryStats, error) {
	return nil, nil
}

func (m *mockHistoryRepo) Close() error {
	return nil
}

func newTestPlanner(fetcher domain.Fetcher, history domain.HistoryRepository) *Planner {
	return NewPlanner(domain.DefaultCatalog(), fetcher, history, nil, nil)
}

func TestPlanner_Plan_LogsRequestedFilters(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	planner := NewPlanner(domain.DefaultCatalog(), newFakeFetcher(), nil, nil, zap.New(core))

	_, err := planner.Plan(PlanSpec{
		OutDir: "out", Mode: domain.ModeFuture, FromYear: 2020, ToYear: 2021,
		Variables: domain.NewExplicitFilter("pr", "tas"),
		Scenarios: domain.NewDefaultFilter(),
		Models:    domain.NewAllFilter(),
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("Resolving plan").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "pr,tas", fields["variables"])
	assert.Equal(t, "default", fields["scenarios"])
	assert.Equal(t, "all", fields["models"])
}

func TestPlanner_Plan_CountIsCartesianProduct(t *testing.T) {
	planner := newTestPlanner(newFakeFetcher(), nil)

	tests := []struct {
		name string
		spec PlanSpec
		want int
	}{
		{
			name: "everything, future, two years",
			spec: PlanSpec{
				OutDir: "out", Mode: domain.ModeFuture, FromYear: 2020, ToYear: 2021,
			},
			// 6 variables x 2 scenarios x 9 models x 2 years
			want: 6 * 2 * 9 * 2,
		},
		{
			name: "hist default scenario",
			spec: PlanSpec{
				OutDir: "out", Mode: domain.ModeHist, FromYear: 1985, ToYear: 1994,
				Scenarios: domain.NewDefaultFilter(),
			},
			// 6 variables x 1 scenario x 9 models x 10 years
			want: 6 * 1 * 9 * 10,
		},
		{
			name: "explicit subsets",
			spec: PlanSpec{
				OutDir: "out", Mode: domain.ModeFuture, FromYear: 2030, ToYear: 2030,
				Variables: domain.NewExplicitFilter("tas", "pr"),
				Scenarios: domain.NewExplicitFilter("ssp126"),
				Models:    domain.NewExplicitFilter("MIROC6", "CESM2", "UKESM1-0-LL"),
			},
			want: 2 * 1 * 3 * 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planner.Plan(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Count())

			enumerated := 0
			require.NoError(t, plan.Each(func(domain.DownloadRequest) error {
				enumerated++
				return nil
			}))
			assert.Equal(t, tt.want, enumerated)
		})
	}
}

func TestPlanner_Plan_DuplicateIdsAreDeduplicated(t *testing.T) {
	planner := newTestPlanner(newFakeFetcher(), nil)

	plan, err := planner.Plan(PlanSpec{
		OutDir: "out", Mode: domain.ModeFuture, FromYear: 2020, ToYear: 2020,
		Variables: domain.NewExplicitFilter("tas", "tas", "tas"),
		Scenarios: domain.NewExplicitFilter("ssp126", "ssp126"),
		Models:    domain.NewExplicitFilter("MIROC6"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Count())
}

func TestPlan_EnumerationIsDeterministicAndPathsDistinct(t *testing.T) {
	planner := newTestPlanner(newFakeFetcher(), nil)

	plan, err := planner.Plan(PlanSpec{
		OutDir: "out", Mode: domain.ModeFuture, FromYear: 2020, ToYear: 2022,
		Variables: domain.NewExplicitFilter("pr", "tas"),
		Models:    domain.NewExplicitFilter("MIROC6", "CESM2"),
	})
	require.NoError(t, err)

	collect := func() []string {
		var paths []string
		require.NoError(t, plan.Each(func(req domain.DownloadRequest) error {
			paths = append(paths, req.OutPath)
			return nil
		}))
		return paths
	}

	first := collect()
	second := collect()
	assert.Equal(t, first, second, "re-enumeration must preserve order")

	seen := make(map[string]bool)
	for _, path := range first {
		assert.False(t, seen[path], "duplicate path %s", path)
		seen[path] = true
	}
}

func TestPlanner_Plan_ConfigurationErrors(t *testing.T) {
	planner := newTestPlanner(newFakeFetcher(), nil)

	tests := []struct {
		name string
		spec PlanSpec
	}{
		{"invalid mode", PlanSpec{OutDir: "out", Mode: "past", FromYear: 1985, ToYear: 1986}},
		{"inverted years", PlanSpec{OutDir: "out", Mode: domain.ModeHist, FromYear: 1990, ToYear: 1985}},
		{"hist years in future", PlanSpec{OutDir: "out", Mode: domain.ModeHist, FromYear: 2015, ToYear: 2020}},
		{"future years in hist", PlanSpec{OutDir: "out", Mode: domain.ModeFuture, FromYear: 2010, ToYear: 2020}},
		{
			"unknown variable",
			PlanSpec{OutDir: "out", Mode: domain.ModeHist, FromYear: 1985, ToYear: 1986,
				Variables: domain.NewExplicitFilter("tas", "nope")},
		},
		{
			"unknown model",
			PlanSpec{OutDir: "out", Mode: domain.ModeHist, FromYear: 1985, ToYear: 1986,
				Models: domain.NewExplicitFilter("GPT-4")},
		},
		{
			"scenario from wrong mode",
			PlanSpec{OutDir: "out", Mode: domain.ModeHist, FromYear: 1985, ToYear: 1986,
				Scenarios: domain.NewExplicitFilter("ssp126")},
		},
		{"missing out dir", PlanSpec{Mode: domain.ModeHist, FromYear: 1985, ToYear: 1986}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := planner.Plan(tt.spec)
			assert.Error(t, err)
		})
	}
}

func TestPlanner_Plan_InvalidConfigHasNoSideEffects(t *testing.T) {
	tmpDir := t.TempDir()
	outDir := filepath.Join(tmpDir, "data")
	planner := newTestPlanner(newFakeFetcher(), nil)

	_, err := planner.Plan(PlanSpec{
		OutDir: outDir, Mode: domain.ModeHist, FromYear: 1985, ToYear: 1986,
		Variables: domain.NewExplicitFilter("snowfall"),
	})
	require.Error(t, err)

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "no file may be created for an invalid configuration")
}

func TestPlanner_Run_DryRunCreatesEmptyFilesWithoutFetching(t *testing.T) {
	tmpDir := t.TempDir()
	fetcher := newFakeFetcher()
	planner := newTestPlanner(fetcher, nil)

	plan, err := planner.Plan(PlanSpec{
		OutDir: tmpDir, Mode: domain.ModeHist, FromYear: 1985, ToYear: 1986,
		Variables: domain.NewExplicitFilter("tas"),
		Scenarios: domain.NewDefaultFilter(),
		Models:    domain.NewExplicitFilter("MIROC6"),
	})
	require.NoError(t, err)

	result, err := planner.Run(context.Background(), plan, RunOptions{DryRun: true})
	require.NoError(t, err)

	assert.Empty(t, fetcher.calls, "dry run must never invoke the fetcher")
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.True(t, result.OK())

	for _, year := range []string{"1985", "1986"} {
		path := filepath.Join(tmpDir, "hist", "historical", "MIROC6", "tasAdjust", year+".nc")
		info, err := os.Stat(path)
		require.NoError(t, err, "expected dry-run file at %s", path)
		assert.Zero(t, info.Size(), "dry-run files must be empty")
	}
}

func TestPlanner_Run_WritesFetchedBytes(t *testing.T) {
	tmpDir := t.TempDir()
	fetcher := newFakeFetcher()
	planner := newTestPlanner(fetcher, nil)

	plan, err := planner.Plan(PlanSpec{
		OutDir: tmpDir, Mode: domain.ModeFuture, FromYear: 2040, ToYear: 2040,
		Variables: domain.NewExplicitFilter("pr"),
		Scenarios: domain.NewExplicitFilter("ssp370"),
		Models:    domain.NewExplicitFilter("CESM2"),
	})
	require.NoError(t, err)

	result, err := planner.Run(context.Background(), plan, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	data, err := os.ReadFile(filepath.Join(tmpDir, "future", "ssp370", "CESM2", "prAdjust", "2040.nc"))
	require.NoError(t, err)
	assert.Equal(t, fetcher.payload, data)
}

func TestPlanner_Run_SingleFailureDoesNotAbortSiblings(t *testing.T) {
	tmpDir := t.TempDir()
	fetcher := newFakeFetcher()
	planner := newTestPlanner(fetcher, nil)

	plan, err := planner.Plan(PlanSpec{
		OutDir: tmpDir, Mode: domain.ModeHist, FromYear: 1985, ToYear: 1987,
		Variables: domain.NewExplicitFilter("tas"),
		Scenarios: domain.NewDefaultFilter(),
		Models:    domain.NewExplicitFilter("MIROC6"),
	})
	require.NoError(t, err)

	failing := "(tas, historical, MIROC6, 1986)"
	fetcher.failOn[failing] = errors.New("quota exceeded")

	result, err := planner.Run(context.Background(), plan, RunOptions{})
	require.NoError(t, err, "a per-request failure must not abort the run")

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, failing, result.Failed[0].Request.Tuple())
	assert.EqualError(t, result.Failed[0].Err, "quota exceeded")

	// siblings written, failed tuple absent
	for _, year := range []string{"1985", "1987"} {
		_, err := os.Stat(filepath.Join(tmpDir, "hist", "historical", "MIROC6", "tasAdjust", year+".nc"))
		assert.NoError(t, err)
	}
	_, statErr := os.Stat(filepath.Join(tmpDir, "hist", "historical", "MIROC6", "tasAdjust", "1986.nc"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPlanner_Run_SkipExisting(t *testing.T) {
	tmpDir := t.TempDir()
	fetcher := newFakeFetcher()
	planner := newTestPlanner(fetcher, nil)

	plan, err := planner.Plan(PlanSpec{
		OutDir: tmpDir, Mode: domain.ModeHist, FromYear: 1985, ToYear: 1986,
		Variables: domain.NewExplicitFilter("tas"),
		Scenarios: domain.NewDefaultFilter(),
		Models:    domain.NewExplicitFilter("MIROC6"),
	})
	require.NoError(t, err)

	existing := filepath.Join(tmpDir, "hist", "historical", "MIROC6", "tasAdjust", "1985.nc")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0755))
	require.NoError(t, os.WriteFile(existing, []byte("already here"), 0644))

	result, err := planner.Run(context.Background(), plan, RunOptions{SkipExisting: true})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Succeeded)
	assert.Len(t, fetcher.calls, 1)

	// the pre-existing file is untouched
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, []byte("already here"), data)
}

func TestPlanner_Run_SkipIncompatible(t *testing.T) {
	tmpDir := t.TempDir()
	fetcher := newFakeFetcher()
	planner := newTestPlanner(fetcher, nil)

	// CESM2 does not provide hurs
	plan, err := planner.Plan(PlanSpec{
		OutDir: tmpDir, Mode: domain.ModeFuture, FromYear: 2020, ToYear: 2020,
		Variables: domain.NewExplicitFilter("hurs", "tas"),
		Scenarios: domain.NewExplicitFilter("ssp126"),
		Models:    domain.NewExplicitFilter("CESM2", "MIROC6"),
	})
	require.NoError(t, err)

	result, err := planner.Run(context.Background(), plan, RunOptions{SkipIncompatible: true})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 3, result.Succeeded)
}

func TestPlanner_Run_ContextCancellationAborts(t *testing.T) {
	tmpDir := t.TempDir()
	fetcher := newFakeFetcher()
	planner := newTestPlanner(fetcher, nil)

	plan, err := planner.Plan(PlanSpec{
		OutDir: tmpDir, Mode: domain.ModeHist, FromYear: 1985, ToYear: 1990,
		Variables: domain.NewExplicitFilter("tas"),
		Scenarios: domain.NewDefaultFilter(),
		Models:    domain.NewExplicitFilter("MIROC6"),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := planner.Run(ctx, plan, RunOptions{DryRun: true})
	require.Error(t, err)
	assert.Zero(t, result.Succeeded)
}

func TestPlanner_Run_RecordsHistory(t *testing.T) {
	tmpDir := t.TempDir()
	fetcher := newFakeFetcher()
	history := newMockHistoryRepo()
	planner := newTestPlanner(fetcher, history)

	plan, err := planner.Plan(PlanSpec{
		OutDir: tmpDir, Mode: domain.ModeHist, FromYear: 1985, ToYear: 1986,
		Variables: domain.NewExplicitFilter("tas"),
		Scenarios: domain.NewDefaultFilter(),
		Models:    domain.NewExplicitFilter("MIROC6"),
	})
	require.NoError(t, err)

	fetcher.failOn["(tas, historical, MIROC6, 1986)"] = errors.New("boom")

	_, err = planner.Run(context.Background(), plan, RunOptions{})
	require.NoError(t, err)

	require.Len(t, history.runs, 1)
	for _, run := range history.runs {
		assert.Equal(t, domain.RunStatusPartial, run.Status)
		assert.Equal(t, 2, run.Total)
		assert.Equal(t, 1, run.Succeeded)
		assert.Equal(t, 1, run.Failed)
		assert.NotNil(t, run.CompletedAt)
	}

	require.Len(t, history.requests, 2)
	assert.Equal(t, domain.RequestStatusSucceeded, history.requests[0].Status)
	assert.Equal(t, domain.RequestStatusFailed, history.requests[1].Status)
	assert.Equal(t, "boom", history.requests[1].ErrorMessage)
}

// The worked example from the planning contract: two years of tas for one
// model in hist mode yield exactly two requests.
func TestPlanner_Run_TwoYearExample(t *testing.T) {
	tmpDir := t.TempDir()
	fetcher := newFakeFetcher()
	planner := newTestPlanner(fetcher, nil)

	plan, err := planner.Plan(PlanSpec{
		OutDir: tmpDir, Mode: domain.ModeHist, FromYear: 1985, ToYear: 1986,
		Variables: domain.NewExplicitFilter("tas"),
		Scenarios: domain.NewDefaultFilter(),
		Models:    domain.NewExplicitFilter("MIROC6"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, plan.Count())

	result, err := planner.Run(context.Background(), plan, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, []string{
		"(tas, historical, MIROC6, 1985)",
		"(tas, historical, MIROC6, 1986)",
	}, fetcher.calls)
}
