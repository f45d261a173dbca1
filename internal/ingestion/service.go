package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThiagoRGoveia/apt-trades/internal/archive"
	"github.com/ThiagoRGoveia/apt-trades/internal/fetcher"
	"github.com/ThiagoRGoveia/apt-trades/internal/metrics"
	"github.com/ThiagoRGoveia/apt-trades/internal/models"
)

var (
	ErrNoRegions = errors.New("no regions in store, import the reference list first")
	// ErrEmptyRefetch keeps a suspect's rows when its re-fetch came back empty.
	ErrEmptyRefetch = errors.New("re-fetch returned no rows")
)

// Store is the part of the relational store the loader depends on.
type Store interface {
	Regions(ctx context.Context) ([]models.Region, error)
	UnitCounts(ctx context.Context, period models.Period) ([]models.UnitCount, error)
	UnitsWithRowCount(ctx context.Context, n int) ([]models.UnitCount, error)
	Append(ctx context.Context, unit models.Unit, records []models.CanonicalRecord) error
	Replace(ctx context.Context, unit models.Unit, records []models.CanonicalRecord) error
}

type Normalizer interface {
	Normalize(unit models.Unit, raws []models.RawRecord) ([]models.CanonicalRecord, error)
}

type Config struct {
	BackfillPageCap int
	MonthlyPageCap  int
	RepairPageCap   int
	SuspectPageCaps []int
}

// IngestionService runs the backfill, monthly and repair modes. Units are
// processed one at a time; nothing is retried within a run.
type IngestionService struct {
	store      Store
	fetcher    fetcher.Fetcher
	normalizer Normalizer
	selector   *Selector
	detector   *Detector
	archiver   archive.Archiver
	metrics    metrics.Recorder
	config     Config
}

func NewIngestionService(store Store, f fetcher.Fetcher, normalizer Normalizer, cfg Config) *IngestionService {
	return &IngestionService{
		store:      store,
		fetcher:    f,
		normalizer: normalizer,
		selector:   NewSelector(store),
		detector:   NewDetector(store, cfg.SuspectPageCaps, cfg.RepairPageCap),
		metrics:    metrics.Nop{},
		config:     cfg,
	}
}

func (s *IngestionService) WithArchiver(a archive.Archiver) *IngestionService {
	s.archiver = a
	return s
}

func (s *IngestionService) WithMetrics(m metrics.Recorder) *IngestionService {
	if m == nil {
		m = metrics.Nop{}
	}
	s.metrics = m
	return s
}

// run is the state of one invocation.
type run struct {
	summary *Summary
	metrics metrics.Recorder
}

func (s *IngestionService) newRun(mode Mode, planned int) *run {
	return &run{
		summary: &Summary{Mode: mode, Started: time.Now(), Planned: planned},
		metrics: s.metrics,
	}
}

func (r *run) mode() string {
	return string(r.summary.Mode)
}

func (r *run) fail(ctx context.Context, unit models.Unit, stage string, err error) {
	r.summary.Failed++
	r.summary.Failures = append(r.summary.Failures, &models.UnitError{Unit: unit, Stage: stage, Err: err})
	r.metrics.UnitFinished(r.mode(), OutcomeFailed)

	if errors.Is(err, models.ErrRepairIncomplete) {
		slog.ErrorContext(ctx, "repair incomplete", "unit", unit.String(), "err", err)
		return
	}
	slog.WarnContext(ctx, "unit skipped", "unit", unit.String(), "stage", stage, "err", err)
}

func (r *run) unresolved(ctx context.Context, unit models.Unit, rows int) {
	r.summary.Unresolved = append(r.summary.Unresolved, unit)
	r.metrics.UnitFinished(r.mode(), OutcomeUnresolved)
	slog.WarnContext(ctx, "unresolved truncation", "unit", unit.String(), "rows", rows)
}

func (r *run) halt(ctx context.Context, err error, remaining int) (*Summary, error) {
	r.summary.Halted = true
	r.summary.HaltReason = err.Error()
	r.summary.Remaining = remaining
	r.metrics.RunHalted(r.mode())
	slog.WarnContext(ctx, "run halted", "mode", r.mode(), "remaining", remaining, "err", err)
	return r.summary, err
}

func (r *run) finish(ctx context.Context) {
	sm := r.summary
	sm.Elapsed = time.Since(sm.Started)
	slog.InfoContext(ctx, "run finished",
		"mode", r.mode(),
		"attempted", sm.Attempted,
		"loaded", sm.Loaded,
		"repaired", sm.Repaired,
		"empty", sm.Empty,
		"failed", sm.Failed,
		"rows", sm.Rows,
		"halted", sm.Halted,
		"elapsed", sm.Elapsed.Round(time.Millisecond))
}

func isHalt(ctx context.Context, err error) bool {
	return models.IsHalt(err) || ctx.Err() != nil
}

// fetch issues the request and archives the page. Halting errors are
// returned before the unit counts as attempted.
func (s *IngestionService) fetch(ctx context.Context, r *run, unit models.Unit, pageCap int) (*fetcher.Page, error) {
	start := time.Now()
	page, err := s.fetcher.Fetch(ctx, unit, pageCap)
	r.metrics.FetchObserved(r.mode(), time.Since(start))
	if err != nil && isHalt(ctx, err) {
		return nil, err
	}
	r.summary.Attempted++
	if err != nil {
		return nil, err
	}

	if s.archiver != nil {
		if err := s.archiver.Put(ctx, unit, page.Body); err != nil {
			slog.WarnContext(ctx, "failed to archive page", "unit", unit.String(), "err", err)
		}
	}
	return page, nil
}

// Incremental loads every missing unit of a single period.
func (s *IngestionService) Incremental(ctx context.Context, period models.Period) (*Summary, error) {
	regions, err := s.regions(ctx)
	if err != nil {
		return nil, err
	}
	units, err := s.selector.Incremental(ctx, regions, period)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "selected units", "period", period.String(), "regions", len(regions), "missing", len(units))

	return s.load(ctx, ModeMonthly, units, s.config.MonthlyPageCap)
}

// Backfill loads every missing unit of the inclusive period range.
func (s *IngestionService) Backfill(ctx context.Context, from, to models.Period) (*Summary, error) {
	regions, err := s.regions(ctx)
	if err != nil {
		return nil, err
	}
	units, err := s.selector.Backfill(ctx, regions, from, to)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "selected units", "from", from.String(), "to", to.String(), "regions", len(regions), "missing", len(units))

	return s.load(ctx, ModeBackfill, units, s.config.BackfillPageCap)
}

func (s *IngestionService) regions(ctx context.Context) ([]models.Region, error) {
	regions, err := s.store.Regions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions: %w", err)
	}
	if len(regions) == 0 {
		return nil, ErrNoRegions
	}
	return regions, nil
}

func (s *IngestionService) load(ctx context.Context, mode Mode, units []models.Unit, pageCap int) (*Summary, error) {
	r := s.newRun(mode, len(units))
	defer r.finish(ctx)

	for i, unit := range units {
		if err := ctx.Err(); err != nil {
			return r.halt(ctx, err, len(units)-i)
		}
		if err := s.loadUnit(ctx, r, unit, pageCap, i+1); err != nil {
			return r.halt(ctx, err, len(units)-i)
		}
	}
	return r.summary, nil
}

// loadUnit returns an error only when the run must stop. Every other failure
// is recorded on the run and leaves the unit without rows.
func (s *IngestionService) loadUnit(ctx context.Context, r *run, unit models.Unit, pageCap, position int) error {
	start := time.Now()
	slog.DebugContext(ctx, "loading unit", "unit", unit.String(), "progress", fmt.Sprintf("%d/%d", position, r.summary.Planned))

	page, err := s.fetch(ctx, r, unit, pageCap)
	if err != nil {
		if isHalt(ctx, err) {
			return err
		}
		r.fail(ctx, unit, "fetch", err)
		return nil
	}

	records, err := s.normalizer.Normalize(unit, page.Records)
	if err != nil {
		r.fail(ctx, unit, "normalize", err)
		return nil
	}

	if len(records) == 0 {
		r.summary.Empty++
		r.metrics.UnitFinished(r.mode(), OutcomeEmpty)
		slog.InfoContext(ctx, "unit has no trades", "unit", unit.String())
		return nil
	}

	if err := s.store.Append(ctx, unit, records); err != nil {
		r.fail(ctx, unit, "append", err)
		return nil
	}

	r.summary.Loaded++
	r.summary.Rows += len(records)
	r.metrics.UnitFinished(r.mode(), OutcomeLoaded)
	r.metrics.RowsLoaded(r.mode(), len(records))
	if page.Truncated {
		r.summary.Suspect++
		slog.WarnContext(ctx, "unit filled the page cap, repair candidate",
			"unit", unit.String(), "rows", len(records), "total_count", page.TotalCount)
	}

	slog.InfoContext(ctx, "unit loaded",
		"unit", unit.String(),
		"rows", len(records),
		"progress", fmt.Sprintf("%d/%d", position, r.summary.Planned),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// Suspects lists truncation candidates without fetching anything.
func (s *IngestionService) Suspects(ctx context.Context) ([]Suspect, error) {
	return s.detector.Suspects(ctx)
}

// Repair re-fetches every suspect with the repair cap and replaces its rows.
func (s *IngestionService) Repair(ctx context.Context) (*Summary, error) {
	suspects, err := s.detector.Suspects(ctx)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "selected repair candidates", "suspects", len(suspects), "repair_cap", s.config.RepairPageCap)

	r := s.newRun(ModeRepair, len(suspects))
	defer r.finish(ctx)

	for i, suspect := range suspects {
		if err := ctx.Err(); err != nil {
			return r.halt(ctx, err, len(suspects)-i)
		}
		if !suspect.Repairable {
			r.unresolved(ctx, suspect.Unit, suspect.Rows)
			continue
		}
		if err := s.repairUnit(ctx, r, suspect); err != nil {
			return r.halt(ctx, err, len(suspects)-i)
		}
	}
	return r.summary, nil
}

func (s *IngestionService) repairUnit(ctx context.Context, r *run, suspect Suspect) error {
	unit := suspect.Unit
	start := time.Now()

	page, err := s.fetch(ctx, r, unit, s.config.RepairPageCap)
	if err != nil {
		if isHalt(ctx, err) {
			return err
		}
		r.fail(ctx, unit, "fetch", err)
		return nil
	}
	if len(page.Records) == 0 {
		r.fail(ctx, unit, "fetch", ErrEmptyRefetch)
		return nil
	}

	// normalize before touching the store so a bad page keeps the old rows
	records, err := s.normalizer.Normalize(unit, page.Records)
	if err != nil {
		r.fail(ctx, unit, "normalize", err)
		return nil
	}

	if err := s.store.Replace(ctx, unit, records); err != nil {
		r.fail(ctx, unit, "replace", err)
		return nil
	}

	r.summary.Repaired++
	r.summary.Rows += len(records)
	r.metrics.RowsLoaded(r.mode(), len(records))
	slog.InfoContext(ctx, "unit repaired",
		"unit", unit.String(),
		"before", suspect.Rows,
		"after", len(records),
		"elapsed", time.Since(start).Round(time.Millisecond))

	if page.Truncated {
		r.unresolved(ctx, unit, len(records))
		return nil
	}
	r.metrics.UnitFinished(r.mode(), OutcomeRepaired)
	return nil
}
