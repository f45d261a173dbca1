package ingestion

import (
	"context"
	"fmt"
	"sort"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
)

// Selector computes the units that still need loading. It holds no state
// between calls; store coverage is read fresh every time.
type Selector struct {
	store Store
}

func NewSelector(store Store) *Selector {
	return &Selector{store: store}
}

func (s *Selector) loadedCodes(ctx context.Context, period models.Period) (map[string]bool, error) {
	counts, err := s.store.UnitCounts(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage for %s: %w", period, err)
	}
	loaded := make(map[string]bool, len(counts))
	for _, c := range counts {
		if c.Rows > 0 {
			loaded[c.Unit.Region.Code] = true
		}
	}
	return loaded, nil
}

// Incremental returns the API-served regions with no rows for period, in
// reference-list order.
func (s *Selector) Incremental(ctx context.Context, regions []models.Region, period models.Period) ([]models.Unit, error) {
	loaded, err := s.loadedCodes(ctx, period)
	if err != nil {
		return nil, err
	}

	var units []models.Unit
	for _, r := range regions {
		if !r.APIServed || loaded[r.Code] {
			continue
		}
		units = append(units, models.NewUnit(r, period))
	}
	return units, nil
}

// Backfill returns every missing unit of the range, ordered by region code
// and then by period.
func (s *Selector) Backfill(ctx context.Context, regions []models.Region, from, to models.Period) ([]models.Unit, error) {
	periods, err := models.PeriodRange(from, to)
	if err != nil {
		return nil, err
	}

	served := make([]models.Region, 0, len(regions))
	for _, r := range regions {
		if r.APIServed {
			served = append(served, r)
		}
	}
	sort.SliceStable(served, func(i, j int) bool { return served[i].Code < served[j].Code })

	loadedByPeriod := make([]map[string]bool, len(periods))
	for i, p := range periods {
		if loadedByPeriod[i], err = s.loadedCodes(ctx, p); err != nil {
			return nil, err
		}
	}

	var units []models.Unit
	for _, r := range served {
		for i, p := range periods {
			if !loadedByPeriod[i][r.Code] {
				units = append(units, models.NewUnit(r, p))
			}
		}
	}
	return units, nil
}
