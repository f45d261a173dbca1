package ingestion

import (
	"context"
	"fmt"
	"sort"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
)

// Suspect is a loaded unit whose row count equals a page cap it may have
// been fetched with.
type Suspect struct {
	models.UnitCount
	// Repairable is false when the repair cap is not larger than the
	// unit's row count, so a re-fetch could not tell truncation apart.
	Repairable bool `json:"repairable"`
}

// Detector lists truncation suspects straight from the store.
type Detector struct {
	store     Store
	caps      []int
	repairCap int
}

func NewDetector(store Store, suspectCaps []int, repairCap int) *Detector {
	caps := make([]int, 0, len(suspectCaps))
	seen := make(map[int]bool, len(suspectCaps))
	for _, c := range suspectCaps {
		if c > 0 && !seen[c] {
			seen[c] = true
			caps = append(caps, c)
		}
	}
	sort.Ints(caps)
	return &Detector{store: store, caps: caps, repairCap: repairCap}
}

// Suspects returns one entry per unit, ordered by period then region code.
func (d *Detector) Suspects(ctx context.Context) ([]Suspect, error) {
	byUnit := make(map[models.Unit]Suspect)
	for _, c := range d.caps {
		counts, err := d.store.UnitsWithRowCount(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("failed to list units with %d rows: %w", c, err)
		}
		for _, uc := range counts {
			byUnit[uc.Unit] = Suspect{UnitCount: uc, Repairable: uc.Rows < d.repairCap}
		}
	}

	suspects := make([]Suspect, 0, len(byUnit))
	for _, s := range byUnit {
		suspects = append(suspects, s)
	}
	sort.Slice(suspects, func(i, j int) bool {
		a, b := suspects[i].Unit, suspects[j].Unit
		if c := a.Period.Compare(b.Period); c != 0 {
			return c < 0
		}
		return a.Region.Code < b.Region.Code
	})
	return suspects, nil
}
