package ingestion

import (
	"errors"
	"time"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
)

type Mode string

const (
	ModeBackfill Mode = "backfill"
	ModeMonthly  Mode = "monthly"
	ModeRepair   Mode = "repair"
)

// Unit outcomes, also used as metric labels.
const (
	OutcomeLoaded     = "loaded"
	OutcomeEmpty      = "empty"
	OutcomeFailed     = "failed"
	OutcomeRepaired   = "repaired"
	OutcomeUnresolved = "unresolved"
)

// Summary is the aggregate result of one run.
type Summary struct {
	Mode    Mode          `json:"mode"`
	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed"`

	Planned   int `json:"planned"`
	Attempted int `json:"attempted"`
	Loaded    int `json:"loaded"`
	Empty     int `json:"empty"`
	Failed    int `json:"failed"`
	// Suspect counts loaded units whose page filled the cap.
	Suspect  int `json:"suspect"`
	Repaired int `json:"repaired"`
	Rows     int `json:"rows"`

	// Unresolved lists repair candidates still possibly truncated.
	Unresolved []models.Unit       `json:"unresolved,omitempty"`
	Failures   []*models.UnitError `json:"-"`

	Halted     bool   `json:"halted"`
	HaltReason string `json:"halt_reason,omitempty"`
	// Remaining is the number of planned units never attempted.
	Remaining int `json:"remaining"`
}

// Incomplete returns the repairs that failed after their delete was issued.
func (s *Summary) Incomplete() []*models.RepairIncompleteError {
	var out []*models.RepairIncompleteError
	for _, f := range s.Failures {
		var ri *models.RepairIncompleteError
		if errors.As(f, &ri) {
			out = append(out, ri)
		}
	}
	return out
}
