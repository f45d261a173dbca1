package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
	"github.com/go-chi/chi/v5"
)

// Store is the read side of the trade store.
type Store interface {
	Ping(ctx context.Context) error
	UnitCounts(ctx context.Context, period models.Period) ([]models.UnitCount, error)
	UnitsWithRowCount(ctx context.Context, n int) ([]models.UnitCount, error)
	RowsForUnit(ctx context.Context, unit models.Unit) ([]models.CanonicalRecord, error)
}

type StatusService struct {
	Store       Store
	SuspectCaps []int
}

func NewStatusService(store Store, suspectCaps []int) *StatusService {
	return &StatusService{Store: store, SuspectCaps: suspectCaps}
}

type RegionCoverage struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

type CoverageResponse struct {
	Period    models.Period    `json:"period"`
	Regions   []RegionCoverage `json:"regions"`
	TotalRows int              `json:"total_rows"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *StatusService) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "health check failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *StatusService) GetCoverage(w http.ResponseWriter, r *http.Request) {
	period, err := models.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period. Use YYYYMM.")
		return
	}

	counts, err := h.Store.UnitCounts(r.Context(), period)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to read coverage", "period", period.String(), "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve coverage")
		return
	}

	resp := CoverageResponse{Period: period, Regions: make([]RegionCoverage, 0, len(counts))}
	for _, c := range counts {
		resp.Regions = append(resp.Regions, RegionCoverage{Code: c.Unit.Region.Code, Name: c.Unit.Region.Name, Rows: c.Rows})
		resp.TotalRows += c.Rows
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSuspects lists units whose row count equals ?cap=N, or any configured
// suspect cap when no cap is given.
func (h *StatusService) GetSuspects(w http.ResponseWriter, r *http.Request) {
	caps := h.SuspectCaps
	if capStr := r.URL.Query().Get("cap"); capStr != "" {
		n, err := strconv.Atoi(capStr)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid 'cap'. Use a positive integer.")
			return
		}
		caps = []int{n}
	}

	suspects := make([]models.UnitCount, 0)
	for _, c := range caps {
		units, err := h.Store.UnitsWithRowCount(r.Context(), c)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to list suspects", "cap", c, "err", err)
			writeError(w, http.StatusInternalServerError, "Failed to retrieve suspects")
			return
		}
		suspects = append(suspects, units...)
	}
	sort.SliceStable(suspects, func(i, j int) bool {
		a, b := suspects[i].Unit, suspects[j].Unit
		if c := a.Period.Compare(b.Period); c != 0 {
			return c < 0
		}
		return a.Region.Code < b.Region.Code
	})

	writeJSON(w, http.StatusOK, suspects)
}

func (h *StatusService) GetUnitRecords(w http.ResponseWriter, r *http.Request) {
	period, err := models.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period. Use YYYYMM.")
		return
	}
	code := chi.URLParam(r, "region")
	if len(code) != 5 {
		writeError(w, http.StatusBadRequest, "Invalid region. Use the 5-digit LAWD_CD.")
		return
	}

	unit := models.NewUnit(models.Region{Code: code}, period)
	records, err := h.Store.RowsForUnit(r.Context(), unit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to read unit", "unit", unit.String(), "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve records")
		return
	}
	if records == nil {
		records = []models.CanonicalRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
