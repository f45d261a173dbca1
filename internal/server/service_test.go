package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) UnitCounts(ctx context.Context, period models.Period) ([]models.UnitCount, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UnitCount), args.Error(1)
}

func (m *MockStore) UnitsWithRowCount(ctx context.Context, n int) ([]models.UnitCount, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UnitCount), args.Error(1)
}

func (m *MockStore) RowsForUnit(ctx context.Context, unit models.Unit) ([]models.CanonicalRecord, error) {
	args := m.Called(ctx, unit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CanonicalRecord), args.Error(1)
}

var (
	jongno  = models.Region{Code: "11110", Name: "종로구", APIServed: true}
	junggu  = models.Region{Code: "11140", Name: "중구", APIServed: true}
	jan2024 = models.NewPeriod(2024, 1)
)

func serve(store *MockStore, target string) *httptest.ResponseRecorder {
	router := SetupRoutes(NewStatusService(store, []int{1000, 10000}))
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestStatusService_Healthz(t *testing.T) {
	t.Run("should report ok when the store answers", func(t *testing.T) {
		store := new(MockStore)
		store.On("Ping", mock.Anything).Return(nil).Once()

		rr := serve(store, "/healthz")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	})

	t.Run("should report unavailable when the store is down", func(t *testing.T) {
		store := new(MockStore)
		store.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()

		rr := serve(store, "/healthz")

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestStatusService_GetCoverage(t *testing.T) {
	t.Run("should return row counts per region", func(t *testing.T) {
		store := new(MockStore)
		store.On("UnitCounts", mock.Anything, jan2024).Return([]models.UnitCount{
			{Unit: models.NewUnit(jongno, jan2024), Rows: 10},
			{Unit: models.NewUnit(junggu, jan2024), Rows: 4},
		}, nil).Once()

		rr := serve(store, "/api/coverage/202401")

		require.Equal(t, http.StatusOK, rr.Code)
		var resp CoverageResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, jan2024, resp.Period)
		assert.Equal(t, 14, resp.TotalRows)
		assert.Equal(t, []RegionCoverage{
			{Code: "11110", Name: "종로구", Rows: 10},
			{Code: "11140", Name: "중구", Rows: 4},
		}, resp.Regions)
		store.AssertExpectations(t)
	})

	t.Run("should reject a malformed period", func(t *testing.T) {
		rr := serve(new(MockStore), "/api/coverage/2024-01")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("should return error when the store fails", func(t *testing.T) {
		store := new(MockStore)
		store.On("UnitCounts", mock.Anything, jan2024).Return(nil, errors.New("db error")).Once()

		rr := serve(store, "/api/coverage/202401")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestStatusService_GetSuspects(t *testing.T) {
	t.Run("should query the requested cap only", func(t *testing.T) {
		store := new(MockStore)
		store.On("UnitsWithRowCount", mock.Anything, 500).Return([]models.UnitCount{
			{Unit: models.NewUnit(jongno, jan2024), Rows: 500},
		}, nil).Once()

		rr := serve(store, "/api/suspects?cap=500")

		require.Equal(t, http.StatusOK, rr.Code)
		var resp []models.UnitCount
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, []models.UnitCount{{Unit: models.NewUnit(jongno, jan2024), Rows: 500}}, resp)
		store.AssertExpectations(t)
	})

	t.Run("should fall back to configured caps", func(t *testing.T) {
		store := new(MockStore)
		feb := models.NewPeriod(2024, 2)
		store.On("UnitsWithRowCount", mock.Anything, 1000).Return([]models.UnitCount{
			{Unit: models.NewUnit(junggu, feb), Rows: 1000},
		}, nil).Once()
		store.On("UnitsWithRowCount", mock.Anything, 10000).Return([]models.UnitCount{
			{Unit: models.NewUnit(jongno, jan2024), Rows: 10000},
		}, nil).Once()

		rr := serve(store, "/api/suspects")

		require.Equal(t, http.StatusOK, rr.Code)
		var resp []models.UnitCount
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.Len(t, resp, 2)
		assert.Equal(t, jan2024, resp[0].Unit.Period)
		assert.Equal(t, feb, resp[1].Unit.Period)
	})

	t.Run("should reject an invalid cap", func(t *testing.T) {
		rr := serve(new(MockStore), "/api/suspects?cap=-1")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestStatusService_GetUnitRecords(t *testing.T) {
	t.Run("should return the unit's records", func(t *testing.T) {
		store := new(MockStore)
		unit := models.NewUnit(models.Region{Code: "11110"}, jan2024)
		store.On("RowsForUnit", mock.Anything, unit).Return([]models.CanonicalRecord{
			{ID: "202401_0001", RegionCode: "11110", Period: jan2024, DealAmount: 50000},
		}, nil).Once()

		rr := serve(store, "/api/units/202401/11110")

		require.Equal(t, http.StatusOK, rr.Code)
		var resp []map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "202401_0001", resp[0]["id"])
		assert.Equal(t, "202401", resp[0]["deal_ym"])
	})

	t.Run("should return an empty list for an unknown unit", func(t *testing.T) {
		store := new(MockStore)
		store.On("RowsForUnit", mock.Anything, mock.Anything).Return(nil, nil).Once()

		rr := serve(store, "/api/units/202401/11110")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("should reject a malformed region", func(t *testing.T) {
		rr := serve(new(MockStore), "/api/units/202401/111")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSetupRoutes_Metrics(t *testing.T) {
	t.Run("should serve process metrics without loader run metrics", func(t *testing.T) {
		rr := serve(new(MockStore), "/metrics")

		require.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.True(t, strings.Contains(body, "go_goroutines"))
		assert.False(t, strings.Contains(body, "apt_units_total"))
	})
}
