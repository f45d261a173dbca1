package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMetrics(t *testing.T) {
	t.Run("should count units and rows per mode", func(t *testing.T) {
		m := NewRunMetrics()

		m.UnitFinished("monthly", "loaded")
		m.UnitFinished("monthly", "loaded")
		m.UnitFinished("monthly", "failed")
		m.RowsLoaded("monthly", 42)
		m.FetchObserved("monthly", 300*time.Millisecond)

		assert.Equal(t, 2.0, testutil.ToFloat64(m.units.WithLabelValues("monthly", "loaded")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.units.WithLabelValues("monthly", "failed")))
		assert.Equal(t, 42.0, testutil.ToFloat64(m.rows.WithLabelValues("monthly")))
		assert.Equal(t, 1, testutil.CollectAndCount(m.fetchDuration))
	})

	t.Run("should flag a halted run", func(t *testing.T) {
		m := NewRunMetrics()

		m.RunHalted("backfill")

		expected := `
# HELP apt_run_halted 1 when the run stopped on an upstream quota signal
# TYPE apt_run_halted gauge
apt_run_halted{mode="backfill"} 1
`
		require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "apt_run_halted"))
	})

	t.Run("should push to the gateway", func(t *testing.T) {
		var path, body string
		gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			b, _ := io.ReadAll(r.Body)
			body = string(b)
			w.WriteHeader(http.StatusOK)
		}))
		defer gateway.Close()

		m := NewRunMetrics()
		m.RowsLoaded("repair", 7)

		require.NoError(t, m.Push(context.Background(), gateway.URL, "repair"))
		assert.Equal(t, "/metrics/job/apt_trades_ingest/mode/repair", path)
		assert.NotEmpty(t, body)
	})

	t.Run("should report a gateway failure", func(t *testing.T) {
		gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer gateway.Close()

		err := NewRunMetrics().Push(context.Background(), gateway.URL, "monthly")

		assert.Error(t, err)
	})
}
