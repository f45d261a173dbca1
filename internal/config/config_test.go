package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("should fail without a database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")

		_, err := New()

		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("should apply defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/apt")
		t.Setenv("MOLIT_SERVICE_KEY", "")

		cfg, err := New()

		require.NoError(t, err)
		assert.Equal(t, DriverPostgres, cfg.DBDriver)
		assert.Equal(t, 1000, cfg.BackfillPageCap)
		assert.Equal(t, 10000, cfg.MonthlyPageCap)
		assert.Equal(t, 20000, cfg.RepairPageCap)
		assert.Equal(t, []int{1000, 10000}, cfg.SuspectPageCaps)
		assert.Equal(t, 2.0, cfg.RequestsPerSecond)
		assert.Equal(t, 0, cfg.RequestBudget)
		assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
		assert.Equal(t, "8080", cfg.APIPort)
		assert.ErrorIs(t, cfg.RequireServiceKey(), ErrMissingServiceKey)
	})

	t.Run("should derive suspect caps from overridden caps", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "apt.db")
		t.Setenv("DB_DRIVER", "sqlite")
		t.Setenv("BACKFILL_PAGE_CAP", "500")
		t.Setenv("MONTHLY_PAGE_CAP", "5000")
		t.Setenv("REPAIR_PAGE_CAP", "20000")

		cfg, err := New()

		require.NoError(t, err)
		assert.Equal(t, DriverSQLite, cfg.DBDriver)
		assert.Equal(t, []int{500, 5000}, cfg.SuspectPageCaps)
	})

	t.Run("should read every override", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/apt")
		t.Setenv("MOLIT_SERVICE_KEY", "secret")
		t.Setenv("SUSPECT_PAGE_CAPS", "1000, 9999")
		t.Setenv("REQUESTS_PER_SECOND", "0.5")
		t.Setenv("REQUEST_BUDGET", "1000")
		t.Setenv("HTTP_TIMEOUT", "5s")
		t.Setenv("ARCHIVE_S3_PATH_STYLE", "true")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := New()

		require.NoError(t, err)
		assert.NoError(t, cfg.RequireServiceKey())
		assert.Equal(t, []int{1000, 9999}, cfg.SuspectPageCaps)
		assert.Equal(t, 0.5, cfg.RequestsPerSecond)
		assert.Equal(t, 1000, cfg.RequestBudget)
		assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
		assert.True(t, cfg.ArchiveS3PathStyle)
		assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	})

	t.Run("should reject a repair cap that does not exceed the load caps", func(t *testing.T) {
		for name, env := range map[string]map[string]string{
			"below backfill":    {"REPAIR_PAGE_CAP": "500"},
			"equal to monthly":  {"REPAIR_PAGE_CAP": "10000"},
			"below suspect cap": {"REPAIR_PAGE_CAP": "15000", "SUSPECT_PAGE_CAPS": "1000,15000"},
		} {
			t.Run(name, func(t *testing.T) {
				t.Setenv("DATABASE_URL", "postgres://localhost/apt")
				for k, v := range env {
					t.Setenv(k, v)
				}

				_, err := New()

				assert.ErrorContains(t, err, "REPAIR_PAGE_CAP")
			})
		}
	})

	t.Run("should keep every default suspect cap repairable", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/apt")

		cfg, err := New()

		require.NoError(t, err)
		for _, c := range cfg.SuspectPageCaps {
			assert.Greater(t, cfg.RepairPageCap, c)
		}
	})

	t.Run("should reject malformed values", func(t *testing.T) {
		for key, value := range map[string]string{
			"BACKFILL_PAGE_CAP":     "many",
			"REPAIR_PAGE_CAP":       "0",
			"SUSPECT_PAGE_CAPS":     "1000,x",
			"HTTP_TIMEOUT":          "30",
			"ARCHIVE_S3_PATH_STYLE": "maybe",
			"LOG_LEVEL":             "loud",
			"DB_DRIVER":             "mysql",
		} {
			t.Run(key, func(t *testing.T) {
				t.Setenv("DATABASE_URL", "postgres://localhost/apt")
				t.Setenv(key, value)

				_, err := New()

				assert.ErrorContains(t, err, key)
			})
		}
	})
}
