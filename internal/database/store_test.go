package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
	"github.com/ThiagoRGoveia/apt-trades/internal/parser"
	"github.com/ThiagoRGoveia/apt-trades/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jongno  = models.Region{Code: "11110", Name: "종로구", APIServed: true}
	junggu  = models.Region{Code: "11140", Name: "중구", APIServed: true}
	suwon   = models.Region{Code: "41110", Name: "수원시", APIServed: false}
	jan2024 = models.NewPeriod(2024, 1)
	feb2024 = models.NewPeriod(2024, 2)
)

func records(t *testing.T, unit models.Unit, n int) []models.CanonicalRecord {
	t.Helper()
	items := testutil.APIItems(unit.Period.String(), n)
	raws := make([]models.RawRecord, len(items))
	for i, it := range items {
		raws[i] = it.Map()
	}
	loadedAt := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	recs, err := parser.NewNormalizer().WithClock(func() time.Time { return loadedAt }).Normalize(unit, raws)
	require.NoError(t, err)
	return recs
}

func ids(recs []models.CanonicalRecord) map[string]bool {
	out := make(map[string]bool, len(recs))
	for _, r := range recs {
		out[r.ID] = true
	}
	return out
}

// testStore runs the behaviour every Store implementation must share.
func testStore(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("should keep regions in reference order and upsert", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.UpsertRegions(ctx, []models.Region{junggu, jongno, suwon}))
		renamed := jongno
		renamed.Name = "서울 종로구"
		require.NoError(t, store.UpsertRegions(ctx, []models.Region{junggu, renamed, suwon}))

		regions, err := store.Regions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.Region{junggu, renamed, suwon}, regions)
	})

	t.Run("should round trip appended records", func(t *testing.T) {
		store := newStore(t)
		unit := models.NewUnit(jongno, jan2024)
		want := records(t, unit, 3)
		floor := 9
		want[1].Floor = nil
		want[2].Floor = &floor
		cancel := "24.01.20"
		want[2].Cancelled = true
		want[2].CancelDate = &cancel

		require.NoError(t, store.Append(ctx, unit, want))

		got, err := store.RowsForUnit(ctx, unit)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("RowsForUnit mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should report coverage per period", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertRegions(ctx, []models.Region{jongno, junggu}))
		require.NoError(t, store.Append(ctx, models.NewUnit(jongno, jan2024), records(t, models.NewUnit(jongno, jan2024), 10)))
		require.NoError(t, store.Append(ctx, models.NewUnit(junggu, feb2024), records(t, models.NewUnit(junggu, feb2024), 4)))

		counts, err := store.UnitCounts(ctx, jan2024)
		require.NoError(t, err)
		assert.Equal(t, []models.UnitCount{{Unit: models.NewUnit(jongno, jan2024), Rows: 10}}, counts)

		counts, err = store.UnitCounts(ctx, models.NewPeriod(2023, 12))
		require.NoError(t, err)
		assert.Empty(t, counts)
	})

	t.Run("should list units holding exactly n rows", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertRegions(ctx, []models.Region{jongno, junggu}))
		for _, uc := range []models.UnitCount{
			{Unit: models.NewUnit(jongno, feb2024), Rows: 5},
			{Unit: models.NewUnit(junggu, jan2024), Rows: 5},
			{Unit: models.NewUnit(jongno, jan2024), Rows: 4},
		} {
			require.NoError(t, store.Append(ctx, uc.Unit, records(t, uc.Unit, uc.Rows)))
		}

		suspects, err := store.UnitsWithRowCount(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []models.UnitCount{
			{Unit: models.NewUnit(junggu, jan2024), Rows: 5},
			{Unit: models.NewUnit(jongno, feb2024), Rows: 5},
		}, suspects)
	})

	t.Run("should not keep a partial append", func(t *testing.T) {
		store := newStore(t)
		unit := models.NewUnit(jongno, jan2024)
		recs := records(t, unit, 3)
		recs[2].ID = recs[0].ID

		err := store.Append(ctx, unit, recs)

		require.Error(t, err)
		got, err := store.RowsForUnit(ctx, unit)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("should replace every row of the unit only", func(t *testing.T) {
		store := newStore(t)
		unit := models.NewUnit(jongno, jan2024)
		other := models.NewUnit(junggu, jan2024)
		before := records(t, unit, 5)
		require.NoError(t, store.Append(ctx, unit, before))
		require.NoError(t, store.Append(ctx, other, records(t, other, 2)))

		after := records(t, unit, 7)
		for i := range after {
			after[i].ID = "r" + after[i].ID
		}
		require.NoError(t, store.Replace(ctx, unit, after))

		got, err := store.RowsForUnit(ctx, unit)
		require.NoError(t, err)
		assert.Len(t, got, 7)
		for id := range ids(got) {
			assert.False(t, ids(before)[id], "row %s survived the replace", id)
		}
		kept, err := store.RowsForUnit(ctx, other)
		require.NoError(t, err)
		assert.Len(t, kept, 2)
	})

	t.Run("should retain prior rows when the replacement fails", func(t *testing.T) {
		store := newStore(t)
		unit := models.NewUnit(jongno, jan2024)
		require.NoError(t, store.Append(ctx, unit, records(t, unit, 5)))
		broken := records(t, unit, 3)
		broken[1].ID = broken[0].ID

		err := store.Replace(ctx, unit, broken)

		var incomplete *models.RepairIncompleteError
		require.True(t, errors.As(err, &incomplete))
		assert.True(t, incomplete.Retained)
		assert.ErrorIs(t, err, models.ErrRepairIncomplete)
		got, err := store.RowsForUnit(ctx, unit)
		require.NoError(t, err)
		assert.Len(t, got, 5)
	})
}
