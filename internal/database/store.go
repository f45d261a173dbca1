package database

import (
	"context"
	"strings"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
)

// Store is the relational target of the loader. Implementations must make
// Append and Replace all-or-nothing per unit.
type Store interface {
	Ping(ctx context.Context) error
	CreateSchema(ctx context.Context) error

	UpsertRegions(ctx context.Context, regions []models.Region) error
	// Regions returns every known region in reference-list order.
	Regions(ctx context.Context) ([]models.Region, error)

	// UnitCounts returns the regions that hold rows for period.
	UnitCounts(ctx context.Context, period models.Period) ([]models.UnitCount, error)
	// UnitsWithRowCount returns every unit holding exactly n rows, ordered by
	// period then region code.
	UnitsWithRowCount(ctx context.Context, n int) ([]models.UnitCount, error)
	RowsForUnit(ctx context.Context, unit models.Unit) ([]models.CanonicalRecord, error)

	Append(ctx context.Context, unit models.Unit, records []models.CanonicalRecord) error
	// Replace deletes the unit's rows and appends records in one transaction.
	// A failure once the delete was issued is a *models.RepairIncompleteError.
	Replace(ctx context.Context, unit models.Unit, records []models.CanonicalRecord) error

	Close()
}

const tradesTable = "apt_trades"

// tradeColumns is the insert order for apt_trades.
var tradeColumns = []string{
	"region_code", "id", "deal_ym", "deal_date", "deal_amount", "size",
	"floor", "build_year", "cancelled", "cancel_date", "deal_type",
	"apartment_name", "dong", "jibun", "reg_no", "dealer_location",
	"road_name", "road_name_bonbun", "road_name_bubun", "road_name_sigungu_code",
	"road_name_seq", "road_name_basement_code", "road_name_code",
	"bonbun", "bubun", "sigungu_code", "emd_code", "land_code",
	"dialect", "row_hash", "loaded_at",
}

// recordValues lays out r in tradeColumns order. size, dealDate and
// loadedAt are passed pre-encoded since each driver wants its own form.
func recordValues(r *models.CanonicalRecord, size, dealDate, loadedAt any) []any {
	return []any{
		r.RegionCode, r.ID, r.Period.String(), dealDate, r.DealAmount, size,
		r.Floor, r.BuildYear, r.Cancelled, r.CancelDate, r.DealType,
		r.ApartmentName, r.Dong, r.Jibun, r.RegNo, r.DealerLocation,
		r.RoadName, r.RoadNameBonbun, r.RoadNameBubun, r.RoadNameSigunguCode,
		r.RoadNameSeq, r.RoadNameBasementCode, r.RoadNameCode,
		r.Bonbun, r.Bubun, r.SigunguCode, r.EmdCode, r.LandCode,
		r.Dialect, r.RowHash, loadedAt,
	}
}

// recordTargets returns scan destinations in tradeColumns order for the
// columns that need no conversion. The positions of deal_ym, deal_date, size
// and loaded_at are filled from the extra destinations.
func recordTargets(r *models.CanonicalRecord, dealYM, dealDate, size, loadedAt any) []any {
	return []any{
		&r.RegionCode, &r.ID, dealYM, dealDate, &r.DealAmount, size,
		&r.Floor, &r.BuildYear, &r.Cancelled, &r.CancelDate, &r.DealType,
		&r.ApartmentName, &r.Dong, &r.Jibun, &r.RegNo, &r.DealerLocation,
		&r.RoadName, &r.RoadNameBonbun, &r.RoadNameBubun, &r.RoadNameSigunguCode,
		&r.RoadNameSeq, &r.RoadNameBasementCode, &r.RoadNameCode,
		&r.Bonbun, &r.Bubun, &r.SigunguCode, &r.EmdCode, &r.LandCode,
		&r.Dialect, &r.RowHash, loadedAt,
	}
}

func columnList() string {
	return strings.Join(tradeColumns, ", ")
}
