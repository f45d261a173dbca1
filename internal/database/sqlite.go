package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

const sqliteDateLayout = "2006-01-02"

// SQLiteStore is a single-connection Store for local runs and tests.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens path, which may be ":memory:".
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database %s: %w", path, err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() {
	if err := s.db.Close(); err != nil {
		slog.Warn("error closing sqlite database", "err", err)
	}
}

func (s *SQLiteStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("error creating schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertRegions(ctx context.Context, regions []models.Region) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO regions (code, name, api_served, seq)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (code) DO UPDATE
	SET name = excluded.name, api_served = excluded.api_served, seq = excluded.seq;`)
	if err != nil {
		return fmt.Errorf("error preparing region upsert: %w", err)
	}
	defer stmt.Close()

	for i, r := range regions {
		if _, err := stmt.ExecContext(ctx, r.Code, r.Name, r.APIServed, i); err != nil {
			return fmt.Errorf("error upserting region %s: %w", r.Code, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Regions(ctx context.Context) ([]models.Region, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name, api_served FROM regions ORDER BY seq, code;`)
	if err != nil {
		return nil, fmt.Errorf("error querying regions: %w", err)
	}
	defer rows.Close()

	var regions []models.Region
	for rows.Next() {
		var r models.Region
		if err := rows.Scan(&r.Code, &r.Name, &r.APIServed); err != nil {
			return nil, fmt.Errorf("error scanning region: %w", err)
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

func (s *SQLiteStore) UnitCounts(ctx context.Context, period models.Period) ([]models.UnitCount, error) {
	query := `
	SELECT t.deal_ym, t.region_code, COALESCE(r.name, ''), COALESCE(r.api_served, 1), t.cnt
	FROM (
		SELECT deal_ym, region_code, count(*) AS cnt
		FROM apt_trades
		WHERE deal_ym = ?
		GROUP BY deal_ym, region_code
	) t
	LEFT JOIN regions r ON r.code = t.region_code
	ORDER BY t.region_code;`

	return s.queryUnitCounts(ctx, query, period.String())
}

func (s *SQLiteStore) UnitsWithRowCount(ctx context.Context, n int) ([]models.UnitCount, error) {
	query := `
	SELECT t.deal_ym, t.region_code, COALESCE(r.name, ''), COALESCE(r.api_served, 1), t.cnt
	FROM (
		SELECT deal_ym, region_code, count(*) AS cnt
		FROM apt_trades
		GROUP BY deal_ym, region_code
		HAVING count(*) = ?
	) t
	LEFT JOIN regions r ON r.code = t.region_code
	ORDER BY t.deal_ym, t.region_code;`

	return s.queryUnitCounts(ctx, query, n)
}

func (s *SQLiteStore) queryUnitCounts(ctx context.Context, query string, args ...any) ([]models.UnitCount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying unit counts: %w", err)
	}
	defer rows.Close()

	var counts []models.UnitCount
	for rows.Next() {
		var (
			uc     models.UnitCount
			dealYM string
		)
		if err := rows.Scan(&dealYM, &uc.Unit.Region.Code, &uc.Unit.Region.Name, &uc.Unit.Region.APIServed, &uc.Rows); err != nil {
			return nil, fmt.Errorf("error scanning unit count: %w", err)
		}
		if uc.Unit.Period, err = models.ParsePeriod(dealYM); err != nil {
			return nil, err
		}
		counts = append(counts, uc)
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) RowsForUnit(ctx context.Context, unit models.Unit) ([]models.CanonicalRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE deal_ym = ? AND region_code = ? ORDER BY id;`,
		columnList(), tradesTable)

	rows, err := s.db.QueryContext(ctx, query, unit.Period.String(), unit.Region.Code)
	if err != nil {
		return nil, fmt.Errorf("error querying rows for %s: %w", unit, err)
	}
	defer rows.Close()

	var records []models.CanonicalRecord
	for rows.Next() {
		var (
			rec                              models.CanonicalRecord
			dealYM, dealDate, size, loadedAt string
		)
		if err := rows.Scan(recordTargets(&rec, &dealYM, &dealDate, &size, &loadedAt)...); err != nil {
			return nil, fmt.Errorf("error scanning row for %s: %w", unit, err)
		}
		if rec.Period, err = models.ParsePeriod(dealYM); err != nil {
			return nil, err
		}
		if rec.DealDate, err = time.Parse(sqliteDateLayout, dealDate); err != nil {
			return nil, fmt.Errorf("invalid deal_date %q: %w", dealDate, err)
		}
		if rec.Size, err = decimal.NewFromString(size); err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", size, err)
		}
		if rec.LoadedAt, err = time.Parse(time.RFC3339Nano, loadedAt); err != nil {
			return nil, fmt.Errorf("invalid loaded_at %q: %w", loadedAt, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) insertRecords(ctx context.Context, tx *sql.Tx, records []models.CanonicalRecord) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(tradeColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s);`,
		tradesTable, columnList(), placeholders))
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		values := recordValues(rec,
			rec.Size.String(),
			rec.DealDate.Format(sqliteDateLayout),
			rec.LoadedAt.UTC().Format(time.RFC3339Nano))
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("error inserting record %s: %w", rec.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, unit models.Unit, records []models.CanonicalRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.insertRecords(ctx, tx, records); err != nil {
		return fmt.Errorf("unable to append records for %s: %w", unit, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing records for %s: %w", unit, err)
	}
	return nil
}

func (s *SQLiteStore) Replace(ctx context.Context, unit models.Unit, records []models.CanonicalRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM apt_trades WHERE deal_ym = ? AND region_code = ?;`,
		unit.Period.String(), unit.Region.Code)
	if err != nil {
		return &models.RepairIncompleteError{Unit: unit, Retained: true, Err: fmt.Errorf("delete: %w", err)}
	}
	if deleted, err := res.RowsAffected(); err == nil {
		slog.DebugContext(ctx, "deleted unit rows", "unit", unit.String(), "rows", deleted)
	}

	if err := s.insertRecords(ctx, tx, records); err != nil {
		return &models.RepairIncompleteError{Unit: unit, Retained: true, Err: fmt.Errorf("append: %w", err)}
	}

	if err := tx.Commit(); err != nil {
		return &models.RepairIncompleteError{Unit: unit, Retained: false, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}
