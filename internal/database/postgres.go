package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/ThiagoRGoveia/apt-trades/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema_postgres.sql
var postgresSchema string

func ConnectDB(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	dbpool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return dbpool, nil
}

type PostgresStore struct {
	dbpool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{dbpool: pool}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.dbpool.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.dbpool.Close()
}

func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	if _, err := s.dbpool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("error creating schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertRegions(ctx context.Context, regions []models.Region) error {
	query := `
	INSERT INTO regions (code, name, api_served, seq)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (code) DO UPDATE
	SET name = EXCLUDED.name, api_served = EXCLUDED.api_served, seq = EXCLUDED.seq;`

	tx, err := s.dbpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i, r := range regions {
		batch.Queue(query, r.Code, r.Name, r.APIServed, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("error upserting regions: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Regions(ctx context.Context) ([]models.Region, error) {
	rows, err := s.dbpool.Query(ctx, `SELECT code, name, api_served FROM regions ORDER BY seq, code;`)
	if err != nil {
		return nil, fmt.Errorf("error querying regions: %w", err)
	}

	regions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Region, error) {
		var r models.Region
		err := row.Scan(&r.Code, &r.Name, &r.APIServed)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning regions: %w", err)
	}
	return regions, nil
}

func (s *PostgresStore) UnitCounts(ctx context.Context, period models.Period) ([]models.UnitCount, error) {
	query := `
	SELECT t.deal_ym, t.region_code, COALESCE(r.name, ''), COALESCE(r.api_served, TRUE), t.cnt
	FROM (
		SELECT deal_ym, region_code, count(*) AS cnt
		FROM apt_trades
		WHERE deal_ym = $1
		GROUP BY deal_ym, region_code
	) t
	LEFT JOIN regions r ON r.code = t.region_code
	ORDER BY t.region_code;`

	return s.queryUnitCounts(ctx, query, period.String())
}

func (s *PostgresStore) UnitsWithRowCount(ctx context.Context, n int) ([]models.UnitCount, error) {
	query := `
	SELECT t.deal_ym, t.region_code, COALESCE(r.name, ''), COALESCE(r.api_served, TRUE), t.cnt
	FROM (
		SELECT deal_ym, region_code, count(*) AS cnt
		FROM apt_trades
		GROUP BY deal_ym, region_code
		HAVING count(*) = $1
	) t
	LEFT JOIN regions r ON r.code = t.region_code
	ORDER BY t.deal_ym, t.region_code;`

	return s.queryUnitCounts(ctx, query, n)
}

func (s *PostgresStore) queryUnitCounts(ctx context.Context, query string, args ...any) ([]models.UnitCount, error) {
	rows, err := s.dbpool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying unit counts: %w", err)
	}

	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.UnitCount, error) {
		var (
			uc     models.UnitCount
			dealYM string
		)
		if err := row.Scan(&dealYM, &uc.Unit.Region.Code, &uc.Unit.Region.Name, &uc.Unit.Region.APIServed, &uc.Rows); err != nil {
			return uc, err
		}
		period, err := models.ParsePeriod(dealYM)
		uc.Unit.Period = period
		return uc, err
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning unit counts: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) RowsForUnit(ctx context.Context, unit models.Unit) ([]models.CanonicalRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE deal_ym = $1 AND region_code = $2 ORDER BY id;`,
		columnList(), tradesTable)

	rows, err := s.dbpool.Query(ctx, query, unit.Period.String(), unit.Region.Code)
	if err != nil {
		return nil, fmt.Errorf("error querying rows for %s: %w", unit, err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CanonicalRecord, error) {
		var (
			rec    models.CanonicalRecord
			dealYM string
			size   pgtype.Numeric
		)
		if err := row.Scan(recordTargets(&rec, &dealYM, &rec.DealDate, &size, &rec.LoadedAt)...); err != nil {
			return rec, err
		}
		period, err := models.ParsePeriod(dealYM)
		if err != nil {
			return rec, err
		}
		rec.Period = period
		rec.Size = decimal.NewFromBigInt(size.Int, size.Exp)
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning rows for %s: %w", unit, err)
	}
	return records, nil
}

func (s *PostgresStore) copyRecords(ctx context.Context, tx pgx.Tx, records []models.CanonicalRecord) (int64, error) {
	copySource := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		rec := &records[i]
		size := pgtype.Numeric{Int: rec.Size.Coefficient(), Exp: rec.Size.Exponent(), Valid: true}
		return recordValues(rec, size, rec.DealDate, rec.LoadedAt), nil
	})

	return tx.CopyFrom(ctx, pgx.Identifier{tradesTable}, tradeColumns, copySource)
}

func (s *PostgresStore) Append(ctx context.Context, unit models.Unit, records []models.CanonicalRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.dbpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	slog.DebugContext(ctx, "bulk loading records", "unit", unit.String(), "rows", len(records))
	if _, err := s.copyRecords(ctx, tx, records); err != nil {
		return fmt.Errorf("unable to copy records for %s: %w", unit, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing records for %s: %w", unit, err)
	}
	return nil
}

func (s *PostgresStore) Replace(ctx context.Context, unit models.Unit, records []models.CanonicalRecord) error {
	tx, err := s.dbpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM apt_trades WHERE deal_ym = $1 AND region_code = $2;`,
		unit.Period.String(), unit.Region.Code)
	if err != nil {
		return &models.RepairIncompleteError{Unit: unit, Retained: true, Err: fmt.Errorf("delete: %w", err)}
	}
	slog.DebugContext(ctx, "deleted unit rows", "unit", unit.String(), "rows", tag.RowsAffected())

	if len(records) > 0 {
		if _, err := s.copyRecords(ctx, tx, records); err != nil {
			return &models.RepairIncompleteError{Unit: unit, Retained: true, Err: fmt.Errorf("append: %w", err)}
		}
	}

	// A failed commit leaves the outcome unknown to the caller.
	if err := tx.Commit(ctx); err != nil {
		return &models.RepairIncompleteError{Unit: unit, Retained: false, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}
