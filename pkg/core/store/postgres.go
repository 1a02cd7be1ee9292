package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"holdings_extract/pkg/core/fields"
	"holdings_extract/pkg/core/normalize"
	"holdings_extract/pkg/core/pipeline"
	"holdings_extract/pkg/core/synthesis"
)

// Schema creates the outcome and holding tables.
const Schema = `
CREATE TABLE IF NOT EXISTS extraction_outcomes (
	filing_id     TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL,
	cik           TEXT,
	period_end    TEXT,
	records       INTEGER NOT NULL,
	coverage      DOUBLE PRECISION NOT NULL,
	flagged       BOOLEAN NOT NULL,
	outcome_json  JSONB NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS holdings (
	filing_id        TEXT NOT NULL REFERENCES extraction_outcomes(filing_id) ON DELETE CASCADE,
	ordinal          INTEGER NOT NULL,
	entity_name      TEXT NOT NULL,
	entity_key       TEXT NOT NULL,
	item_type        TEXT,
	maturity_date    DATE,
	principal_amount NUMERIC,
	cost             NUMERIC,
	fair_value       NUMERIC,
	match_method     TEXT NOT NULL,
	low_confidence   BOOLEAN NOT NULL,
	record_json      JSONB NOT NULL,
	PRIMARY KEY (filing_id, ordinal)
);

CREATE INDEX IF NOT EXISTS holdings_entity_key_idx ON holdings (entity_key);
`

// PostgresRepo stores outcomes in Postgres. One filing is written in a
// single transaction, replacing any earlier run of the same filing.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo creates a repository over pool.
func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

// EnsureSchema creates the tables when missing.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Publish implements pipeline.Sink.
func (r *PostgresRepo) Publish(ctx context.Context, out *pipeline.ExtractionOutcome) error {
	if r.pool == nil {
		return fmt.Errorf("database pool not configured")
	}
	outcomeJSON, err := json.Marshal(Sidecar(out))
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM extraction_outcomes WHERE filing_id = $1`, out.FilingID); err != nil {
			return fmt.Errorf("failed to clear previous run: %w", err)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO extraction_outcomes (
				filing_id, run_id, cik, period_end, records, coverage, flagged, outcome_json, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			out.FilingID, out.RunID, out.Ref.CIK, out.Ref.PeriodEnd, len(out.Records),
			out.Coverage.Overall, out.Coverage.Flagged, outcomeJSON, time.Now(),
		)
		if err != nil {
			return fmt.Errorf("failed to save outcome: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range out.Records {
			rec := &out.Records[i]
			recJSON, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to marshal record %d: %w", i, err)
			}
			batch.Queue(`
				INSERT INTO holdings (
					filing_id, ordinal, entity_name, entity_key, item_type, maturity_date,
					principal_amount, cost, fair_value, match_method, low_confidence, record_json
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				out.FilingID, i, rec.EntityName(), normalize.Entity(rec.EntityName()),
				nullText(rec, fields.ItemType), nullDate(rec, fields.MaturityDate),
				nullNumeric(rec, fields.PrincipalAmount), nullNumeric(rec, fields.Cost), nullNumeric(rec, fields.FairValue),
				string(rec.Method), rec.LowConfidence, recJSON,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return err
	}
	log.Printf("[Postgres] %s: saved %d holdings", out.FilingID, len(out.Records))
	return nil
}

// Retract deletes a filing's outcome and, by cascade, its holdings.
func (r *PostgresRepo) Retract(ctx context.Context, filingID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM extraction_outcomes WHERE filing_id = $1`, filingID); err != nil {
		return fmt.Errorf("failed to retract %s: %w", filingID, err)
	}
	return nil
}

// Processed returns the filing ids among ids that already have an outcome.
func (r *PostgresRepo) Processed(ctx context.Context, ids []string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT filing_id FROM extraction_outcomes WHERE filing_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	done, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan outcomes: %w", err)
	}
	out := make(map[string]bool, len(done))
	for _, id := range done {
		out[id] = true
	}
	return out, nil
}

// LoadOutcome returns the stored outcome sidecar of a filing.
func (r *PostgresRepo) LoadOutcome(ctx context.Context, filingID string) (*pipeline.ExtractionOutcome, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT outcome_json FROM extraction_outcomes WHERE filing_id = $1`, filingID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no outcome stored for %s", filingID)
		}
		return nil, fmt.Errorf("failed to load outcome: %w", err)
	}
	var out pipeline.ExtractionOutcome
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outcome: %w", err)
	}
	return &out, nil
}

// HoldingsByEntity returns the stored records of one issuer across filings,
// keyed by normalized name.
func (r *PostgresRepo) HoldingsByEntity(ctx context.Context, entity string) ([]json.RawMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT record_json FROM holdings WHERE entity_key = $1 ORDER BY filing_id, ordinal`,
		normalize.Entity(entity))
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (json.RawMessage, error) {
		var data []byte
		err := row.Scan(&data)
		return json.RawMessage(data), err
	})
}

func nullText(rec *synthesis.UnifiedRecord, f fields.Field) *string {
	if !rec.Has(f) {
		return nil
	}
	s := rec.Get(f)
	return &s
}

func nullDate(rec *synthesis.UnifiedRecord, f fields.Field) pgtype.Date {
	v, ok := rec.Value(f)
	if !ok {
		return pgtype.Date{}
	}
	return pgtype.Date{
		Time:  time.Date(v.Date.Year, time.Month(v.Date.Month), v.Date.Day, 0, 0, 0, 0, time.UTC),
		Valid: true,
	}
}

func nullNumeric(rec *synthesis.UnifiedRecord, f fields.Field) pgtype.Numeric {
	v, ok := rec.Value(f)
	if !ok {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{Int: v.Number.Coefficient(), Exp: v.Number.Exponent(), Valid: true}
}
