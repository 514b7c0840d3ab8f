package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

const upsertRowQuery = `
	INSERT INTO fees.product_structure (
		source_file,
		row_index,
		phase,
		products,
		product_count,
		low_confidence,
		reason_codes,
		flat_fee,
		minimum_investment,
		negotiable,
		record,
		updated_at
	)
	VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10, $11, NOW()
	)
	ON CONFLICT (source_file, row_index)
	DO UPDATE SET
		phase = EXCLUDED.phase,
		products = EXCLUDED.products,
		product_count = EXCLUDED.product_count,
		low_confidence = EXCLUDED.low_confidence,
		reason_codes = EXCLUDED.reason_codes,
		flat_fee = EXCLUDED.flat_fee,
		minimum_investment = EXCLUDED.minimum_investment,
		negotiable = EXCLUDED.negotiable,
		record = EXCLUDED.record,
		updated_at = EXCLUDED.updated_at;
`

const selectRowQuery = `
	SELECT record, products, low_confidence, reason_codes, phase
	FROM fees.product_structure
	WHERE source_file = $1 AND row_index = $2
	LIMIT 1;
`

// RowWriter persists output rows into fees.product_structure.
type RowWriter struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewRowWriter(db *pgxpool.Pool, logger *zap.Logger) *RowWriter {
	return &RowWriter{db: db, logger: logger}
}

func upsertArgs(row model.OutputRow) ([]any, error) {
	record, err := json.Marshal(row.Record)
	if err != nil {
		return nil, err
	}
	reasons := make([]string, len(row.Reasons))
	for i, r := range row.Reasons {
		reasons[i] = string(r)
	}
	var minimum any
	if row.Record.HasMinimumInvestment {
		minimum = row.Record.MinimumInvestment
	}
	return []any{
		row.Record.SourceFile, // source_file
		row.Record.RowIndex,   // row_index
		string(row.Phase),     // phase
		row.Products[:],       // products text[]
		row.ProductCount(),    // product_count
		row.LowConfidence,     // low_confidence
		reasons,               // reason_codes text[]
		row.Record.FlatFee,    // flat_fee
		minimum,               // minimum_investment (NULL when absent)
		row.Record.Negotiable, // negotiable
		record,                // record jsonb
	}, nil
}

// UpsertRow inserts or updates a single row.
func (w *RowWriter) UpsertRow(ctx context.Context, row model.OutputRow) error {
	args, err := upsertArgs(row)
	if err != nil {
		return err
	}
	if _, err := w.db.Exec(ctx, upsertRowQuery, args...); err != nil {
		w.logger.Error("store.pg.upsert_row_failed",
			zap.String("source_file", row.Record.SourceFile),
			zap.Int("row_index", row.Record.RowIndex),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// UpsertRows upserts rows in one batch.
func (w *RowWriter) UpsertRows(ctx context.Context, rows []model.OutputRow) error {
	if len(rows) == 0 {
		return nil
	}
	if len(rows) == 1 {
		return w.UpsertRow(ctx, rows[0])
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		args, err := upsertArgs(row)
		if err != nil {
			return err
		}
		batch.Queue(upsertRowQuery, args...)
	}

	br := w.db.SendBatch(ctx, batch)
	defer br.Close()
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			w.logger.Error("store.pg.upsert_batch_failed",
				zap.String("source_file", rows[i].Record.SourceFile),
				zap.Int("row_index", rows[i].Record.RowIndex),
				zap.Error(err),
			)
			return fmt.Errorf("upsert row %d: %w", rows[i].Record.RowIndex, err)
		}
	}

	w.logger.Info("store.pg.rows_upserted", zap.Int("rows", len(rows)))
	return nil
}

// GetRow reads one persisted row. It returns pgx.ErrNoRows when absent.
func (w *RowWriter) GetRow(ctx context.Context, sourceFile string, rowIndex int) (*model.OutputRow, error) {
	var (
		record   []byte
		products []string
		reasons  []string
		phase    string
		row      model.OutputRow
	)
	err := w.db.QueryRow(ctx, selectRowQuery, sourceFile, rowIndex).
		Scan(&record, &products, &row.LowConfidence, &reasons, &phase)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(record, &row.Record); err != nil {
		return nil, fmt.Errorf("GetRow decode record: %w", err)
	}
	copy(row.Products[:], products)
	for _, r := range reasons {
		row.Reasons = append(row.Reasons, model.ReasonCode(r))
	}
	row.Phase = model.Phase(phase)
	return &row, nil
}
