package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/internal/effective"
	"github.com/Checker-Finance/adviser-fees/internal/pool"
	"github.com/Checker-Finance/adviser-fees/internal/store"
	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// DefaultMaxBatch bounds POST /records/batch.
const DefaultMaxBatch = 1000

// BatchRunner classifies records concurrently, preserving order.
type BatchRunner interface {
	Run(ctx context.Context, records []model.RawRecord) ([]model.OutputRow, error)
}

// RowReader looks up stored output rows.
type RowReader interface {
	GetRow(ctx context.Context, sourceFile string, rowIndex int) (*model.OutputRow, error)
}

// FileLister lists the processed-file ledger.
type FileLister interface {
	ProcessedFiles(ctx context.Context) ([]store.LedgerEntry, error)
}

// Handler serves the classification API.
type Handler struct {
	logger    *zap.Logger
	processor pool.RecordProcessor
	batch     BatchRunner
	rows      RowReader
	files     FileLister
	separator string
	maxBatch  int
}

// NewHandler creates a Handler. rows and files are optional; without them
// the lookup routes answer 503.
func NewHandler(logger *zap.Logger, processor pool.RecordProcessor, batch BatchRunner, rows RowReader, files FileLister) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:    logger,
		processor: processor,
		batch:     batch,
		rows:      rows,
		files:     files,
		maxBatch:  DefaultMaxBatch,
	}
}

// WithMaxBatch overrides the batch size limit.
func (h *Handler) WithMaxBatch(n int) *Handler {
	h.maxBatch = n
	return h
}

// WithSeparator sets the token separator used to read product columns.
func (h *Handler) WithSeparator(sep string) *Handler {
	h.separator = sep
	return h
}

// Classify handles one raw record.
func (h *Handler) Classify(c *fiber.Ctx) error {
	var raw model.RawRecord
	if err := c.BodyParser(&raw); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := raw.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	row := h.processor.Process(raw)
	return c.Status(fiber.StatusOK).JSON(toRowResponse(row))
}

// ClassifyBatch handles an ordered batch of raw records.
func (h *Handler) ClassifyBatch(c *fiber.Ctx) error {
	var req BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := req.Validate(h.maxBatch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rows, err := h.batch.Run(c.UserContext(), req.Records)
	if err != nil {
		h.logger.Error("api.batch.failed", zap.Int("records", len(req.Records)), zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}

	resp := BatchResponse{Rows: make([]RowResponse, len(rows))}
	for i, row := range rows {
		resp.Rows[i] = toRowResponse(row)
		if row.LowConfidence {
			resp.LowConfidence++
		}
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// GetRow returns a stored row by source file and row index.
func (h *Handler) GetRow(c *fiber.Ctx) error {
	if h.rows == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "row store not configured"})
	}

	source := c.Params("source")
	idx, err := strconv.Atoi(c.Params("row"))
	if err != nil || idx < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "row must be a non-negative integer"})
	}

	row, err := h.rows.GetRow(c.UserContext(), source, idx)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "row not found"})
	}
	if err != nil {
		h.logger.Error("api.get_row.failed",
			zap.String("source", source),
			zap.Int("row", idx),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(toRowResponse(*row))
}

// ListFiles returns the processed-file ledger.
func (h *Handler) ListFiles(c *fiber.Ctx) error {
	if h.files == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "ledger not configured"})
	}

	entries, err := h.files.ProcessedFiles(c.UserContext())
	if err != nil {
		h.logger.Error("api.list_files.failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"files": entries, "count": len(entries)})
}

// EffectiveFee computes the blended fee of one product column.
func (h *Handler) EffectiveFee(c *fiber.Ctx) error {
	var req EffectiveFeeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	product, err := effective.ParseProduct(req.Product, h.separator)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	res, err := effective.Rate(product, req.PortfolioValue)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(res)
}
