package engine

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/internal/format"
	"github.com/Checker-Finance/adviser-fees/internal/metrics"
	"github.com/Checker-Finance/adviser-fees/internal/structure"
	"github.com/Checker-Finance/adviser-fees/internal/tier"
	"github.com/Checker-Finance/adviser-fees/internal/validate"
	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// Processor runs one record through normalization, classification,
// formatting and validation. It holds no per-record state and is safe for
// concurrent use.
type Processor struct {
	logger     *zap.Logger
	normalizer *tier.Normalizer
	classifier *structure.Classifier
	formatter  *format.Formatter
	validator  *validate.Validator
}

func NewProcessor(logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		logger:     logger,
		normalizer: tier.NewNormalizer(logger),
		classifier: structure.NewClassifier(logger),
		formatter:  format.New(),
		validator:  validate.New(logger),
	}
}

// WithSeparator overrides the token separator used in product columns.
func (p *Processor) WithSeparator(sep string) *Processor {
	p.formatter = &format.Formatter{Separator: sep}
	return p
}

// Process classifies a raw record. Per-record problems never fail the call;
// they are reported through LowConfidence and Reasons on the returned row.
func (p *Processor) Process(raw model.RawRecord) model.OutputRow {
	rec, normErr := p.normalizer.Normalize(raw)
	row := model.OutputRow{Record: rec}

	var malformed *tier.MalformedTierError
	if errors.As(normErr, &malformed) {
		row.AddReason(model.ReasonMalformedTier)
	}

	res, classErr := p.classifier.Classify(rec.Tiers)
	row.Phase = res.Phase

	var ambiguous *structure.StructureAmbiguousError
	if errors.As(classErr, &ambiguous) {
		row.AddReason(model.ReasonAmbiguous)
	}

	row.Groups, row.Products = p.formatter.Render(res.Products)

	for _, r := range p.validator.Check(rec.Tiers, res.Products, res.Overflow) {
		row.AddReason(r)
	}

	metrics.IncRecord(string(row.Phase))
	metrics.ObserveProducts(len(res.Products))
	if row.LowConfidence {
		for _, r := range row.Reasons {
			metrics.IncLowConfidence(string(r))
		}
		p.logger.Info("engine.record_low_confidence",
			zap.String("source_file", raw.SourceFile),
			zap.Int("row_index", raw.RowIndex),
			zap.String("phase", string(row.Phase)),
			zap.String("reasons", row.ReasonString()))
	}
	return row
}
