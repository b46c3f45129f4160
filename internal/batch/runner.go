package batch

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bia-service/internal/bia"
	"github.com/sells-group/bia-service/internal/model"
)

// Generator is the part of bia.Generator a batch needs.
type Generator interface {
	Build(ctx context.Context, req bia.Request) (*model.Document, error)
	Generate(ctx context.Context, req bia.Request) (*model.Document, error)
}

// Options tunes a batch run.
type Options struct {
	Concurrency int
	// DryRun assembles documents without storing them.
	DryRun bool
}

// Result is the outcome for one row.
type Result struct {
	Line              int                `json:"line"`
	FunctionName      string             `json:"function_name"`
	FunctionType      model.FunctionType `json:"function_type"`
	DocumentID        string             `json:"document_id,omitempty"`
	OverallConfidence float64            `json:"overall_confidence"`
	ConfidenceLevel   string             `json:"confidence_level,omitempty"`
	DataCompleteness  float64            `json:"data_completeness"`
	Error             string             `json:"error,omitempty"`
}

// Summary aggregates a batch run. Results are in input order.
type Summary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
	Results   []Result      `json:"results"`
}

// Run generates a document per row with bounded concurrency. A failed row is
// recorded and does not stop the others.
func Run(ctx context.Context, gen Generator, rows []Row, opts Options) *Summary {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	start := time.Now()
	results := make([]Result, len(rows))
	var succeeded, failed atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, row := range rows {
		g.Go(func() error {
			res := Result{
				Line:         row.Line,
				FunctionName: row.Request.FunctionName,
				FunctionType: row.Request.FunctionType,
			}

			var doc *model.Document
			var err error
			if opts.DryRun {
				doc, err = gen.Build(gCtx, row.Request)
			} else {
				doc, err = gen.Generate(gCtx, row.Request)
			}
			if err != nil {
				failed.Add(1)
				res.Error = err.Error()
				zap.L().Error("batch: row failed",
					zap.Int("line", row.Line),
					zap.String("function", row.Request.FunctionName),
					zap.Error(err),
				)
				results[i] = res
				return nil
			}

			succeeded.Add(1)
			res.DocumentID = doc.ID
			res.OverallConfidence = doc.ConfidenceAssessment.OverallConfidence
			res.ConfidenceLevel = doc.ConfidenceAssessment.ConfidenceLevel
			res.DataCompleteness = doc.ConfidenceAssessment.DataCompleteness
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	s := &Summary{
		Total:     len(rows),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Duration:  time.Since(start),
		Results:   results,
	}
	zap.L().Info("batch: complete",
		zap.Int("total", s.Total),
		zap.Int("succeeded", s.Succeeded),
		zap.Int("failed", s.Failed),
		zap.Bool("dry_run", opts.DryRun),
	)
	return s
}
