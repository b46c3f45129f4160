package bia

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/predictive"
	"github.com/sells-group/bia-service/internal/rules"
	"github.com/sells-group/bia-service/internal/store"
)

// ErrValidation is wrapped by request validation failures. No source is
// contacted when it is returned.
var ErrValidation = eris.New("bia: invalid request")

const maxFunctionNameLen = 200

// Request asks for a BIA of one business function.
type Request struct {
	FunctionName string             `json:"function_name"`
	FunctionType model.FunctionType `json:"function_type"`
	// Team identifies the owning team for the HR lookup. Defaults to the
	// function name.
	Team      string   `json:"team,omitempty"`
	DRIName   string   `json:"dri_name,omitempty"`
	DRITeam   string   `json:"dri_team,omitempty"`
	Regions   []string `json:"regions,omitempty"`
	CreatedBy string   `json:"created_by,omitempty"`
}

// Normalize trims and NFC-normalizes text fields and de-duplicates regions
// (lower-cased, first occurrence wins).
func (r Request) Normalize() Request {
	clean := func(s string) string { return strings.TrimSpace(norm.NFC.String(s)) }
	r.FunctionName = clean(r.FunctionName)
	r.FunctionType = model.FunctionType(strings.ToLower(clean(string(r.FunctionType))))
	r.Team = clean(r.Team)
	r.DRIName = clean(r.DRIName)
	r.DRITeam = clean(r.DRITeam)
	r.CreatedBy = clean(r.CreatedBy)
	if r.Team == "" {
		r.Team = r.FunctionName
	}

	seen := make(map[string]bool, len(r.Regions))
	regions := make([]string, 0, len(r.Regions))
	for _, code := range r.Regions {
		code = strings.ToLower(clean(code))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		regions = append(regions, code)
	}
	r.Regions = regions
	return r
}

// Validate checks a normalized request.
func (r Request) Validate() error {
	var problems []string
	if r.FunctionName == "" {
		problems = append(problems, "function_name is required")
	} else if utf8.RuneCountInString(r.FunctionName) > maxFunctionNameLen {
		problems = append(problems, "function_name is too long")
	}
	if r.FunctionType == "" {
		problems = append(problems, "function_type is required")
	} else if !r.FunctionType.Valid() {
		problems = append(problems, "function_type "+string(r.FunctionType)+" is not one of product, platform, support, infrastructure, compliance")
	}
	if len(problems) > 0 {
		return eris.Wrap(ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// GenerationError reports a document that was assembled but could not be
// stored.
type GenerationError struct {
	FunctionName string
	Err          error
}

func (e *GenerationError) Error() string {
	return "bia: generate " + e.FunctionName + ": " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// AuditRecorder appends audit entries without failing the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entry model.AuditEntry)
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// WithHorizon sets the horizon of the fallback forecast.
func WithHorizon(days int) GeneratorOption {
	return func(g *Generator) { g.horizon = days }
}

// Generator assembles and stores BIA documents.
type Generator struct {
	collector *Collector
	tables    *rules.Tables
	store     store.Store
	audit     AuditRecorder
	horizon   int
	now       func() time.Time
}

// NewGenerator wires a Generator. st and rec may be nil when only Build is
// used.
func NewGenerator(collector *Collector, tables *rules.Tables, st store.Store, rec AuditRecorder, opts ...GeneratorOption) *Generator {
	g := &Generator{
		collector: collector,
		tables:    tables,
		store:     st,
		audit:     rec,
		horizon:   90,
		now:       time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Collector returns the generator's source collector.
func (g *Generator) Collector() *Collector { return g.collector }

// Build assembles a document without storing it. Source failures degrade the
// document; only validation fails the call.
func (g *Generator) Build(ctx context.Context, req Request) (*model.Document, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("function", req.FunctionName))

	outcomes := g.collector.Collect(ctx, model.SourceRequest{
		FunctionName: req.FunctionName,
		FunctionType: req.FunctionType,
		Team:         req.Team,
	})

	doc := &model.Document{
		FunctionName:      req.FunctionName,
		FunctionType:      req.FunctionType,
		Personnel:         BuildPersonnel(outcomes, req),
		BusinessImpact:    BuildBusinessImpact(outcomes, g.tables, req),
		Technology:        BuildTechnology(outcomes),
		Recovery:          BuildRecovery(outcomes, g.tables, req),
		RiskCompliance:    BuildRiskCompliance(outcomes, g.tables, req),
		ISOClassification: BuildISOClassification(outcomes, g.tables, req),
		RegionalOverlays:  BuildRegionalOverlays(g.tables, req.Regions),
	}

	if p, ok := payloadOf[*model.Prediction](outcomes, model.SourcePredictive); ok {
		doc.PredictiveAnalysis = BuildPredictive(p, PredictionFromEngine)
	} else {
		reason := "no result"
		if err := outcomes[model.SourcePredictive].Err; err != nil {
			reason = predictiveReason(err)
		}
		log.Warn("bia: predictive engine unavailable, using fallback forecast", zap.String("reason", reason))
		doc.PredictiveAnalysis = BuildPredictive(predictive.Fallback(reason, g.horizon), PredictionFromFallback)
	}

	doc.DRIName = doc.Personnel.DRI.Name
	doc.DRITeam = doc.Personnel.TeamName
	doc.DataSources = summarizeSources(outcomes)
	doc.ConfidenceAssessment = Aggregate(doc.Sections(), outcomes)

	now := g.now().UTC()
	doc.ID = uuid.New().String()
	doc.Version = model.InitialVersion
	doc.Status = model.StatusDraft
	doc.CreatedBy = req.CreatedBy
	doc.CreatedAt = now
	doc.UpdatedAt = now

	log.Info("bia: document assembled",
		zap.String("id", doc.ID),
		zap.Float64("overall_confidence", doc.ConfidenceAssessment.OverallConfidence),
		zap.Float64("data_completeness", doc.ConfidenceAssessment.DataCompleteness),
	)
	return doc, nil
}

// Generate builds a document, stores it and records a "created" audit entry.
// Store failures are returned as *GenerationError.
func (g *Generator) Generate(ctx context.Context, req Request) (*model.Document, error) {
	doc, err := g.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	if g.store == nil {
		return nil, &GenerationError{FunctionName: doc.FunctionName, Err: eris.New("bia: no store configured")}
	}

	if _, err := g.store.CreateDocument(ctx, doc); err != nil {
		return nil, &GenerationError{FunctionName: doc.FunctionName, Err: err}
	}

	if g.audit != nil {
		after, _ := json.Marshal(map[string]any{
			"status":             doc.Status,
			"version":            doc.Version,
			"overall_confidence": doc.ConfidenceAssessment.OverallConfidence,
		})
		actor := doc.CreatedBy
		if actor == "" {
			actor = "system"
		}
		g.audit.Record(ctx, model.AuditEntry{
			DocumentID: doc.ID,
			Action:     model.AuditCreated,
			Actor:      actor,
			After:      after,
			CreatedAt:  doc.CreatedAt,
		})
	}
	return doc, nil
}

func summarizeSources(o Outcomes) []model.DataSourceSummary {
	out := []model.DataSourceSummary{}
	for _, name := range o.Succeeded() {
		p := o[name].Payload
		out = append(out, model.DataSourceSummary{
			Name:             name,
			ConnectionStatus: "connected",
			Confidence:       clamp01(p.Confidence()),
			LastUpdated:      p.UpdatedAt(),
		})
	}
	return out
}

func predictiveReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, predictive.ErrUnavailable):
		return "engine error"
	default:
		return "source error"
	}
}
