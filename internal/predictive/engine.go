// Package predictive runs the external forecasting engine that projects
// recovery objectives and risk for a business function.
package predictive

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bia-service/internal/model"
)

// ErrUnavailable is wrapped by every failure to obtain a forecast.
var ErrUnavailable = eris.New("predictive: engine unavailable")

// Input is written to the engine as input.json.
type Input struct {
	FunctionName string   `json:"function_name"`
	FunctionType string   `json:"function_type"`
	Team         string   `json:"team,omitempty"`
	HorizonDays  int      `json:"horizon_days"`
	Scenarios    []string `json:"scenarios"`
}

// Engine produces a forecast for one function.
type Engine interface {
	Predict(ctx context.Context, in Input) (*model.Prediction, error)
}

// Unavailable is the engine used when no forecaster is installed.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Predict(context.Context, Input) (*model.Prediction, error) {
	return nil, eris.Wrap(ErrUnavailable, u.Reason)
}

// SubprocessConfig configures SubprocessEngine.
type SubprocessConfig struct {
	BinPath string
	Args    []string
	Timeout time.Duration
	// TempDir is the parent of each per-run working directory. Empty uses
	// os.TempDir.
	TempDir string
}

// SubprocessEngine runs an external binary as
// <bin> [args...] --input <dir>/input.json --output <dir>/output.json.
// Each run gets a fresh working directory that is removed afterwards.
type SubprocessEngine struct {
	cfg SubprocessConfig
}

// NewSubprocess creates a SubprocessEngine.
func NewSubprocess(cfg SubprocessConfig) *SubprocessEngine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SubprocessEngine{cfg: cfg}
}

func (e *SubprocessEngine) Predict(ctx context.Context, in Input) (*model.Prediction, error) {
	dir, err := os.MkdirTemp(e.cfg.TempDir, "bia-predict-*")
	if err != nil {
		return nil, unavailable(err, "create work dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	inPath := filepath.Join(dir, "input.json")
	outPath := filepath.Join(dir, "output.json")

	data, err := json.Marshal(in)
	if err != nil {
		return nil, unavailable(err, "marshal input")
	}
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return nil, unavailable(err, "write input")
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	args := append(append([]string{}, e.cfg.Args...), "--input", inPath, "--output", outPath)
	cmd := exec.CommandContext(ctx, e.cfg.BinPath, args...)
	cmd.WaitDelay = 2 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, unavailable(ctx.Err(), "engine timed out after %s", e.cfg.Timeout)
		}
		return nil, unavailable(err, "engine failed: %s", stderr.String())
	}
	zap.L().Debug("predictive: engine finished",
		zap.String("function", in.FunctionName),
		zap.Duration("elapsed", time.Since(start)),
	)

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, unavailable(err, "read output")
	}

	var p model.Prediction
	if err := json.Unmarshal(out, &p); err != nil {
		return nil, unavailable(err, "decode output")
	}
	if err := Validate(&p); err != nil {
		return nil, unavailable(err, "invalid output")
	}
	if p.HorizonDays == 0 {
		p.HorizonDays = in.HorizonDays
	}
	if p.GeneratedAt.IsZero() {
		p.GeneratedAt = time.Now().UTC()
	}
	return &p, nil
}

// Validate checks that a forecast is internally consistent.
func Validate(p *model.Prediction) error {
	if p.ConfidenceOverall < 0 || p.ConfidenceOverall > 1 {
		return eris.Errorf("predictive: confidence_overall %v outside [0,1]", p.ConfidenceOverall)
	}
	if p.RiskAssessment.Score < 0 || p.RiskAssessment.Score > 1 {
		return eris.Errorf("predictive: risk score %v outside [0,1]", p.RiskAssessment.Score)
	}
	for _, h := range []float64{p.RTOCurrentHours, p.RTOForecastHours, p.RPOCurrentHours, p.RPOForecastHours} {
		if h < 0 {
			return eris.New("predictive: negative recovery hours")
		}
	}
	s := p.Scenarios
	sum := 0.0
	for _, sc := range []model.PredictionScenario{s.BestCase, s.LikelyCase, s.WorstCase} {
		if sc.Probability < 0 || sc.RTOHours < 0 || sc.RPOHours < 0 {
			return eris.New("predictive: negative scenario value")
		}
		sum += sc.Probability
	}
	if math.Abs(sum-1) > 0.01 {
		return eris.Errorf("predictive: scenario probabilities sum to %.2f", sum)
	}
	return nil
}

func unavailable(err error, format string, args ...any) error {
	return eris.Wrapf(ErrUnavailable, format+": %s", append(args, err.Error())...)
}
