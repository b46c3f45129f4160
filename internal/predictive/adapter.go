package predictive

import (
	"context"

	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/source"
)

// Adapter exposes an Engine as the predictive source.
type Adapter struct {
	engine    Engine
	horizon   int
	scenarios []string
}

// NewAdapter wraps engine. horizonDays and scenarios are passed to every run.
func NewAdapter(engine Engine, horizonDays int, scenarios []string) *Adapter {
	if len(scenarios) == 0 {
		scenarios = []string{"best_case", "likely_case", "worst_case"}
	}
	return &Adapter{engine: engine, horizon: horizonDays, scenarios: scenarios}
}

func (a *Adapter) Name() model.SourceName { return model.SourcePredictive }

func (a *Adapter) Status() source.Status {
	st := source.Status{Name: model.SourcePredictive, Mode: "subprocess", Circuit: "closed"}
	if _, ok := a.engine.(Unavailable); ok {
		st.Mode = "unavailable"
		st.Circuit = "down"
	}
	return st
}

func (a *Adapter) Fetch(ctx context.Context, req model.SourceRequest) (model.Payload, error) {
	p, err := a.engine.Predict(ctx, Input{
		FunctionName: req.FunctionName,
		FunctionType: string(req.FunctionType),
		Team:         req.Team,
		HorizonDays:  a.horizon,
		Scenarios:    a.scenarios,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
