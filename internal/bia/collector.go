// Package bia assembles Business Impact Analysis documents from the source
// adapters, the rule tables and the predictive engine.
package bia

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/source"
)

// Outcome is the settled result of one source fetch. Exactly one of Payload
// and Err is set.
type Outcome struct {
	Source   model.SourceName
	Payload  model.Payload
	Err      error
	Duration time.Duration
}

// OK reports whether the source returned a payload.
func (o Outcome) OK() bool { return o.Err == nil && o.Payload != nil }

// Outcomes holds one outcome per source.
type Outcomes map[model.SourceName]Outcome

// Succeeded returns the sources that returned data, in canonical order.
func (o Outcomes) Succeeded() []model.SourceName {
	var out []model.SourceName
	for _, name := range model.Sources {
		if o[name].OK() {
			out = append(out, name)
		}
	}
	return out
}

// Missing returns the sources that failed, in canonical order.
func (o Outcomes) Missing() []model.SourceName {
	out := []model.SourceName{}
	for _, name := range model.Sources {
		if !o[name].OK() {
			out = append(out, name)
		}
	}
	return out
}

func payloadOf[T model.Payload](o Outcomes, name model.SourceName) (T, bool) {
	var zero T
	oc, ok := o[name]
	if !ok || !oc.OK() {
		return zero, false
	}
	p, ok := oc.Payload.(T)
	return p, ok
}

// Collector fans a request out to every source adapter.
type Collector struct {
	adapters map[model.SourceName]source.Adapter
}

// NewCollector registers adapters by name. Sources without an adapter are
// reported as unavailable.
func NewCollector(adapters ...source.Adapter) *Collector {
	c := &Collector{adapters: make(map[model.SourceName]source.Adapter, len(adapters))}
	for _, a := range adapters {
		if a != nil {
			c.adapters[a.Name()] = a
		}
	}
	return c
}

// Adapters returns the registered adapters in canonical source order.
func (c *Collector) Adapters() []source.Adapter {
	var out []source.Adapter
	for _, name := range model.Sources {
		if a, ok := c.adapters[name]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Collect queries all sources concurrently and waits for every one to
// settle. One source failing never cancels the others, and the result always
// has an entry for each source. Timeouts belong to the adapters.
func (c *Collector) Collect(ctx context.Context, req model.SourceRequest) Outcomes {
	log := zap.L().With(zap.String("function", req.FunctionName))
	slots := make([]Outcome, len(model.Sources))

	var g errgroup.Group
	for i, name := range model.Sources {
		adapter := c.adapters[name]
		g.Go(func() error {
			slots[i] = fetch(ctx, name, adapter, req)
			if slots[i].OK() {
				log.Debug("bia: source fetched",
					zap.String("source", string(name)),
					zap.Duration("duration", slots[i].Duration),
				)
			} else {
				log.Warn("bia: source unavailable",
					zap.String("source", string(name)),
					zap.Duration("duration", slots[i].Duration),
					zap.Error(slots[i].Err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(Outcomes, len(slots))
	for _, oc := range slots {
		out[oc.Source] = oc
	}
	return out
}

func fetch(ctx context.Context, name model.SourceName, adapter source.Adapter, req model.SourceRequest) (oc Outcome) {
	oc.Source = name
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			oc.Payload = nil
			oc.Err = source.Unavailable(name, eris.Errorf("panic: %v", r))
		}
		oc.Duration = time.Since(start)
	}()

	if adapter == nil {
		oc.Err = source.Unavailable(name, eris.New("not configured"))
		return oc
	}
	p, err := adapter.Fetch(ctx, req)
	switch {
	case err != nil:
		oc.Err = err
	case p == nil:
		oc.Err = source.Unavailable(name, eris.New("empty payload"))
	default:
		oc.Payload = p
	}
	return oc
}
