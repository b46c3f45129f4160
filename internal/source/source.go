// Package source defines the adapters that fetch BIA inputs from the
// upstream systems of record.
package source

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bia-service/internal/model"
)

// ErrUnavailable marks a source that could not supply a usable payload:
// network failure, non-2xx status, open circuit, malformed body or missing
// fixture. Callers recover locally by falling back to section defaults.
var ErrUnavailable = eris.New("source: unavailable")

// ErrMalformedPayload is returned by Decode for a body that parses but lacks
// the envelope every payload must carry.
var ErrMalformedPayload = eris.New("source: malformed payload")

// Adapter fetches one source's payload for a function.
type Adapter interface {
	Name() model.SourceName
	Fetch(ctx context.Context, req model.SourceRequest) (model.Payload, error)
}

// Status describes how an adapter is wired and whether it is healthy.
type Status struct {
	Name    model.SourceName `json:"name"`
	Mode    string           `json:"mode"`
	Circuit string           `json:"circuit"`
}

// Healthy reports whether the adapter is currently admitting calls.
func (s Status) Healthy() bool {
	return s.Circuit == "closed" || s.Circuit == "half-open"
}

// StatusReporter is implemented by adapters that can report their status.
type StatusReporter interface {
	Status() Status
}

// Statuses collects the status of every adapter that reports one.
func Statuses(adapters []Adapter) []Status {
	out := make([]Status, 0, len(adapters))
	for _, a := range adapters {
		if r, ok := a.(StatusReporter); ok {
			out = append(out, r.Status())
		}
	}
	return out
}

// Unavailable wraps cause as an ErrUnavailable for the named source.
func Unavailable(name model.SourceName, cause error) error {
	if cause == nil {
		return eris.Wrapf(ErrUnavailable, "%s", name)
	}
	return eris.Wrapf(ErrUnavailable, "%s: %s", name, cause.Error())
}

// Decode parses a gateway payload for name and checks the common envelope.
func Decode(name model.SourceName, data []byte) (model.Payload, error) {
	var p model.Payload
	switch name {
	case model.SourceRegistry:
		p = &model.RegistryPayload{}
	case model.SourceEscalation:
		p = &model.EscalationPayload{}
	case model.SourcePersonnel:
		p = &model.PersonnelPayload{}
	case model.SourceFinancial:
		p = &model.FinancialPayload{}
	case model.SourceMonitoring:
		p = &model.MonitoringPayload{}
	case model.SourcePredictive:
		p = &model.Prediction{}
	default:
		return nil, eris.Errorf("source: unknown source %q", name)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, eris.Wrapf(err, "source: decode %s payload", name)
	}
	for _, key := range envelopeFields(name) {
		if v, ok := fields[key]; !ok || string(v) == "null" {
			return nil, eris.Wrapf(ErrMalformedPayload, "%s payload has no %s", name, key)
		}
	}

	if err := json.Unmarshal(data, p); err != nil {
		return nil, eris.Wrapf(err, "source: decode %s payload", name)
	}
	if c := p.Confidence(); c < 0 || c > 1 {
		return nil, eris.Errorf("source: %s confidence %v outside [0,1]", name, c)
	}
	return p, nil
}

// envelopeFields are the keys a payload must carry with a non-null value.
func envelopeFields(name model.SourceName) []string {
	if name == model.SourcePredictive {
		return []string{"confidence_overall", "generated_at"}
	}
	return []string{"confidence_score", "last_updated"}
}
