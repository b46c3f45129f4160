package source

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sells-group/bia-service/internal/model"
)

// FixtureAdapter serves a canned payload from <dir>/<source>.json. The file
// is read on every fetch so fixtures can be edited while serving.
type FixtureAdapter struct {
	name model.SourceName
	dir  string
}

// NewFixture creates a fixture-backed adapter.
func NewFixture(name model.SourceName, dir string) *FixtureAdapter {
	return &FixtureAdapter{name: name, dir: dir}
}

func (a *FixtureAdapter) Name() model.SourceName { return a.name }

func (a *FixtureAdapter) Status() Status {
	circuit := "closed"
	if _, err := os.Stat(a.path()); err != nil {
		circuit = "missing"
	}
	return Status{Name: a.name, Mode: "fixture", Circuit: circuit}
}

func (a *FixtureAdapter) Fetch(ctx context.Context, _ model.SourceRequest) (model.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable(a.name, err)
	}
	data, err := os.ReadFile(a.path())
	if err != nil {
		return nil, Unavailable(a.name, err)
	}
	p, err := Decode(a.name, data)
	if err != nil {
		return nil, Unavailable(a.name, err)
	}
	return p, nil
}

func (a *FixtureAdapter) path() string {
	return filepath.Join(a.dir, string(a.name)+".json")
}

// StaticAdapter returns a fixed payload or error. Used for wiring sources that
// are switched off and in tests.
type StaticAdapter struct {
	name    model.SourceName
	payload model.Payload
	err     error
}

// NewStatic returns an adapter that always succeeds with payload.
func NewStatic(name model.SourceName, payload model.Payload) *StaticAdapter {
	return &StaticAdapter{name: name, payload: payload}
}

// NewDown returns an adapter that always fails with ErrUnavailable.
func NewDown(name model.SourceName, cause error) *StaticAdapter {
	return &StaticAdapter{name: name, err: Unavailable(name, cause)}
}

func (a *StaticAdapter) Name() model.SourceName { return a.name }

func (a *StaticAdapter) Status() Status {
	circuit := "closed"
	if a.err != nil {
		circuit = "down"
	}
	return Status{Name: a.name, Mode: "static", Circuit: circuit}
}

func (a *StaticAdapter) Fetch(ctx context.Context, _ model.SourceRequest) (model.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable(a.name, err)
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.payload, nil
}
