package bia

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/rules"
	"github.com/sells-group/bia-service/internal/source"
)

const fixtureDir = "../../testdata/fixtures"

func loadTables(t *testing.T) *rules.Tables {
	t.Helper()
	tables, err := rules.Load()
	require.NoError(t, err)
	return tables
}

// adapters returns fixture adapters for every source except those in down,
// which always fail.
func adapters(down ...model.SourceName) []source.Adapter {
	isDown := make(map[model.SourceName]bool, len(down))
	for _, name := range down {
		isDown[name] = true
	}
	out := make([]source.Adapter, 0, len(model.Sources))
	for _, name := range model.Sources {
		if isDown[name] {
			out = append(out, source.NewDown(name, errors.New("connection refused")))
			continue
		}
		out = append(out, source.NewFixture(name, fixtureDir))
	}
	return out
}

type countingAdapter struct {
	source.Adapter
	calls atomic.Int32
}

func (c *countingAdapter) Fetch(ctx context.Context, req model.SourceRequest) (model.Payload, error) {
	c.calls.Add(1)
	return c.Adapter.Fetch(ctx, req)
}

type panicAdapter struct{ name model.SourceName }

func (p panicAdapter) Name() model.SourceName { return p.name }
func (p panicAdapter) Fetch(context.Context, model.SourceRequest) (model.Payload, error) {
	panic("boom")
}

type blockingAdapter struct {
	name    model.SourceName
	release chan struct{}
}

func (b blockingAdapter) Name() model.SourceName { return b.name }
func (b blockingAdapter) Fetch(ctx context.Context, _ model.SourceRequest) (model.Payload, error) {
	select {
	case <-b.release:
		return nil, source.Unavailable(b.name, errors.New("gave up"))
	case <-ctx.Done():
		return nil, source.Unavailable(b.name, ctx.Err())
	}
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (m *memoryRecorder) Record(_ context.Context, e model.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}
