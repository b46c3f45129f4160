package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bia-service/internal/audit"
	"github.com/sells-group/bia-service/internal/bia"
	"github.com/sells-group/bia-service/internal/config"
	"github.com/sells-group/bia-service/internal/fusion"
	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/monitoring"
	"github.com/sells-group/bia-service/internal/predictive"
	"github.com/sells-group/bia-service/internal/resilience"
	"github.com/sells-group/bia-service/internal/rules"
	"github.com/sells-group/bia-service/internal/source"
	"github.com/sells-group/bia-service/internal/store"
	"github.com/sells-group/bia-service/internal/workflow"
)

// biaEnv holds the wired collaborators shared by the serve, generate and
// review commands.
type biaEnv struct {
	Store     store.Store
	Generator *bia.Generator
	Workflow  *workflow.Service
	Metrics   *monitoring.Collector
	Audit     *audit.Recorder
}

// Close releases resources held by the environment.
func (e *biaEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode, opens and migrates the store and wires the
// source adapters, generator and workflow. Callers should defer env.Close().
func initEnv(ctx context.Context, c *config.Config, mode string) (*biaEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	tables, err := rules.Load()
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load rule tables")
	}

	adapters := buildAdapters(c)
	rec := audit.NewRecorder(st, 0)
	go drainWarnings(ctx, rec)

	collector := bia.NewCollector(adapters...)
	gen := bia.NewGenerator(collector, tables, st, rec, bia.WithHorizon(c.Predictive.HorizonDays))
	wf := workflow.NewService(st, initFusion(c), rec)

	zap.L().Info("bia environment ready",
		zap.String("store", c.Store.Driver),
		zap.String("sources", c.Sources.Mode),
		zap.Bool("predictive_engine", c.Predictive.BinPath != ""),
		zap.Bool("fusion_remote", c.Fusion.BaseURL != ""),
	)

	return &biaEnv{
		Store:     st,
		Generator: gen,
		Workflow:  wf,
		Metrics:   monitoring.NewCollector(st, collector.Adapters()),
		Audit:     rec,
	}, nil
}

func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "bia.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// buildAdapters returns one adapter per source in canonical order.
func buildAdapters(c *config.Config) []source.Adapter {
	backoff := resilience.Backoff{
		Attempts:   c.Resilience.MaxAttempts,
		Initial:    time.Duration(c.Resilience.InitialBackoffMs) * time.Millisecond,
		Max:        time.Duration(c.Resilience.MaxBackoffMs) * time.Millisecond,
		Multiplier: 2,
		Jitter:     0.2,
	}
	breakerCfg := resilience.BreakerConfig{
		FailureThreshold: c.Resilience.FailureThreshold,
		ResetTimeout:     time.Duration(c.Resilience.ResetTimeoutSecs) * time.Second,
	}

	endpoints := map[model.SourceName]config.EndpointConfig{
		model.SourceRegistry:   c.Sources.Registry,
		model.SourceEscalation: c.Sources.Escalation,
		model.SourcePersonnel:  c.Sources.Personnel,
		model.SourceFinancial:  c.Sources.Financial,
		model.SourceMonitoring: c.Sources.Monitoring,
	}

	out := make([]source.Adapter, 0, len(model.Sources))
	for _, name := range model.Sources {
		if name == model.SourcePredictive {
			out = append(out, predictiveAdapter(c))
			continue
		}
		if c.Sources.Mode != "http" {
			out = append(out, source.NewFixture(name, c.Sources.FixtureDir))
			continue
		}
		ep := endpoints[name]
		out = append(out, source.NewHTTP(name, source.Endpoint{
			BaseURL:   ep.BaseURL,
			Token:     ep.Token,
			Timeout:   time.Duration(ep.TimeoutSecs) * time.Second,
			RateLimit: ep.RateLimitRPS,
		},
			source.WithBackoff(backoff),
			source.WithBreaker(resilience.NewBreaker(breakerCfg)),
		))
	}
	return out
}

// predictiveAdapter runs the configured engine binary. Without one, fixture
// mode serves the canned prediction and http mode reports the engine as
// unavailable so every document carries the fallback forecast.
func predictiveAdapter(c *config.Config) source.Adapter {
	pc := c.Predictive
	if pc.BinPath == "" {
		if c.Sources.Mode != "http" {
			return source.NewFixture(model.SourcePredictive, c.Sources.FixtureDir)
		}
		return predictive.NewAdapter(predictive.Unavailable{Reason: "no engine configured"}, pc.HorizonDays, pc.Scenarios)
	}
	engine := predictive.NewSubprocess(predictive.SubprocessConfig{
		BinPath: pc.BinPath,
		Args:    pc.Args,
		Timeout: time.Duration(pc.TimeoutSecs) * time.Second,
		TempDir: pc.TempDir,
	})
	return predictive.NewAdapter(engine, pc.HorizonDays, pc.Scenarios)
}

func initFusion(c *config.Config) fusion.Client {
	if c.Fusion.BaseURL == "" {
		zap.L().Debug("fusion base_url not set, using in-memory risk platform")
		return fusion.NewMemory()
	}
	return fusion.NewHTTP(c.Fusion.BaseURL, c.Fusion.Token, time.Duration(c.Fusion.TimeoutSecs)*time.Second,
		fusion.WithBackoff(resilience.Backoff{
			Attempts: c.Resilience.MaxAttempts,
			Initial:  time.Duration(c.Resilience.InitialBackoffMs) * time.Millisecond,
			Max:      time.Duration(c.Resilience.MaxBackoffMs) * time.Millisecond,
		}),
	)
}

// drainWarnings logs audit write failures until ctx ends.
func drainWarnings(ctx context.Context, rec *audit.Recorder) {
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-rec.Warnings():
			zap.L().Error("audit entry lost",
				zap.String("document_id", w.Entry.DocumentID),
				zap.String("action", string(w.Entry.Action)),
				zap.Error(w.Err),
			)
		}
	}
}
