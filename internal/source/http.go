package source

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/resilience"
)

// Endpoint is one upstream gateway.
type Endpoint struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RateLimit caps requests per second; zero disables limiting.
	RateLimit float64
}

// Option configures an HTTPAdapter.
type Option func(*HTTPAdapter)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *HTTPAdapter) {
		a.http = hc
	}
}

// WithBackoff overrides the retry policy.
func WithBackoff(b resilience.Backoff) Option {
	return func(a *HTTPAdapter) {
		a.backoff = b
	}
}

// WithBreaker overrides the circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(a *HTTPAdapter) {
		a.breaker = b
	}
}

// HTTPAdapter fetches a source payload from a JSON gateway:
// GET {base}/functions/{function_name}, or GET {base}/teams/{team} for the
// personnel source.
type HTTPAdapter struct {
	name    model.SourceName
	ep      Endpoint
	http    *http.Client
	backoff resilience.Backoff
	breaker *resilience.Breaker
	limiter *rate.Limiter
}

// NewHTTP creates an adapter for one gateway-backed source.
func NewHTTP(name model.SourceName, ep Endpoint, opts ...Option) *HTTPAdapter {
	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	a := &HTTPAdapter{
		name:    name,
		ep:      ep,
		http:    &http.Client{Timeout: timeout},
		backoff: resilience.DefaultBackoff(),
		breaker: resilience.NewBreaker(resilience.DefaultBreakerConfig()),
	}
	if ep.RateLimit > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(ep.RateLimit), 1)
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *HTTPAdapter) Name() model.SourceName { return a.name }

// Status reports the adapter's circuit state.
func (a *HTTPAdapter) Status() Status {
	return Status{Name: a.name, Mode: "http", Circuit: a.breaker.State().String()}
}

// Fetch implements Adapter. Every failure wraps ErrUnavailable.
func (a *HTTPAdapter) Fetch(ctx context.Context, req model.SourceRequest) (model.Payload, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, Unavailable(a.name, err)
		}
	}

	body, err := resilience.Retry(ctx, a.backoff, string(a.name), func(ctx context.Context) ([]byte, error) {
		return resilience.Guard(ctx, a.breaker, func(ctx context.Context) ([]byte, error) {
			return a.get(ctx, a.path(req))
		})
	})
	if err != nil {
		zap.L().Debug("source: fetch failed", zap.String("source", string(a.name)), zap.Error(err))
		return nil, Unavailable(a.name, err)
	}

	p, err := Decode(a.name, body)
	if err != nil {
		return nil, Unavailable(a.name, err)
	}
	return p, nil
}

func (a *HTTPAdapter) path(req model.SourceRequest) string {
	base := strings.TrimRight(a.ep.BaseURL, "/")
	if a.name == model.SourcePersonnel {
		team := req.Team
		if team == "" {
			team = req.FunctionName
		}
		return base + "/teams/" + url.PathEscape(team)
	}
	return base + "/functions/" + url.PathEscape(req.FunctionName)
}

func (a *HTTPAdapter) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: create request", a.name)
	}
	req.Header.Set("Accept", "application/json")
	if a.ep.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.ep.Token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: send request", a.name)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrapf(err, "%s: read response", a.name)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := eris.Errorf("%s: unexpected status %d: %s", a.name, resp.StatusCode, truncate(string(respBody), 200))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}
	return respBody, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
