package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/resilience"
)

func fastBackoff() resilience.Backoff {
	return resilience.Backoff{Attempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 1}
}

func TestHTTPAdapter_FetchRegistry(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"confidence_score":0.9,"last_updated":"2026-09-30T08:00:00Z","service_tier":"Tier 1","hosting_platform":"EKS"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	a := NewHTTP(model.SourceRegistry, Endpoint{BaseURL: srv.URL + "/", Token: "secret"})
	p, err := a.Fetch(context.Background(), model.SourceRequest{FunctionName: "Payment Processing"})
	require.NoError(t, err)

	reg, ok := p.(*model.RegistryPayload)
	require.True(t, ok)
	assert.Equal(t, "Tier 1", reg.ServiceTier)
	assert.InDelta(t, 0.9, reg.Confidence(), 0.0001)
	assert.Equal(t, "/functions/Payment%20Processing", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, model.SourceRegistry, a.Name())
}

func TestHTTPAdapter_PersonnelUsesTeamPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"confidence_score":0.6,"last_updated":"2026-09-15T00:00:00Z","team_name":"payments","team_size":14}`)) //nolint:errcheck
	}))
	defer srv.Close()

	a := NewHTTP(model.SourcePersonnel, Endpoint{BaseURL: srv.URL})
	p, err := a.Fetch(context.Background(), model.SourceRequest{FunctionName: "Payments", Team: "payments"})
	require.NoError(t, err)
	assert.Equal(t, "/teams/payments", gotPath)

	pp := p.(*model.PersonnelPayload)
	require.NotNil(t, pp.TeamSize)
	assert.Equal(t, 14, *pp.TeamSize)
}

func TestHTTPAdapter_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"confidence_score":0.75,"last_updated":"2026-09-01T00:00:00Z","cost_center":"CC-1"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	a := NewHTTP(model.SourceFinancial, Endpoint{BaseURL: srv.URL}, WithBackoff(fastBackoff()))
	p, err := a.Fetch(context.Background(), model.SourceRequest{FunctionName: "Payments"})
	require.NoError(t, err)
	assert.Equal(t, "CC-1", p.(*model.FinancialPayload).CostCenter)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPAdapter_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "no such function", http.StatusNotFound)
	}))
	defer srv.Close()

	a := NewHTTP(model.SourceMonitoring, Endpoint{BaseURL: srv.URL}, WithBackoff(fastBackoff()))
	_, err := a.Fetch(context.Background(), model.SourceRequest{FunctionName: "Payments"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPAdapter_MalformedConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"confidence_score":1.4,"last_updated":"2026-09-01T00:00:00Z"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	a := NewHTTP(model.SourceEscalation, Endpoint{BaseURL: srv.URL})
	_, err := a.Fetch(context.Background(), model.SourceRequest{FunctionName: "Payments"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "outside [0,1]")
}

func singleTry() resilience.Backoff {
	return resilience.Backoff{Attempts: 1, Initial: time.Millisecond, Max: time.Millisecond, Multiplier: 1}
}

func TestHTTPAdapter_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker(resilience.BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	a := NewHTTP(model.SourceRegistry, Endpoint{BaseURL: srv.URL}, WithBackoff(singleTry()), WithBreaker(breaker))

	for range 2 {
		_, err := a.Fetch(context.Background(), model.SourceRequest{FunctionName: "Payments"})
		require.Error(t, err)
	}
	assert.Equal(t, "open", a.Status().Circuit)

	_, err := a.Fetch(context.Background(), model.SourceRequest{FunctionName: "Payments"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPAdapter_UnknownFunctionsKeepCircuitClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/functions/PaymentsCore" {
			http.Error(w, "no such function", http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"confidence_score":0.9,"last_updated":"2026-09-30T08:00:00Z","service_tier":"Tier 1"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	breaker := resilience.NewBreaker(resilience.BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	a := NewHTTP(model.SourceRegistry, Endpoint{BaseURL: srv.URL}, WithBackoff(singleTry()), WithBreaker(breaker))

	for range 5 {
		_, err := a.Fetch(context.Background(), model.SourceRequest{FunctionName: "NoSuchFunction"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	}
	assert.Equal(t, "closed", a.Status().Circuit)

	p, err := a.Fetch(context.Background(), model.SourceRequest{FunctionName: "PaymentsCore"})
	require.NoError(t, err)
	assert.Equal(t, "Tier 1", p.(*model.RegistryPayload).ServiceTier)
}

func TestHTTPAdapter_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`)) //nolint:errcheck
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewHTTP(model.SourceRegistry, Endpoint{BaseURL: srv.URL, RateLimit: 1})
	_, err := a.Fetch(ctx, model.SourceRequest{FunctionName: "Payments"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}
