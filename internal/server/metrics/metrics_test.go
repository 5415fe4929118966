package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	if m.HTTPRequestsTotal == nil || m.HTTPRequestDuration == nil || m.AuthAttemptsTotal == nil {
		t.Fatal("collectors must be initialized")
	}

	defer func() {
		if recover() == nil {
			t.Error("registering twice in one registry must panic")
		}
	}()
	NewMetrics(registry)
}

func TestObserveAuth(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveAuth(OperationLogin, OutcomeSuccess)
	m.ObserveAuth(OperationLogin, OutcomeSuccess)
	m.ObserveAuth(OperationLogin, OutcomeRejected)

	if got := testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues(OperationLogin, OutcomeSuccess)); got != 2 {
		t.Errorf("login success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues(OperationLogin, OutcomeRejected)); got != 1 {
		t.Errorf("login rejected = %v, want 1", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveAuth(OperationRegister, OutcomeError)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveAuth(OperationRegister, OutcomeDuplicate)
	m.HTTPRequestsTotal.WithLabelValues("POST", "/register", "400").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`authkeeper_auth_attempts_total{operation="register",outcome="duplicate"} 1`,
		`authkeeper_http_requests_total{method="POST",route="/register",status="400"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
