package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestHealthz_KafkaReadiness(t *testing.T) {
	h := NewHealthChecker(nil, zap.NewNop())
	handler := h.Handler()

	code, body := get(t, handler, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)

	h.SetKafkaReady(false)
	code, body = get(t, handler, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "NOT_READY", body)

	h.SetKafkaReady(true)
	code, _ = get(t, handler, "/healthz")
	assert.Equal(t, http.StatusOK, code)

	require.NoError(t, h.Shutdown(context.Background()))
	code, _ = get(t, handler, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestMetrics_Endpoint(t *testing.T) {
	m := NewMetrics("backtest_execution")
	m.ObserveExecution(OutcomeExecuted, -998.95)
	m.ObserveExecution(OutcomeNoop, 0)
	m.IncRejected("validation")
	m.IncDuplicate()
	m.IncPublishError("execution.results")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues(OutcomeExecuted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues(OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues(OutcomeDuplicate)))

	handler := NewHealthChecker(m, zap.NewNop()).Handler()
	code, body := get(t, handler, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `backtest_execution_requests_total{outcome="executed"} 1`)
	assert.Contains(t, body, `backtest_execution_rejections_total{stage="validation"} 1`)
	assert.Contains(t, body, "backtest_execution_execution_cost_abs_count 2")
}

func TestMetrics_NotServedWithoutRegistry(t *testing.T) {
	handler := NewHealthChecker(nil, zap.NewNop()).Handler()
	code, _ := get(t, handler, "/metrics")
	assert.Equal(t, http.StatusNotFound, code)
}
