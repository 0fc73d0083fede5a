package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	m := New()

	m.ObserveOperation("login", "success", 20*time.Millisecond)
	m.ObserveOperation("login", "success", 30*time.Millisecond)
	m.ObserveOperation("login", "INVALID_CREDENTIALS", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("login", "INVALID_CREDENTIALS")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationDuration))
}

func TestMailFailedAndRateLimited(t *testing.T) {
	m := New()

	m.MailFailed("activation")
	m.RateLimited("/api/login")
	m.RateLimited("/api/login")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.mailFailures.WithLabelValues("activation")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("/api/login")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveOperation("refresh", "success", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `credkeeper_auth_operations_total{operation="refresh",outcome="success"} 1`)
	assert.Contains(t, string(body), "credkeeper_auth_operation_duration_seconds_bucket")
	assert.Contains(t, string(body), "go_goroutines")
}
