package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServer_ServesMetrics(t *testing.T) {
	BuildInfo.WithLabelValues("v0.0.0-test", "abc1234", "go1.24").Set(1)
	FiresTotal.WithLabelValues("trigger", "posted").Inc()

	s := NewServer("127.0.0.1:0", zap.NewNop().Sugar())
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `cadence_build_info{commit="abc1234",go_version="go1.24",version="v0.0.0-test"} 1`)
	assert.Contains(t, body, `cadence_scheduler_fires_total{outcome="posted",source="trigger"}`)
}

func TestFiresTotal_Labels(t *testing.T) {
	before := testutil.ToFloat64(FiresTotal.WithLabelValues("post_now", "failed"))
	FiresTotal.WithLabelValues("post_now", "failed").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(FiresTotal.WithLabelValues("post_now", "failed")))
}
