package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/internal/metrics"
)

func TestRegisterDefault_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.RegisterDefault()
		metrics.RegisterDefault()
	})
}

func TestHandler_ExposesCounters(t *testing.T) {
	metrics.RegisterDefault()
	before := testutil.ToFloat64(metrics.PlannerCommands.WithLabelValues("add_day"))
	metrics.PlannerCommands.WithLabelValues("add_day").Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PlannerCommands.WithLabelValues("add_day")))

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `planner_commands_total{type="add_day"}`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
