package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"gamestake/aggregator"
	"gamestake/events"
	"gamestake/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveOutcome(models.EventKindSettled, aggregator.OutcomeApplied)
	m.ObserveOutcome(models.EventKindSettled, aggregator.OutcomeApplied)
	m.ObserveOutcome(models.EventKindStaked, aggregator.OutcomeBuffered)
	m.ObserveAlert(events.AlertCategoryConflict)
	m.ObserveSkippedLog("malformed")
	m.ObserveSourceError(errors.New("timeout"))
	m.ObserveSourceError(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomes.WithLabelValues("settled", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("staked", "buffered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skippedLogs.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourceErrors))
}

func TestMetrics_Gauges(t *testing.T) {
	m := New()

	m.ObserveCursor(120, 130)
	m.ObservePending(7)
	m.ObservePending(3)

	assert.Equal(t, 120.0, testutil.ToFloat64(m.cursor))
	assert.Equal(t, 130.0, testutil.ToFloat64(m.head))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.pending))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveAlert(events.AlertCategoryResourceLimit)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gamestake_consistency_alerts_total{category="resource_limit"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
