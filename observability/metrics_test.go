package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsIsASingleton(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	assert.Same(t, a, b)
}

func TestRecordQueryIncrementsCounterAndHistogram(t *testing.T) {
	m := NewMetrics()
	m.RecordQuery("main", "ok", 15*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.queriesTotal.WithLabelValues("main", "ok")), float64(1))
}

func TestRecordCacheHitAndMiss(t *testing.T) {
	m := NewMetrics()
	before := testutil.ToFloat64(m.cacheHitsTotal.WithLabelValues("reporting"))
	m.RecordCacheHit("reporting")
	assert.Equal(t, before+1, testutil.ToFloat64(m.cacheHitsTotal.WithLabelValues("reporting")))

	beforeMiss := testutil.ToFloat64(m.cacheMissTotal.WithLabelValues("reporting"))
	m.RecordCacheMiss("reporting")
	assert.Equal(t, beforeMiss+1, testutil.ToFloat64(m.cacheMissTotal.WithLabelValues("reporting")))
}

func TestRecordDenylistBlock(t *testing.T) {
	m := NewMetrics()
	before := testutil.ToFloat64(m.denylistBlocked.WithLabelValues("main", "write"))
	m.RecordDenylistBlock("main", "write")
	assert.Equal(t, before+1, testutil.ToFloat64(m.denylistBlocked.WithLabelValues("main", "write")))
}

func TestRecordPreflightBlock(t *testing.T) {
	m := NewMetrics()
	before := testutil.ToFloat64(m.preflightBlocked.WithLabelValues("main"))
	m.RecordPreflightBlock("main")
	assert.Equal(t, before+1, testutil.ToFloat64(m.preflightBlocked.WithLabelValues("main")))
}

func TestRecordBindErrorAndBackendError(t *testing.T) {
	m := NewMetrics()
	beforeBind := testutil.ToFloat64(m.bindErrors.WithLabelValues("main", "missing_variable"))
	m.RecordBindError("main", "missing_variable")
	assert.Equal(t, beforeBind+1, testutil.ToFloat64(m.bindErrors.WithLabelValues("main", "missing_variable")))

	beforeBackend := testutil.ToFloat64(m.backendErrors.WithLabelValues("main"))
	m.RecordBackendError("main")
	assert.Equal(t, beforeBackend+1, testutil.ToFloat64(m.backendErrors.WithLabelValues("main")))
}
