package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, label string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, vec.WithLabelValues(label).Write(m))
	return m.GetCounter().GetValue()
}

func TestObserveStageRecordsCacheHit(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveStage(3, 10*time.Millisecond, true)
	c.ObserveStage(3, 5*time.Millisecond, false)

	require.Equal(t, float64(1), counterValue(t, c.CacheHitsTotal, "3"))
}

func TestQueriesTotalIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.QueriesTotal.Inc()
	c.QueriesTotal.Inc()

	m := &dto.Metric{}
	require.NoError(t, c.QueriesTotal.Write(m))
	require.Equal(t, float64(2), m.GetCounter().GetValue())
}
