package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusSink_IncrementCounter_RegistersAndIncrements(t *testing.T) {
	s := NewPrometheusSink("accessengine")
	s.IncrementCounter(CategoryGraph, "mutations", nil)
	s.IncrementCounter(CategoryGraph, "mutations", nil)

	count := testutil.CollectAndCount(s.Registry())
	assert.Equal(t, 1, count)
}

func TestPrometheusSink_SetGauge_ReusesVecAcrossCalls(t *testing.T) {
	s := NewPrometheusSink("accessengine")
	s.SetGauge(CategoryReader, "watermark_lag", 3, nil)
	s.SetGauge(CategoryReader, "watermark_lag", 7, nil)

	require.Len(t, s.gauges, 1)
}

func TestPrometheusSink_RecordDuration_ObservesIntoHistogram(t *testing.T) {
	s := NewPrometheusSink("accessengine")
	s.RecordDuration(CategoryShardRouter, "route_duration", 50*time.Millisecond, nil)

	require.Len(t, s.histograms, 1)
}
