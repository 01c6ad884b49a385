package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementMutation("create", "ok")
	m.IncrementMutation("create", "ok")
	m.IncrementMutation("create", "conflict")
	m.IncrementVerification("verified")
	m.ObserveTx("create", 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CardMutations.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CardMutations.WithLabelValues("create", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("verified")))

	count, err := testutil.GatherAndCount(reg, "healthcard_store_tx_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementMutation("delete", "ok")
		m.IncrementVerification("not_verified")
		m.ObserveTx("delete", time.Millisecond)
	})
}
