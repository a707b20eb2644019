package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNop(t *testing.T) {
	m := NewNop()
	require.NotPanics(t, func() {
		m.ObserveDraw(time.Millisecond, 3, 4)
		m.RecordTransition("draft", "open")
		m.RecordImport(1, 2)
		m.RecordPublish("publish")
	})
}

func TestPrometheus_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg, "test")

	m.RecordTransition("draft", "open")
	m.RecordTransition("draft", "open")
	m.RecordImport(5, 2)
	m.RecordPublish("publish")
	m.ObserveDraw(2*time.Millisecond, 10, 7)

	require.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("draft", "open")))
	require.Equal(t, 5.0, testutil.ToFloat64(m.importRows.WithLabelValues("success")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.importRows.WithLabelValues("failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.publications.WithLabelValues("publish")))
	require.Equal(t, 7.0, testutil.ToFloat64(m.drawParticipants))

	count, err := testutil.GatherAndCount(reg, "test_draw_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
