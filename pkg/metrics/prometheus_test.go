package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	t.Parallel()
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordJobRun("statistics", "success", 0.2)
	r.RecordJobRun("statistics", "success", 0.3)
	r.RecordJobRun("statistics", "error", 0.1)
	r.RecordJobSkipped("statistics")
	r.RecordSnapshotVersion(42)
	r.RecordAlertTriggered("USDJPY")
	r.RecordLastPrice("USDJPY", 150.25)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.jobRuns.WithLabelValues("statistics", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobRuns.WithLabelValues("statistics", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobSkipped.WithLabelValues("statistics")))
	assert.Equal(t, 42.0, testutil.ToFloat64(r.snapshotVersion))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alertsTriggered.WithLabelValues("USDJPY")))
	assert.Equal(t, 150.25, testutil.ToFloat64(r.lastPrice.WithLabelValues("USDJPY")))
}
