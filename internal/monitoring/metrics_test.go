package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordDelivery("data", "unicast")
		m.RecordCreditStall()
		m.CoreBusy(1)
		m.RecordPattern("simd", time.Now(), nil)
	})
}

func TestRecordPattern(t *testing.T) {
	t.Parallel()

	m := NewMetrics(prometheus.NewRegistry())
	m.RecordPattern("farm", time.Now(), nil)
	m.RecordPattern("farm", time.Now(), errors.New("boom"))
	m.RecordDispatch()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PatternRuns.WithLabelValues("farm", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PatternRuns.WithLabelValues("farm", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches))
}
