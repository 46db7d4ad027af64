package monitoring

import "time"

func (m *Metrics) RecordDelivery(kind, address string) {
	if m == nil {
		return
	}
	m.MessagesDelivered.WithLabelValues(kind, address).Inc()
}

func (m *Metrics) RecordAcquire(outcome string) {
	if m == nil {
		return
	}
	m.AcquireRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordMemoryWrite() {
	if m == nil {
		return
	}
	m.MemoryWrites.Inc()
}

func (m *Metrics) RecordCreditStall() {
	if m == nil {
		return
	}
	m.CreditStalls.Inc()
}

func (m *Metrics) RecordDispatch() {
	if m == nil {
		return
	}
	m.Dispatches.Inc()
}

// CoreBusy moves the active-core gauge by delta (+1 on start, -1 on idle).
func (m *Metrics) CoreBusy(delta float64) {
	if m == nil {
		return
	}
	m.CoresActive.Add(delta)
}

func (m *Metrics) RecordFault() {
	if m == nil {
		return
	}
	m.Faults.Inc()
}

func (m *Metrics) RecordBarrier(kind string) {
	if m == nil {
		return
	}
	m.Barriers.WithLabelValues(kind).Inc()
}

// RecordPattern records one finished pattern invocation.
func (m *Metrics) RecordPattern(pattern string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.PatternRuns.WithLabelValues(pattern, outcome).Inc()
	m.PatternDuration.WithLabelValues(pattern).Observe(time.Since(started).Seconds())
}
