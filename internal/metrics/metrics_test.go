package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Message("bundle")
	m.Message("bundle")
	m.Message("responder")
	m.Flush("inactivity", 3)
	m.Lookup("ok")
	m.SheetAppend("timeout")
	m.Completion("reply", "error")
	m.Job("digest", "ok")
	m.SetActiveBundles(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues("bundle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues("responder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BundleFlushTotal.WithLabelValues("inactivity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SheetAppendsTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("reply", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues("digest", "ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.BundlesActive))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Message("bundle")
		m.SetActiveBundles(1)
		m.Flush("manual", 1)
		m.Extraction("empty")
		m.Lookup("error")
		m.SheetAppend("ok")
		m.Completion("digest", "ok")
		m.Job("report", "skipped")
		m.ObserveCall("keepa", time.Now())
	})
}

func TestMetrics_HistogramCollects(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCall("keepa", time.Now())

	assert.Equal(t, 1, testutil.CollectAndCount(m.CallSeconds))
}
