package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector counts what the track readers did. A nil *Collector is valid
// and records nothing.
type Collector struct {
	RowsRead       *prometheus.CounterVec
	RecordsSkipped *prometheus.CounterVec
	ReadFailures   *prometheus.CounterVec
}

// NewCollector registers the reader metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	rows, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "x2sys_rows_read_total",
		Help: "Rows decoded into tracks, labeled by reader format.",
	}, []string{"format"}), "x2sys_rows_read_total")
	if err != nil {
		return nil, err
	}

	skipped, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "x2sys_records_skipped_total",
		Help: "Records dropped by a reader, labeled by format and reason.",
	}, []string{"format", "reason"}), "x2sys_records_skipped_total")
	if err != nil {
		return nil, err
	}

	failures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "x2sys_read_failures_total",
		Help: "Track reads that ended early or failed, labeled by format.",
	}, []string{"format"}), "x2sys_read_failures_total")
	if err != nil {
		return nil, err
	}

	return &Collector{RowsRead: rows, RecordsSkipped: skipped, ReadFailures: failures}, nil
}

func (c *Collector) AddRows(format string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.RowsRead.WithLabelValues(format).Add(float64(n))
}

func (c *Collector) Skip(format, reason string) {
	if c == nil {
		return
	}
	c.RecordsSkipped.WithLabelValues(format, reason).Inc()
}

func (c *Collector) Fail(format string) {
	if c == nil {
		return
	}
	c.ReadFailures.WithLabelValues(format).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
