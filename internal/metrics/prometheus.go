package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus 基于 Prometheus 的采集器，首次使用时注册指标
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	drawDuration     prometheus.Histogram
	drawAllocations  prometheus.Histogram
	drawParticipants prometheus.Gauge
	transitions      *prometheus.CounterVec
	importRows       *prometheus.CounterVec
	publications     *prometheus.CounterVec
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus 创建 Prometheus 采集器
// reg 为空时使用 prometheus.DefaultRegisterer，namespace 为空时使用 "cabin"
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "cabin"
	}
	return &Prometheus{reg: reg, namespace: namespace}
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.drawDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "draw",
			Name:      "duration_seconds",
			Help:      "Duration of allocator runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		})
		p.drawAllocations = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "draw",
			Name:      "allocations",
			Help:      "Number of allocations produced per run.",
			Buckets:   prometheus.LinearBuckets(0, 10, 12),
		})
		p.drawParticipants = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "draw",
			Name:      "participants_last",
			Help:      "Participants in the most recent run.",
		})
		p.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "drawing",
			Name:      "transitions_total",
			Help:      "Lifecycle transitions by from/to status.",
		}, []string{"from", "to"})
		p.importRows = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "wish_import",
			Name:      "rows_total",
			Help:      "Imported wish rows by result (success, failed).",
		}, []string{"result"})
		p.publications = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "execution",
			Name:      "publications_total",
			Help:      "Execution publish/unpublish actions.",
		}, []string{"action"})

		p.reg.MustRegister(p.drawDuration, p.drawAllocations, p.drawParticipants,
			p.transitions, p.importRows, p.publications)
	})
}

func (p *Prometheus) ObserveDraw(duration time.Duration, allocations, participants int) {
	p.ensureRegistered()
	p.drawDuration.Observe(duration.Seconds())
	p.drawAllocations.Observe(float64(allocations))
	p.drawParticipants.Set(float64(participants))
}

func (p *Prometheus) RecordTransition(from, to string) {
	p.ensureRegistered()
	p.transitions.WithLabelValues(from, to).Inc()
}

func (p *Prometheus) RecordImport(success, failed int) {
	p.ensureRegistered()
	p.importRows.WithLabelValues("success").Add(float64(success))
	p.importRows.WithLabelValues("failed").Add(float64(failed))
}

func (p *Prometheus) RecordPublish(action string) {
	p.ensureRegistered()
	p.publications.WithLabelValues(action).Inc()
}
