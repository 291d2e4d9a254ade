package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vault-md/versioned/internal/readingmode"
)

const metricsNamespace = "versioned"

// Segment labels.
const (
	SegmentNone    = "none"
	SegmentDraft   = "draft"
	SegmentLive    = "live"
	SegmentArchive = "archive"
)

// Metrics counts segmented cache lookups.
type Metrics struct {
	Hits   *prometheus.CounterVec
	Misses *prometheus.CounterVec
}

// NewMetrics registers the cache counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Hits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_hits_total",
			Help:      "Cache lookups that found a value, by reading mode segment.",
		}, []string{"segment"}),
		Misses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_misses_total",
			Help:      "Cache lookups that found nothing, by reading mode segment.",
		}, []string{"segment"}),
	}
}

func (m *Metrics) record(segment string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.Hits.WithLabelValues(segment).Inc()
	} else {
		m.Misses.WithLabelValues(segment).Inc()
	}
}

// SegmentLabel maps a raw reading mode to its metrics label.
func SegmentLabel(mode string) string {
	if mode == "" {
		return SegmentNone
	}
	m, err := readingmode.Parse(mode)
	if err != nil {
		return SegmentNone
	}
	if m.IsArchive() {
		return SegmentArchive
	}
	if m.Stage == readingmode.StageDraft {
		return SegmentDraft
	}
	return SegmentLive
}
