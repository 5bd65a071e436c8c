package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RenderMetrics tracks the PDF render pipeline.
type RenderMetrics struct {
	renderDuration *prometheus.HistogramVec
	renderBytes    prometheus.Histogram
	rendersTotal   *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
}

var (
	renderMetricsOnce sync.Once
	renderMetrics     *RenderMetrics
)

func Render() *RenderMetrics {
	return RenderWithConfig(Config{})
}

func RenderWithConfig(cfg Config) *RenderMetrics {
	renderMetricsOnce.Do(func() {
		renderMetrics = newRenderMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return renderMetrics
}

func ResetRenderMetricsForTest() {
	renderMetricsOnce = sync.Once{}
	renderMetrics = nil
}

func newRenderMetrics(registerer prometheus.Registerer, cfg Config) *RenderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "smartinvoice"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	renderDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "smartinvoice_pdf_render_duration_seconds",
			Help:        "Time spent rendering an invoice PDF.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | failed
	)

	renderBytes := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "smartinvoice_pdf_render_bytes",
			Help:        "Size of rendered invoice PDFs.",
			Buckets:     prometheus.ExponentialBuckets(1024, 2, 10),
			ConstLabels: constLabels,
		},
	)

	rendersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "smartinvoice_pdf_renders_total",
			Help:        "Total invoice PDF renders by result.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | failed
	)

	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "smartinvoice_pdf_cache_lookups_total",
			Help:        "Render cache lookups by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"outcome"}, // hit | miss
	)

	registerer.MustRegister(
		renderDuration,
		renderBytes,
		rendersTotal,
		cacheLookups,
	)

	return &RenderMetrics{
		renderDuration: renderDuration,
		renderBytes:    renderBytes,
		rendersTotal:   rendersTotal,
		cacheLookups:   cacheLookups,
	}
}

func (m *RenderMetrics) ObserveRender(duration time.Duration, size int, err error) {
	if m == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "failed"
	}

	m.renderDuration.WithLabelValues(result).Observe(duration.Seconds())
	m.rendersTotal.WithLabelValues(result).Inc()
	if err == nil {
		m.renderBytes.Observe(float64(size))
	}
}

func (m *RenderMetrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}

	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}
