// Package metrics exposes Prometheus counters for conversions and attribute
// recovery.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConversionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geodata_conversions_total",
		Help: "Conversions by output format and result",
	}, []string{"format", "result"})
	ConversionDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geodata_conversion_duration_ms",
		Help:    "Conversion duration in milliseconds",
		Buckets: []float64{5, 10, 50, 100, 250, 500, 1000, 5000, 30000},
	}, []string{"format"})
	FeaturesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodata_features_total",
		Help: "Features written by successful conversions",
	})
	ExtractFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geodata_extract_fallbacks_total",
		Help: "Google Earth extractions that fell back from the named primary strategy",
	}, []string{"primary"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodata_cache_hits_total",
		Help: "Total redis cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodata_cache_misses_total",
		Help: "Total redis cache misses",
	})
)

func init() {
	prometheus.MustRegister(ConversionsTotal)
	prometheus.MustRegister(ConversionDurationMs)
	prometheus.MustRegister(FeaturesTotal)
	prometheus.MustRegister(ExtractFallbacksTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
}

// Result labels for ConversionsTotal.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultCached  = "cached"
)

// ObserveConversion records one finished conversion.
func ObserveConversion(format, result string, features int, durationMs float64) {
	ConversionsTotal.WithLabelValues(format, result).Inc()
	if result == ResultSuccess {
		ConversionDurationMs.WithLabelValues(format).Observe(durationMs)
		FeaturesTotal.Add(float64(features))
	}
}

// ObserveFallback matches the extraction dispatcher's fallback hook.
func ObserveFallback(primary string, _ error) {
	ExtractFallbacksTotal.WithLabelValues(primary).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler { return promhttp.Handler() }
