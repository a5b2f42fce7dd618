package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 请求结果分类
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeExcluded = "excluded"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "multiscan",
		Name:      "requests_total",
		Help:      "Requests attempted by the fetcher, by outcome.",
	}, []string{"outcome"})

	findingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "multiscan",
		Name:      "findings_total",
		Help:      "Finding records written, by source.",
	}, []string{"source"})

	directoryListings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multiscan",
		Name:      "directory_listings_total",
		Help:      "Responses classified as directory listings.",
	})

	scansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multiscan",
		Name:      "scans_total",
		Help:      "Completed target scans.",
	})

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "multiscan",
		Name:      "scan_duration_seconds",
		Help:      "Wall time of a single target scan.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// ObserveRequest 记录一次请求结果
func ObserveRequest(outcome string) {
	requestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFinding 记录一条扫描记录
func ObserveFinding(source string, listing bool) {
	findingsTotal.WithLabelValues(source).Inc()
	if listing {
		directoryListings.Inc()
	}
}

// ObserveScan 记录一次完整扫描
func ObserveScan(seconds float64) {
	scansTotal.Inc()
	scanDuration.Observe(seconds)
}
