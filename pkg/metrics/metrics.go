package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FiatMemoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "safehdr",
			Name:      "fiat_memo_lookups_total",
			Help:      "Fiat label memo lookups by result",
		},
		[]string{"result"},
	)

	CopyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "safehdr",
			Name:      "copy_requests_total",
			Help:      "Clipboard writes issued by the header, by outcome",
		},
		[]string{"outcome"},
	)

	ExplorerLinkMissing = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "safehdr",
			Name:      "explorer_link_missing_total",
			Help:      "Headers rendered with a chain but no usable explorer link",
		},
	)

	HeaderBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "safehdr",
			Name:      "header_builds_total",
			Help:      "Header display models built, by state",
		},
		[]string{"state"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "safehdr",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of upstream fetches",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"kind"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "safehdr",
			Name:      "fetch_errors_total",
			Help:      "Failed upstream fetches",
		},
		[]string{"kind"},
	)
)
