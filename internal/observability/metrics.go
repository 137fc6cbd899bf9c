package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymgate",
		Name:      "verifications_total",
		Help:      "Total number of face verifications by outcome",
	}, []string{"result"})

	EnrollmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymgate",
		Name:      "enrollments_total",
		Help:      "Total number of enrollment attempts by outcome",
	}, []string{"result"})

	CheckInsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymgate",
		Name:      "checkins_total",
		Help:      "Total number of successful check-ins by timeliness status",
	}, []string{"status"})

	CheckInFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymgate",
		Name:      "checkin_failures_total",
		Help:      "Total number of rejected check-in attempts by reason",
	}, []string{"reason"})

	CheckOutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymgate",
		Name:      "checkouts_total",
		Help:      "Total number of closed attendance records by initiator",
	}, []string{"initiator"})

	SweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gymgate",
		Name:      "sweep_runs_total",
		Help:      "Total number of auto-checkout sweep passes",
	})

	SweepClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gymgate",
		Name:      "sweep_closed_total",
		Help:      "Total number of records force-closed by the sweeper",
	})

	SweepSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gymgate",
		Name:      "sweep_skipped_total",
		Help:      "Total number of open records skipped during sweeps due to missing data",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gymgate",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of auto-checkout sweep passes",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	OpenRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gymgate",
		Name:      "open_records",
		Help:      "Number of attendance records currently open, as of the last sweep",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gymgate",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gymgate",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
