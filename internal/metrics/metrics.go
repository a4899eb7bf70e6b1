package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "traffichub"

var (
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "unread",
		Name:      "cache_lookups_total",
		Help:      "Unread aggregate lookups by result (hit, miss).",
	}, []string{"result"})

	Invalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "unread",
		Name:      "invalidations_total",
		Help:      "Aggregate invalidations by scope kind.",
	}, []string{"scope_kind"})

	RowsMarkedRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "readstate",
		Name:      "rows_marked_read_total",
		Help:      "Rows transitioned from unread to read.",
	}, []string{"row_kind"})

	FeedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "changefeed",
		Name:      "events_total",
		Help:      "Change events delivered to subscribers.",
	}, []string{"table", "kind"})

	FeedState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "changefeed",
		Name:      "subscription_state",
		Help:      "0 disconnected, 1 connecting, 2 subscribed.",
	}, []string{"subscription"})

	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "clients",
		Help:      "Connected realtime websocket clients.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
