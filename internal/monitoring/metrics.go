package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Ingestion metrics
var (
	DatagramsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotbridge_datagrams_received_total",
		Help: "Total number of datagrams successfully decoded",
	})

	DatagramsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotbridge_datagrams_rejected_total",
		Help: "Total number of datagrams dropped (missing delimiter, bad JSON, missing fields)",
	})

	RecordsFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotbridge_records_filtered_total",
		Help: "Total number of records rejected by the user config predicate",
	})

	EventsRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotbridge_events_rendered_total",
		Help: "Total number of records rendered as CoT events",
	})

	RenderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotbridge_render_failures_total",
		Help: "Total number of records dropped because rendering failed",
	})
)

// Hub metrics
var (
	ClientsConnected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotbridge_clients_connected_total",
		Help: "Total number of client connections accepted",
	})

	ClientsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cotbridge_clients_active",
		Help: "Current number of connected clients",
	})

	ClientsDisconnected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cotbridge_clients_disconnected_total",
		Help: "Total disconnections by reason",
	}, []string{"reason"})

	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotbridge_broadcasts_total",
		Help: "Total number of messages accepted onto the broadcast bus",
	})

	BusFullDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotbridge_bus_full_drops_total",
		Help: "Total number of broadcasts dropped because the message bus was full",
	})

	ClientQueueDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotbridge_client_queue_drops_total",
		Help: "Total number of messages dropped because a client's outbound queue was full",
	})

	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotbridge_frames_sent_total",
		Help: "Total number of frames written to clients",
	})

	FramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotbridge_frames_received_total",
		Help: "Total number of frames read from clients",
	})
)

// ServeMetrics exposes the Prometheus registry on addr until the server
// fails. Intended to run in its own goroutine.
func ServeMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("Metrics endpoint started")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("Metrics endpoint failed")
	}
}
