package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	systemsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inventory_systems_tracked",
			Help: "Number of systems currently in the inventory",
		},
	)

	systemsStale = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inventory_systems_stale",
			Help: "Hosts that stopped sending load reports",
		},
	)

	loadReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_load_reports_total",
			Help: "Load reports handled, by outcome (added, updated)",
		},
		[]string{"outcome"},
	)

	systemLoad = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inventory_system_load_average",
			Help: "Last reported CPU load average per host",
		},
		[]string{"hostname"},
	)

	reservationsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_reservations_received_total",
			Help: "Inbound reservation messages, by outcome (added, updated)",
		},
		[]string{"outcome"},
	)

	reservationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_reservations_published_total",
			Help: "Reservations relayed to the outbound channel, by result",
		},
		[]string{"result"},
	)

	streamDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inventory_reservation_stream_depth",
			Help: "Reservations buffered and not yet delivered to the relay",
		},
	)

	streamDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_reservation_stream_dropped_total",
			Help: "Reservations dropped because the stream buffer was full",
		},
	)

	messagesInvalid = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_messages_invalid_total",
			Help: "Inbound messages that could not be decoded, by topic",
		},
		[]string{"topic"},
	)
)

// RecordLoadReport counts a handled load report and sets the host gauge.
func RecordLoadReport(hostname, outcome string, load float64) {
	loadReportsTotal.WithLabelValues(outcome).Inc()
	systemLoad.WithLabelValues(hostname).Set(load)
}

// SetSystemsTracked sets the inventory size gauge.
func SetSystemsTracked(count int) {
	systemsTracked.Set(float64(count))
}

// ResetSystemLoad drops every per-host load series.
func ResetSystemLoad() {
	systemLoad.Reset()
	systemsTracked.Set(0)
}

func RecordReservationReceived(outcome string) {
	reservationsReceived.WithLabelValues(outcome).Inc()
}

func RecordReservationPublished(result string) {
	reservationsPublished.WithLabelValues(result).Inc()
}

func SetStreamDepth(depth int) {
	streamDepth.Set(float64(depth))
}

func RecordStreamDropped() {
	streamDropped.Inc()
}

func RecordInvalidMessage(topic string) {
	messagesInvalid.WithLabelValues(topic).Inc()
}

func SetSystemsStale(count int) {
	systemsStale.Set(float64(count))
}
