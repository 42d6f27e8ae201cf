// Package metrics exposes Prometheus counters for the transceiver driver and
// the event bridge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a custom Prometheus registry with the Go and process
// collectors registered
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the Prometheus HTTP handler for reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// DriverMetrics are the transceiver and bridge counters
type DriverMetrics struct {
	BytesReceived prometheus.Counter
	FramesTotal   prometheus.Counter
	DecodedTotal  *prometheus.CounterVec // labels: type
	Unhandled     *prometheus.CounterVec // labels: type (hex)
	DecodeErrors  *prometheus.CounterVec // labels: type
	CommandsTotal *prometheus.CounterVec // labels: kind
	WriteErrors   prometheus.Counter
	ReadErrors    prometheus.Counter
	BridgeClients prometheus.Gauge
}

// NewDriverMetrics registers and returns the driver metrics
func NewDriverMetrics(reg prometheus.Registerer) *DriverMetrics {
	m := &DriverMetrics{
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfxcom_bytes_received_total",
			Help: "Total bytes read from the transceiver.",
		}),
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfxcom_frames_total",
			Help: "Complete frames reassembled from the byte stream.",
		}),
		DecodedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfxcom_decoded_total",
			Help: "Frames decoded into events, by packet type.",
		}, []string{"type"}),
		Unhandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfxcom_unhandled_total",
			Help: "Frames with a packet type that has no decoder.",
		}, []string{"type"}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfxcom_decode_errors_total",
			Help: "Frames that failed to decode, by packet type.",
		}, []string{"type"}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rfxcom_commands_total",
			Help: "Commands queued for transmission, by kind.",
		}, []string{"kind"}),
		WriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfxcom_write_errors_total",
			Help: "Failed writes to the transceiver.",
		}),
		ReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfxcom_read_errors_total",
			Help: "Errors reported by the transceiver byte stream.",
		}),
		BridgeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rfxcom_bridge_clients",
			Help: "Websocket clients currently subscribed to events.",
		}),
	}
	reg.MustRegister(
		m.BytesReceived,
		m.FramesTotal,
		m.DecodedTotal,
		m.Unhandled,
		m.DecodeErrors,
		m.CommandsTotal,
		m.WriteErrors,
		m.ReadErrors,
		m.BridgeClients,
	)
	return m
}
