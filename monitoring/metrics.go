package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Successful guest registrations per wave",
		},
		[]string{"wave"},
	)

	capacityRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capacity_rejections_total",
			Help: "Registrations rejected because the wave was sold out",
		},
		[]string{"wave"},
	)

	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scans_total",
			Help: "Door scans by direction and outcome",
		},
		[]string{"direction", "outcome"},
	)

	duplicateScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duplicate_scans_total",
			Help: "Scan attempts against an already-consumed state; possible ticket sharing",
		},
		[]string{"direction"},
	)

	waveSold = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wave_sold_count",
			Help: "Tickets sold per wave, labeled by wave id so renames keep the series",
		},
		[]string{"wave"},
	)
)

func TrackRegistration(wave string) {
	registrationsTotal.WithLabelValues(wave).Inc()
}

func TrackCapacityRejection(wave string) {
	capacityRejectionsTotal.WithLabelValues(wave).Inc()
}

func TrackScan(direction, outcome string) {
	scansTotal.WithLabelValues(direction, outcome).Inc()
}

func TrackDuplicateScan(direction string) {
	duplicateScansTotal.WithLabelValues(direction).Inc()
}

// SetWaveSold publishes the sold count under the wave's id, never its display
// name, so an admin renaming a wave does not strand the old series.
func SetWaveSold(waveID string, sold int) {
	waveSold.WithLabelValues(waveID).Set(float64(sold))
}

// Serve exposes /metrics on its own port.
func Serve(port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(":"+port, mux)
}
