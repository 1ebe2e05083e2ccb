package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"disk-janitor/internal/disk"
)

// Daemon subsystem metrics
var (
	// ErrorsTotal tracks run-level errors (history writes, cancelled runs)
	ErrorsTotal prometheus.Counter

	// FreeSpacePercent tracks free space percentage of each target's filesystem
	FreeSpacePercent *prometheus.GaugeVec

	// FreeBytes tracks free bytes of each target's filesystem
	FreeBytes *prometheus.GaugeVec
)

// initDaemonMetrics initializes all daemon subsystem metrics
func initDaemonMetrics() {
	ErrorsTotal = NewCounter(
		"diskjanitor_errors_total",
		"Total number of run-level errors.",
	)

	FreeSpacePercent = NewGaugeVec(
		"diskjanitor_free_space_percent",
		"Free space percentage of the filesystem holding a target.",
		[]string{"path"},
	)

	FreeBytes = NewGaugeVec(
		"diskjanitor_free_bytes",
		"Free bytes on the filesystem holding a target.",
		[]string{"path"},
	)
}

// registerDaemonMetrics registers all daemon metrics with Prometheus
func registerDaemonMetrics() {
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(FreeSpacePercent)
	prometheus.MustRegister(FreeBytes)
}

// UpdateDiskUsage records the free space reported for path
func UpdateDiskUsage(path string, usage disk.Usage) {
	FreeSpacePercent.WithLabelValues(path).Set(usage.FreePercent())
	FreeBytes.WithLabelValues(path).Set(float64(usage.FreeBytes))
}
