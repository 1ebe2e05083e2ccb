package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Wipe subsystem metrics
var (
	// FilesDeletedTotal tracks files removed across all runs
	FilesDeletedTotal prometheus.Counter

	// FoldersDeletedTotal tracks directories removed across all runs
	FoldersDeletedTotal prometheus.Counter

	// EntriesSkippedTotal tracks entries that could not be removed (locked, in use)
	EntriesSkippedTotal prometheus.Counter

	// TargetsTotal tracks processed targets by outcome status
	TargetsTotal *prometheus.CounterVec

	// PathFilesDeletedTotal tracks files removed per target path
	PathFilesDeletedTotal *prometheus.CounterVec

	// RunDuration tracks how long a full batch takes
	RunDuration prometheus.Histogram

	// LastRunTimestamp records Unix timestamp of the last finished run
	LastRunTimestamp prometheus.Gauge
)

// initCleanupMetrics initializes all wipe subsystem metrics
func initCleanupMetrics() {
	FilesDeletedTotal = NewCounter(
		"diskjanitor_files_deleted_total",
		"Total number of files deleted.",
	)

	FoldersDeletedTotal = NewCounter(
		"diskjanitor_folders_deleted_total",
		"Total number of folders deleted.",
	)

	EntriesSkippedTotal = NewCounter(
		"diskjanitor_entries_skipped_total",
		"Total number of entries skipped because they could not be removed.",
	)

	TargetsTotal = NewCounterVec(
		"diskjanitor_targets_total",
		"Total number of targets processed by outcome.",
		[]string{"status"},
	)

	PathFilesDeletedTotal = NewCounterVec(
		"diskjanitor_path_files_deleted_total",
		"Total files deleted per target path.",
		[]string{"path"},
	)

	RunDuration = NewDurationHistogram(
		"diskjanitor_run_duration_seconds",
		"Duration of cleanup runs in seconds.",
	)

	LastRunTimestamp = NewGauge(
		"diskjanitor_last_run_timestamp",
		"Timestamp of the last cleanup run (Unix epoch seconds).",
	)
}

// registerCleanupMetrics registers all wipe metrics with Prometheus
func registerCleanupMetrics() {
	prometheus.MustRegister(FilesDeletedTotal)
	prometheus.MustRegister(FoldersDeletedTotal)
	prometheus.MustRegister(EntriesSkippedTotal)
	prometheus.MustRegister(TargetsTotal)
	prometheus.MustRegister(PathFilesDeletedTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(LastRunTimestamp)
}

// RecordTarget adds one target outcome to the counters
func RecordTarget(path, status string, files, folders, skipped uint64) {
	TargetsTotal.WithLabelValues(status).Inc()
	FilesDeletedTotal.Add(float64(files))
	FoldersDeletedTotal.Add(float64(folders))
	EntriesSkippedTotal.Add(float64(skipped))
	if files > 0 {
		PathFilesDeletedTotal.WithLabelValues(path).Add(float64(files))
	}
}

// RecordRun observes a finished run's duration and timestamp
func RecordRun(started time.Time) {
	RunDuration.Observe(time.Since(started).Seconds())
	LastRunTimestamp.Set(float64(time.Now().Unix()))
}
