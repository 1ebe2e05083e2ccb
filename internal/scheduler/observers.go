package scheduler

import (
	"time"

	"disk-janitor/internal/batch"
	"disk-janitor/internal/database"
	"disk-janitor/internal/logging"
	"disk-janitor/internal/metrics"
	"disk-janitor/internal/wipe"
)

// logObserver writes one line per target event
type logObserver struct {
	logger *logging.Leveled
}

func (o logObserver) TargetStarted(t batch.Target) {
	o.logger.Info("cleaning target", "label", t.Label, "path", t.Path)
}

func (o logObserver) TargetDone(t batch.Target, res wipe.Result, err error) {
	status := batch.StatusOf(err)
	if err != nil && status != batch.StatusNotFound {
		o.logger.Warn("target not cleaned", "path", t.Path, "status", status, "error", err)
		return
	}
	o.logger.Info("target done",
		"path", t.Path,
		"status", status,
		"files", res.FilesDeleted,
		"folders", res.FoldersDeleted,
		"skipped", res.Skipped,
	)
}

func (o logObserver) Progress(float64) {}

// metricsObserver feeds per-target counters
type metricsObserver struct{}

func (metricsObserver) TargetStarted(batch.Target) {}

func (metricsObserver) TargetDone(t batch.Target, res wipe.Result, err error) {
	metrics.RecordTarget(t.Path, batch.StatusOf(err), res.FilesDeleted, res.FoldersDeleted, res.Skipped)
}

func (metricsObserver) Progress(float64) {}

// blockCounter counts targets refused by the safety guard in the current run
type blockCounter struct {
	count int
}

func (b *blockCounter) reset() { b.count = 0 }

func (b *blockCounter) TargetStarted(batch.Target) {}

func (b *blockCounter) TargetDone(_ batch.Target, _ wipe.Result, err error) {
	if batch.StatusOf(err) == batch.StatusBlocked {
		b.count++
	}
}

func (b *blockCounter) Progress(float64) {}

// historyRecorder persists a run and its targets. Database failures are
// logged and counted, never surfaced to the run.
type historyRecorder struct {
	db     *database.HistoryDB
	logger *logging.Leveled
	runID  int64
}

func (h *historyRecorder) begin(started time.Time) {
	h.runID = 0
	if h.db == nil {
		return
	}
	id, err := h.db.StartRun(started)
	if err != nil {
		h.fail("failed to record run start", err)
		return
	}
	h.runID = id
}

func (h *historyRecorder) finish(finished time.Time, s batch.Summary, runErr error) {
	if h.db == nil || h.runID == 0 {
		return
	}
	status := database.RunCompleted
	if runErr != nil {
		status = database.RunCancelled
	}
	if err := h.db.FinishRun(h.runID, finished, s, status); err != nil {
		h.fail("failed to record run totals", err)
	}
}

func (h *historyRecorder) TargetStarted(batch.Target) {}

func (h *historyRecorder) TargetDone(t batch.Target, res wipe.Result, err error) {
	if h.db == nil || h.runID == 0 {
		return
	}
	rec := database.TargetRecord{
		Label:          t.Label,
		Path:           t.Path,
		Status:         batch.StatusOf(err),
		FilesDeleted:   int64(res.FilesDeleted),
		FoldersDeleted: int64(res.FoldersDeleted),
		Skipped:        int64(res.Skipped),
	}
	if err != nil {
		rec.ErrorMessage = err.Error()
	}
	if dbErr := h.db.RecordTarget(h.runID, rec); dbErr != nil {
		h.fail("failed to record target", dbErr)
	}
}

func (h *historyRecorder) Progress(float64) {}

func (h *historyRecorder) fail(msg string, err error) {
	h.logger.Error(msg, "error", err)
	metrics.ErrorsTotal.Inc()
}
