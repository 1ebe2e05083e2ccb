package batch

import (
	"context"
	"errors"
	"sync/atomic"

	"disk-janitor/internal/wipe"
)

var ErrRunInProgress = errors.New("a cleanup run is already in progress")

// Summary accumulates the results of every target in a run
type Summary struct {
	TotalFilesDeleted   uint64
	TotalFoldersDeleted uint64
	TotalSkipped        uint64

	Targets int // distinct targets attempted
	Missing int // targets whose root did not exist
	Failed  int // targets refused, unreadable or not directories
}

func (s *Summary) add(res wipe.Result, err error) {
	s.TotalFilesDeleted += res.FilesDeleted
	s.TotalFoldersDeleted += res.FoldersDeleted
	s.TotalSkipped += res.Skipped
	s.Targets++

	switch StatusOf(err) {
	case StatusCleaned, StatusCancelled:
	case StatusNotFound:
		s.Missing++
	default:
		s.Failed++
	}
}

// Wiper deletes the contents of one directory tree
type Wiper interface {
	Wipe(ctx context.Context, root string) (wipe.Result, error)
}

// Guard approves a target path before it is wiped
type Guard func(path string) error

// Runner executes batches of targets one at a time
type Runner struct {
	wiper    Wiper
	guard    Guard
	observer Observer
	running  atomic.Bool
}

// NewRunner creates a Runner. observer and guard may be nil.
func NewRunner(wiper Wiper, observer Observer, guard Guard) *Runner {
	if observer == nil {
		observer = Funcs{}
	}
	return &Runner{
		wiper:    wiper,
		guard:    guard,
		observer: observer,
	}
}

// Run wipes every distinct target in order and returns the accumulated
// Summary. Per-target failures are reported to the observer and never stop
// the batch. Progress is reported after every target as the cumulative
// percentage done. Only one Run may execute at a time on a Runner.
func (r *Runner) Run(ctx context.Context, targets []Target) (Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Summary{}, ErrRunInProgress
	}
	defer r.running.Store(false)
	return r.run(ctx, targets)
}

func (r *Runner) run(ctx context.Context, targets []Target) (Summary, error) {
	targets = Dedupe(targets)

	var summary Summary
	n := len(targets)
	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		r.observer.TargetStarted(t)
		res, err := r.wipeTarget(ctx, t)
		r.observer.TargetDone(t, res, err)
		summary.add(res, err)

		r.observer.Progress(float64(i+1) * 100 / float64(n))

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return summary, err
		}
	}
	return summary, nil
}

func (r *Runner) wipeTarget(ctx context.Context, t Target) (wipe.Result, error) {
	if r.guard != nil {
		if err := r.guard(t.Path); err != nil {
			return wipe.Result{}, err
		}
	}
	return r.wiper.Wipe(ctx, t.Path)
}

// Running reports whether a run is currently executing
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Outcome is delivered once a background run finishes
type Outcome struct {
	Summary Summary
	Err     error
}

// Start executes the batch on a background goroutine. The returned channel
// receives exactly one Outcome and is then closed. A second Start while a
// run is in flight fails with ErrRunInProgress.
func (r *Runner) Start(ctx context.Context, targets []Target) (<-chan Outcome, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	done := make(chan Outcome, 1)
	go func() {
		defer close(done)
		summary, err := r.run(ctx, targets)
		// released before delivery so the receiver can start the next run at once
		r.running.Store(false)
		done <- Outcome{Summary: summary, Err: err}
	}()
	return done, nil
}
