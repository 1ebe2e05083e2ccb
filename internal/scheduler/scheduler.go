package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"disk-janitor/internal/batch"
	"disk-janitor/internal/config"
	"disk-janitor/internal/database"
	"disk-janitor/internal/disk"
	"disk-janitor/internal/fsops"
	"disk-janitor/internal/limiter"
	"disk-janitor/internal/logging"
	"disk-janitor/internal/metrics"
	"disk-janitor/internal/presets"
	"disk-janitor/internal/safety"
	"disk-janitor/internal/wipe"
)

// FreeSpace is the filesystem usage reported for a target after a run
type FreeSpace struct {
	Path  string
	Usage disk.Usage
}

// Report describes one finished (or cancelled) run
type Report struct {
	Summary   batch.Summary
	Targets   []batch.Target // distinct targets in processing order
	Blocked   int            // targets refused by the safety validator
	FreeSpace []FreeSpace
	Started   time.Time
	Finished  time.Time
}

// Options configures a Scheduler. Only Config is required.
type Options struct {
	Config   *config.Config
	Logger   *log.Logger
	DB       *database.HistoryDB // nil disables history
	Observer batch.Observer      // extra observer, e.g. console output
	Resolver *presets.Resolver
	FS       fsops.FS
}

// Scheduler runs cleanup batches once or on an interval. Runs are
// serialised: scheduled and triggered runs execute on the Run goroutine.
type Scheduler struct {
	cfg      *config.Config
	logger   *logging.Leveled
	db       *database.HistoryDB
	resolver *presets.Resolver
	runner   *batch.Runner
	history  *historyRecorder
	blocked  *blockCounter
	trigger  chan struct{}

	// mu serialises RunOnce; history and blocked are per-run state
	mu sync.Mutex
}

// New builds a Scheduler with its engine, safety guard and observers
func New(opts Options) (*Scheduler, error) {
	if opts.Config == nil {
		return nil, errors.New("nil config")
	}
	if opts.Resolver == nil {
		opts.Resolver = presets.NewResolver()
	}
	logger := logging.NewLeveled(opts.Logger)
	metrics.Init()

	engineOpts := []wipe.Option{wipe.WithLogger(logger.Logger)}
	if opts.FS != nil {
		engineOpts = append(engineOpts, wipe.WithFS(opts.FS))
	}
	if l := limiter.NewCPULimiter(opts.Config.ResourceLimits.MaxCPUPercent); l != nil {
		logger.Info("cpu limit enabled", "max_percent", l.MaxPercent())
		engineOpts = append(engineOpts, wipe.WithThrottler(l))
	}
	engine := wipe.NewEngine(engineOpts...)

	validator := safety.NewValidator(opts.Config.Safety.ExtraProtected, opts.Config.StatePaths()...)

	s := &Scheduler{
		cfg:      opts.Config,
		logger:   logger,
		db:       opts.DB,
		resolver: opts.Resolver,
		history:  &historyRecorder{db: opts.DB, logger: logger},
		blocked:  &blockCounter{},
		trigger:  make(chan struct{}, 1),
	}

	observers := batch.Observers{
		logObserver{logger: logger},
		metricsObserver{},
		s.history,
		s.blocked,
	}
	if opts.Observer != nil {
		observers = append(observers, opts.Observer)
	}

	s.runner = batch.NewRunner(engine, observers, validator.ValidateTarget)
	return s, nil
}

// Trigger returns the channel that requests an immediate run in Run
func (s *Scheduler) Trigger() chan struct{} {
	return s.trigger
}

// Targets resolves configured targets followed by presets. Presets that do
// not exist on this platform are logged and left out.
func (s *Scheduler) Targets() ([]batch.Target, error) {
	targets := make([]batch.Target, 0, len(s.cfg.Targets)+len(s.cfg.Presets))
	for _, t := range s.cfg.Targets {
		targets = append(targets, batch.Target{Label: t.Label, Path: t.Path})
	}

	folders, skipped, err := s.resolver.Resolve(s.cfg.Presets)
	if err != nil {
		return nil, err
	}
	for _, serr := range skipped {
		s.logger.Warn("preset skipped", "reason", serr)
	}
	for _, f := range folders {
		targets = append(targets, batch.Target{Label: f.Label, Path: f.Path})
	}
	return batch.Dedupe(targets), nil
}

// RunOnce executes one batch over every target with logging, metrics and
// history attached. The partial report is returned on cancellation.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	if !s.mu.TryLock() {
		return Report{}, batch.ErrRunInProgress
	}
	defer s.mu.Unlock()

	targets, err := s.Targets()
	if err != nil {
		return Report{}, fmt.Errorf("resolve targets: %w", err)
	}

	report := Report{Targets: targets, Started: time.Now()}
	s.history.begin(report.Started)
	s.blocked.reset()

	s.logger.Info("cleanup run starting", "targets", len(targets))
	summary, runErr := s.runner.Run(ctx, targets)

	report.Summary = summary
	report.Blocked = s.blocked.count
	report.Finished = time.Now()

	s.history.finish(report.Finished, summary, runErr)
	metrics.RecordRun(report.Started)
	if runErr != nil {
		metrics.ErrorsTotal.Inc()
	}

	report.FreeSpace = s.reportFreeSpace(targets)

	s.logger.Info("cleanup run complete",
		"files", summary.TotalFilesDeleted,
		"folders", summary.TotalFoldersDeleted,
		"skipped", summary.TotalSkipped,
		"missing", summary.Missing,
		"failed", summary.Failed,
		"duration", report.Finished.Sub(report.Started).Round(time.Millisecond),
	)
	return report, runErr
}

// Run executes a batch immediately and then on every interval tick or
// trigger until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error("cleanup run failed", "error", err)
	}

	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
		case <-s.trigger:
			s.logger.Info("cleanup run triggered")
		}

		if _, err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("cleanup run failed", "error", err)
		}
	}
}

// reportFreeSpace records the filesystem usage of every existing target
func (s *Scheduler) reportFreeSpace(targets []batch.Target) []FreeSpace {
	var out []FreeSpace
	for _, t := range targets {
		usage, err := disk.GetUsage(t.Path)
		if err != nil {
			// missing targets and unsupported platforms have nothing to report
			continue
		}
		metrics.UpdateDiskUsage(t.Path, usage)
		out = append(out, FreeSpace{Path: t.Path, Usage: usage})
	}
	return out
}
