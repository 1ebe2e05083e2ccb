package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"disk-janitor/internal/batch"
	"disk-janitor/internal/config"
	"disk-janitor/internal/database"
	"disk-janitor/internal/exitcodes"
	"disk-janitor/internal/logging"
	"disk-janitor/internal/metrics"
	"disk-janitor/internal/presets"
	"disk-janitor/internal/scheduler"
	"disk-janitor/internal/wipe"
)

func main() {
	os.Exit(runMain())
}

// runMain returns the exit code so deferred cleanup runs before os.Exit
func runMain() int {
	var paths pathFlag
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	flag.Var(&paths, "path", "Directory to empty, as `path` or label=path (repeatable)")
	presetList := flag.String("preset", "", "Comma separated presets: "+fmt.Sprint(presets.Names()))
	daemon := flag.Bool("daemon", false, "Keep running and clean every interval_minutes")
	dbPath := flag.String("db", "", "Override history database path")
	noHistory := flag.Bool("no-history", false, "Do not record run history")
	metricsPort := flag.Int("metrics-port", -1, "Serve Prometheus metrics on this port (0 disables)")
	verbose := flag.Bool("verbose", false, "Echo log lines to stderr in one-shot mode")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load config: %v\n", err)
		return exitcodes.InvalidConfig
	}

	for _, t := range paths {
		if err := cfg.AddTarget(t.Label, t.Path); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Invalid -path %q: %v\n", t.Path, err)
			return exitcodes.InvalidConfig
		}
	}
	cfg.Presets = append(cfg.Presets, splitList(*presetList)...)
	if *dbPath != "" {
		cfg.History.DatabasePath = *dbPath
	}
	if *noHistory {
		cfg.History.Enabled = false
	}
	if *metricsPort >= 0 {
		cfg.Prometheus.Port = *metricsPort
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v (use -path, -preset or -config)\n", err)
		flag.Usage()
		return exitcodes.InvalidConfig
	}

	// Daemon logs go to the console; one-shot runs keep the console for results
	var console io.Writer = io.Discard
	if *daemon {
		console = os.Stdout
	} else if *verbose {
		console = os.Stderr
	}
	logger := logging.NewWithConsole(cfg, console)

	var db *database.HistoryDB
	if cfg.History.Enabled && cfg.History.DatabasePath != "" {
		logger.Printf("Opening history database: %s", cfg.History.DatabasePath)
		db, err = database.NewHistoryDB(cfg.History.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to open history database: %v\n", err)
			return exitcodes.RuntimeError
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close database: %v", err)
			}
		}()
	}

	var observer batch.Observer
	if !*daemon {
		observer = consoleObserver(os.Stdout)
	}

	sched, err := scheduler.New(scheduler.Options{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Observer: observer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return exitcodes.InvalidConfig
	}

	targets, err := sched.Targets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return exitcodes.InvalidConfig
	}
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "ERROR: no targets available on this system")
		return exitcodes.InvalidConfig
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig := <-sigChan
		logger.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	return run(ctx, sched, cfg, logger, *daemon)
}

func run(ctx context.Context, sched *scheduler.Scheduler, cfg *config.Config, logger *log.Logger, daemon bool) int {
	if daemon {
		if cfg.Prometheus.Port > 0 {
			metrics.SetTriggerChannel(sched.Trigger())
			logger.Printf("Starting Prometheus metrics on %s", cfg.PrometheusAddress())
			metrics.StartServer(cfg.PrometheusAddress(), logger)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				metrics.Shutdown(shutdownCtx, logger)
			}()
		}

		logger.Printf("disk-janitor daemon starting (interval %s)", cfg.Interval())
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("ERROR: Scheduler failed: %v", err)
			return exitcodes.RuntimeError
		}
		logger.Println("disk-janitor daemon stopped")
		return exitcodes.Success
	}

	report, err := sched.RunOnce(ctx)
	printReport(os.Stdout, report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Cleanup interrupted: %v\n", err)
		return exitcodes.RuntimeError
	}
	if report.Blocked > 0 {
		return exitcodes.SafetyViolation
	}
	return exitcodes.Success
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// consoleObserver prints one line per target event
func consoleObserver(w io.Writer) batch.Observer {
	return batch.Funcs{
		OnTargetStart: func(t batch.Target) {
			fmt.Fprintf(w, "Cleaning: %s\n", t.Path)
		},
		OnTargetDone: func(t batch.Target, res wipe.Result, err error) {
			switch batch.StatusOf(err) {
			case batch.StatusCleaned:
				fmt.Fprintf(w, " -> Deleted %s files, %s folders, skipped %s\n",
					humanize.Comma(int64(res.FilesDeleted)),
					humanize.Comma(int64(res.FoldersDeleted)),
					humanize.Comma(int64(res.Skipped)))
			case batch.StatusNotFound:
				fmt.Fprintf(w, "[!] Path not found: %s\n", t.Path)
			default:
				fmt.Fprintf(w, "[!] Not cleaned: %s: %v\n", t.Path, err)
			}
		},
	}
}

func printReport(w io.Writer, r scheduler.Report) {
	s := r.Summary
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Cleanup complete")
	fmt.Fprintf(w, "  Targets:         %d (%d missing, %d failed)\n", s.Targets, s.Missing, s.Failed)
	fmt.Fprintf(w, "  Files deleted:   %s\n", humanize.Comma(int64(s.TotalFilesDeleted)))
	fmt.Fprintf(w, "  Folders deleted: %s\n", humanize.Comma(int64(s.TotalFoldersDeleted)))
	fmt.Fprintf(w, "  Skipped:         %s\n", humanize.Comma(int64(s.TotalSkipped)))
	if !r.Finished.IsZero() {
		fmt.Fprintf(w, "  Duration:        %s\n", r.Finished.Sub(r.Started).Round(time.Millisecond))
	}

	if len(r.FreeSpace) > 0 {
		fmt.Fprintln(w, "Free space:")
		for _, fs := range r.FreeSpace {
			fmt.Fprintf(w, "  %s: %s free of %s (%.1f%%)\n",
				fs.Path,
				humanize.Bytes(fs.Usage.FreeBytes),
				humanize.Bytes(fs.Usage.TotalBytes),
				fs.Usage.FreePercent())
		}
	}
}
