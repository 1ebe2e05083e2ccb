package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"disk-janitor/internal/database"
	"disk-janitor/internal/exitcodes"
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	dbPath := flag.String("db", defaultDBPath(), "Path to history database")
	recent := flag.Int("recent", 0, "Show N most recent target results")
	runs := flag.Int("runs", 0, "Show N most recent runs")
	pathPattern := flag.String("path", "", "Filter target results by path pattern (SQL LIKE syntax)")
	stats := flag.Bool("stats", false, "Show per-path statistics")
	days := flag.Int("days", 30, "Number of days for statistics")
	prune := flag.Int("prune", 0, "Delete runs older than N days and vacuum")
	info := flag.Bool("info", false, "Show database information")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: History database %s not available: %v\n", *dbPath, err)
		return exitcodes.RuntimeError
	}

	db, err := database.NewHistoryDB(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to open database %s: %v\n", *dbPath, err)
		return exitcodes.RuntimeError
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Failed to close database: %v\n", err)
		}
	}()

	out := os.Stdout
	switch {
	case *stats:
		err = showStats(out, db, *days, *jsonOutput)
	case *runs > 0:
		err = showRuns(out, db, *runs, *jsonOutput)
	case *recent > 0:
		err = showRecent(out, db, *recent, *jsonOutput)
	case *pathPattern != "":
		err = showByPath(out, db, *pathPattern, *jsonOutput)
	case *prune > 0:
		err = pruneHistory(out, db, *prune)
	case *info:
		err = showInfo(out, db, *jsonOutput)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  disk-janitor-query -runs 5               # Show the last 5 runs")
		fmt.Println("  disk-janitor-query -recent 20            # Show the last 20 target results")
		fmt.Println("  disk-janitor-query -path '%Downloads%'   # Show results for matching paths")
		fmt.Println("  disk-janitor-query -stats -days 7        # Per-path totals for the last week")
		fmt.Println("  disk-janitor-query -prune 90             # Drop history older than 90 days")
		return exitcodes.InvalidConfig
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return exitcodes.RuntimeError
	}
	return exitcodes.Success
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "history.db"
	}
	return filepath.Join(dir, "disk-janitor", "history.db")
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func showStats(w io.Writer, db *database.HistoryDB, days int, jsonOutput bool) error {
	stats, err := db.GetHistoryStats(days)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}
	if jsonOutput {
		return writeJSON(w, stats)
	}

	fmt.Fprintf(w, "Cleanup Statistics (Last %d days)\n", days)
	fmt.Fprintf(w, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Runs:             %s\n", humanize.Comma(int64(stats.Runs)))
	fmt.Fprintf(w, "Files Deleted:    %s\n", humanize.Comma(stats.TotalFilesDeleted))
	fmt.Fprintf(w, "Folders Deleted:  %s\n", humanize.Comma(stats.TotalFoldersDeleted))
	fmt.Fprintf(w, "Skipped:          %s\n\n", humanize.Comma(stats.TotalSkipped))

	if len(stats.ByPath) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Path\tRuns\tFiles\tFolders\tSkipped\tNot Found\tLast Seen")
	fmt.Fprintln(tw, "----\t----\t-----\t-------\t-------\t---------\t---------")
	for _, p := range stats.ByPath {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%d\t%s\n",
			p.Path, p.Runs,
			humanize.Comma(p.FilesDeleted),
			humanize.Comma(p.FoldersDeleted),
			humanize.Comma(p.Skipped),
			p.NotFound,
			lastSeen(p.LastSeen))
	}
	return tw.Flush()
}

func showRuns(w io.Writer, db *database.HistoryDB, limit int, jsonOutput bool) error {
	runs, err := db.GetRecentRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to get recent runs: %w", err)
	}
	if jsonOutput {
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tStarted\tDuration\tStatus\tTargets\tFiles\tFolders\tSkipped\tMissing\tFailed")
	fmt.Fprintln(tw, "--\t-------\t--------\t------\t-------\t-----\t-------\t-------\t-------\t------")
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), duration, r.Status, r.Targets,
			humanize.Comma(r.FilesDeleted), humanize.Comma(r.FoldersDeleted), humanize.Comma(r.Skipped),
			r.Missing, r.Failed)
	}
	return tw.Flush()
}

func showRecent(w io.Writer, db *database.HistoryDB, limit int, jsonOutput bool) error {
	records, err := db.GetRecentTargets(limit)
	if err != nil {
		return fmt.Errorf("failed to get recent results: %w", err)
	}
	if jsonOutput {
		return writeJSON(w, records)
	}
	return printTargets(w, records)
}

func showByPath(w io.Writer, db *database.HistoryDB, pattern string, jsonOutput bool) error {
	records, err := db.GetTargetsByPath(pattern)
	if err != nil {
		return fmt.Errorf("failed to query by path: %w", err)
	}
	if jsonOutput {
		return writeJSON(w, records)
	}
	fmt.Fprintf(w, "Results matching path pattern: %s\n\n", pattern)
	return printTargets(w, records)
}

func pruneHistory(w io.Writer, db *database.HistoryDB, days int) error {
	n, err := db.DeleteOldRuns(days)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	if err := db.Vacuum(); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	fmt.Fprintf(w, "Deleted %s runs older than %d days\n", humanize.Comma(n), days)
	return nil
}

func showInfo(w io.Writer, db *database.HistoryDB, jsonOutput bool) error {
	stats, err := db.GetDatabaseStats()
	if err != nil {
		return fmt.Errorf("failed to get database stats: %w", err)
	}
	if jsonOutput {
		return writeJSON(w, stats)
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := stats[k].(type) {
		case time.Time:
			fmt.Fprintf(w, "%-22s %s (%s)\n", k, v.Format("2006-01-02 15:04:05"), humanize.Time(v))
		case int64:
			if k == "database_size_bytes" {
				fmt.Fprintf(w, "%-22s %s\n", k, humanize.Bytes(uint64(v)))
				continue
			}
			fmt.Fprintf(w, "%-22s %s\n", k, humanize.Comma(v))
		default:
			fmt.Fprintf(w, "%-22s %v\n", k, v)
		}
	}
	return nil
}

func printTargets(w io.Writer, records []database.TargetRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Run\tTimestamp\tStatus\tFiles\tFolders\tSkipped\tPath\tError")
	fmt.Fprintln(tw, "---\t---------\t------\t-----\t-------\t-------\t----\t-----")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Status,
			humanize.Comma(r.FilesDeleted), humanize.Comma(r.FoldersDeleted), humanize.Comma(r.Skipped),
			r.Path, r.ErrorMessage)
	}
	return tw.Flush()
}

func lastSeen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
