package batch

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"disk-janitor/internal/wipe"
)

// recorder captures every observer call
type recorder struct {
	started  []Target
	done     []Target
	results  []wipe.Result
	errs     []error
	progress []float64
}

func (r *recorder) TargetStarted(t Target) { r.started = append(r.started, t) }

func (r *recorder) TargetDone(t Target, res wipe.Result, err error) {
	r.done = append(r.done, t)
	r.results = append(r.results, res)
	r.errs = append(r.errs, err)
}

func (r *recorder) Progress(percent float64) { r.progress = append(r.progress, percent) }

// stubWiper returns canned results keyed by path and records call order
type stubWiper struct {
	results map[string]wipe.Result
	calls   []string
	block   chan struct{}
}

func (s *stubWiper) Wipe(ctx context.Context, root string) (wipe.Result, error) {
	s.calls = append(s.calls, root)
	if s.block != nil {
		<-s.block
	}
	res, ok := s.results[root]
	if !ok {
		return wipe.Result{}, wipe.ErrRootNotFound
	}
	return res, nil
}

func realEngine() *wipe.Engine {
	return wipe.NewEngine(wipe.WithLogger(log.New(io.Discard, "", 0)))
}

// TestRunMissingAndValidTarget: one missing target and one with 3 files
func TestRunMissingAndValidTarget(t *testing.T) {
	base := t.TempDir()
	valid := filepath.Join(base, "valid")
	if err := os.MkdirAll(valid, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"1.tmp", "2.tmp", "3.tmp"} {
		if err := os.WriteFile(filepath.Join(valid, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	rec := &recorder{}
	runner := NewRunner(realEngine(), rec, nil)

	summary, err := runner.Run(context.Background(), []Target{
		{Label: "Gone", Path: filepath.Join(base, "missing")},
		{Label: "Valid", Path: valid},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.TotalFilesDeleted != 3 {
		t.Errorf("Expected 3 files deleted, got %d", summary.TotalFilesDeleted)
	}
	if summary.TotalFoldersDeleted != 0 || summary.TotalSkipped != 0 {
		t.Errorf("Expected no folders or skips, got %+v", summary)
	}
	if summary.Missing != 1 || summary.Targets != 2 {
		t.Errorf("Expected Targets=2 Missing=1, got %+v", summary)
	}

	if rec.results[0] != (wipe.Result{}) {
		t.Errorf("Missing target must contribute zeros, got %+v", rec.results[0])
	}
	if !errors.Is(rec.errs[0], wipe.ErrRootNotFound) {
		t.Errorf("Expected ErrRootNotFound for missing target, got %v", rec.errs[0])
	}
	if len(rec.progress) != 2 || rec.progress[0] != 50 || rec.progress[1] != 100 {
		t.Errorf("Expected progress [50 100], got %v", rec.progress)
	}
}

func TestRunDeduplicatesTargets(t *testing.T) {
	dir := t.TempDir()

	rec := &recorder{}
	stub := &stubWiper{results: map[string]wipe.Result{dir: {FilesDeleted: 1}}}
	runner := NewRunner(stub, rec, nil)

	summary, err := runner.Run(context.Background(), []Target{
		{Label: "A", Path: dir},
		{Label: "A again", Path: dir},
		{Label: "A slash", Path: dir + string(os.PathSeparator)},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(rec.started) != 1 {
		t.Fatalf("Expected TargetStarted once, got %d", len(rec.started))
	}
	if rec.started[0].Label != "A" {
		t.Errorf("Expected first occurrence to win, got %q", rec.started[0].Label)
	}
	if len(stub.calls) != 1 || summary.TotalFilesDeleted != 1 {
		t.Errorf("Expected a single wipe, got calls=%v summary=%+v", stub.calls, summary)
	}
	if len(rec.progress) != 1 || rec.progress[0] != 100 {
		t.Errorf("Expected progress [100], got %v", rec.progress)
	}
}

func TestDedupeKey(t *testing.T) {
	tests := []struct {
		name string
		goos string
		a, b string
		same bool
	}{
		{"windows case differs", "windows", `C:\Temp`, `c:\temp`, true},
		{"windows mixed case user dir", "windows", `C:\Users\me\Downloads`, `c:\users\ME\downloads`, true},
		{"linux case differs", "linux", "/tmp/Cache", "/tmp/cache", false},
		{"linux trailing slash", "linux", "/tmp/cache/", "/tmp/cache", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dedupeKey(tt.goos, tt.a) == dedupeKey(tt.goos, tt.b)
			if got != tt.same {
				t.Errorf("dedupeKey(%q) vs dedupeKey(%q) on %s: same=%v, want %v", tt.a, tt.b, tt.goos, got, tt.same)
			}
		})
	}
}

func TestRunEmptyTargetList(t *testing.T) {
	rec := &recorder{}
	runner := NewRunner(&stubWiper{}, rec, nil)

	summary, err := runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Expected no error for empty run, got %v", err)
	}
	if summary != (Summary{}) {
		t.Errorf("Expected empty summary, got %+v", summary)
	}
	if len(rec.progress) != 0 || len(rec.started) != 0 {
		t.Errorf("Expected no callbacks, got progress=%v started=%v", rec.progress, rec.started)
	}
}

func TestRunProgressSumsToHundred(t *testing.T) {
	targets := []Target{{Path: "/a"}, {Path: "/b"}, {Path: "/c"}, {Path: "/d"}, {Path: "/e"}, {Path: "/f"}, {Path: "/g"}}
	stub := &stubWiper{results: map[string]wipe.Result{}}
	rec := &recorder{}

	if _, err := NewRunner(stub, rec, nil).Run(context.Background(), targets); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(rec.progress) != len(targets) {
		t.Fatalf("Expected %d progress calls, got %d", len(targets), len(rec.progress))
	}
	prev, total := 0.0, 0.0
	for _, p := range rec.progress {
		step := p - prev
		if math.Abs(step-100.0/float64(len(targets))) > 1e-9 {
			t.Errorf("Unexpected progress step %f", step)
		}
		total += step
		prev = p
	}
	if math.Abs(total-100) > 1e-9 || rec.progress[len(rec.progress)-1] != 100 {
		t.Errorf("Expected increments summing to 100, got %f (last %f)", total, prev)
	}
}

func TestRunPreservesOrderAndNeverStopsEarly(t *testing.T) {
	stub := &stubWiper{results: map[string]wipe.Result{
		"/first": {FilesDeleted: 1, Skipped: 4},
		"/third": {FoldersDeleted: 2},
	}}
	rec := &recorder{}

	summary, err := NewRunner(stub, rec, nil).Run(context.Background(), []Target{
		{Path: "/first"}, {Path: "/second"}, {Path: "/third"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"/first", "/second", "/third"}
	for i, p := range want {
		if stub.calls[i] != p || rec.done[i].Path != p {
			t.Errorf("Position %d: expected %s, got wiper=%s observer=%s", i, p, stub.calls[i], rec.done[i].Path)
		}
	}
	if summary.TotalFilesDeleted != 1 || summary.TotalFoldersDeleted != 2 || summary.TotalSkipped != 4 {
		t.Errorf("Unexpected totals %+v", summary)
	}
}

func TestRunGuardRefusal(t *testing.T) {
	errBlocked := errors.New("protected")
	stub := &stubWiper{results: map[string]wipe.Result{"/ok": {FilesDeleted: 2}}}
	guard := func(path string) error {
		if path == "/" {
			return errBlocked
		}
		return nil
	}
	rec := &recorder{}

	summary, err := NewRunner(stub, rec, guard).Run(context.Background(), []Target{{Path: "/"}, {Path: "/ok"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(stub.calls) != 1 || stub.calls[0] != "/ok" {
		t.Errorf("Guarded target must not be wiped, calls=%v", stub.calls)
	}
	if !errors.Is(rec.errs[0], errBlocked) {
		t.Errorf("Expected guard error reported, got %v", rec.errs[0])
	}
	if summary.Failed != 1 || summary.TotalFilesDeleted != 2 {
		t.Errorf("Unexpected summary %+v", summary)
	}
	if len(rec.progress) != 2 || rec.progress[0] != 50 {
		t.Errorf("Guarded target must still advance progress, got %v", rec.progress)
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	stub := &stubWiper{
		results: map[string]wipe.Result{"/slow": {FilesDeleted: 1}},
		block:   make(chan struct{}),
	}
	runner := NewRunner(stub, nil, nil)

	done, err := runner.Start(context.Background(), []Target{{Path: "/slow"}})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := runner.Run(context.Background(), []Target{{Path: "/slow"}}); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress from Run, got %v", err)
	}
	if _, err := runner.Start(context.Background(), []Target{{Path: "/slow"}}); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress from Start, got %v", err)
	}

	close(stub.block)

	select {
	case out := <-done:
		if out.Err != nil || out.Summary.TotalFilesDeleted != 1 {
			t.Errorf("Unexpected outcome %+v", out)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("background run did not finish")
	}

	if runner.Running() {
		t.Error("Runner should be idle after the outcome is delivered")
	}
}

func TestRunCancelledBetweenTargets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := &stubWiper{results: map[string]wipe.Result{"/a": {FilesDeleted: 1}, "/b": {FilesDeleted: 1}}}
	obs := Funcs{OnTargetDone: func(Target, wipe.Result, error) { cancel() }}

	summary, err := NewRunner(stub, obs, nil).Run(ctx, []Target{{Path: "/a"}, {Path: "/b"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(stub.calls) != 1 || summary.TotalFilesDeleted != 1 {
		t.Errorf("Expected the batch to stop after the first target, calls=%v", stub.calls)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, StatusCleaned},
		{"missing", wipe.ErrRootNotFound, StatusNotFound},
		{"not dir", wipe.ErrNotDirectory, StatusNotDirectory},
		{"unreadable", wipe.ErrRootUnreadable, StatusUnreadable},
		{"cancelled", context.Canceled, StatusCancelled},
		{"guard", errors.New("protected path"), StatusBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf(%v) = %s, expected %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestObserversFanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	obs := Observers{a, b, Funcs{}}

	obs.TargetStarted(Target{Path: "/x"})
	obs.TargetDone(Target{Path: "/x"}, wipe.Result{FilesDeleted: 1}, nil)
	obs.Progress(100)

	for i, r := range []*recorder{a, b} {
		if len(r.started) != 1 || len(r.done) != 1 || len(r.progress) != 1 {
			t.Errorf("Observer %d missed calls: %+v", i, r)
		}
	}
}
