package presets

import (
	"errors"
	"path/filepath"
	"testing"
)

func fakeResolver(goos string, env map[string]string) *Resolver {
	return &Resolver{
		GOOS:    goos,
		Getenv:  func(k string) string { return env[k] },
		HomeDir: func() (string, error) { return filepath.Join("home", "me"), nil },
		TempDir: func() string { return filepath.Join("scratch", "tmp") },
	}
}

func TestResolveHomeFolders(t *testing.T) {
	r := fakeResolver("linux", nil)

	folders, skipped, err := r.Resolve([]string{"downloads", "Desktop", " documents "})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("Expected nothing skipped, got %v", skipped)
	}

	want := []Folder{
		{Label: "Downloads", Path: filepath.Join("home", "me", "Downloads")},
		{Label: "Desktop", Path: filepath.Join("home", "me", "Desktop")},
		{Label: "Documents", Path: filepath.Join("home", "me", "Documents")},
	}
	if len(folders) != len(want) {
		t.Fatalf("Expected %d folders, got %d", len(want), len(folders))
	}
	for i := range want {
		if folders[i] != want[i] {
			t.Errorf("Folder %d: expected %+v, got %+v", i, want[i], folders[i])
		}
	}
}

func TestResolveTempAllOnLinux(t *testing.T) {
	r := fakeResolver("linux", nil)

	folders, skipped, err := r.Resolve([]string{TempAll})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// windows-only members of the group are dropped silently
	if len(skipped) != 0 {
		t.Errorf("Group expansion should not report skips, got %v", skipped)
	}
	if len(folders) != 1 || folders[0].Path != filepath.Join("scratch", "tmp") {
		t.Errorf("Expected only the system temp dir, got %+v", folders)
	}
}

func TestResolveTempAllOnWindows(t *testing.T) {
	r := fakeResolver(OSWindows, map[string]string{
		"LOCALAPPDATA": filepath.Join("users", "me", "local"),
		"SystemRoot":   "win",
	})

	folders, _, err := r.Resolve([]string{TempAll})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := []string{
		filepath.Join("users", "me", "local", "Temp"),
		filepath.Join("win", "Temp"),
		filepath.Join("scratch", "tmp"),
	}
	if len(folders) != len(want) {
		t.Fatalf("Expected %d folders, got %+v", len(want), folders)
	}
	for i, p := range want {
		if folders[i].Path != p {
			t.Errorf("Folder %d: expected %s, got %s", i, p, folders[i].Path)
		}
	}
}

func TestResolveRecentOnWindowsFallsBackToHome(t *testing.T) {
	r := fakeResolver(OSWindows, nil)

	folders, _, err := r.Resolve([]string{Recent})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := filepath.Join("home", "me", "AppData", "Roaming", "Microsoft", "Windows", "Recent")
	if len(folders) != 1 || folders[0].Path != want {
		t.Errorf("Expected %s, got %+v", want, folders)
	}
}

func TestResolveUnavailableIsSkipped(t *testing.T) {
	r := fakeResolver("linux", nil)

	folders, skipped, err := r.Resolve([]string{Recent, Temp})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(skipped) != 1 || !errors.Is(skipped[0], ErrUnavailable) {
		t.Errorf("Expected recent to be skipped as unavailable, got %v", skipped)
	}
	if len(folders) != 1 {
		t.Errorf("Expected temp to still resolve, got %+v", folders)
	}
}

func TestResolveUnknownPreset(t *testing.T) {
	r := fakeResolver("linux", nil)

	if _, _, err := r.Resolve([]string{"temp", "pictures"}); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("Expected ErrUnknownPreset, got %v", err)
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("Names not sorted: %v", names)
		}
	}
}
