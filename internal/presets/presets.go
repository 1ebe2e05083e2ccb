package presets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

const OSWindows = "windows"

// Preset names
const (
	Temp        = "temp"
	UserTemp    = "user-temp"
	WindowsTemp = "windows-temp"
	Downloads   = "downloads"
	Desktop     = "desktop"
	Documents   = "documents"
	Recent      = "recent"

	// TempAll expands to every temp folder known on the platform
	TempAll = "temp-all"
)

var (
	ErrUnknownPreset = errors.New("unknown preset")
	ErrUnavailable   = errors.New("preset not available on this platform")
)

// Folder is a resolved well-known directory
type Folder struct {
	Label string
	Path  string
}

// Resolver maps preset names to absolute paths for one platform
type Resolver struct {
	GOOS    string
	Getenv  func(string) string
	HomeDir func() (string, error)
	TempDir func() string
}

// NewResolver returns a Resolver for the running platform
func NewResolver() *Resolver {
	return &Resolver{
		GOOS:    runtime.GOOS,
		Getenv:  os.Getenv,
		HomeDir: os.UserHomeDir,
		TempDir: os.TempDir,
	}
}

// Names lists every accepted preset name
func Names() []string {
	names := []string{Temp, UserTemp, WindowsTemp, Downloads, Desktop, Documents, Recent, TempAll}
	sort.Strings(names)
	return names
}

// Resolve turns preset names into folders, expanding groups. Presets that
// do not exist on the platform are reported in skipped rather than failing
// the whole resolution; unknown names fail with ErrUnknownPreset.
func (r *Resolver) Resolve(names []string) (folders []Folder, skipped []error, err error) {
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}

		expanded := []string{name}
		if name == TempAll {
			expanded = []string{UserTemp, WindowsTemp, Temp}
		}

		for _, n := range expanded {
			f, ferr := r.resolveOne(n)
			switch {
			case errors.Is(ferr, ErrUnavailable):
				if name != TempAll {
					skipped = append(skipped, ferr)
				}
			case ferr != nil:
				return nil, nil, ferr
			default:
				folders = append(folders, f)
			}
		}
	}
	return folders, skipped, nil
}

func (r *Resolver) resolveOne(name string) (Folder, error) {
	switch name {
	case Temp:
		return Folder{Label: "System Temp", Path: filepath.Clean(r.TempDir())}, nil

	case UserTemp:
		if r.GOOS != OSWindows {
			return Folder{}, fmt.Errorf("%s: %w", name, ErrUnavailable)
		}
		local := r.Getenv("LOCALAPPDATA")
		if local == "" {
			return Folder{}, fmt.Errorf("%s: LOCALAPPDATA not set: %w", name, ErrUnavailable)
		}
		return Folder{Label: "User Temp", Path: filepath.Join(local, "Temp")}, nil

	case WindowsTemp:
		if r.GOOS != OSWindows {
			return Folder{}, fmt.Errorf("%s: %w", name, ErrUnavailable)
		}
		sysRoot := r.Getenv("SystemRoot")
		if sysRoot == "" {
			sysRoot = `C:\Windows`
		}
		return Folder{Label: "Windows Temp", Path: filepath.Join(sysRoot, "Temp")}, nil

	case Downloads:
		return r.homeFolder("Downloads", "Downloads")

	case Desktop:
		return r.homeFolder("Desktop", "Desktop")

	case Documents:
		return r.homeFolder("Documents", "Documents")

	case Recent:
		if r.GOOS != OSWindows {
			return Folder{}, fmt.Errorf("%s: %w", name, ErrUnavailable)
		}
		appData := r.Getenv("APPDATA")
		if appData == "" {
			home, err := r.HomeDir()
			if err != nil {
				return Folder{}, fmt.Errorf("%s: %w", name, err)
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return Folder{Label: "Recent", Path: filepath.Join(appData, "Microsoft", "Windows", "Recent")}, nil

	default:
		return Folder{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownPreset, name, strings.Join(Names(), ", "))
	}
}

func (r *Resolver) homeFolder(label, dir string) (Folder, error) {
	home, err := r.HomeDir()
	if err != nil {
		return Folder{}, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return Folder{Label: label, Path: filepath.Join(home, dir)}, nil
}
