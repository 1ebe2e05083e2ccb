package fsops

import (
	"errors"
	"io/fs"
	"sync"
)

// ErrLocked is returned by FakeFS for paths registered with Lock
var ErrLocked = errors.New("entry is locked")

// FakeFS implements FS for testing
// Reads go to the real filesystem; every Remove is recorded in Calls.
// With Passthrough unset no entry is ever removed from disk.
type FakeFS struct {
	OSFS

	Passthrough bool
	Calls       []string

	mu     sync.Mutex
	locked map[string]error
}

// Lock makes Remove(path) fail with ErrLocked
func (f *FakeFS) Lock(path string) {
	f.LockWith(path, ErrLocked)
}

// LockWith makes Remove(path) fail with err
func (f *FakeFS) LockWith(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked == nil {
		f.locked = make(map[string]error)
	}
	f.locked[path] = err
}

func (f *FakeFS) Remove(path string) error {
	f.mu.Lock()
	f.Calls = append(f.Calls, "rm:"+path)
	err, locked := f.locked[path]
	f.mu.Unlock()

	if locked {
		return &fs.PathError{Op: "remove", Path: path, Err: err}
	}
	if f.Passthrough {
		return f.OSFS.Remove(path)
	}
	return nil
}

// Removed returns the recorded Remove calls with the "rm:" prefix stripped
func (f *FakeFS) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, c[len("rm:"):])
	}
	return out
}
