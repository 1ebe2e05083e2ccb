package fsops

import "io/fs"

// Deleter abstracts single-entry filesystem removal
// Enables tests to simulate locked files without touching permissions
type Deleter interface {
	Remove(path string) error
}

// FS is the filesystem surface the wipe engine walks and mutates
type FS interface {
	Deleter
	Stat(path string) (fs.FileInfo, error)
	ReadDir(path string) ([]fs.DirEntry, error)
}
