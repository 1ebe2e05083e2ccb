package fsops

import (
	"io/fs"
	"os"
)

// OSFS implements FS using real os package calls
type OSFS struct{}

func (OSFS) Remove(path string) error {
	return os.Remove(path)
}

func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (OSFS) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}
