//go:build linux || darwin || freebsd

package disk

import "golang.org/x/sys/unix"

// GetUsage reports free and total bytes of the filesystem containing path
func GetUsage(path string) (Usage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Usage{}, err
	}

	bsize := uint64(stat.Bsize)
	return Usage{
		FreeBytes:  uint64(stat.Bavail) * bsize,
		TotalBytes: uint64(stat.Blocks) * bsize,
	}, nil
}
