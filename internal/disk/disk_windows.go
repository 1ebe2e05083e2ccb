//go:build windows

package disk

import "golang.org/x/sys/windows"

// GetUsage reports free and total bytes of the volume containing path
func GetUsage(path string) (Usage, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return Usage{}, err
	}

	var freeToCaller, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &freeToCaller, &total, &totalFree); err != nil {
		return Usage{}, err
	}
	return Usage{FreeBytes: freeToCaller, TotalBytes: total}, nil
}
