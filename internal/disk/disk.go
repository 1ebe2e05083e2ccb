package disk

import "errors"

var ErrUnsupported = errors.New("disk usage not supported on this platform")

// Usage describes the filesystem that holds a path
type Usage struct {
	FreeBytes  uint64 // available to the calling user
	TotalBytes uint64
}

// UsedPercent returns the share of the filesystem in use
func (u Usage) UsedPercent() float64 {
	if u.TotalBytes == 0 {
		return 0
	}
	return float64(u.TotalBytes-u.FreeBytes) / float64(u.TotalBytes) * 100.0
}

// FreePercent returns the share of the filesystem still available
func (u Usage) FreePercent() float64 {
	if u.TotalBytes == 0 {
		return 100.0
	}
	return 100.0 - u.UsedPercent()
}
