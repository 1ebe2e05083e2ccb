//go:build !linux && !darwin && !freebsd && !windows

package disk

func GetUsage(path string) (Usage, error) {
	return Usage{}, ErrUnsupported
}
