//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows

package diskspace

func available(string) (uint64, error) {
	return 0, ErrUnsupported
}
