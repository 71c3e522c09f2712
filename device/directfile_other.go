//go:build !linux

package device

import "os"

func preallocate(f *os.File, size int64) error {
	if size <= 0 {
		return nil
	}
	return f.Truncate(size)
}

func punchHole(f *os.File, off, n int64) {
	// No portable trim hint outside Linux; Erase stays a pure no-op here.
}
