//go:build linux

package device

import (
	"os"

	"golang.org/x/sys/unix"
)

// preallocate reserves size bytes for f so that subsequent aligned
// O_DIRECT writes don't need the filesystem to extend the file on every
// page, mirroring the upfront page-ring sizing EmbedDB itself performs.
func preallocate(f *os.File, size int64) error {
	if size <= 0 {
		return nil
	}
	return unix.Fallocate(int(f.Fd()), 0, 0, size)
}

// punchHole releases [off, off+n) back to the filesystem, the closest a
// regular file gets to flash erase semantics.
func punchHole(f *os.File, off, n int64) {
	if n <= 0 {
		return
	}
	_ = unix.Fallocate(int(f.Fd()), unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, off, n)
}
