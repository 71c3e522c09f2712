package device

import (
	"fmt"
	"os"
	"sync"

	"github.com/ncw/directio"
)

// DirectFile is a Device backed by a regular file opened with O_DIRECT,
// modeling raw access to an SD card or flash part: no page cache sits
// between EmbedDB's own buffers and the medium, so EmbedDB's own
// buffering decisions are the only buffering that happens.
//
// Page buffers handed to Read/Write must be directio.AlignSize-aligned;
// AlignedBuffer allocates such a buffer. DirectFile does not align or copy
// the buffers it is given, and the embeddb package allocates its page
// buffers with make rather than AlignedBuffer.
type DirectFile struct {
	mu   sync.Mutex
	path string
	f    *os.File
	size int64
}

// NewDirectFile returns a DirectFile for path, pre-sized to hold
// totalPages pages of pageSize bytes once opened in read-write mode.
func NewDirectFile(path string, totalPages, pageSize int) *DirectFile {
	return &DirectFile{path: path, size: int64(totalPages) * int64(pageSize)}
}

func (d *DirectFile) Open(mode Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	flag := os.O_RDONLY
	if mode == ModeReadWrite {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := directio.OpenFile(d.path, flag, 0o600)
	if err != nil {
		return fmt.Errorf("device: open %s: %w", d.path, err)
	}
	d.f = f
	if mode == ModeReadWrite {
		if err := preallocate(f, d.size); err != nil {
			// Pre-allocation is a performance hint, not a correctness
			// requirement; some filesystems (and memfile-backed test
			// harnesses masquerading as a real path) don't support it.
			_ = err
		}
	}
	return nil
}

func (d *DirectFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

func (d *DirectFile) Read(buf []byte, pageNum uint32, pageSize int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return ErrClosed
	}
	off := int64(pageNum) * int64(pageSize)
	_, err := d.f.ReadAt(buf, off)
	return err
}

func (d *DirectFile) Write(buf []byte, pageNum uint32, pageSize int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return ErrClosed
	}
	off := int64(pageNum) * int64(pageSize)
	_, err := d.f.WriteAt(buf, off)
	return err
}

// Erase is a trim hint on a DirectFile: regular files have no erase-block
// semantics, so a no-op implementation is valid here, but where the
// platform supports it we punch a hole to let the filesystem reclaim the
// space, matching how a real flash translation layer would behave.
func (d *DirectFile) Erase(startPage, endPage uint32, pageSize int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return ErrClosed
	}
	off := int64(startPage) * int64(pageSize)
	n := int64(endPage-startPage) * int64(pageSize)
	punchHole(d.f, off, n)
	return nil
}

func (d *DirectFile) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return ErrClosed
	}
	return d.f.Sync()
}

// AlignedBuffer returns a page-sized buffer aligned to directio.AlignSize,
// suitable for use as a Read/Write argument against a DirectFile.
func AlignedBuffer(pageSize int) []byte {
	return directio.AlignedBlock(pageSize)
}
