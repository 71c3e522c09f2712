package device

import (
	"fmt"
	"io"
	"sync"

	"github.com/dsnet/golib/memfile"
)

// MemDevice is an in-memory Device backed by github.com/dsnet/golib/memfile,
// an API-complete stand-in that lets the engine, and every test in this
// module, run without real storage hardware.
//
// Erased regions are filled with 0xFF, the value real NOR/NAND flash reads
// back as after an erase cycle.
type MemDevice struct {
	mu     sync.Mutex
	file   *memfile.File
	size   int64
	opened bool
}

// NewMemDevice allocates an in-memory medium large enough for totalPages of
// pageSize bytes each, pre-filled with 0xFF (the flash-erased state).
func NewMemDevice(totalPages int, pageSize int) *MemDevice {
	buf := make([]byte, totalPages*pageSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	return &MemDevice{
		file: memfile.New(buf),
		size: int64(len(buf)),
	}
}

// Open marks the device ready for use. It may be called again after
// Close, reusing the same backing buffer, so that reopening a store
// against a MemDevice that already holds data from a prior session is a
// faithful stand-in for reopening a real file-backed device.
func (d *MemDevice) Open(mode Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = true
	return nil
}

func (d *MemDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = false
	return nil
}

func (d *MemDevice) Read(buf []byte, pageNum uint32, pageSize int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return ErrClosed
	}
	off := int64(pageNum) * int64(pageSize)
	if off+int64(len(buf)) > d.size {
		return fmt.Errorf("device: read past end of medium at page %d", pageNum)
	}
	if _, err := d.file.Seek(off, io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(d.file, buf)
	return err
}

func (d *MemDevice) Write(buf []byte, pageNum uint32, pageSize int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return ErrClosed
	}
	off := int64(pageNum) * int64(pageSize)
	if off+int64(len(buf)) > d.size {
		return fmt.Errorf("device: write past end of medium at page %d", pageNum)
	}
	if _, err := d.file.Seek(off, io.SeekStart); err != nil {
		return err
	}
	_, err := d.file.Write(buf)
	return err
}

func (d *MemDevice) Erase(startPage, endPage uint32, pageSize int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return ErrClosed
	}
	off := int64(startPage) * int64(pageSize)
	n := int64(endPage-startPage) * int64(pageSize)
	if off+n > d.size {
		return fmt.Errorf("device: erase past end of medium at page %d", startPage)
	}
	blank := make([]byte, n)
	for i := range blank {
		blank[i] = 0xFF
	}
	if _, err := d.file.Seek(off, io.SeekStart); err != nil {
		return err
	}
	_, err := d.file.Write(blank)
	return err
}

func (d *MemDevice) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return ErrClosed
	}
	return nil
}

// Bytes exposes the raw backing buffer, for tests that want to inspect the
// medium directly (e.g. to assert a page header was written correctly).
func (d *MemDevice) Bytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Bytes()
}
