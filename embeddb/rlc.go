package embeddb

import (
	"fmt"

	"github.com/embeddb/embeddb-go/device"
)

// rlc implements the record-level consistency (RLC) protocol: after
// every Put, the partially-filled write buffer is also written to a
// small rotating scratch window so that an unclean shutdown never loses
// records committed since the last full data-page flush. The window
// holds two consecutive erase blocks, starting one erase block into the
// data ring; ShiftBlocks moves it forward by one erase block whenever the
// ring itself crosses an erase-block boundary, and each block is erased
// just ahead of the page about to be overwritten.
//
// This keeps the "two rotating erase blocks, erase-ahead-of-write,
// replay-on-open" structure of the protocol, but manages the window's
// write cursor with a plain modular counter instead of a block/sub-block
// case analysis.
type rlc struct {
	dev       device.Device
	pageSize  int
	eraseSize uint32
	capacity  uint32

	startPage uint32 // physical page where the active scratch block begins
	nextLoc   uint32 // physical page the next temporary write goes to

	l *layout
}

func newRLC(dev device.Device, pageSize int, eraseSize, capacity uint32, l *layout) *rlc {
	return &rlc{
		dev:       dev,
		pageSize:  pageSize,
		eraseSize: eraseSize,
		capacity:  capacity,
		startPage: eraseSize,
		nextLoc:   eraseSize,
		l:         l,
	}
}

// WriteTemporary durably persists buf (the in-progress write buffer,
// tagged with the logical page id it will eventually become) to the
// rotating scratch window, erasing the far half of the window the first
// time a write lands on it.
func (r *rlc) WriteTemporary(buf []byte, nextDataPageID uint32) error {
	r.l.setPageID(buf, nextDataPageID)

	r.nextLoc %= r.capacity

	windowSpan := r.eraseSize * 2
	nextRel := r.nextLoc
	if r.nextLoc < r.startPage {
		nextRel += r.capacity
	}
	if nextRel-r.startPage >= windowSpan {
		r.nextLoc = r.startPage
	}

	// Entering the second page of either block means the cursor just
	// settled into that block for this generation; erase the far block
	// (the one the cursor is not currently in), never the near one,
	// since the near block holds the page just written a moment ago.
	offset := (r.nextLoc - r.startPage + r.capacity) % r.capacity
	if offset%r.eraseSize == 1 {
		farBlock := r.startPage
		if offset < r.eraseSize {
			farBlock = (r.startPage + r.eraseSize) % r.capacity
		}
		if err := r.dev.Erase(farBlock, farBlock+r.eraseSize, r.pageSize); err != nil {
			return fmt.Errorf("embeddb: erasing RLC scratch block at %d: %w", farBlock, err)
		}
	}

	if err := r.dev.Write(buf, r.nextLoc, r.pageSize); err != nil {
		return fmt.Errorf("embeddb: writing RLC scratch page at %d: %w", r.nextLoc, err)
	}
	r.nextLoc++
	return nil
}

// ShiftBlocks rotates the scratch window to the next erase block,
// invoked whenever the data ring crosses an erase-block boundary. When
// the rotation causes the window to land on a block the main ring has
// not yet reclaimed, wrapped reports true so the caller can advance the
// ring's minimum page and clean the spline, exactly as
// shiftRecordLevelConsistencyBlocks does.
func (r *rlc) ShiftBlocks(ringMinID uint32) (wrapped bool, err error) {
	numPages := r.eraseSize * 2
	wrapped = (ringMinID % r.capacity) == (r.startPage+numPages)%r.capacity
	numBlocks := uint32(3)
	if wrapped {
		numBlocks = 2
	}

	eraseStart := r.startPage
	for i := uint32(0); i < numBlocks; i++ {
		eraseEnd := eraseStart + r.eraseSize
		if err := r.dev.Erase(eraseStart, eraseEnd, r.pageSize); err != nil {
			return false, fmt.Errorf("embeddb: erasing RLC block during shift: %w", err)
		}
		eraseStart = eraseEnd % r.capacity
	}

	r.startPage = (r.startPage + r.eraseSize) % r.capacity
	r.nextLoc = r.startPage
	return wrapped, nil
}

// Recover scans the scratch window at Open time for the temporary page
// tagged with expectedNextID (the id that would follow the last
// durably-flushed full data page) that holds the most records: since
// WriteTemporary's cursor can wrap the window more than once while one
// logical page accumulates records, later physical copies are not
// necessarily more complete than earlier ones, so the highest record
// count wins rather than the last match found. Ties keep the first copy
// seen. ok=false if the window holds nothing usable. The caller should
// replay the returned buffer as its write buffer and re-append any
// records it is missing from a separate write-ahead source, if one is
// kept; EmbedDB itself only guarantees the page buffer survives, not a
// byte-exact replay log beyond it.
func (r *rlc) Recover(buf []byte, expectedNextID uint32) (ok bool, err error) {
	numPages := r.eraseSize * 2
	bestLoc := uint32(0)
	bestCount := -1
	found := false

	scratch := make([]byte, r.pageSize)
	for i := uint32(0); i < numPages; i++ {
		phys := (r.startPage + i) % r.capacity
		if err := r.dev.Read(scratch, phys, r.pageSize); err != nil {
			return false, fmt.Errorf("embeddb: reading RLC scratch page %d during recovery: %w", phys, err)
		}
		id := r.l.pageID(scratch)
		if id != expectedNextID {
			continue
		}
		count := r.l.count(scratch)
		if count > bestCount {
			copy(buf, scratch)
			bestLoc = phys
			bestCount = count
			found = true
		}
	}

	if found {
		r.nextLoc = (bestLoc + 1) % r.capacity
		if r.nextLoc < r.startPage {
			r.nextLoc = r.startPage
		}
	}
	return found, nil
}
