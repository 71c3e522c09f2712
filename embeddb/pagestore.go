package embeddb

import (
	"fmt"
)

// pagestore is the data-page writer/reader: it owns the in-memory write
// buffer for the primary data ring, the parallel index-page write buffer
// (when enabled), and the running maximum in-page position error that
// the searcher uses to decide whether to trust its in-page estimate.
type pagestore struct {
	cfg *Config
	l   *layout
	il  *indexLayout

	dataRing  *ring
	indexRing *ring

	buf    []byte // current data write buffer, one page
	idxBuf []byte // current index write buffer, one page (nil if no index file)
	rdBuf  []byte // scratch page for reading the previous page's last key

	spl      *Spline
	maxError uint32

	onPageWritten func(pageID uint32, buf []byte)
}

func newPagestore(cfg *Config, l *layout, il *indexLayout, dataRing, indexRing *ring, spl *Spline) *pagestore {
	ps := &pagestore{
		cfg:       cfg,
		l:         l,
		il:        il,
		dataRing:  dataRing,
		indexRing: indexRing,
		buf:       make([]byte, cfg.PageSize),
		rdBuf:     make([]byte, cfg.PageSize),
		spl:       spl,
	}
	l.initDataPage(ps.buf)
	if indexRing != nil {
		ps.idxBuf = make([]byte, cfg.PageSize)
		il.setCount(ps.idxBuf, 0)
	}
	return ps
}

// Put appends one record to the write buffer, flushing the buffer to the
// ring first if it is full. varOffset should be noVarData when the engine
// has no variable-data ring or the record carries none.
func (ps *pagestore) Put(key, data []byte, varOffset uint32) error {
	count := ps.l.count(ps.buf)

	if count > 0 || ps.dataRing.nextID > 0 {
		var prev []byte
		if count == 0 {
			if err := ps.readPage(ps.dataRing.nextID-1, ps.rdBuf); err != nil {
				return fmt.Errorf("embeddb: reading previous page for ordering check: %w", err)
			}
			prev = ps.l.recordKey(ps.l.record(ps.rdBuf, ps.l.count(ps.rdBuf)-1))
		} else {
			prev = ps.l.recordKey(ps.l.record(ps.buf, count-1))
		}
		if ps.cfg.CompareKey(key, prev) <= 0 {
			return ErrNonMonotonicKey
		}
	}

	if count >= ps.l.maxRecsPage {
		if _, err := ps.flushPage(); err != nil {
			return err
		}
		count = 0
	}

	rec := ps.l.record(ps.buf, count)
	copy(ps.l.recordKey(rec), key)
	copy(ps.l.recordData(rec), data)
	if ps.l.useVarData {
		ps.l.setRecordVarOffset(rec, varOffset)
	}
	ps.l.incCount(ps.buf)

	if ps.l.useMaxMin {
		if count != 0 {
			if ps.cfg.CompareData(data, ps.l.minData(ps.buf)) < 0 {
				copy(ps.l.minData(ps.buf), data)
			}
			if ps.cfg.CompareData(data, ps.l.maxData(ps.buf)) > 0 {
				copy(ps.l.maxData(ps.buf), data)
			}
		} else {
			copy(ps.l.minData(ps.buf), data)
			copy(ps.l.maxData(ps.buf), data)
		}
	}

	if ps.l.useBitmap {
		ps.cfg.Bitmap.Update(data, ps.l.bitmap(ps.buf))
	}

	return nil
}

// flushPage writes the current write buffer to the data ring, advances
// the spline and index-page buffer, recomputes the running max error, and
// resets the write buffer for the next page. It returns the logical page
// id written.
func (ps *pagestore) flushPage() (uint32, error) {
	if ps.l.count(ps.buf) < 1 {
		return 0, nil
	}

	logicalID, physSlot, err := ps.dataRing.Allocate()
	if err != nil {
		return 0, err
	}
	ps.l.setPageID(ps.buf, logicalID)

	if err := ps.dataRing.dev.Write(ps.buf, physSlot, ps.cfg.PageSize); err != nil {
		return 0, fmt.Errorf("embeddb: writing data page %d: %w", logicalID, err)
	}
	ps.dataRing.CommitWrite()

	if ps.spl != nil {
		minKey := ps.l.pageMinKey(ps.buf)
		ps.spl.Add(KeyToUint64(minKey), logicalID)
	}

	if ps.indexRing != nil {
		ps.appendIndexEntry(logicalID)
	}

	ps.updateMaxError()

	if ps.onPageWritten != nil {
		ps.onPageWritten(logicalID, ps.buf)
	}

	ps.l.initDataPage(ps.buf)
	return logicalID, nil
}

// Flush forces a partial write buffer out to the ring even if it is not
// full, mirroring embedDBFlush's "durability checkpoint" semantics.
func (ps *pagestore) Flush() error {
	if ps.l.count(ps.buf) < 1 {
		return nil
	}
	_, err := ps.flushPage()
	if err == nil {
		if err := ps.dataRing.dev.Flush(); err != nil {
			return fmt.Errorf("embeddb: flushing data device: %w", err)
		}
	}
	return err
}

func (ps *pagestore) appendIndexEntry(dataPageID uint32) {
	idxCount := ps.il.count(ps.idxBuf)
	if idxCount >= ps.il.maxEntries {
		ps.writeIndexPage()
		idxCount = 0
		ps.il.setFirstDataPage(ps.idxBuf, dataPageID)
	}
	ps.il.setCount(ps.idxBuf, idxCount+1)
	ps.il.setLastDataPage(ps.idxBuf, dataPageID)
	copy(ps.il.bitmapAt(ps.idxBuf, idxCount), ps.l.bitmap(ps.buf))
}

func (ps *pagestore) writeIndexPage() error {
	logicalID, physSlot, err := ps.indexRing.Allocate()
	if err != nil {
		return err
	}
	ps.il.setPageID(ps.idxBuf, logicalID)
	if err := ps.indexRing.dev.Write(ps.idxBuf, physSlot, ps.cfg.PageSize); err != nil {
		return fmt.Errorf("embeddb: writing index page %d: %w", logicalID, err)
	}
	ps.indexRing.CommitWrite()
	for i := range ps.idxBuf {
		ps.idxBuf[i] = 0
	}
	ps.il.setCount(ps.idxBuf, 0)
	return nil
}

// updateMaxError recomputes the page-local interpolation error of the
// just-written page and widens the running maximum if needed.
func (ps *pagestore) updateMaxError() {
	if e := pageMaxError(ps.l, ps.buf); e > ps.maxError {
		ps.maxError = e
	}
}

// pageMaxError returns how far a two-point linear fit across buf (first
// and last record) would mis-estimate any record's in-page position,
// capped at maxRecsPage. Shared by updateMaxError and data-ring recovery
// at Open, which both need the same page-local error measurement.
func pageMaxError(l *layout, buf []byte) uint32 {
	n := l.count(buf)
	if n < 2 {
		return 0
	}
	firstKey := KeyToUint64(l.recordKey(l.record(buf, 0)))
	lastKey := KeyToUint64(l.recordKey(l.record(buf, n-1)))

	slope := float64(lastKey-firstKey) / float64(n-1)
	if slope == 0 {
		slope = 1
	}

	var maxErr int32
	for i := 0; i < n; i++ {
		rec := l.record(buf, i)
		k := KeyToUint64(l.recordKey(rec)) - firstKey
		est := int64(float64(k) / slope)
		diff := est - int64(i)
		if diff < 0 {
			diff = -diff
		}
		if int32(diff) > maxErr {
			maxErr = int32(diff)
		}
	}
	if maxErr > int32(l.maxRecsPage) {
		maxErr = int32(l.maxRecsPage)
	}
	return uint32(maxErr)
}

// readPage loads the page with the given logical id from dev into dst,
// regardless of whether it is still in the write buffer.
func (ps *pagestore) readPage(id uint32, dst []byte) error {
	if !ps.dataRing.InRange(id) {
		return fmt.Errorf("embeddb: page %d: %w", id, ErrNotFound)
	}
	return ps.dataRing.dev.Read(dst, ps.dataRing.physicalSlot(id), ps.cfg.PageSize)
}
