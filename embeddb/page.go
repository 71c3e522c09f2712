package embeddb

import "encoding/binary"

// layout precomputes the byte offsets of a data page's header and
// records, derived once from Config and reused by pagestore, search, and
// the iterator. It owns no storage itself: every method takes the
// []byte page buffer it operates on.
type layout struct {
	pageSize    int
	keySize     int
	dataSize    int
	recordSize  int
	bitmapSize  int
	useBitmap   bool
	useMaxMin   bool
	useVarData  bool
	headerSize  int
	maxRecsPage int
}

func newLayout(c *Config) *layout {
	l := &layout{
		pageSize:   c.PageSize,
		keySize:    c.KeySize,
		dataSize:   c.DataSize,
		recordSize: c.RecordSize(),
		bitmapSize: c.BitmapSize,
		useBitmap:  c.UseBitmap,
		useMaxMin:  c.UseMaxMin,
		useVarData: c.UseVariableData,
	}
	h := 6
	if l.useBitmap {
		h += l.bitmapSize
	}
	if l.useMaxMin {
		h += 2 * l.dataSize
	}
	l.headerSize = h
	l.maxRecsPage = (l.pageSize - h) / l.recordSize
	return l
}

// --- data page header accessors ---

func (l *layout) pageID(buf []byte) uint32      { return binary.LittleEndian.Uint32(buf[0:4]) }
func (l *layout) setPageID(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf[0:4], v) }

func (l *layout) count(buf []byte) int { return int(binary.LittleEndian.Uint16(buf[4:6])) }
func (l *layout) setCount(buf []byte, n int) {
	binary.LittleEndian.PutUint16(buf[4:6], uint16(n))
}
func (l *layout) incCount(buf []byte) { l.setCount(buf, l.count(buf)+1) }

func (l *layout) bitmap(buf []byte) []byte {
	return buf[6 : 6+l.bitmapSize]
}

func (l *layout) minMaxBase() int {
	b := 6
	if l.useBitmap {
		b += l.bitmapSize
	}
	return b
}

func (l *layout) minData(buf []byte) []byte {
	b := l.minMaxBase()
	return buf[b : b+l.dataSize]
}
func (l *layout) maxData(buf []byte) []byte {
	b := l.minMaxBase() + l.dataSize
	return buf[b : b+l.dataSize]
}

// pageMinKey and pageMaxKey return a page's smallest and largest key.
// Records are appended in strictly ascending key order, so these are
// simply the first and last record's key; no separate header field is
// needed, unlike min/max data which are not ordered within a page.
func (l *layout) pageMinKey(buf []byte) []byte {
	return l.recordKey(l.record(buf, 0))
}
func (l *layout) pageMaxKey(buf []byte) []byte {
	return l.recordKey(l.record(buf, l.count(buf)-1))
}

// record returns the i'th record slot (0-based) of recordSize bytes.
func (l *layout) record(buf []byte, i int) []byte {
	off := l.headerSize + i*l.recordSize
	return buf[off : off+l.recordSize]
}

func (l *layout) recordKey(rec []byte) []byte  { return rec[0:l.keySize] }
func (l *layout) recordData(rec []byte) []byte { return rec[l.keySize : l.keySize+l.dataSize] }
func (l *layout) recordVarOffset(rec []byte) uint32 {
	if !l.useVarData {
		return noVarData
	}
	return binary.LittleEndian.Uint32(rec[l.keySize+l.dataSize : l.keySize+l.dataSize+4])
}
func (l *layout) setRecordVarOffset(rec []byte, v uint32) {
	binary.LittleEndian.PutUint32(rec[l.keySize+l.dataSize:l.keySize+l.dataSize+4], v)
}

// initDataPage zeroes a page buffer and fills the min-data sentinel
// region with 0xFF so the first Put always wins the running minimum.
func (l *layout) initDataPage(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	if l.useMaxMin {
		md := l.minData(buf)
		for i := range md {
			md[i] = 0xFF
		}
	}
}

// --- index page header accessors ---

const indexHeaderSize = 16

type indexLayout struct {
	bitmapSize int
	pageSize   int
	maxEntries int
}

func newIndexLayout(c *Config) *indexLayout {
	il := &indexLayout{bitmapSize: c.BitmapSize, pageSize: c.PageSize}
	il.maxEntries = (c.PageSize - indexHeaderSize) / c.BitmapSize
	return il
}

func (il *indexLayout) pageID(buf []byte) uint32       { return binary.LittleEndian.Uint32(buf[0:4]) }
func (il *indexLayout) setPageID(buf []byte, v uint32)  { binary.LittleEndian.PutUint32(buf[0:4], v) }
func (il *indexLayout) count(buf []byte) int            { return int(binary.LittleEndian.Uint16(buf[4:6])) }
func (il *indexLayout) setCount(buf []byte, n int)      { binary.LittleEndian.PutUint16(buf[4:6], uint16(n)) }
func (il *indexLayout) firstDataPage(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf[8:12]) }
func (il *indexLayout) setFirstDataPage(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf[8:12], v)
}
func (il *indexLayout) lastDataPage(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf[12:16]) }
func (il *indexLayout) setLastDataPage(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf[12:16], v)
}
func (il *indexLayout) bitmapAt(buf []byte, i int) []byte {
	off := indexHeaderSize + i*il.bitmapSize
	return buf[off : off+il.bitmapSize]
}

// --- variable-data page layout ---

type varLayout struct {
	keySize    int
	pageSize   int
	headerSize int
}

func newVarLayout(c *Config) *varLayout {
	return &varLayout{keySize: c.KeySize, pageSize: c.PageSize, headerSize: c.KeySize + 4}
}

func (vl *varLayout) pageID(buf []byte) uint32      { return binary.LittleEndian.Uint32(buf[0:4]) }
func (vl *varLayout) setPageID(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf[0:4], v) }
func (vl *varLayout) largestKey(buf []byte) []byte   { return buf[4 : 4+vl.keySize] }
func (vl *varLayout) setLargestKey(buf []byte, key []byte) {
	copy(buf[4:4+vl.keySize], key)
}
