package embeddb

import (
	"encoding/binary"
	"fmt"
	"io"
)

// varStore is the variable-length data ring: a parallel page ring
// addressed by a flat, monotonically increasing byte offset rather than
// a record count. Each variable-data page begins with a small header
// (page id + the largest key written to the page); the rest of the page
// holds a packed sequence of 4-byte length prefixes followed by payload
// bytes, which may span page boundaries.
type varStore struct {
	cfg  *Config
	vl   *varLayout
	ring *ring

	buf    []byte // write buffer, one page
	rdBuf  []byte // read scratch, one page
	curLoc uint32 // next byte offset to write: logical var page id * PageSize + in-page byte; it keeps growing across ring wraps

	hasMinKey bool
	minKey    []byte
}

func newVarStore(cfg *Config, vl *varLayout, r *ring) *varStore {
	vs := &varStore{
		cfg:    cfg,
		vl:     vl,
		ring:   r,
		buf:    make([]byte, cfg.PageSize),
		rdBuf:  make([]byte, cfg.PageSize),
		curLoc: uint32(vl.headerSize),
		minKey: make([]byte, cfg.KeySize),
	}
	return vs
}

func (vs *varStore) span() uint32 { return vs.ring.capacity * uint32(vs.cfg.PageSize) }

// Put appends payload to the variable-data ring and returns the offset to
// store in the owning fixed record. A nil payload is not valid; callers
// that have no variable data for a record should store noVarData instead
// of calling Put.
func (vs *varStore) Put(key []byte, payload []byte) (uint32, error) {
	pageSize := vs.cfg.PageSize

	if vs.curLoc%uint32(pageSize) > uint32(pageSize)-4 {
		if err := vs.flushPage(key); err != nil {
			return 0, err
		}
	}

	if !vs.hasMinKey {
		copy(vs.minKey, key)
		vs.hasMinKey = true
	}

	vs.vl.setLargestKey(vs.buf, key)

	offset := vs.curLoc
	length := uint32(len(payload))

	binary.LittleEndian.PutUint32(vs.buf[vs.curLoc%uint32(pageSize):], length)
	vs.curLoc += 4
	if vs.curLoc%uint32(pageSize) == 0 {
		if err := vs.flushPage(key); err != nil {
			return 0, err
		}
	}

	written := 0
	for written < len(payload) {
		room := int(uint32(pageSize) - vs.curLoc%uint32(pageSize))
		n := len(payload) - written
		if n > room {
			n = room
		}
		copy(vs.buf[vs.curLoc%uint32(pageSize):], payload[written:written+n])
		written += n
		vs.curLoc += uint32(n)
		if vs.curLoc%uint32(pageSize) == 0 {
			if err := vs.flushPage(key); err != nil {
				return 0, err
			}
		}
	}

	return offset, nil
}

// flushPage writes the current write buffer to the ring and resets it,
// advancing curLoc past the next page's header.
func (vs *varStore) flushPage(key []byte) error {
	logicalID, physSlot, err := vs.ring.Allocate()
	if err != nil {
		return err
	}
	vs.vl.setPageID(vs.buf, logicalID)

	if err := vs.ring.dev.Write(vs.buf, physSlot, vs.cfg.PageSize); err != nil {
		return fmt.Errorf("embeddb: writing variable-data page %d: %w", logicalID, err)
	}
	vs.ring.CommitWrite()

	for i := range vs.buf {
		vs.buf[i] = 0
	}
	vs.vl.setLargestKey(vs.buf, key)
	vs.curLoc = (logicalID+1)*uint32(vs.cfg.PageSize) + uint32(vs.vl.headerSize)
	return nil
}

// Flush forces the current partial write buffer out, used at Close/Flush
// time so no pending variable data is lost.
func (vs *varStore) Flush(lastKey []byte) error {
	if vs.curLoc%uint32(vs.cfg.PageSize) == uint32(vs.vl.headerSize) {
		return nil // nothing written since the last page boundary
	}
	return vs.flushPage(lastKey)
}

// Stream opens a reader over the variable-length payload stored at
// offset, validating that it has not been overwritten by ring wrap
// (ErrOverwritten) relative to recordKey, the key of the owning record.
func (vs *varStore) Stream(recordKey []byte, offset uint32) (*VarDataStream, error) {
	if vs.cfg.CompareKey(recordKey, vs.minKey) < 0 {
		return nil, ErrOverwritten
	}

	pageID := offset / uint32(vs.cfg.PageSize)
	if !vs.ring.InRange(pageID) {
		return nil, ErrOverwritten
	}
	if err := vs.ring.dev.Read(vs.rdBuf, vs.ring.physicalSlot(pageID), vs.cfg.PageSize); err != nil {
		return nil, fmt.Errorf("embeddb: reading variable-data page %d: %w", pageID, err)
	}

	pageOffset := offset % uint32(vs.cfg.PageSize)
	length := binary.LittleEndian.Uint32(vs.rdBuf[pageOffset:])

	dataStart := offset + 4
	if dataStart%uint32(vs.cfg.PageSize) == 0 {
		dataStart += uint32(vs.vl.headerSize)
	}

	return &VarDataStream{
		vs:          vs,
		totalBytes:  length,
		fileOffset:  dataStart,
		lastPageBuf: append([]byte(nil), vs.rdBuf...),
		lastPageID:  pageID,
	}, nil
}

// VarDataStream is a sequential reader over one record's variable-length
// payload, implementing io.Reader so arbitrarily large payloads never
// need to fit in RAM at once.
type VarDataStream struct {
	vs         *varStore
	totalBytes uint32
	bytesRead  uint32
	fileOffset uint32

	lastPageID  uint32
	lastPageBuf []byte
}

// Len returns the total payload size in bytes.
func (s *VarDataStream) Len() uint32 { return s.totalBytes }

func (s *VarDataStream) Read(p []byte) (int, error) {
	if s.bytesRead >= s.totalBytes {
		return 0, io.EOF
	}
	pageSize := uint32(s.vs.cfg.PageSize)
	if s.fileOffset%pageSize == 0 {
		// The previous Read stopped exactly at a page boundary: skip the
		// next page's header before reading payload bytes.
		s.fileOffset += uint32(s.vs.vl.headerSize)
	}
	pageID := s.fileOffset / pageSize

	if pageID != s.lastPageID || s.lastPageBuf == nil {
		if !s.vs.ring.InRange(pageID) {
			return 0, ErrOverwritten
		}
		buf := make([]byte, pageSize)
		if err := s.vs.ring.dev.Read(buf, s.vs.ring.physicalSlot(pageID), s.vs.cfg.PageSize); err != nil {
			return 0, fmt.Errorf("embeddb: reading variable-data page %d: %w", pageID, err)
		}
		s.lastPageBuf = buf
		s.lastPageID = pageID
	}

	amtRead := 0
	for amtRead < len(p) && s.bytesRead < s.totalBytes {
		pageOffset := s.fileOffset % pageSize
		room := pageSize - pageOffset
		remaining := s.totalBytes - s.bytesRead
		want := uint32(len(p) - amtRead)
		n := want
		if room < n {
			n = room
		}
		if remaining < n {
			n = remaining
		}
		copy(p[amtRead:], s.lastPageBuf[pageOffset:pageOffset+n])
		amtRead += int(n)
		s.bytesRead += n
		s.fileOffset += n

		if amtRead < len(p) && s.bytesRead < s.totalBytes && s.fileOffset%pageSize == 0 {
			pageID = s.fileOffset / pageSize
			if !s.vs.ring.InRange(pageID) {
				return amtRead, ErrOverwritten
			}
			buf := make([]byte, pageSize)
			if err := s.vs.ring.dev.Read(buf, s.vs.ring.physicalSlot(pageID), s.vs.cfg.PageSize); err != nil {
				return amtRead, fmt.Errorf("embeddb: reading variable-data page %d: %w", pageID, err)
			}
			s.lastPageBuf = buf
			s.lastPageID = pageID
			s.fileOffset += uint32(s.vs.vl.headerSize)
		}
	}
	return amtRead, nil
}
