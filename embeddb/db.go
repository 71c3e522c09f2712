package embeddb

import (
	"fmt"

	"github.com/embeddb/embeddb-go/device"
)

// DB is the top-level handle for an EmbedDB store, composing the
// page-ring allocators, the learned spline index, the page writer/reader,
// the lookup path, the optional variable-data ring and the optional
// record-level-consistency protocol behind one cooperative,
// single-threaded API.
type DB struct {
	cfg Config
	l   *layout
	il  *indexLayout
	vl  *varLayout

	dataRing  *ring
	indexRing *ring
	varRing   *ring

	spl *Spline
	ps  *pagestore
	se  *searcher
	vs  *varStore
	rlc *rlc

	closed bool
}

// Open constructs and validates a DB from cfg. cfg is copied; the caller
// retains ownership of the Comparator/Bitmap/Logger/Device values it
// references, but must not mutate the Config afterwards.
func Open(cfg Config) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db := &DB{cfg: cfg}
	db.l = newLayout(&db.cfg)

	if err := cfg.DataDevice.Open(device.ModeReadWrite); err != nil {
		return nil, fmt.Errorf("embeddb: opening data device: %w", err)
	}

	reserved := uint32(0)
	if cfg.UseRecordLevelConsistency {
		reserved = 2 * cfg.EraseSizeInPages
	}
	db.dataRing = newRing(cfg.DataDevice, cfg.PageSize, cfg.NumDataPages, cfg.EraseSizeInPages, reserved)

	db.cfg.Logger.Debug("embeddb: opened data device", "pages", cfg.NumDataPages, "pageSize", cfg.PageSize)

	if cfg.UseIndexFile {
		db.il = newIndexLayout(&db.cfg)
		if err := cfg.IndexDevice.Open(device.ModeReadWrite); err != nil {
			return nil, fmt.Errorf("embeddb: opening index device: %w", err)
		}
		db.indexRing = newRing(cfg.IndexDevice, cfg.PageSize, cfg.NumIndexPages, cfg.EraseSizeInPages, 0)
	}

	if !cfg.UseBinarySearch {
		db.spl = NewSpline(cfg.NumSplinePoints, cfg.IndexMaxError)
		db.dataRing.onMinAdvance = func(newMinID uint32) {
			if !db.cfg.DisableSplineClean {
				db.spl.Clean(newMinID)
			}
		}
	}

	var recoveredMaxError uint32
	if !cfg.ResetOnOpen {
		var err error
		recoveredMaxError, err = recoverDataRing(db.l, db.dataRing, db.spl)
		if err != nil {
			return nil, fmt.Errorf("embeddb: recovering data ring: %w", err)
		}
		if db.dataRing.nextID > 0 {
			db.cfg.Logger.Info("embeddb: recovered data ring from prior session",
				"nextDataPageID", db.dataRing.nextID, "minDataPageID", db.dataRing.minID)
		}
	}

	db.ps = newPagestore(&db.cfg, db.l, db.il, db.dataRing, db.indexRing, db.spl)
	db.ps.maxError = recoveredMaxError
	db.se = newSearcher(&db.cfg, db.l, db.ps)

	if cfg.UseVariableData {
		db.vl = newVarLayout(&db.cfg)
		if err := cfg.VarDevice.Open(device.ModeReadWrite); err != nil {
			return nil, fmt.Errorf("embeddb: opening variable-data device: %w", err)
		}
		db.varRing = newRing(cfg.VarDevice, cfg.PageSize, cfg.NumVarPages, cfg.EraseSizeInPages, 0)
		db.vs = newVarStore(&db.cfg, db.vl, db.varRing)
	}

	if cfg.UseRecordLevelConsistency {
		db.rlc = newRLC(cfg.DataDevice, cfg.PageSize, cfg.EraseSizeInPages, cfg.NumDataPages, db.l)
		if !cfg.ResetOnOpen {
			found, err := db.rlc.Recover(db.ps.buf, db.dataRing.nextID)
			if err != nil {
				return nil, fmt.Errorf("embeddb: recovering record-level-consistency state: %w", err)
			}
			if found {
				db.cfg.Logger.Info("embeddb: recovered in-progress page from RLC scratch window", "pageID", db.l.pageID(db.ps.buf))
			}
		}
	}

	return db, nil
}

// Put appends one fixed-size record. key must compare strictly greater
// than every key previously inserted.
func (db *DB) Put(key, data []byte) error {
	if db.closed {
		return ErrClosed
	}
	if len(key) != db.cfg.KeySize {
		return fmt.Errorf("embeddb: key must be %d bytes, got %d", db.cfg.KeySize, len(key))
	}
	if len(data) != db.cfg.DataSize {
		return fmt.Errorf("embeddb: data must be %d bytes, got %d", db.cfg.DataSize, len(data))
	}
	return db.put(key, data, noVarData)
}

func (db *DB) put(key, data []byte, varOffset uint32) error {
	wrotePage := db.ps.l.count(db.ps.buf) >= db.ps.l.maxRecsPage
	if err := db.ps.Put(key, data, varOffset); err != nil {
		return err
	}

	if db.rlc != nil {
		if wrotePage && db.dataRing.nextID%db.cfg.EraseSizeInPages == 0 {
			if _, err := db.rlc.ShiftBlocks(db.dataRing.minID); err != nil {
				return err
			}
		}
		if err := db.rlc.WriteTemporary(db.ps.buf, db.dataRing.nextID); err != nil {
			return err
		}
	}
	return nil
}

// PutVar appends a record together with a variable-length payload.
// A nil payload behaves like Put: the record's variable-data offset is
// set to the "no variable data" sentinel.
func (db *DB) PutVar(key, data, varData []byte) error {
	if db.closed {
		return ErrClosed
	}
	if !db.cfg.UseVariableData {
		return ErrVarDataDisabled
	}
	if len(key) != db.cfg.KeySize {
		return fmt.Errorf("embeddb: key must be %d bytes, got %d", db.cfg.KeySize, len(key))
	}
	if len(data) != db.cfg.DataSize {
		return fmt.Errorf("embeddb: data must be %d bytes, got %d", db.cfg.DataSize, len(data))
	}

	if varData == nil {
		return db.put(key, data, noVarData)
	}

	offset, err := db.vs.Put(key, varData)
	if err != nil {
		return err
	}
	if err := db.put(key, data, offset); err != nil {
		return err
	}
	if db.cfg.UseRecordLevelConsistency {
		return db.vs.Flush(key)
	}
	return nil
}

// Get returns the fixed data value stored for key, or ErrNotFound.
func (db *DB) Get(key []byte) ([]byte, error) {
	if db.closed {
		return nil, ErrClosed
	}
	if len(key) != db.cfg.KeySize {
		return nil, fmt.Errorf("embeddb: key must be %d bytes, got %d", db.cfg.KeySize, len(key))
	}
	return db.se.Lookup(key)
}

// GetVar returns the fixed data value and, if the record has one, a
// stream over its variable-length payload. The returned stream is nil
// (with no error) when the record has no variable data. If the payload
// has already been reclaimed by ring wrap, GetVar returns the fixed data
// together with ErrOverwritten.
func (db *DB) GetVar(key []byte) ([]byte, *VarDataStream, error) {
	if db.closed {
		return nil, nil, ErrClosed
	}
	if !db.cfg.UseVariableData {
		return nil, nil, ErrVarDataDisabled
	}
	if len(key) != db.cfg.KeySize {
		return nil, nil, fmt.Errorf("embeddb: key must be %d bytes, got %d", db.cfg.KeySize, len(key))
	}

	loc, err := db.se.locate(key)
	if err != nil {
		return nil, nil, err
	}
	rec := db.l.record(loc.buf, loc.recIdx)
	data := make([]byte, db.l.dataSize)
	copy(data, db.l.recordData(rec))

	offset := db.l.recordVarOffset(rec)
	if offset == noVarData {
		return data, nil, nil
	}

	stream, err := db.vs.Stream(key, offset)
	if err != nil {
		return data, nil, err
	}
	return data, stream, nil
}

// Flush durably writes any buffered, not-yet-page-full records to every
// device in use.
func (db *DB) Flush() error {
	if db.closed {
		return ErrClosed
	}
	if err := db.ps.Flush(); err != nil {
		return err
	}
	if db.vs != nil {
		lastKey := make([]byte, db.cfg.KeySize)
		if db.ps.l.count(db.ps.buf) > 0 {
			copy(lastKey, db.ps.l.recordKey(db.ps.l.record(db.ps.buf, db.ps.l.count(db.ps.buf)-1)))
		}
		if err := db.vs.Flush(lastKey); err != nil {
			return err
		}
		if err := db.varRing.dev.Flush(); err != nil {
			return fmt.Errorf("embeddb: flushing variable-data device: %w", err)
		}
	}
	if db.indexRing != nil {
		if err := db.indexRing.dev.Flush(); err != nil {
			return fmt.Errorf("embeddb: flushing index device: %w", err)
		}
	}
	return nil
}

// Close flushes buffered data and releases every configured device.
func (db *DB) Close() error {
	if db.closed {
		return nil
	}

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(db.Flush())
	db.closed = true
	record(db.cfg.DataDevice.Close())
	if db.cfg.IndexDevice != nil {
		record(db.cfg.IndexDevice.Close())
	}
	if db.cfg.VarDevice != nil {
		record(db.cfg.VarDevice.Close())
	}
	return firstErr
}

// Stats reports counters useful for tuning page size, spline error, and
// buffer counts.
type Stats struct {
	NextDataPageID uint32
	MinDataPageID  uint32
	SplinePoints   uint32
	MaxError       uint32
}

func (db *DB) Stats() Stats {
	s := Stats{
		NextDataPageID: db.dataRing.nextID,
		MinDataPageID:  db.dataRing.minID,
		MaxError:       db.ps.maxError,
	}
	if db.spl != nil {
		s.SplinePoints = db.spl.Count()
	}
	return s
}
