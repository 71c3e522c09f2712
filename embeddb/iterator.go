package embeddb

// IteratorOptions bounds a range scan: any bound left nil is
// unconstrained. MinKey/MaxKey/MinData/MaxData must each be the
// configured key or data width when set.
type IteratorOptions struct {
	MinKey  []byte
	MaxKey  []byte
	MinData []byte
	MaxData []byte
}

// Iterator walks matching records in key order, skipping whole data
// pages the bitmap index proves cannot match.
type Iterator struct {
	db   *DB
	opts IteratorOptions

	queryBitmap []byte

	nextDataPage uint32
	nextDataRec  int

	buf        []byte
	key        []byte
	data       []byte
	searchBuf  bool
	exhausted  bool
	lastRecIdx int
}

// NewIterator creates a range-scan cursor. Call Next to advance it and
// Close when done (Close does nothing and never fails; it is present for
// cursor lifecycle symmetry).
func (db *DB) NewIterator(opts IteratorOptions) *Iterator {
	it := &Iterator{
		db:   db,
		opts: opts,
		buf:  make([]byte, db.cfg.PageSize),
		key:  make([]byte, db.cfg.KeySize),
		data: make([]byte, db.cfg.DataSize),
	}

	if db.cfg.UseBitmap && (opts.MinData != nil || opts.MaxData != nil) {
		it.queryBitmap = make([]byte, db.cfg.BitmapSize)
		db.cfg.Bitmap.BuildRange(opts.MinData, opts.MaxData, it.queryBitmap)
	}

	if db.spl != nil && db.spl.Count() != 0 && opts.MinKey != nil {
		_, low, _ := db.spl.Find(KeyToUint64(opts.MinKey))
		if low < db.dataRing.minID {
			low = db.dataRing.minID
		}
		it.nextDataPage = low
	} else {
		it.nextDataPage = db.dataRing.minID
	}
	return it
}

// Close releases the iterator's resources.
func (it *Iterator) Close() {}

// Next advances the iterator and reports whether a record was found. On
// true, Key and Value return the matched record.
func (it *Iterator) Next() bool {
	if it.exhausted {
		return false
	}
	db := it.db

	for {
		if it.nextDataPage > db.dataRing.nextID {
			it.exhausted = true
			return false
		}
		searchWriteBuf := it.nextDataPage == db.dataRing.nextID

		if it.nextDataRec == 0 && it.queryBitmap != nil && db.indexRing != nil {
			skip, err := it.shouldSkipPage(it.nextDataPage)
			if err == nil && skip {
				it.nextDataPage++
				continue
			}
		}

		var buf []byte
		if searchWriteBuf {
			buf = db.ps.buf
		} else {
			if err := db.ps.readPage(it.nextDataPage, it.buf); err != nil {
				it.exhausted = true
				return false
			}
			buf = it.buf
		}

		count := db.l.count(buf)
		for it.nextDataRec < count {
			rec := db.l.record(buf, it.nextDataRec)
			copy(it.key, db.l.recordKey(rec))
			copy(it.data, db.l.recordData(rec))
			it.lastRecIdx = it.nextDataRec
			it.nextDataRec++

			if it.opts.MinKey != nil && db.cfg.CompareKey(it.key, it.opts.MinKey) < 0 {
				continue
			}
			if it.opts.MaxKey != nil && db.cfg.CompareKey(it.key, it.opts.MaxKey) > 0 {
				it.exhausted = true
				return false
			}
			if it.opts.MinData != nil && db.cfg.CompareData(it.data, it.opts.MinData) < 0 {
				continue
			}
			if it.opts.MaxData != nil && db.cfg.CompareData(it.data, it.opts.MaxData) > 0 {
				continue
			}
			it.searchBuf = searchWriteBuf
			return true
		}

		it.nextDataPage++
		it.nextDataRec = 0
	}
}

func (it *Iterator) shouldSkipPage(dataPageID uint32) (bool, error) {
	db := it.db
	idxPage := dataPageID / uint32(db.il.maxEntries)
	idxRec := int(dataPageID % uint32(db.il.maxEntries))

	if !db.indexRing.InRange(idxPage) {
		return false, nil
	}
	buf := make([]byte, db.cfg.PageSize)
	if err := db.indexRing.dev.Read(buf, db.indexRing.physicalSlot(idxPage), db.cfg.PageSize); err != nil {
		return false, err
	}
	bm := db.il.bitmapAt(buf, idxRec)
	return !bitsetsOverlap(bm, it.queryBitmap), nil
}

// bitsetsOverlap reports whether two same-sized bitmaps share any set
// bit, used to decide whether a data page's bitmap summary could contain
// a record matching the iterator's query range.
func bitsetsOverlap(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i]&b[i] != 0 {
			return true
		}
	}
	return false
}

// Key returns the most recently matched record's key.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the most recently matched record's fixed data.
func (it *Iterator) Value() []byte { return it.data }

// ValueVar returns a stream over the current record's variable-length
// payload, or nil if it has none. It must be called before the next call
// to Next.
func (it *Iterator) ValueVar() (*VarDataStream, error) {
	db := it.db
	if !db.cfg.UseVariableData {
		return nil, ErrVarDataDisabled
	}

	var buf []byte
	if it.searchBuf {
		buf = db.ps.buf
	} else {
		if err := db.ps.readPage(it.nextDataPage, it.buf); err != nil {
			return nil, err
		}
		buf = it.buf
	}

	rec := db.l.record(buf, it.lastRecIdx)
	offset := db.l.recordVarOffset(rec)
	if offset == noVarData {
		return nil, nil
	}
	return db.vs.Stream(it.key, offset)
}
