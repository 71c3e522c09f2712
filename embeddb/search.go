package embeddb

// searcher implements record lookup: probe the write buffer, then narrow
// a page-id candidate range with either the spline index or a plain
// binary search, linear-walk to the exact page, then do a bounded
// in-page search using the page's own linear key estimate.
type searcher struct {
	cfg *Config
	l   *layout
	ps  *pagestore

	cachedPageID uint32
	cachedValid  bool
	cachedBuf    []byte
}

func newSearcher(cfg *Config, l *layout, ps *pagestore) *searcher {
	return &searcher{cfg: cfg, l: l, ps: ps, cachedBuf: make([]byte, cfg.PageSize)}
}

// located describes where locate found a matching record.
type located struct {
	buf      []byte
	recIdx   int
	pageID   uint32
	inBuffer bool
}

// Lookup returns the data bytes for key, or ErrNotFound.
func (se *searcher) Lookup(key []byte) ([]byte, error) {
	loc, err := se.locate(key)
	if err != nil {
		return nil, err
	}
	rec := se.l.record(loc.buf, loc.recIdx)
	out := make([]byte, se.l.dataSize)
	copy(out, se.l.recordData(rec))
	return out, nil
}

// locate finds the page (or write buffer) and in-page record index
// holding key, without copying out the data value, so callers needing
// more than the fixed data (e.g. the variable-data offset) can read it
// straight from loc.buf.
func (se *searcher) locate(key []byte) (located, error) {
	wb := se.ps.buf

	if se.ps.dataRing.nextID == 0 {
		idx := se.searchNode(wb, key, false)
		if idx < 0 {
			return located{}, ErrNotFound
		}
		return located{buf: wb, recIdx: idx, inBuffer: true}, nil
	}

	if se.l.count(wb) != 0 {
		if se.cfg.CompareKey(key, se.l.pageMaxKey(wb)) > 0 {
			return located{}, ErrNotFound
		}
		if se.cfg.CompareKey(key, se.l.pageMinKey(wb)) >= 0 {
			idx := se.searchNode(wb, key, false)
			if idx < 0 {
				return located{}, ErrNotFound
			}
			return located{buf: wb, recIdx: idx, inBuffer: true}, nil
		}
	}

	var pageID uint32
	var err error
	if se.cfg.UseBinarySearch || se.ps.spl == nil {
		pageID, err = se.binarySearch(key)
	} else {
		pageID, err = se.splineSearch(key)
	}
	if err != nil {
		return located{}, err
	}

	idx := se.searchNode(se.cachedBuf, key, false)
	if idx < 0 {
		return located{}, ErrNotFound
	}
	return located{buf: se.cachedBuf, recIdx: idx, pageID: pageID}, nil
}

// searchNode performs the page-local bounded binary search of
// embedDBSearchNode: it first tries the linear-interpolation estimate of
// the key's position (valid only once maxError has been measured), then
// falls back to a full binary search of the page if the estimate looks
// unreliable. rangeQuery=true returns the first position <= key even
// when no exact match exists (used by range scans); rangeQuery=false
// requires an exact match.
func (se *searcher) searchNode(buf, key []byte, rangeQuery bool) int {
	count := se.l.count(buf)
	if count == 0 {
		return -1
	}
	middle := se.estimateKeyLocation(buf, key)

	var first, last int
	if se.ps.maxError == 0 || middle >= count || middle <= 0 {
		first, last = 0, count-1
		middle = (first + last) / 2
	} else {
		first, last = 0, count-1
	}
	if middle > last {
		middle = last
	}
	if middle < first {
		middle = first
	}

	for first <= last {
		rec := se.l.record(buf, middle)
		cmp := se.cfg.CompareKey(se.l.recordKey(rec), key)
		switch {
		case cmp < 0:
			first = middle + 1
		case cmp == 0:
			return middle
		default:
			last = middle - 1
		}
		middle = (first + last) / 2
	}
	if rangeQuery {
		return middle
	}
	return -1
}

func (se *searcher) estimateKeyLocation(buf, key []byte) int {
	n := se.l.count(buf)
	if n < 2 {
		return 0
	}
	slope := pageSlope(se.l, buf)
	if slope == 0 {
		return 0
	}
	minKey := KeyToUint64(se.l.pageMinKey(buf))
	thisKey := KeyToUint64(key)
	return int(float64(thisKey-minKey) / slope)
}

func pageSlope(l *layout, buf []byte) float64 {
	n := l.count(buf)
	if n < 2 {
		return 1
	}
	y1 := KeyToUint64(l.recordKey(l.record(buf, 0)))
	y2 := KeyToUint64(l.recordKey(l.record(buf, n-1)))
	return float64(y2-y1) / float64(n-1)
}

// binarySearch narrows [minDataPageId, nextDataPageId-1] to the single
// page whose [minKey, maxKey] bracket key, reading candidate pages
// directly with no index structure required.
func (se *searcher) binarySearch(key []byte) (uint32, error) {
	r := se.ps.dataRing
	if r.nextID == 0 {
		return 0, ErrNotFound
	}
	first, last := r.minID, r.nextID-1
	pageID := first + (last-first)/2

	for {
		if err := se.ps.readPage(pageID, se.cachedBuf); err != nil {
			return 0, err
		}
		if first >= last {
			break
		}
		if se.cfg.CompareKey(key, se.l.pageMinKey(se.cachedBuf)) < 0 {
			last = pageID - 1
			pageID = first + (last-first)/2
		} else if se.cfg.CompareKey(key, se.l.pageMaxKey(se.cachedBuf)) > 0 {
			first = pageID + 1
			pageID = first + (last-first)/2
		} else {
			break
		}
	}
	se.cachedPageID = pageID
	se.cachedValid = true
	return pageID, nil
}

// splineSearch uses the learned spline index to derive a tight
// [low, high] candidate range, then linear-walks from the estimate.
func (se *searcher) splineSearch(key []byte) (uint32, error) {
	loc, low, high := se.ps.spl.Find(KeyToUint64(key))
	r := se.ps.dataRing

	if high < r.minID {
		return 0, ErrNotFound
	}
	if low < r.minID {
		low = r.minID
		loc = (low + high) / 2
	}

	if se.cachedValid && low <= se.cachedPageID && se.cachedPageID <= high &&
		se.cfg.CompareKey(se.l.pageMinKey(se.cachedBuf), key) <= 0 &&
		se.cfg.CompareKey(se.l.pageMaxKey(se.cachedBuf), key) >= 0 {
		return se.cachedPageID, nil
	}

	return se.linearSearch(key, loc, low, high)
}

// linearSearch walks outward page by page from pageID within [low, high]
// until it finds the page whose key range brackets key.
func (se *searcher) linearSearch(key []byte, pageID, low, high uint32) (uint32, error) {
	r := se.ps.dataRing
	for {
		if pageID > high || pageID < low || low > high || pageID < r.minID || pageID >= r.nextID {
			return 0, ErrNotFound
		}
		if err := se.ps.readPage(pageID, se.cachedBuf); err != nil {
			return 0, err
		}
		se.cachedPageID = pageID
		se.cachedValid = true

		if se.cfg.CompareKey(key, se.l.pageMinKey(se.cachedBuf)) < 0 {
			if pageID == 0 {
				return 0, ErrNotFound
			}
			high = pageID - 1
			pageID--
		} else if se.cfg.CompareKey(key, se.l.pageMaxKey(se.cachedBuf)) > 0 {
			low = pageID + 1
			pageID++
		} else {
			return pageID, nil
		}
	}
}
