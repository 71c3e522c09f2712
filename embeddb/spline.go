package embeddb

// splinePoint is a (key, page) anchor on the piecewise-linear index.
// Keys are carried as uint64 — the one place key width is resolved.
type splinePoint struct {
	key  uint64
	page uint32
}

// Spline is an online greedy piecewise-linear key→page index,
// implementing the GreedySplineCorridor algorithm of Neumann & Michel
// 2008: a (lower, upper) error corridor tracked from the last committed
// point, widened or closed off as new (key, page) pairs arrive.
//
// Points live in a fixed-capacity circular arena (pointsStartIndex, count)
// so that eviction (Erase) is O(1) regardless of how many points are
// dropped.
type Spline struct {
	maxError uint32
	size     uint32

	points       []splinePoint
	startIdx     uint32
	count        uint32
	numAddCalls  uint64
	tempLast     bool
	lastKey      uint64
	lastLoc      uint32
	lower, upper splinePoint
	first        splinePoint
}

// NewSpline allocates a spline index holding up to size points, each
// segment of which is guaranteed to stay within maxError pages of the true
// page for every key added to it while the corridor was active.
func NewSpline(size uint32, maxError uint32) *Spline {
	return &Spline{
		size:     size,
		maxError: maxError,
		points:   make([]splinePoint, size),
	}
}

func (s *Spline) Count() uint32 { return s.count }

func (s *Spline) pointAt(i uint32) splinePoint {
	return s.points[(s.startIdx+i)%s.size]
}

func (s *Spline) setPointAt(i uint32, p splinePoint) {
	s.points[(s.startIdx+i)%s.size] = p
}

// splineIsLeft reports whether the ray (x1, y1) is counter-clockwise of
// (x2, y2), using a 64-bit unsigned/signed cross-product test to avoid
// overflow for 8-byte keys.
func splineIsLeft(x1 uint64, y1 int64, x2 uint64, y2 int64) bool {
	return y1*int64(x2) > y2*int64(x1)
}

// splineIsRight is the mirror image of splineIsLeft.
func splineIsRight(x1 uint64, y1 int64, x2 uint64, y2 int64) bool {
	return y1*int64(x2) < y2*int64(x1)
}

// Add incorporates a new (key, page) observation into the spline. key
// must be strictly greater than every key previously passed to Add;
// duplicate or out-of-order keys are silently ignored, since the caller
// (pagestore) already enforces monotonicity before this is ever reached.
func (s *Spline) Add(key uint64, page uint32) {
	s.numAddCalls++

	if s.numAddCalls == 1 {
		s.points[0] = splinePoint{key, page}
		s.first = splinePoint{key, page}
		s.count = 1
		s.lastKey = key
		return
	}

	if s.numAddCalls == 2 {
		lowerPage := uint32(0)
		if page >= s.maxError {
			lowerPage = page - s.maxError
		}
		s.lower = splinePoint{key, lowerPage}
		s.upper = splinePoint{key, page + s.maxError}
		s.lastKey = key
		s.lastLoc = page
	}

	if key <= s.lastKey && s.numAddCalls != 2 {
		return
	}

	if s.tempLast {
		s.count--
	}

	lastPoint := s.pointAt(s.count - 1)

	xdiff := key - lastPoint.key
	ydiff := int64(page) - int64(lastPoint.page)
	upperXDiff := s.upper.key - lastPoint.key
	upperYDiff := int64(s.upper.page) - int64(lastPoint.page)
	lowerXDiff := s.lower.key - lastPoint.key
	lowerYDiff := int64(s.lower.page) - int64(lastPoint.page)

	if s.count >= s.size {
		_ = s.Erase(1)
	}

	if splineIsLeft(xdiff, ydiff, upperXDiff, upperYDiff) || splineIsRight(xdiff, ydiff, lowerXDiff, lowerYDiff) {
		// The new point fell outside the error corridor: commit the last
		// observed point as a real spline point and reinitialize the
		// corridor around the new one.
		s.setPointAt(s.count, splinePoint{s.lastKey, s.lastLoc})
		s.count++
		s.tempLast = false

		lowerPage := uint32(0)
		if page >= s.maxError {
			lowerPage = page - s.maxError
		}
		s.lower = splinePoint{key, lowerPage}
		s.upper = splinePoint{key, page + s.maxError}

		if s.count >= s.size {
			_ = s.Erase(1)
		}
	} else {
		if splineIsLeft(upperXDiff, upperYDiff, xdiff, int64(page)+int64(s.maxError)-int64(lastPoint.page)) {
			s.upper = splinePoint{key, page + s.maxError}
		}
		lowerPage := uint32(0)
		if page >= s.maxError {
			lowerPage = page - s.maxError
		}
		if splineIsRight(lowerXDiff, lowerYDiff, xdiff, int64(lowerPage)-int64(lastPoint.page)) {
			s.lower = splinePoint{key, lowerPage}
		}
	}

	s.lastLoc = page
	s.lastKey = key
	s.setPointAt(s.count, splinePoint{key, page})
	s.count++
	s.tempLast = true
}

// Erase discards the n oldest spline points, refusing to leave fewer than
// 2 points behind.
func (s *Spline) Erase(n uint32) error {
	if n > s.count || s.count-n < 2 {
		return errSplineEraseTooMany
	}
	if n == 0 {
		return nil
	}
	s.count -= n
	s.startIdx = (s.startIdx + n) % s.size
	if s.count == 0 {
		s.numAddCalls = 0
	}
	return nil
}

// Clean drops every spline point whose page is below minPage, clamped so
// at least 2 points always remain. Called when the data ring wraps.
func (s *Spline) Clean(minPage uint32) {
	var n uint32
	for n < s.count && s.count-n > 2 && s.pointAt(n).page < minPage {
		n++
	}
	if n > 0 {
		_ = s.Erase(n)
	}
}

// Find estimates the page a key lives on, returning the estimate plus a
// [low, high] bound guaranteed to contain the true page whenever key
// falls within the spline's observed key range.
func (s *Spline) Find(key uint64) (estimate, low, high uint32) {
	if s.count == 0 {
		return 0, 0, 0
	}
	smallest := s.pointAt(0)
	largest := s.pointAt(s.count - 1)

	if key < smallest.key || s.count <= 1 {
		loc := (s.first.page + smallest.page) / 2
		return loc, s.first.page, smallest.page
	}
	if key > largest.key {
		return largest.page, largest.page, largest.page
	}

	idx := s.pointsBinarySearch(0, int32(s.count)-1, key)
	if idx == 0 {
		idx = 1
	}
	down := s.pointAt(idx - 1)
	up := s.pointAt(idx)

	var est uint32
	if up.key == down.key {
		est = down.page
	} else {
		est = uint32(int64(down.page) + int64(key-down.key)*int64(int32(up.page)-int32(down.page))/int64(up.key-down.key))
	}

	lowEst := uint32(0)
	if s.maxError <= est {
		lowEst = est - s.maxError
	}
	highEst := largest.page
	if est+s.maxError < largest.page {
		highEst = est + s.maxError
	}
	return est, lowEst, highEst
}

// pointsBinarySearch finds the spline-point index i such that
// points[i-1].key <= key <= points[i].key, i.e. the upper end of the
// segment bracketing key.
func (s *Spline) pointsBinarySearch(low, high int32, key uint64) uint32 {
	if high >= low {
		mid := low + (high-low)/2

		// If mid is zero, then low = 0 and high = 1: there is only one
		// spline segment, so return 1, the upper bound.
		if mid == 0 {
			return 1
		}

		midPoint := s.pointAt(uint32(mid))
		midMinusOne := s.pointAt(uint32(mid - 1))

		if midPoint.key >= key && midMinusOne.key <= key {
			return uint32(mid)
		}
		if midPoint.key > key {
			return s.pointsBinarySearch(low, mid-1, key)
		}
		return s.pointsBinarySearch(mid+1, high, key)
	}

	mid := low + (high-low)/2
	if mid >= high {
		return uint32(high)
	}
	return uint32(low)
}
