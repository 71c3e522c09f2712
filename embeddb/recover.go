package embeddb

import (
	"fmt"
	"sort"
)

// recoverDataRing scans every physical slot of the data ring's device and
// reconstructs nextID, minID, and numAvail from the logical ids already
// written there, so opening a store backed by a device that already
// holds data from a prior session resumes appending after the last
// record instead of silently starting to overwrite page 0. A slot is
// treated as holding a live page only if its stored record count falls
// within [1, maxRecsPage] and its stored logical id maps back to that
// same physical slot; a never-written or erased slot satisfies neither
// (an erased MemDevice slot reads back as 0xFF, which decodes to a count
// far outside that range).
//
// When spl is non-nil it is reseeded by one Add of (min key, page id)
// per recovered page, oldest first, since the spline index has no
// persistent form of its own. The returned value is the running page-interpolation max error
// across every recovered page, for the caller to install on the
// pagestore in place of the zero a fresh store starts with.
func recoverDataRing(l *layout, r *ring, spl *Spline) (uint32, error) {
	type livePage struct {
		id   uint32
		slot uint32
	}
	var pages []livePage

	buf := make([]byte, r.pageSize)
	for slot := uint32(0); slot < r.capacity; slot++ {
		if err := r.dev.Read(buf, slot, r.pageSize); err != nil {
			return 0, fmt.Errorf("embeddb: reading data page %d during recovery: %w", slot, err)
		}
		count := l.count(buf)
		if count < 1 || count > l.maxRecsPage {
			continue
		}
		id := l.pageID(buf)
		if id%r.capacity != slot {
			continue
		}
		pages = append(pages, livePage{id: id, slot: slot})
	}
	if len(pages) == 0 {
		return 0, nil
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].id < pages[j].id })

	r.minID = pages[0].id
	r.nextID = pages[len(pages)-1].id + 1
	r.numAvail = int64(r.capacity) - int64(r.reserved) - int64(r.nextID-r.minID)

	var maxErr uint32
	for _, p := range pages {
		if err := r.dev.Read(buf, p.slot, r.pageSize); err != nil {
			return 0, fmt.Errorf("embeddb: re-reading data page %d during recovery: %w", p.slot, err)
		}
		if spl != nil {
			spl.Add(KeyToUint64(l.pageMinKey(buf)), p.id)
		}
		if e := pageMaxError(l, buf); e > maxErr {
			maxErr = e
		}
	}
	return maxErr, nil
}
