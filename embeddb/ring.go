package embeddb

import (
	"fmt"

	"github.com/embeddb/embeddb-go/device"
)

// ring implements the page-ring allocator: a fixed circular arena of
// pages addressed by a monotonically increasing logical id, physical
// slot = logical id mod capacity, reclaimed one erase-block at a time.
// data, index, and variable-data all use one of these; only the
// reserved-page count and the eviction hook differ.
type ring struct {
	dev       device.Device
	pageSize  int
	capacity  uint32
	eraseSize uint32
	reserved  uint32 // pages withheld from availability (e.g. 2*eraseSize for RLC)

	nextID   uint32
	minID    uint32
	numAvail int64

	// onMinAdvance is invoked after minID increases, e.g. to evict spline
	// points whose page has fallen below the new minimum.
	onMinAdvance func(newMinID uint32)
}

func newRing(dev device.Device, pageSize int, capacity, eraseSize, reserved uint32) *ring {
	return &ring{
		dev:       dev,
		pageSize:  pageSize,
		capacity:  capacity,
		eraseSize: eraseSize,
		reserved:  reserved,
		numAvail:  int64(capacity) - int64(reserved),
	}
}

func (r *ring) physicalSlot(id uint32) uint32 { return id % r.capacity }

// Allocate reserves the next logical id and, if the ring has no room left,
// erases the erase-block the new id lands in before returning. The caller
// must then write the page at the returned physical slot and call
// CommitWrite on success.
func (r *ring) Allocate() (logicalID, physicalSlot uint32, err error) {
	logicalID = r.nextID
	r.nextID++
	physicalSlot = r.physicalSlot(logicalID)

	if r.numAvail <= 0 {
		if err = r.dev.Erase(physicalSlot, physicalSlot+r.eraseSize, r.pageSize); err != nil {
			return 0, 0, fmt.Errorf("embeddb: erase before allocating page %d: %w", logicalID, err)
		}
		r.numAvail += int64(r.eraseSize)
		r.minID += r.eraseSize
		if r.onMinAdvance != nil {
			r.onMinAdvance(r.minID)
		}
	}
	return logicalID, physicalSlot, nil
}

// CommitWrite records that the page Allocate most recently handed out was
// durably written, consuming one unit of available space.
func (r *ring) CommitWrite() { r.numAvail-- }

// InRange reports whether id names a currently retrievable logical page.
func (r *ring) InRange(id uint32) bool {
	return id >= r.minID && id < r.nextID
}
