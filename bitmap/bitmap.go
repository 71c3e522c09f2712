// Package bitmap implements the fixed-width bitmap index EmbedDB
// maintains per data page for scan pruning.
//
// Bitmap encode/decode is treated as an external, caller-supplied
// collaborator (the Codec interface below). Uint64Buckets is the
// reference codec this module ships so the index page format and
// iterator pruning have something concrete to exercise; it generalizes a
// fixed-bucket integer bitmap to an arbitrary bucket count over a
// little-endian unsigned integer value of up to 8 bytes.
package bitmap

import "encoding/binary"

// Codec is the capability record a caller supplies to maintain and query a
// fixed-width bitmap summary over data values.
type Codec interface {
	// Size is the width of the bitmap in bytes.
	Size() int
	// Update ORs the bucket bit for data into bm.
	Update(data, bm []byte)
	// BuildRange fills bm with the union of buckets spanning [min, max].
	// A nil min or max means "unbounded" on that side.
	BuildRange(min, max, bm []byte)
	// Overlaps reports whether data's bucket bit is set in bm.
	Overlaps(data, bm []byte) bool
}

// Uint64Buckets is a Codec dividing the value range [0, RangeMax) into
// NumBuckets equal-width buckets, one bit per bucket. Bucket 0 (the
// lowest-valued bucket) is the most significant bit of byte 0, matching
// the original project's convention that low values set high bits.
type Uint64Buckets struct {
	NumBuckets int
	RangeMax   uint64
}

// Size returns the bitmap width in bytes for NumBuckets bits.
func (c Uint64Buckets) Size() int {
	return (c.NumBuckets + 7) / 8
}

func (c Uint64Buckets) bucketOf(v uint64) int {
	if c.RangeMax == 0 || c.NumBuckets <= 1 {
		return 0
	}
	b := int(v * uint64(c.NumBuckets) / c.RangeMax)
	if b >= c.NumBuckets {
		b = c.NumBuckets - 1
	}
	return b
}

func setBit(bm []byte, bucket int) {
	byteIdx := bucket / 8
	bitIdx := 7 - uint(bucket%8)
	bm[byteIdx] |= 1 << bitIdx
}

func bitSet(bm []byte, bucket int) bool {
	byteIdx := bucket / 8
	bitIdx := 7 - uint(bucket%8)
	return bm[byteIdx]&(1<<bitIdx) != 0
}

func decodeUint64(data []byte) uint64 {
	var buf [8]byte
	copy(buf[:], data)
	return binary.LittleEndian.Uint64(buf[:])
}

// Update sets the bit of the bucket data falls into.
func (c Uint64Buckets) Update(data, bm []byte) {
	setBit(bm, c.bucketOf(decodeUint64(data)))
}

// BuildRange sets every bucket bit that could hold a value in [min, max].
func (c Uint64Buckets) BuildRange(min, max, bm []byte) {
	if min == nil && max == nil {
		for i := range bm {
			bm[i] = 0xFF
		}
		return
	}
	lo := 0
	hi := c.NumBuckets - 1
	if min != nil {
		lo = c.bucketOf(decodeUint64(min))
	}
	if max != nil {
		hi = c.bucketOf(decodeUint64(max))
	}
	for b := lo; b <= hi; b++ {
		setBit(bm, b)
	}
}

// Overlaps reports whether data's bucket is set in bm.
func (c Uint64Buckets) Overlaps(data, bm []byte) bool {
	return bitSet(bm, c.bucketOf(decodeUint64(data)))
}
