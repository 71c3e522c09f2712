package embeddb

// KeyToUint64 reads up to 8 little-endian bytes of key into a uint64. This
// is the one place variable key width is resolved, rather than
// duplicating 32/64-bit code paths through the spline and search logic.
func KeyToUint64(key []byte) uint64 {
	var v uint64
	for i := 0; i < len(key) && i < 8; i++ {
		v |= uint64(key[i]) << (8 * uint(i))
	}
	return v
}

// PutUint64Key writes v into buf as len(buf) little-endian bytes (at most
// 8). It is used for fixed data values as well as keys.
func PutUint64Key(buf []byte, v uint64) {
	for i := 0; i < len(buf) && i < 8; i++ {
		buf[i] = byte(v >> (8 * uint(i)))
	}
}

// noVarData is the sentinel stored in a fixed record's variable-data
// offset field to mean "no variable data for this record".
const noVarData uint32 = 0xFFFFFFFF
