// Package embeddb implements the EmbedDB append-only, time-series-oriented
// key-value storage engine: a paged ring-buffer store, a learned spline
// index over (key, page), an optional parallel variable-length data store,
// and an optional record-level crash-consistency protocol.
//
// The engine is single-threaded and cooperative: a DB is not safe for
// concurrent use, and the only operations that may block are calls into
// the caller-supplied device.Device.
package embeddb

import (
	"fmt"
	"log/slog"

	"github.com/embeddb/embeddb-go/bitmap"
	"github.com/embeddb/embeddb-go/device"
)

// Comparator compares two keys or two data values, returning a negative
// number, zero, or a positive number as a < b, a == b, or a > b. This is
// the capability-record style callback used throughout the package for
// caller-supplied ordering; CompareUint64 below is the default for
// integer keys/data of up to 8 bytes.
type Comparator func(a, b []byte) int

// CompareUint64 interprets a and b as little-endian unsigned integers of
// equal length (up to 8 bytes) and compares them numerically. It is the
// default Comparator used by Config.ApplyDefaults.
func CompareUint64(a, b []byte) int {
	av, bv := KeyToUint64(a), KeyToUint64(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

// Config holds the immutable-after-Open parameters of a store.
type Config struct {
	PageSize int // bytes per page, typically 512
	KeySize  int // 1-8 bytes, unsigned
	DataSize int // bytes per fixed data value

	NumDataPages  uint32 // capacity of the primary page ring
	NumIndexPages uint32 // capacity of the secondary index ring (if UseIndexFile)
	NumVarPages   uint32 // capacity of the variable-data ring (if UseVariableData)

	EraseSizeInPages   uint32 // erase-block granularity; each ring capacity must be a multiple
	BufferSizeInBlocks int    // number of in-memory page buffers

	BitmapSize      int // bytes, used when UseBitmap
	NumSplinePoints uint32
	IndexMaxError   uint32

	UseBitmap                 bool
	UseIndexFile              bool
	UseMaxMin                 bool
	UseSum                    bool
	UseVariableData           bool
	UseBinarySearch           bool
	UseRecordLevelConsistency bool
	ResetOnOpen               bool
	DisableSplineClean        bool

	CompareKey  Comparator
	CompareData Comparator
	Bitmap      bitmap.Codec

	// Logger receives diagnostic messages. A nil Logger is replaced with
	// one that discards everything.
	Logger *slog.Logger

	// DataDevice, IndexDevice, VarDevice are the block-device adapters for
	// each of the (up to) three independent page-addressed files.
	// IndexDevice is required iff UseIndexFile; VarDevice is required iff
	// UseVariableData.
	DataDevice  device.Device
	IndexDevice device.Device
	VarDevice   device.Device
}

// RecordSize is keySize + dataSize, plus 4 bytes for the variable-data
// offset when UseVariableData is set.
func (c *Config) RecordSize() int {
	n := c.KeySize + c.DataSize
	if c.UseVariableData {
		n += 4
	}
	return n
}

// ConfigError reports a configuration-level failure detected at Open.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("embeddb: invalid config field %s: %s", e.Field, e.Reason)
}

// ApplyDefaults fills in a default Comparator, Bitmap codec, and Logger
// when the caller left them nil.
func (c *Config) ApplyDefaults() {
	if c.CompareKey == nil {
		c.CompareKey = CompareUint64
	}
	if c.CompareData == nil {
		c.CompareData = CompareUint64
	}
	if c.Bitmap == nil && c.UseBitmap {
		nb := c.BitmapSize * 8
		c.Bitmap = bitmap.Uint64Buckets{NumBuckets: nb, RangeMax: 1 << 32}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}
}

// Validate checks the structural invariants that must hold before a DB
// can be opened.
func (c *Config) Validate() error {
	if c.PageSize <= 0 {
		return &ConfigError{"PageSize", "must be positive"}
	}
	if c.KeySize < 1 || c.KeySize > 8 {
		return &ConfigError{"KeySize", "must be between 1 and 8 bytes"}
	}
	if c.DataSize < 0 {
		return &ConfigError{"DataSize", "must not be negative"}
	}
	if c.EraseSizeInPages == 0 {
		return &ConfigError{"EraseSizeInPages", "must be positive"}
	}
	if c.NumDataPages%c.EraseSizeInPages != 0 {
		return &ConfigError{"NumDataPages", "must be a multiple of EraseSizeInPages"}
	}
	minRLCPages := uint32(2)
	if c.UseRecordLevelConsistency {
		minRLCPages = 2 * c.EraseSizeInPages
	}
	if c.NumDataPages <= minRLCPages {
		return &ConfigError{"NumDataPages", "too small to hold any permanent pages after reserving the RLC window"}
	}
	minBuffers := 2
	if c.UseIndexFile {
		minBuffers = 4
	}
	if c.UseIndexFile && c.UseVariableData {
		minBuffers = 6
	}
	if c.BufferSizeInBlocks < minBuffers {
		return &ConfigError{"BufferSizeInBlocks", fmt.Sprintf("must be at least %d for the enabled features", minBuffers)}
	}
	if c.UseIndexFile {
		if c.NumIndexPages == 0 || c.NumIndexPages%c.EraseSizeInPages != 0 {
			return &ConfigError{"NumIndexPages", "must be a positive multiple of EraseSizeInPages"}
		}
		if c.BitmapSize <= 0 {
			return &ConfigError{"BitmapSize", "must be positive when UseIndexFile is set"}
		}
	}
	if c.UseBitmap && c.BitmapSize <= 0 {
		return &ConfigError{"BitmapSize", "must be positive when UseBitmap is set"}
	}
	if c.UseVariableData {
		if c.NumVarPages == 0 || c.NumVarPages%c.EraseSizeInPages != 0 {
			return &ConfigError{"NumVarPages", "must be a positive multiple of EraseSizeInPages"}
		}
		total := uint64(c.NumVarPages) * uint64(c.PageSize)
		if total >= 1<<32-1 {
			return &ConfigError{"NumVarPages", "numVarPages*pageSize must be under 4GiB (32-bit offset addressing)"}
		}
	}
	if c.NumSplinePoints < 2 && !c.UseBinarySearch {
		return &ConfigError{"NumSplinePoints", "must be at least 2 unless UseBinarySearch is set"}
	}
	if c.DataDevice == nil {
		return &ConfigError{"DataDevice", "must not be nil"}
	}
	if c.UseIndexFile && c.IndexDevice == nil {
		return &ConfigError{"IndexDevice", "must not be nil when UseIndexFile is set"}
	}
	if c.UseVariableData && c.VarDevice == nil {
		return &ConfigError{"VarDevice", "must not be nil when UseVariableData is set"}
	}
	return nil
}

// discardWriter implements io.Writer by discarding everything, used to
// build the default no-op logger.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
