package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embeddb/embeddb-go/device"
	"github.com/embeddb/embeddb-go/embeddb"
)

// storeFlags holds the configuration flags every subcommand needs to
// rebuild the same Config a real embedded deployment would compile in:
// EmbedDB's on-disk pages carry no self-describing header, so the config
// must be supplied identically on every invocation.
type storeFlags struct {
	path          string
	pageSize      int
	keySize       int
	dataSize      int
	numDataPages  uint32
	eraseSize     uint32
	bufferBlocks  int
	splinePoints  uint32
	maxError      uint32
	useBitmap     bool
	bitmapSize    int
	useIndex      bool
	numIndexPages uint32
}

func newStoreFlags(root *cobra.Command) *storeFlags {
	f := &storeFlags{}
	pf := root.PersistentFlags()
	pf.StringVar(&f.path, "file", "embeddb.dat", "path to the backing data file")
	pf.IntVar(&f.pageSize, "page-size", 512, "bytes per page")
	pf.IntVar(&f.keySize, "key-size", 4, "key width in bytes (1-8)")
	pf.IntVar(&f.dataSize, "data-size", 4, "fixed data width in bytes")
	pf.Uint32Var(&f.numDataPages, "data-pages", 1024, "capacity of the primary page ring")
	pf.Uint32Var(&f.eraseSize, "erase-size", 4, "erase-block granularity in pages")
	pf.IntVar(&f.bufferBlocks, "buffer-blocks", 2, "number of in-memory page buffers")
	pf.Uint32Var(&f.splinePoints, "spline-points", 64, "spline index capacity")
	pf.Uint32Var(&f.maxError, "max-error", 4, "spline index max error in pages")
	pf.BoolVar(&f.useBitmap, "bitmap", false, "maintain a per-page bitmap summary")
	pf.IntVar(&f.bitmapSize, "bitmap-size", 1, "bitmap width in bytes, used when --bitmap is set")
	pf.BoolVar(&f.useIndex, "index-file", false, "maintain a secondary index file of page bitmaps")
	pf.Uint32Var(&f.numIndexPages, "index-pages", 64, "capacity of the secondary index ring, used when --index-file is set")
	return f
}

func (f *storeFlags) config(resetOnOpen bool) embeddb.Config {
	cfg := embeddb.Config{
		PageSize:           f.pageSize,
		KeySize:            f.keySize,
		DataSize:           f.dataSize,
		NumDataPages:       f.numDataPages,
		EraseSizeInPages:   f.eraseSize,
		BufferSizeInBlocks: f.bufferBlocks,
		NumSplinePoints:    f.splinePoints,
		IndexMaxError:      f.maxError,
		UseMaxMin:          true,
		UseBitmap:          f.useBitmap,
		BitmapSize:         f.bitmapSize,
		UseIndexFile:       f.useIndex,
		NumIndexPages:      f.numIndexPages,
		ResetOnOpen:        resetOnOpen,
		DataDevice:         device.NewDirectFile(f.path, int(f.numDataPages), f.pageSize),
	}
	if f.useIndex {
		cfg.IndexDevice = device.NewDirectFile(f.path+".idx", int(f.numIndexPages), f.pageSize)
	}
	return cfg
}

func (f *storeFlags) open(resetOnOpen bool) (*embeddb.DB, error) {
	db, err := embeddb.Open(f.config(resetOnOpen))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.path, err)
	}
	return db, nil
}
