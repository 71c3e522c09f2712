package embeddb

import (
	"bytes"
	"errors"
	"testing"

	"github.com/embeddb/embeddb-go/device"
)

func newTestSearcher(t *testing.T, useBinarySearch bool, n int) (*searcher, *pagestore) {
	t.Helper()
	cfg := &Config{
		PageSize: 64, KeySize: 4, DataSize: 4,
		NumDataPages: 64, EraseSizeInPages: 4, BufferSizeInBlocks: 2,
		NumSplinePoints: 16, IndexMaxError: 4, UseMaxMin: true,
		UseBinarySearch: useBinarySearch,
		DataDevice:      device.NewMemDevice(64, 64),
	}
	ps, _ := newTestPagestore(t, cfg)
	for i := 0; i < n; i++ {
		if err := ps.Put(u32key(uint32(i)), u32data(uint32(i)), noVarData); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}
	se := newSearcher(cfg, ps.l, ps)
	return se, ps
}

func TestSearcherLookupViaSplineSearch(t *testing.T) {
	se, _ := newTestSearcher(t, false, 200)
	for i := uint32(0); i < 200; i++ {
		got, err := se.Lookup(u32key(i))
		if err != nil {
			t.Fatalf("Lookup(%d) error = %v", i, err)
		}
		if !bytes.Equal(got, u32data(i)) {
			t.Errorf("Lookup(%d) = %v, want %v", i, got, u32data(i))
		}
	}
}

func TestSearcherLookupViaBinarySearch(t *testing.T) {
	se, _ := newTestSearcher(t, true, 200)
	for i := uint32(0); i < 200; i += 7 {
		got, err := se.Lookup(u32key(i))
		if err != nil {
			t.Fatalf("Lookup(%d) error = %v", i, err)
		}
		if !bytes.Equal(got, u32data(i)) {
			t.Errorf("Lookup(%d) = %v, want %v", i, got, u32data(i))
		}
	}
}

func TestSearcherLookupFindsRecordStillInWriteBuffer(t *testing.T) {
	se, ps := newTestSearcher(t, false, 3)
	if ps.l.count(ps.buf) == 0 {
		t.Fatal("test setup produced an empty write buffer")
	}
	got, err := se.Lookup(u32key(2))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !bytes.Equal(got, u32data(2)) {
		t.Errorf("Lookup(2) = %v, want %v", got, u32data(2))
	}
}

func TestSearcherLookupMissingKeyReturnsNotFound(t *testing.T) {
	se, _ := newTestSearcher(t, false, 100)
	if _, err := se.Lookup(u32key(99999)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup() of an out-of-range key returned err = %v, want ErrNotFound", err)
	}
}
