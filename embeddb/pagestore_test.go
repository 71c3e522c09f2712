package embeddb

import (
	"bytes"
	"errors"
	"testing"

	"github.com/embeddb/embeddb-go/device"
)

func newTestPagestore(t *testing.T, cfg *Config) (*pagestore, *layout) {
	t.Helper()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if err := cfg.DataDevice.Open(device.ModeReadWrite); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { cfg.DataDevice.Close() })

	l := newLayout(cfg)
	r := newRing(cfg.DataDevice, cfg.PageSize, cfg.NumDataPages, cfg.EraseSizeInPages, 0)
	spl := NewSpline(cfg.NumSplinePoints, cfg.IndexMaxError)
	r.onMinAdvance = func(newMinID uint32) { spl.Clean(newMinID) }
	ps := newPagestore(cfg, l, nil, r, nil, spl)
	return ps, l
}

func TestPagestorePutFlushesWhenPageFull(t *testing.T) {
	cfg := &Config{
		PageSize: 64, KeySize: 4, DataSize: 4,
		NumDataPages: 16, EraseSizeInPages: 2, BufferSizeInBlocks: 2,
		NumSplinePoints: 4, IndexMaxError: 2, UseMaxMin: true,
		DataDevice: device.NewMemDevice(16, 64),
	}
	ps, l := newTestPagestore(t, cfg)

	for i := uint32(0); i < uint32(l.maxRecsPage)+1; i++ {
		if err := ps.Put(u32key(i), u32data(i), noVarData); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}

	if ps.dataRing.nextID != 1 {
		t.Errorf("nextID after overflowing one page = %d, want 1", ps.dataRing.nextID)
	}
	if ps.spl.Count() == 0 {
		t.Errorf("spline has no points after a page flush")
	}
}

func TestPagestorePutRejectsNonMonotonicAcrossFlush(t *testing.T) {
	cfg := &Config{
		PageSize: 64, KeySize: 4, DataSize: 4,
		NumDataPages: 16, EraseSizeInPages: 2, BufferSizeInBlocks: 2,
		NumSplinePoints: 4, IndexMaxError: 2,
		DataDevice: device.NewMemDevice(16, 64),
	}
	ps, l := newTestPagestore(t, cfg)

	for i := uint32(0); i < uint32(l.maxRecsPage); i++ {
		if err := ps.Put(u32key(i), u32data(i), noVarData); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}
	if err := ps.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	last := uint32(l.maxRecsPage) - 1
	if err := ps.Put(u32key(last), u32data(last), noVarData); !errors.Is(err, ErrNonMonotonicKey) {
		t.Errorf("Put() of a duplicate key returned err = %v, want ErrNonMonotonicKey", err)
	}
}

func TestPagestoreTracksMinMaxDataAcrossPage(t *testing.T) {
	cfg := &Config{
		PageSize: 64, KeySize: 4, DataSize: 4,
		NumDataPages: 16, EraseSizeInPages: 2, BufferSizeInBlocks: 2,
		NumSplinePoints: 4, IndexMaxError: 2, UseMaxMin: true,
		DataDevice: device.NewMemDevice(16, 64),
	}
	ps, l := newTestPagestore(t, cfg)

	values := []uint32{50, 10, 90, 30}
	for i, v := range values {
		if err := ps.Put(u32key(uint32(i)), u32data(v), noVarData); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	wantMin := u32data(10)
	wantMax := u32data(90)
	if !bytes.Equal(l.minData(ps.buf), wantMin) {
		t.Errorf("minData = %v, want %v", l.minData(ps.buf), wantMin)
	}
	if !bytes.Equal(l.maxData(ps.buf), wantMax) {
		t.Errorf("maxData = %v, want %v", l.maxData(ps.buf), wantMax)
	}
}

func TestPagestoreFlushIsNoOpOnEmptyBuffer(t *testing.T) {
	cfg := &Config{
		PageSize: 64, KeySize: 4, DataSize: 4,
		NumDataPages: 16, EraseSizeInPages: 2, BufferSizeInBlocks: 2,
		NumSplinePoints: 4, IndexMaxError: 2,
		DataDevice: device.NewMemDevice(16, 64),
	}
	ps, _ := newTestPagestore(t, cfg)
	if err := ps.Flush(); err != nil {
		t.Fatalf("Flush() on an empty buffer error = %v", err)
	}
	if ps.dataRing.nextID != 0 {
		t.Errorf("nextID after flushing an empty buffer = %d, want 0", ps.dataRing.nextID)
	}
}
