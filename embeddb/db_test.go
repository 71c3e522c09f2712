package embeddb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/embeddb/embeddb-go/device"
)

func u32key(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func u32data(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v*7+1)
	return b
}

func newTestDB(t *testing.T, configure func(*Config)) *DB {
	t.Helper()
	cfg := Config{
		PageSize:           64,
		KeySize:            4,
		DataSize:           4,
		NumDataPages:       64,
		EraseSizeInPages:   4,
		BufferSizeInBlocks: 2,
		NumSplinePoints:    8,
		IndexMaxError:      4,
		UseMaxMin:          true,
		DataDevice:         device.NewMemDevice(64, 64),
	}
	if configure != nil {
		configure(&cfg)
	}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDBPutGetRoundTrip(t *testing.T) {
	db := newTestDB(t, nil)

	const n = 300
	for i := uint32(0); i < n; i++ {
		if err := db.Put(u32key(i), u32data(i)); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}
	if err := db.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	for i := uint32(0); i < n; i++ {
		got, err := db.Get(u32key(i))
		if err != nil {
			t.Fatalf("Get(%d) error = %v", i, err)
		}
		if !bytes.Equal(got, u32data(i)) {
			t.Errorf("Get(%d) = %v, want %v", i, got, u32data(i))
		}
	}
}

func TestDBGetMissingKeyReturnsNotFound(t *testing.T) {
	db := newTestDB(t, nil)
	for i := uint32(0); i < 20; i++ {
		if err := db.Put(u32key(i*2), u32data(i)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	_, err := db.Get(u32key(3))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() of an absent key returned err = %v, want ErrNotFound", err)
	}

	_, err = db.Get(u32key(9999))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() past the largest key returned err = %v, want ErrNotFound", err)
	}
}

func TestDBPutRejectsNonMonotonicKeys(t *testing.T) {
	db := newTestDB(t, nil)
	if err := db.Put(u32key(10), u32data(10)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := db.Put(u32key(10), u32data(10)); !errors.Is(err, ErrNonMonotonicKey) {
		t.Errorf("Put() of a duplicate key returned err = %v, want ErrNonMonotonicKey", err)
	}
	if err := db.Put(u32key(5), u32data(5)); !errors.Is(err, ErrNonMonotonicKey) {
		t.Errorf("Put() of a lesser key returned err = %v, want ErrNonMonotonicKey", err)
	}
}

func TestDBOperationsFailAfterClose(t *testing.T) {
	db := newTestDB(t, nil)
	if err := db.Put(u32key(1), u32data(1)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.Put(u32key(2), u32data(2)); !errors.Is(err, ErrClosed) {
		t.Errorf("Put() after Close() returned err = %v, want ErrClosed", err)
	}
	if _, err := db.Get(u32key(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after Close() returned err = %v, want ErrClosed", err)
	}
}

func TestDBPutVarAndGetVarRoundTrip(t *testing.T) {
	db := newTestDB(t, func(c *Config) {
		c.UseVariableData = true
		c.NumVarPages = 16
		c.VarDevice = device.NewMemDevice(16, 64)
	})

	payloads := map[uint32]string{
		0:  "",
		1:  "hello",
		2:  "a longer payload that spans more than one page of variable data storage",
		10: "short",
	}

	for i := uint32(0); i < 20; i++ {
		var vd []byte
		if p, ok := payloads[i]; ok {
			vd = []byte(p)
		}
		if err := db.PutVar(u32key(i), u32data(i), vd); err != nil {
			t.Fatalf("PutVar(%d) error = %v", i, err)
		}
	}
	if err := db.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	for i := uint32(0); i < 20; i++ {
		data, stream, err := db.GetVar(u32key(i))
		if err != nil {
			t.Fatalf("GetVar(%d) error = %v", i, err)
		}
		if !bytes.Equal(data, u32data(i)) {
			t.Errorf("GetVar(%d) fixed data = %v, want %v", i, data, u32data(i))
		}
		want, hasVar := payloads[i]
		if !hasVar {
			if stream != nil {
				t.Errorf("GetVar(%d) returned a stream for a record with no variable data", i)
			}
			continue
		}
		if stream == nil {
			t.Fatalf("GetVar(%d) returned a nil stream for a record with variable data", i)
		}
		got, err := io.ReadAll(stream)
		if err != nil {
			t.Fatalf("reading stream for key %d: %v", i, err)
		}
		if string(got) != want {
			t.Errorf("GetVar(%d) payload = %q, want %q", i, got, want)
		}
	}
}

func TestDBIteratorRespectsKeyBounds(t *testing.T) {
	db := newTestDB(t, nil)
	for i := uint32(0); i < 50; i++ {
		if err := db.Put(u32key(i), u32data(i)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	if err := db.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	it := db.NewIterator(IteratorOptions{MinKey: u32key(10), MaxKey: u32key(15)})
	defer it.Close()

	var got []uint32
	for it.Next() {
		got = append(got, binary.LittleEndian.Uint32(it.Key()))
	}
	want := []uint32{10, 11, 12, 13, 14, 15}
	if len(got) != len(want) {
		t.Fatalf("iterator returned %d records, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("iterator record %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDBFlushIsIdempotentOnEmptyBuffer(t *testing.T) {
	db := newTestDB(t, nil)
	if err := db.Flush(); err != nil {
		t.Fatalf("Flush() on an empty buffer error = %v", err)
	}
	if err := db.Flush(); err != nil {
		t.Fatalf("second Flush() on an empty buffer error = %v", err)
	}
}

func TestDBRecordLevelConsistencyWritesTemporaryPages(t *testing.T) {
	db := newTestDB(t, func(c *Config) {
		c.UseRecordLevelConsistency = true
		c.NumDataPages = 32
		c.DataDevice = device.NewMemDevice(32, 64)
	})
	for i := uint32(0); i < 40; i++ {
		if err := db.Put(u32key(i), u32data(i)); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}
	scratch := make([]byte, 64)
	found, err := db.rlc.Recover(scratch, db.dataRing.nextID)
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if !found || db.l.count(scratch) != db.l.count(db.ps.buf) {
		t.Errorf("RLC scratch copy of the in-progress page: found = %v, count = %d, want count %d", found, db.l.count(scratch), db.l.count(db.ps.buf))
	}
	got, err := db.Get(u32key(5))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, u32data(5)) {
		t.Errorf("Get(5) = %v, want %v", got, u32data(5))
	}
}

func TestDBOpenRecoversDataRingFromPriorSession(t *testing.T) {
	dev := device.NewMemDevice(64, 64)
	cfg := Config{
		PageSize:           64,
		KeySize:            4,
		DataSize:           4,
		NumDataPages:       64,
		EraseSizeInPages:   4,
		BufferSizeInBlocks: 2,
		NumSplinePoints:    8,
		IndexMaxError:      4,
		UseMaxMin:          true,
		DataDevice:         dev,
	}

	db1, err := Open(cfg)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	const n = 100
	for i := uint32(0); i < n; i++ {
		if err := db1.Put(u32key(i), u32data(i)); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}
	if err := db1.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	wantNextID := db1.dataRing.nextID
	if wantNextID == 0 {
		t.Fatal("test setup wrote no full pages")
	}
	if err := db1.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	db2, err := Open(cfg)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	t.Cleanup(func() { db2.Close() })

	if db2.dataRing.nextID != wantNextID {
		t.Errorf("after reopen, nextDataPageID = %d, want %d", db2.dataRing.nextID, wantNextID)
	}
	if db2.spl.Count() == 0 {
		t.Error("after reopen, spline was not reseeded from recovered pages")
	}

	for i := uint32(0); i < n; i++ {
		got, err := db2.Get(u32key(i))
		if err != nil {
			t.Fatalf("Get(%d) after reopen error = %v", i, err)
		}
		if !bytes.Equal(got, u32data(i)) {
			t.Errorf("Get(%d) after reopen = %v, want %v", i, got, u32data(i))
		}
	}

	if err := db2.Put(u32key(n), u32data(n)); err != nil {
		t.Fatalf("Put() after reopen error = %v", err)
	}
	if err := db2.Flush(); err != nil {
		t.Fatalf("Flush() after reopen error = %v", err)
	}
	got, err := db2.Get(u32key(n))
	if err != nil {
		t.Fatalf("Get(%d) of a post-reopen write error = %v", n, err)
	}
	if !bytes.Equal(got, u32data(n)) {
		t.Errorf("Get(%d) of a post-reopen write = %v, want %v", n, got, u32data(n))
	}
}

func TestDBStatsReportsSplineGrowth(t *testing.T) {
	db := newTestDB(t, nil)
	for i := uint32(0); i < 200; i++ {
		if err := db.Put(u32key(i), u32data(i)); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}
	s := db.Stats()
	if s.SplinePoints == 0 {
		t.Errorf("Stats().SplinePoints = 0 after 200 inserts")
	}
	if s.NextDataPageID == 0 {
		t.Errorf("Stats().NextDataPageID = 0 after 200 inserts")
	}
}
