package embeddb

import (
	"errors"
	"io"
	"testing"

	"github.com/embeddb/embeddb-go/device"
)

func newTestVarStore(t *testing.T, numPages, pageSize int, eraseSize uint32) *varStore {
	t.Helper()
	cfg := &Config{KeySize: 4, PageSize: pageSize, DataSize: 4, CompareKey: CompareUint64}
	dev := device.NewMemDevice(numPages, pageSize)
	if err := dev.Open(device.ModeReadWrite); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { dev.Close() })

	vl := newVarLayout(cfg)
	r := newRing(dev, pageSize, uint32(numPages), eraseSize, 0)
	return newVarStore(cfg, vl, r)
}

func TestVarStorePutStreamRoundTrip(t *testing.T) {
	vs := newTestVarStore(t, 32, 64, 4)

	payloads := []string{
		"",
		"hi",
		"a payload long enough to span more than one variable-data page of storage",
	}

	offsets := make([]uint32, len(payloads))
	for i, p := range payloads {
		off, err := vs.Put(u32key(uint32(i)), []byte(p))
		if err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
		offsets[i] = off
	}
	if err := vs.Flush(u32key(uint32(len(payloads) - 1))); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	for i, want := range payloads {
		stream, err := vs.Stream(u32key(uint32(i)), offsets[i])
		if err != nil {
			t.Fatalf("Stream(%d) error = %v", i, err)
		}
		if stream.Len() != uint32(len(want)) {
			t.Errorf("Stream(%d).Len() = %d, want %d", i, stream.Len(), len(want))
		}
		got, err := io.ReadAll(stream)
		if err != nil {
			t.Fatalf("reading stream %d: %v", i, err)
		}
		if string(got) != want {
			t.Errorf("Stream(%d) payload = %q, want %q", i, got, want)
		}
	}
}

func TestVarStoreStreamReportsOverwritten(t *testing.T) {
	vs := newTestVarStore(t, 8, 64, 2)

	firstOffset, err := vs.Put(u32key(0), []byte("the first payload ever written to this ring"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := vs.Flush(u32key(0)); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	big := make([]byte, 600)
	for i := uint32(1); i < 40; i++ {
		if _, err := vs.Put(u32key(i), big); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}
	if err := vs.Flush(u32key(39)); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if _, err := vs.Stream(u32key(0), firstOffset); !errors.Is(err, ErrOverwritten) {
		t.Errorf("Stream() of a reclaimed offset returned err = %v, want ErrOverwritten", err)
	}
}
