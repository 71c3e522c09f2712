package device

import "testing"

func TestMemDeviceReadWrite(t *testing.T) {
	const pageSize = 64
	d := NewMemDevice(4, pageSize)
	if err := d.Open(ModeReadWrite); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	want := make([]byte, pageSize)
	for i := range want {
		want[i] = byte(i)
	}
	if err := d.Write(want, 1, pageSize); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got := make([]byte, pageSize)
	if err := d.Read(got, 1, pageSize); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMemDeviceEraseFillsFF(t *testing.T) {
	const pageSize = 32
	d := NewMemDevice(4, pageSize)
	if err := d.Open(ModeReadWrite); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	buf := make([]byte, pageSize)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := d.Write(buf, 2, pageSize); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := d.Erase(2, 4, pageSize); err != nil {
		t.Fatalf("Erase() error = %v", err)
	}

	got := make([]byte, pageSize)
	if err := d.Read(got, 2, pageSize); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	for i, b := range got {
		if b != 0xFF {
			t.Fatalf("byte %d after erase = %#x, want 0xff", i, b)
		}
	}
}

func TestMemDeviceOpsAfterCloseFail(t *testing.T) {
	d := NewMemDevice(2, 16)
	if err := d.Open(ModeReadWrite); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	buf := make([]byte, 16)
	if err := d.Read(buf, 0, 16); err != ErrClosed {
		t.Fatalf("Read() after Close err = %v, want ErrClosed", err)
	}
}
