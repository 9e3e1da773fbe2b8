package segment

import (
	"bytes"
	"testing"

	"github.com/sharingway-go/sharingway/internal/sherrors"
)

func TestWriteReadRoundTrip(t *testing.T) {
	seg, err := Open("sharingway-test-roundtrip", 1024)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer seg.Close()

	payload := []byte(`{"n":1}`)
	if err := seg.WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := seg.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestReadEmptyBeforeAnyWrite(t *testing.T) {
	seg, err := Open("sharingway-test-empty", 1024)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer seg.Close()

	if _, err := seg.ReadFrame(); !sherrors.Is(err, sherrors.ErrEmpty) {
		t.Fatalf("want ErrEmpty, got %v", err)
	}
}

func TestWriteOversizeRejected(t *testing.T) {
	seg, err := Open("sharingway-test-oversize", 16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer seg.Close()

	big := make([]byte, 64)
	if err := seg.WriteFrame(big); !sherrors.Is(err, sherrors.ErrOversize) {
		t.Fatalf("want ErrOversize, got %v", err)
	}

	// Oversize write must leave the segment untouched.
	if _, err := seg.ReadFrame(); !sherrors.Is(err, sherrors.ErrEmpty) {
		t.Fatalf("want ErrEmpty after rejected write, got %v", err)
	}
}

func TestAttachSharesState(t *testing.T) {
	a, err := Open("sharingway-test-shared", 1024)
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	defer a.Close()

	b, err := Open("sharingway-test-shared", 1024)
	if err != nil {
		t.Fatalf("Open b: %v", err)
	}
	defer b.Close()

	if err := a.WriteFrame([]byte("hello")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := b.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame via b: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	seg, err := Open("sharingway-test-close", 1024)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := seg.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := seg.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := seg.ReadFrame(); !sherrors.Is(err, sherrors.ErrNotAttached) {
		t.Fatalf("want ErrNotAttached after Close, got %v", err)
	}
}
