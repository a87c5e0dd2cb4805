package hashstore

import "testing"

func TestHeaderMarshalRoundTrip(t *testing.T) {
	h := fileHeader{rootBits: 12, elements: 5, dependencies: 2, solvedDependencies: 1}
	buf := h.marshal()
	if len(buf) != headerSize {
		t.Fatalf("marshal length = %d, want %d", len(buf), headerSize)
	}
	got, err := unmarshalHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("unmarshalHeader() = %+v, want %+v", got, h)
	}
}

func TestHeaderBadMagic(t *testing.T) {
	buf := make([]byte, headerSize)
	copy(buf, []byte("GARBAGE!"))
	_, err := unmarshalHeader(buf)
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestRootTableSize(t *testing.T) {
	if got := rootTableSize(0); got != 8 {
		t.Fatalf("rootTableSize(0) = %d, want 8", got)
	}
	if got := rootTableSize(8); got != 256*8 {
		t.Fatalf("rootTableSize(8) = %d, want %d", got, 256*8)
	}
}
