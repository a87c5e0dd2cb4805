package hashstore

import "testing"

func TestGarbageRatioNoGarbage(t *testing.T) {
	s := openTestStore(t, 4)
	for i := 0; i < 10; i++ {
		if _, err := s.SetUnchecked(keyOf(byte(i+1)), []byte{byte(i)}, uint32(i)); err != nil {
			t.Fatal(err)
		}
	}
	ratio, err := s.GarbageRatio()
	if err != nil {
		t.Fatal(err)
	}
	if ratio != 0 {
		t.Fatalf("GarbageRatio() = %f, want 0 (every record reachable)", ratio)
	}
}

func TestGarbageRatioEmptyStore(t *testing.T) {
	s := openTestStore(t, 4)
	ratio, err := s.GarbageRatio()
	if err != nil {
		t.Fatal(err)
	}
	if ratio != 0 {
		t.Fatalf("GarbageRatio() on empty store = %f, want 0", ratio)
	}
}

func TestGarbageRatioAfterSupersedingWrites(t *testing.T) {
	s := openTestStore(t, 0) // one bucket: every key supersedes the prior chain head
	k := keyOf(1)
	for i := 0; i < 5; i++ {
		if _, err := s.SetUnchecked(k, []byte{byte(i)}, uint32(i)); err != nil {
			t.Fatal(err)
		}
	}
	// All 5 writes are real chain links (same bucket, newest-to-oldest),
	// so none are garbage even though only the newest is visible via Get.
	ratio, err := s.GarbageRatio()
	if err != nil {
		t.Fatal(err)
	}
	if ratio != 0 {
		t.Fatalf("GarbageRatio() = %f, want 0 (chained, not orphaned)", ratio)
	}
}
