package memory

import "testing"

func TestRoomStoreLifecycle(t *testing.T) {
	store := NewRoomStore()

	room := store.GetOrCreate("r1")
	if room == nil {
		t.Fatalf("expected room")
	}
	if _, ok := store.Get("r1"); !ok {
		t.Fatalf("expected room present")
	}
	if again := store.GetOrCreate("r1"); again != room {
		t.Fatalf("expected idempotent creation to return the same room")
	}

	store.DeleteIfEmpty("r1")
	if _, ok := store.Get("r1"); ok {
		t.Fatalf("expected empty room removed")
	}
}
