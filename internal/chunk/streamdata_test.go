package chunk

import (
	"testing"

	"capsule/internal/chunk/memory"
)

func TestStreamDataChunkRoundTrip(t *testing.T) {
	store := memory.NewStore()

	payload := []byte("streamed payload bytes")
	written, status := NewStreamDataChunk(0, 42, 3, len(payload))
	if status.Failure() {
		t.Fatalf("NewStreamDataChunk: %v", status)
	}
	copy(written.Payload(), payload)
	if status := written.Save(store); status.Failure() {
		t.Fatalf("Save: %v", status)
	}

	reloaded := NewStreamDataChunkForLoad(0)
	if status := reloaded.Load(store, true); status.Failure() {
		t.Fatalf("Load: %v", status)
	}
	if reloaded.StreamIdentifier() != 42 {
		t.Fatalf("StreamIdentifier() = %d, want 42", reloaded.StreamIdentifier())
	}
	if reloaded.SequenceNumber() != 3 {
		t.Fatalf("SequenceNumber() = %d, want 3", reloaded.SequenceNumber())
	}
	if reloaded.IsLast() {
		t.Fatal("IsLast() should default to false")
	}
	if string(reloaded.Payload()) != string(payload) {
		t.Fatalf("Payload() = %q, want %q", reloaded.Payload(), payload)
	}
}

func TestStreamDataChunkSetLast(t *testing.T) {
	store := memory.NewStore()

	written, status := NewStreamDataChunk(0, 1, 0, 4)
	if status.Failure() {
		t.Fatalf("NewStreamDataChunk: %v", status)
	}
	copy(written.Payload(), []byte("last"))
	written.SetLast(true)
	if status := written.Save(store); status.Failure() {
		t.Fatalf("Save: %v", status)
	}

	reloaded := NewStreamDataChunkForLoad(0)
	if status := reloaded.Load(store, true); status.Failure() {
		t.Fatalf("Load: %v", status)
	}
	if !reloaded.IsLast() {
		t.Fatal("IsLast() should be true after reload")
	}
}
