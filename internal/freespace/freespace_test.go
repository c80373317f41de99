package freespace

import (
	"testing"

	"capsule/internal/chunk"
	"capsule/internal/chunk/memory"
)

func TestHandleAssignmentCopiesAreaAndID(t *testing.T) {
	m := New(nil)
	h1 := m.Insert(0, 1, false)
	if h1.StartingIndex() != 0 || h1.AreaSize() != 1 {
		t.Fatalf("h1 after Insert = (%d,%d), want (0,1)", h1.StartingIndex(), h1.AreaSize())
	}

	// h1 is reassigned to a second, unrelated handle at (3,4) that tracks
	// the map's end sentinel, mirroring the source's reassignment-to-the-
	// end-iterator scenario.
	area := chunk.NewContainerArea(3, 4)
	h2 := FreeSpace{}
	h2 = newHandleForTest(area, 0)

	h1 = h2
	if h1.StartingIndex() != 3 || h1.AreaSize() != 4 {
		t.Fatalf("h1 after h1=h2 = (%d,%d), want (3,4)", h1.StartingIndex(), h1.AreaSize())
	}
	if !h1.AtEnd() {
		t.Fatal("h1 should track the end sentinel after h1=h2")
	}
}

// newHandleForTest builds a FreeSpace with an explicit area/id pair; the
// freespace package itself never needs this outside tests, since real
// handles are always minted by Map operations.
func newHandleForTest(area chunk.ContainerArea, id uint64) FreeSpace {
	return FreeSpace{area: area, id: id}
}

func TestReserveSplitsAndReleaseCoalesces(t *testing.T) {
	m := New(nil)
	store := memory.NewStore()
	m.Insert(0, 4096, false)

	h, status := m.Reserve(store, 128)
	if status.Failure() {
		t.Fatalf("Reserve: %v", status)
	}
	if h.StartingIndex() != 0 || h.AreaSize() != 128 {
		t.Fatalf("reserved handle = (%d,%d), want (0,128)", h.StartingIndex(), h.AreaSize())
	}
	if len(m.entries) != 2 {
		t.Fatalf("expected a split into 2 entries, got %d", len(m.entries))
	}

	if status := m.Release(h); status.Failure() {
		t.Fatalf("Release: %v", status)
	}
	if len(m.entries) != 1 {
		t.Fatalf("expected release to coalesce back into 1 entry, got %d", len(m.entries))
	}
	if m.entries[0].start != 0 || m.entries[0].end != 4096 || m.entries[0].isReserved {
		t.Fatalf("coalesced entry = %+v, want (0,4096,available)", m.entries[0])
	}
	if !m.entries[0].fileUpdateNeeded {
		t.Fatal("coalesced entry must be marked fileUpdateNeeded")
	}
}

func TestReserveExtendsStoreWhenNothingFits(t *testing.T) {
	m := New(nil)
	store := memory.NewStore()
	if status := store.Truncate(64); status.Failure() {
		t.Fatalf("Truncate: %v", status)
	}

	h, status := m.Reserve(store, 32)
	if status.Failure() {
		t.Fatalf("Reserve: %v", status)
	}
	if h.StartingIndex() != 64 || h.AreaSize() != 32 {
		t.Fatalf("extended reservation = (%d,%d), want (64,32)", h.StartingIndex(), h.AreaSize())
	}
	if store.Size() != 96 {
		t.Fatalf("store.Size() = %d, want 96", store.Size())
	}
}

func TestStaleHandleIsRejected(t *testing.T) {
	m := New(nil)
	h := m.Insert(0, 64, false)
	if status := m.Release(h); status.Failure() {
		t.Fatalf("first Release: %v", status)
	}
	if status := m.Release(h); !status.Failure() {
		t.Fatal("releasing an already-released (stale) handle should fail")
	}
}

func TestCoalescingNeverMergesDifferingReservedState(t *testing.T) {
	m := New(nil)
	m.Insert(0, 32, false)
	m.Insert(32, 64, true)
	m.coalesceAround(0)
	if len(m.entries) != 2 {
		t.Fatalf("available and reserved neighbors must not coalesce, got %d entries", len(m.entries))
	}
}

func TestFlushDirtyCoversReleasedRunsWithFillChunks(t *testing.T) {
	m := New(nil)
	store := memory.NewStore()
	if status := store.Truncate(4096); status.Failure() {
		t.Fatalf("Truncate: %v", status)
	}
	h := m.Insert(0, 4096, true)
	if status := m.Release(h); status.Failure() {
		t.Fatalf("Release: %v", status)
	}

	if status := m.FlushDirty(store); status.Failure() {
		t.Fatalf("FlushDirty: %v", status)
	}
	for _, e := range m.entries {
		if e.fileUpdateNeeded {
			t.Fatalf("entry %+v still marked fileUpdateNeeded after FlushDirty", e)
		}
	}

	fc := chunk.NewFillChunkForLoad(0)
	if status := fc.Load(store, true); status.Failure() {
		t.Fatalf("loading the written fill chunk: %v", status)
	}
	if fc.Type() != chunk.FillType {
		t.Fatalf("Type() = %v, want FillType", fc.Type())
	}
}
