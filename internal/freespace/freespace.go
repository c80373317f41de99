// Package freespace implements the container's free-space map: an ordered
// set of non-overlapping byte runs within a backing store, each tagged
// reserved or available, with coalescing on release and a best-fit
// allocator for new reservations.
//
// The map is grounded on the chunk family's allocation needs (chunk.FillChunk
// covers an available run so the backing store stays fully chunked end to
// end) and, for structure, on the teacher's chunk/file.Manager: a single
// mutex-guarded slice of ordered entries, logged at lifecycle boundaries
// only (Reserve/Release/FlushDirty), never per-entry.
package freespace

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"

	"capsule/internal/chunk"
	"capsule/internal/logging"
)

// entry is one run tracked by the map. id is a generational identifier
// minted fresh whenever the run's identity changes (split, merge, or
// reserve/release) so that stale FreeSpace handles can be detected rather
// than silently acting on a run that has since been coalesced away — the
// arena-plus-stable-index scheme recorded in DESIGN.md in place of the
// source's iterator-bearing handle.
type entry struct {
	id               uint64
	start            chunk.FileIndex
	end              chunk.FileIndex
	isReserved       bool
	fileUpdateNeeded bool
}

func (e entry) size() uint64 { return uint64(e.end - e.start) }

// FreeSpace is a borrowed handle into a Map: a cached ContainerArea view
// plus the generational id of the entry it was obtained from. It is a
// plain value — copyable and assignable like the source's iterator-bearing
// handle, but assignment here is ordinary struct copy instead of aliasing a
// container iterator. A handle is valid only until the next Map mutation
// that would invalidate its entry (Release, Expand, Reduce, coalescing);
// using it afterwards is reported as a stale-handle Status rather than
// undefined behavior.
type FreeSpace struct {
	area chunk.ContainerArea
	id   uint64
}

// StartingIndex returns the handle's cached starting index.
func (h FreeSpace) StartingIndex() chunk.FileIndex { return h.area.StartingIndex() }

// AreaSize returns the handle's cached area size.
func (h FreeSpace) AreaSize() uint64 { return h.area.AreaSize() }

// AtEnd reports whether this handle is the map's end sentinel (id 0),
// matching the source's end-iterator concept.
func (h FreeSpace) AtEnd() bool { return h.id == 0 }

// Map is the free-space map. The zero Map is not usable; construct with
// New.
type Map struct {
	mu      sync.Mutex
	entries []entry // kept sorted by start
	nextID  uint64
	logger  *slog.Logger
}

// New constructs an empty free-space map.
func New(logger *slog.Logger) *Map {
	return &Map{logger: logging.Default(logger).With("component", "freespace")}
}

func (m *Map) mintID() uint64 {
	m.nextID++
	return m.nextID
}

func (m *Map) indexOf(start chunk.FileIndex) int {
	return sort.Search(len(m.entries), func(i int) bool { return m.entries[i].start >= start })
}

// End returns the map's end sentinel handle, matching the source's
// end-iterator.
func (m *Map) End() FreeSpace { return FreeSpace{} }

// Insert seeds the map with one run, typically used once at container-open
// time to register the backing store's initial free extent. It does not
// coalesce with existing entries; callers are expected to call Insert only
// against disjoint regions.
func (m *Map) Insert(start, end chunk.FileIndex, isReserved bool) FreeSpace {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{id: m.mintID(), start: start, end: end, isReserved: isReserved, fileUpdateNeeded: !isReserved}
	i := m.indexOf(start)
	m.entries = append(m.entries, entry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = e
	return FreeSpace{area: chunk.NewContainerArea(start, uint64(end-start)), id: e.id}
}

// Reserve finds the lowest-start available run whose size is at least size,
// marks it reserved, splits off any remainder as a new available run, and
// returns a handle to the reserved run. If no run is large enough, it
// extends store by exactly size bytes and reserves the new tail — the
// "extends the backing store" fallback the allocator relies on.
func (m *Map) Reserve(store chunk.BackingStore, size uint64) (FreeSpace, chunk.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		e := &m.entries[i]
		if e.isReserved || e.size() < size {
			continue
		}
		reservedID := m.mintID()
		reservedEnd := e.start + chunk.FileIndex(size)
		if remaining := e.end - reservedEnd; remaining > 0 {
			remainder := entry{id: m.mintID(), start: reservedEnd, end: e.end, isReserved: false, fileUpdateNeeded: true}
			*e = entry{id: reservedID, start: e.start, end: reservedEnd, isReserved: true, fileUpdateNeeded: false}
			m.entries = append(m.entries, entry{})
			copy(m.entries[i+2:], m.entries[i+1:])
			m.entries[i+1] = remainder
		} else {
			*e = entry{id: reservedID, start: e.start, end: e.end, isReserved: true, fileUpdateNeeded: false}
		}
		m.logger.Debug("reserved run", "start", uint64(e.start), "size", size)
		return FreeSpace{area: chunk.NewContainerArea(e.start, size), id: reservedID}, chunk.Status{}
	}

	// No run fits: extend the backing store and reserve the new tail.
	oldSize := store.Size()
	newSize := oldSize + chunk.FileIndex(size)
	if status := store.Truncate(newSize); status.Failure() {
		return FreeSpace{}, chunk.NewStatus(chunk.AllocationError, 0,
			fmt.Sprintf("freespace: reserve %d bytes: could not extend backing store: %s", size, status.Description()))
	}
	id := m.mintID()
	m.entries = append(m.entries, entry{id: id, start: oldSize, end: newSize, isReserved: true, fileUpdateNeeded: false})
	m.logger.Debug("extended backing store to satisfy reserve", "start", uint64(oldSize), "size", size)
	return FreeSpace{area: chunk.NewContainerArea(oldSize, size), id: id}, chunk.Status{}
}

// Release marks h's run available and coalesces it with contiguous
// available neighbors. The merged entry is marked fileUpdateNeeded since
// its fill-chunk cover is now stale. Releasing a stale or already-released
// handle returns a StateError Status.
func (m *Map) Release(h FreeSpace) chunk.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, status := m.findByID(h)
	if status.Failure() {
		return status
	}

	m.entries[i].isReserved = false
	m.entries[i].fileUpdateNeeded = true
	m.entries[i].id = m.mintID()
	m.coalesceAround(i)
	return chunk.Status{}
}

// findByID locates the entry h currently refers to, verifying both the
// starting index and the generational id so a handle that has been split
// or coalesced away is detected instead of silently hitting the wrong run.
func (m *Map) findByID(h FreeSpace) (int, chunk.Status) {
	i := m.indexOf(h.StartingIndex())
	if i >= len(m.entries) || m.entries[i].start != h.StartingIndex() || m.entries[i].id != h.id {
		return 0, chunk.NewStatus(chunk.StateError, 0,
			fmt.Sprintf("freespace: stale handle at index %d", uint64(h.StartingIndex())))
	}
	return i, chunk.Status{}
}

// coalesceAround merges m.entries[i] with its predecessor and/or successor
// if they share the same isReserved state and are contiguous. Coalescing
// never merges entries of differing isReserved state.
func (m *Map) coalesceAround(i int) {
	if i+1 < len(m.entries) {
		next := m.entries[i+1]
		if next.isReserved == m.entries[i].isReserved && next.start == m.entries[i].end {
			m.entries[i].end = next.end
			m.entries[i].fileUpdateNeeded = true
			m.entries[i].id = m.mintID()
			m.entries = append(m.entries[:i+1], m.entries[i+2:]...)
		}
	}
	if i > 0 {
		prev := m.entries[i-1]
		if prev.isReserved == m.entries[i].isReserved && prev.end == m.entries[i].start {
			m.entries[i-1].end = m.entries[i].end
			m.entries[i-1].fileUpdateNeeded = true
			m.entries[i-1].id = m.mintID()
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
		}
	}
}

// Expand grows h's run by n bytes on the given side, stealing the space
// from the neighboring run on that side (which must exist and have at
// least n bytes available on the adjoining edge). It returns the updated
// handle and a Status describing any failure; on failure h is returned
// unchanged.
func (m *Map) Expand(h FreeSpace, n uint64, side chunk.Side) (FreeSpace, chunk.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, status := m.findByID(h)
	if status.Failure() {
		return h, status
	}

	switch side {
	case chunk.FromBack:
		if i+1 >= len(m.entries) || m.entries[i+1].size() < n {
			return h, chunk.NewStatus(chunk.AllocationError, 0, "freespace: expand FromBack: insufficient neighboring space")
		}
		m.entries[i].end += chunk.FileIndex(n)
		m.entries[i+1].start += chunk.FileIndex(n)
		if m.entries[i+1].size() == 0 {
			m.entries = append(m.entries[:i+1], m.entries[i+2:]...)
		}
	case chunk.FromFront:
		if i == 0 || m.entries[i-1].size() < n {
			return h, chunk.NewStatus(chunk.AllocationError, 0, "freespace: expand FromFront: insufficient neighboring space")
		}
		m.entries[i].start -= chunk.FileIndex(n)
		m.entries[i-1].end -= chunk.FileIndex(n)
		if m.entries[i-1].size() == 0 {
			m.entries = append(m.entries[:i-1], m.entries[i:]...)
			i--
		}
	}
	m.entries[i].id = m.mintID()
	area := m.entries[i]
	return FreeSpace{area: chunk.NewContainerArea(area.start, area.size()), id: area.id}, chunk.Status{}
}

// Reduce shrinks h's run by n bytes on the given side, turning the
// relinquished space into its own available run. n must not exceed the
// run's current size.
func (m *Map) Reduce(h FreeSpace, n uint64, side chunk.Side) (FreeSpace, chunk.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, status := m.findByID(h)
	if status.Failure() {
		return h, status
	}
	if m.entries[i].size() < n {
		return h, chunk.NewStatus(chunk.AllocationError, 0, "freespace: reduce: n exceeds run size")
	}

	var freed entry
	switch side {
	case chunk.FromFront:
		freed = entry{id: m.mintID(), start: m.entries[i].start, end: m.entries[i].start + chunk.FileIndex(n), isReserved: false, fileUpdateNeeded: true}
		m.entries[i].start += chunk.FileIndex(n)
		m.entries[i].id = m.mintID()
		m.entries = append(m.entries, entry{})
		copy(m.entries[i+1:], m.entries[i:])
		m.entries[i] = freed
		i++
	case chunk.FromBack:
		freed = entry{id: m.mintID(), start: m.entries[i].end - chunk.FileIndex(n), end: m.entries[i].end, isReserved: false, fileUpdateNeeded: true}
		m.entries[i].end -= chunk.FileIndex(n)
		m.entries[i].id = m.mintID()
		m.entries = append(m.entries, entry{})
		copy(m.entries[i+2:], m.entries[i+1:])
		m.entries[i+1] = freed
	}
	area := m.entries[i]
	return FreeSpace{area: chunk.NewContainerArea(area.start, area.size()), id: area.id}, chunk.Status{}
}

// FlushDirty covers every available run whose fileUpdateNeeded bit is set
// with one or more fill chunks (chunk.FillChunk caps a single cover at 4096
// bytes, so a large run needs a sequence of them), writes each through
// store, and clears the bit. Per-run write failures are aggregated with
// go.multierror rather than aborting on the first one, since an
// independent set of runs can each fail or succeed on their own.
func (m *Map) FlushDirty(store chunk.BackingStore) chunk.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs *multierror.Error
	for i := range m.entries {
		e := &m.entries[i]
		if e.isReserved || !e.fileUpdateNeeded {
			continue
		}
		if status := coverWithFillChunks(store, e.start, e.size()); status.Failure() {
			errs = multierror.Append(errs, fmt.Errorf("run at %d (%d bytes): %s", uint64(e.start), e.size(), status.Description()))
			continue
		}
		e.fileUpdateNeeded = false
	}
	if err := errs.ErrorOrNil(); err != nil {
		m.logger.Warn("flushDirty completed with errors", "error", err)
		return chunk.NewStatus(chunk.FilesystemError, 0, err.Error())
	}
	return chunk.Status{}
}

func coverWithFillChunks(store chunk.BackingStore, start chunk.FileIndex, remaining uint64) chunk.Status {
	for remaining > 0 {
		fc := chunk.NewFillChunk(start, int(remaining))
		if status := fc.Save(store); status.Failure() {
			return status
		}
		covered := uint64(fc.FillSpaceBytes())
		start += chunk.FileIndex(covered)
		if covered >= remaining {
			remaining = 0
		} else {
			remaining -= covered
		}
	}
	return chunk.Status{}
}
