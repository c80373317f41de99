package container

import (
	"fmt"

	"capsule/internal/chunk"
)

// Stream is a handle for writing one virtual file into a Container. A
// Stream must be Closed to mark its final chunk isLast; writing after
// Close returns ErrStreamClosed.
type Stream struct {
	c          *Container
	id         uint32
	record     *streamRecord
	sequence   uint32
	lastIndex  chunk.FileIndex
	lastIsData bool
}

// BeginStream allocates a StreamStartChunk for a new virtual file named
// name, via the free-space map's best-fit sizing.
func (c *Container) BeginStream(name string) (*Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size, status := streamStartChunkSize(name)
	if status.Failure() {
		return nil, fmt.Errorf("container: begin stream: %s", status.Description())
	}
	handle, status := c.free.Reserve(c.store, uint64(size))
	if status.Failure() {
		return nil, fmt.Errorf("container: begin stream: reserving space: %s", status.Description())
	}

	c.nextStreamID++
	id := c.nextStreamID

	start, status := chunk.NewStreamStartChunk(handle.StartingIndex(), id, name)
	if status.Failure() {
		return nil, fmt.Errorf("container: begin stream: %s", status.Description())
	}
	if status := start.Save(c.store); status.Failure() {
		return nil, fmt.Errorf("container: begin stream: saving start chunk: %s", status.Description())
	}

	rec := &streamRecord{startIndex: handle.StartingIndex()}
	c.streams[id] = rec
	c.logger.Info("began stream", "streamID", id, "name", name)

	return &Stream{c: c, id: id, record: rec, lastIndex: handle.StartingIndex(), lastIsData: false}, nil
}

// Write chunks p into one or more StreamDataChunks, each sized to its
// payload by the free-space map's best-fit allocator (capped at
// maxDataChunkPayload per chunk).
func (s *Stream) Write(p []byte) (int, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if s.record.closed {
		return 0, ErrStreamClosed
	}

	written := 0
	for len(p) > 0 {
		n := len(p)
		if n > maxDataChunkPayload {
			n = maxDataChunkPayload
		}
		piece := p[:n]

		class, err := chunk.SizeClassFor(8, n)
		if err != nil {
			return written, fmt.Errorf("container: write: %w", err)
		}
		size, err := chunk.ChunkSizeForClass(class)
		if err != nil {
			return written, fmt.Errorf("container: write: %w", err)
		}
		handle, status := s.c.free.Reserve(s.c.store, uint64(size))
		if status.Failure() {
			return written, fmt.Errorf("container: write: reserving space: %s", status.Description())
		}

		dc, status := chunk.NewStreamDataChunk(handle.StartingIndex(), s.id, s.sequence, n)
		if status.Failure() {
			return written, fmt.Errorf("container: write: %s", status.Description())
		}
		copy(dc.Payload(), piece)
		if status := dc.Save(s.c.store); status.Failure() {
			return written, fmt.Errorf("container: write: saving data chunk: %s", status.Description())
		}

		s.record.dataChunks = append(s.record.dataChunks, handle.StartingIndex())
		s.lastIndex = handle.StartingIndex()
		s.lastIsData = true
		s.sequence++
		written += n
		p = p[n:]
	}
	return written, nil
}

// Close marks the stream's final chunk isLast and persists that change.
// A stream with no data chunks marks its StreamStartChunk itself isLast.
func (s *Stream) Close() error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if s.record.closed {
		return nil
	}
	s.record.closed = true

	if s.lastIsData {
		dc := chunk.NewStreamDataChunkForLoad(s.lastIndex)
		if status := dc.Load(s.c.store, true); status.Failure() {
			return fmt.Errorf("container: close stream: reloading last chunk: %s", status.Description())
		}
		dc.SetLast(true)
		if status := dc.Save(s.c.store); status.Failure() {
			return fmt.Errorf("container: close stream: saving last chunk: %s", status.Description())
		}
		return nil
	}

	start := chunk.NewStreamStartChunkForLoad(s.record.startIndex)
	if status := start.Load(s.c.store, true); status.Failure() {
		return fmt.Errorf("container: close stream: reloading start chunk: %s", status.Description())
	}
	start.SetLast(true)
	if status := start.Save(s.c.store); status.Failure() {
		return fmt.Errorf("container: close stream: saving start chunk: %s", status.Description())
	}
	return nil
}
