package container

import (
	"fmt"
	"io"

	"capsule/internal/chunk"
)

// streamReader implements io.ReadCloser over a stream's recorded
// StreamDataChunk chain, reloading and concatenating payloads one chunk at
// a time.
type streamReader struct {
	store  chunk.BackingStore
	chunks []chunk.FileIndex
	next   int
	buf    []byte
}

// OpenStream returns a reader over the virtual file identified by id,
// walking its recorded StreamDataChunk chain in write order. Only streams
// begun through this same Container handle (or a reopen that has replayed
// BeginStream/Write for id) are known; see the reopen note in Open.
func (c *Container) OpenStream(id uint32) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.streams[id]
	if !ok {
		return nil, fmt.Errorf("container: open stream %d: %w", id, ErrUnknownStream)
	}
	chunks := make([]chunk.FileIndex, len(rec.dataChunks))
	copy(chunks, rec.dataChunks)
	return &streamReader{store: c.store, chunks: chunks}, nil
}

func (r *streamReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.next >= len(r.chunks) {
			return 0, io.EOF
		}
		dc := chunk.NewStreamDataChunkForLoad(r.chunks[r.next])
		r.next++
		if status := dc.Load(r.store, true); status.Failure() {
			return 0, fmt.Errorf("container: stream read: %s", status.Description())
		}
		r.buf = append(r.buf[:0], dc.Payload()...)
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *streamReader) Close() error {
	r.chunks = nil
	r.buf = nil
	return nil
}
