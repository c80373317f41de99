// Package container is the thin orchestration layer that composes the
// chunk family, the free-space map, and a backing store into the
// open/begin-stream/write/read/close data flow described for the
// container shell: allocate a chunk index from the free-space map,
// construct the right chunk variant bound to that index, fill its
// payload, and save it through the backing store; on read, walk a
// stream's chunk chain back out.
//
// This mirrors the teacher's bootstrap-style factory + options struct
// idiom (internal/config/bootstrap.go): a single entry point that wires
// already-built components together rather than owning their logic.
package container

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"capsule/internal/chunk"
	"capsule/internal/freespace"
	"capsule/internal/logging"
)

// Options configures Open. The zero Options is valid; omitted fields take
// their documented defaults.
type Options struct {
	// Identifier is the container's caller-chosen label, persisted in the
	// FileHeaderChunk. If empty on a fresh container, a UUIDv7 string is
	// minted as the default.
	Identifier string

	// MajorVersion/MinorVersion select the container format version
	// written by a fresh Open; a reopen checks the stored major version
	// against MajorVersion. Zero means DefaultMajorVersion/DefaultMinorVersion.
	MajorVersion uint16
	MinorVersion uint16

	// Logger receives lifecycle events (open, begin stream, close). It is
	// also handed to the free-space map, which logs each reservation at
	// Debug level; the chunk family itself stays silent.
	Logger *slog.Logger
}

// Default version constants.
const (
	DefaultMajorVersion uint16 = 1
	DefaultMinorVersion uint16 = 0
)

// maxDataChunkPayload is the largest payload a single StreamDataChunk can
// carry: the biggest size class (65536) minus the common header (32) and
// the stream-data additional header (4-byte stream id + 4-byte sequence
// number = 8).
const maxDataChunkPayload = 65536 - 32 - 8

var (
	// ErrUnknownStream is returned by OpenStream for a stream identifier
	// this Container has no record of.
	ErrUnknownStream = errors.New("container: unknown stream identifier")

	// ErrStreamClosed is returned by Write on a Stream that has already
	// been closed. Closing an already-closed Stream returns nil.
	ErrStreamClosed = errors.New("container: stream is already closed")
)

// streamRecord tracks a virtual file's chunk chain for the lifetime of the
// Container handle. The container shell keeps this in memory only — it
// does not persist a stream directory, matching spec.md's single-owner,
// single-process cooperative model (spec.md §5).
type streamRecord struct {
	startIndex chunk.FileIndex
	dataChunks []chunk.FileIndex
	closed     bool
}

// Container is an open handle on a backing store laid out as chunks. Only
// one goroutine may own a Container at a time (spec.md §5: single-threaded
// cooperative).
type Container struct {
	mu           sync.Mutex
	store        chunk.BackingStore
	free         *freespace.Map
	header       *chunk.FileHeaderChunk
	logger       *slog.Logger
	nextStreamID uint32
	streams      map[uint32]*streamRecord
}

// Open initializes a fresh backing store (writing a FileHeaderChunk at
// index 0) or reopens an existing one (loading and version-checking the
// FileHeaderChunk), per spec.md §6.
func Open(store chunk.BackingStore, opts Options) (*Container, error) {
	logger := logging.Default(opts.Logger).With("component", "container")
	majorVersion := opts.MajorVersion
	if majorVersion == 0 {
		majorVersion = DefaultMajorVersion
	}
	minorVersion := opts.MinorVersion
	if minorVersion == 0 {
		minorVersion = DefaultMinorVersion
	}

	sessionToken, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("container: mint session token: %w", err)
	}

	c := &Container{
		store:   store,
		free:    freespace.New(opts.Logger),
		logger:  logger,
		streams: make(map[uint32]*streamRecord),
	}

	if store.Size() == 0 {
		identifier := opts.Identifier
		if identifier == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return nil, fmt.Errorf("container: mint default identifier: %w", err)
			}
			identifier = id.String()
		}
		header, status := chunk.NewFileHeaderChunk(0, majorVersion, minorVersion, identifier)
		if status.Failure() {
			return nil, fmt.Errorf("container: open: %s", status.Description())
		}
		if status := header.Save(store); status.Failure() {
			return nil, fmt.Errorf("container: open: saving file header: %s", status.Description())
		}
		c.header = header
		logger.Info("initialized new container", "identifier", identifier, "session", sessionToken.String())
		return c, nil
	}

	header := chunk.NewFileHeaderChunkForLoad(0)
	if status := header.Load(store, true, majorVersion); status.Failure() {
		return nil, fmt.Errorf("container: open: loading file header: %s", status.Description())
	}
	c.header = header
	// Anything beyond the header is treated as opaque existing content;
	// this shell does not scan the chunk chain to rebuild the free-space
	// map on reopen (out of scope for the orchestration layer — see
	// DESIGN.md). New allocations extend the store past its current
	// extent via freespace.Map.Reserve's fallback.
	logger.Info("reopened existing container", "identifier", header.Identifier(), "session", sessionToken.String())
	return c, nil
}

// Identifier returns the container's persisted identifier.
func (c *Container) Identifier() string { return c.header.Identifier() }

// MajorVersion and MinorVersion return the container's on-disk format
// version.
func (c *Container) MajorVersion() uint16 { return c.header.MajorVersion() }
func (c *Container) MinorVersion() uint16 { return c.header.MinorVersion() }

// Close flushes the free-space map's dirty fill-chunk covers and the
// backing store.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if status := c.free.FlushDirty(c.store); status.Failure() {
		return fmt.Errorf("container: close: flushing free space: %s", status.Description())
	}
	if status := c.store.Flush(); status.Failure() {
		return fmt.Errorf("container: close: flushing backing store: %s", status.Description())
	}
	c.logger.Info("closed container")
	return nil
}

func streamStartChunkSize(filename string) (int, chunk.Status) {
	addHdr := 4 + 2 + len(filename) // streamIdentifier(4) + length-prefix(2) + filename
	class, err := chunk.SizeClassFor(addHdr, 0)
	if err != nil {
		return 0, chunk.NewStatus(chunk.FormatError, 0, "container: "+err.Error())
	}
	size, err := chunk.ChunkSizeForClass(class)
	if err != nil {
		return 0, chunk.NewStatus(chunk.FormatError, 0, "container: "+err.Error())
	}
	return size, chunk.Status{}
}
