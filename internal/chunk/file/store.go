// Package file implements chunk.BackingStore over a real operating-system
// file, grounded on the teacher's chunk/file package: an os.File accessed
// through ReadAt/WriteAt for the write path, and an optional read-only mmap
// view (golang.org/x/sys/unix.Mmap, the portable successor to the teacher's
// raw syscall.Mmap in mmap_reader.go) for the read path once the store has
// been flushed.
package file

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"

	"capsule/internal/chunk"
	"capsule/internal/logging"
)

// Factory parameter keys, following the teacher's map[string]string +
// Param*/Default* convention (chunk/file.NewFactory in the teacher).
const (
	ParamPath     = "path"
	ParamFileMode = "fileMode"
)

// Default values.
const (
	DefaultFileMode = 0o644
)

// ErrMissingPathParam is returned by the factory when ParamPath is absent.
var ErrMissingPathParam = errors.New("file: missing required parameter: path")

// Config configures a file-backed Store.
type Config struct {
	Path     string
	FileMode os.FileMode
	Logger   *slog.Logger
}

// NewFactory returns a factory function that opens file-backed Stores from
// map[string]string parameters, mirroring chunk/file.NewFactory in the
// teacher.
func NewFactory() func(params map[string]string, logger *slog.Logger) (*Store, error) {
	return func(params map[string]string, logger *slog.Logger) (*Store, error) {
		path, ok := params[ParamPath]
		if !ok || path == "" {
			return nil, ErrMissingPathParam
		}
		cfg := Config{Path: path, FileMode: DefaultFileMode, Logger: logger}
		if v, ok := params[ParamFileMode]; ok {
			n, err := strconv.ParseUint(v, 8, 32)
			if err != nil {
				return nil, fmt.Errorf("file: invalid %s: %w", ParamFileMode, err)
			}
			cfg.FileMode = os.FileMode(n)
		}
		return Open(cfg)
	}
}

// Store is a file-backed chunk.BackingStore. Writes go through
// ReadAt/WriteAt on the underlying os.File; reads prefer a read-only mmap
// view of the file when one is mapped, falling back to ReadAt otherwise.
// The mmap view is invalidated by every Write and must be explicitly
// refreshed with Remap after a Flush if the caller wants mmap-backed reads
// of newly written bytes.
type Store struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
	mapped []byte // nil when no mmap view is active
}

// Open opens or creates the file named by cfg.Path and returns a Store
// backed by it.
func Open(cfg Config) (*Store, error) {
	mode := cfg.FileMode
	if mode == 0 {
		mode = DefaultFileMode
	}
	f, err := os.OpenFile(cfg.Path, os.O_RDWR|os.O_CREATE, mode)
	if err != nil {
		return nil, fmt.Errorf("file: open %s: %w", cfg.Path, err)
	}
	logger := logging.Default(cfg.Logger).With("component", "chunk/file")
	logger.Info("opened backing store", "path", cfg.Path)
	return &Store{file: f, logger: logger}, nil
}

func (s *Store) Read(index chunk.FileIndex, segments []chunk.Segment) chunk.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset := int64(index)
	for _, seg := range segments {
		dst := seg.Bytes()
		if len(dst) == 0 {
			continue
		}
		if s.mapped != nil && int(offset)+len(dst) <= len(s.mapped) {
			copy(dst, s.mapped[offset:int(offset)+len(dst)])
		} else {
			if _, err := s.file.ReadAt(dst, offset); err != nil {
				return chunk.NewStatus(chunk.FilesystemError, 0,
					fmt.Sprintf("file: read at %d: %v", offset, err))
			}
		}
		offset += int64(len(dst))
	}
	return chunk.Status{}
}

func (s *Store) Write(index chunk.FileIndex, segments []chunk.Segment) chunk.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unmapLocked()

	offset := int64(index)
	for _, seg := range segments {
		src := seg.Bytes()
		if len(src) == 0 {
			continue
		}
		if _, err := s.file.WriteAt(src, offset); err != nil {
			return chunk.NewStatus(chunk.FilesystemError, 0,
				fmt.Sprintf("file: write at %d: %v", offset, err))
		}
		offset += int64(len(src))
	}
	return chunk.Status{}
}

func (s *Store) Size() chunk.FileIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, err := s.file.Stat()
	if err != nil {
		return 0
	}
	return chunk.FileIndex(info.Size())
}

func (s *Store) Truncate(index chunk.FileIndex) chunk.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unmapLocked()
	if err := s.file.Truncate(int64(index)); err != nil {
		return chunk.NewStatus(chunk.FilesystemError, 0,
			fmt.Sprintf("file: truncate to %d: %v", index, err))
	}
	return chunk.Status{}
}

func (s *Store) Flush() chunk.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Sync(); err != nil {
		return chunk.NewStatus(chunk.FilesystemError, 0, fmt.Sprintf("file: sync: %v", err))
	}
	return chunk.Status{}
}

// Remap (re)establishes a read-only mmap view of the file's current extent,
// used to serve subsequent Reads without a syscall per call. Callers
// typically invoke Remap once after Flush, when the on-disk contents are
// known durable. A zero-length file cannot be mapped and Remap is then a
// no-op.
func (s *Store) Remap() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remapLocked()
}

func (s *Store) remapLocked() error {
	s.unmapLocked()
	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	data, err := unix.Mmap(int(s.file.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("file: mmap: %w", err)
	}
	s.mapped = data
	return nil
}

func (s *Store) unmapLocked() {
	if s.mapped == nil {
		return
	}
	_ = unix.Munmap(s.mapped)
	s.mapped = nil
}

// Close releases the mmap view, if any, and closes the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unmapLocked()
	return s.file.Close()
}
