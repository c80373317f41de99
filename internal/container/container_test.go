package container

import (
	"io"
	"testing"

	"capsule/internal/chunk/memory"
)

func TestOpenFreshContainerWritesFileHeader(t *testing.T) {
	store := memory.NewStore()
	c, err := Open(store, Options{Identifier: "Inesonic, LLC.\nAleph"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.Identifier() != "Inesonic, LLC.\nAleph" {
		t.Fatalf("Identifier() = %q, want exact round trip", c.Identifier())
	}
	if c.MajorVersion() != DefaultMajorVersion || c.MinorVersion() != DefaultMinorVersion {
		t.Fatalf("got version (%d,%d), want defaults (%d,%d)", c.MajorVersion(), c.MinorVersion(), DefaultMajorVersion, DefaultMinorVersion)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpenReopenPreservesIdentifierAndVersion(t *testing.T) {
	store := memory.NewStore()
	c1, err := Open(store, Options{Identifier: "reopen-me", MajorVersion: 3, MinorVersion: 2})
	if err != nil {
		t.Fatalf("Open (fresh): %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := Open(store, Options{MajorVersion: 3})
	if err != nil {
		t.Fatalf("Open (reopen): %v", err)
	}
	if c2.Identifier() != "reopen-me" {
		t.Fatalf("Identifier() after reopen = %q, want %q", c2.Identifier(), "reopen-me")
	}
	if c2.MinorVersion() != 2 {
		t.Fatalf("MinorVersion() after reopen = %d, want 2", c2.MinorVersion())
	}
}

func TestOpenReopenRejectsMajorVersionMismatch(t *testing.T) {
	store := memory.NewStore()
	c1, err := Open(store, Options{MajorVersion: 1})
	if err != nil {
		t.Fatalf("Open (fresh): %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := Open(store, Options{MajorVersion: 2}); err == nil {
		t.Fatal("reopening with a mismatched major version should fail")
	}
}

func TestStreamWriteReadRoundTrip(t *testing.T) {
	store := memory.NewStore()
	c, err := Open(store, Options{Identifier: "stream-test"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	stream, err := c.BeginStream("test_file.dat")
	if err != nil {
		t.Fatalf("BeginStream: %v", err)
	}

	want := []byte("the quick brown fox jumps over the lazy dog")
	if n, err := stream.Write(want); err != nil || n != len(want) {
		t.Fatalf("Write = (%d, %v), want (%d, nil)", n, err, len(want))
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("stream.Close: %v", err)
	}

	reader, err := c.OpenStream(stream.id)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer reader.Close()

	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStreamWriteSpanningMultipleChunks(t *testing.T) {
	store := memory.NewStore()
	c, err := Open(store, Options{Identifier: "multi-chunk"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	stream, err := c.BeginStream("big.dat")
	if err != nil {
		t.Fatalf("BeginStream: %v", err)
	}

	want := make([]byte, maxDataChunkPayload+100)
	for i := range want {
		want[i] = byte(i)
	}
	if n, err := stream.Write(want); err != nil || n != len(want) {
		t.Fatalf("Write = (%d, %v), want (%d, nil)", n, err, len(want))
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("stream.Close: %v", err)
	}
	if len(stream.record.dataChunks) < 2 {
		t.Fatalf("expected the write to split across >=2 data chunks, got %d", len(stream.record.dataChunks))
	}

	reader, err := c.OpenStream(stream.id)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer reader.Close()
	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d bytes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d mismatch: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestWriteAfterCloseFails(t *testing.T) {
	store := memory.NewStore()
	c, err := Open(store, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	stream, err := c.BeginStream("short.dat")
	if err != nil {
		t.Fatalf("BeginStream: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("stream.Close: %v", err)
	}
	if _, err := stream.Write([]byte("too late")); err != ErrStreamClosed {
		t.Fatalf("got err %v, want ErrStreamClosed", err)
	}
}

func TestOpenStreamUnknownIDFails(t *testing.T) {
	store := memory.NewStore()
	c, err := Open(store, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if _, err := c.OpenStream(999); err == nil {
		t.Fatal("OpenStream with an unknown id should fail")
	}
}
