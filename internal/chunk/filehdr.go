package chunk

import "encoding/binary"

// FileHeaderChunk is always the first chunk (index 0) of a container. Its
// additional header holds the container's major/minor version and a
// caller-chosen identifier string.
type FileHeaderChunk struct {
	base          baseChunk
	majorVersion  uint16
	minorVersion  uint16
	identifier    string
}

const (
	fileHdrMajorVersionBytes = 2
	fileHdrMinorVersionBytes = 2
)

func fileHdrAdditionalHeaderSize(identifier string) int {
	return fileHdrMajorVersionBytes + fileHdrMinorVersionBytes + 2 + len(identifier)
}

// NewFileHeaderChunk constructs a writable FileHeaderChunk bound to index,
// carrying the given container version and identifier.
func NewFileHeaderChunk(index FileIndex, majorVersion, minorVersion uint16, identifier string) (*FileHeaderChunk, Status) {
	addHdr := fileHdrAdditionalHeaderSize(identifier)
	base, err := newBaseChunk(index, FileHeaderType, addHdr, 0)
	if err != nil {
		return nil, NewStatus(FormatError, 0, "chunk: NewFileHeaderChunk: "+err.Error())
	}
	c := &FileHeaderChunk{base: base, majorVersion: majorVersion, minorVersion: minorVersion, identifier: identifier}
	if st := c.encodeAdditionalHeader(); st.Failure() {
		return nil, st
	}
	return c, Status{}
}

// NewFileHeaderChunkForLoad builds a placeholder FileHeaderChunk ready to
// be populated by Load.
func NewFileHeaderChunkForLoad(index FileIndex) *FileHeaderChunk {
	return &FileHeaderChunk{base: newBaseChunkForLoad(index, FileHeaderType)}
}

func (c *FileHeaderChunk) encodeAdditionalHeader() Status {
	buf := c.base.AdditionalHeader()
	if len(buf) < fileHdrMajorVersionBytes+fileHdrMinorVersionBytes+2 {
		return NewStatus(FormatError, 0, "chunk: FileHeaderChunk: additional header too small")
	}
	binary.LittleEndian.PutUint16(buf[0:2], c.majorVersion)
	binary.LittleEndian.PutUint16(buf[2:4], c.minorVersion)
	if _, err := putLengthPrefixedString(buf, 4, c.identifier); err != nil {
		return NewStatus(FormatError, 0, "chunk: FileHeaderChunk: "+err.Error())
	}
	return Status{}
}

func (c *FileHeaderChunk) decodeAdditionalHeader() {
	buf := c.base.AdditionalHeader()
	c.majorVersion = binary.LittleEndian.Uint16(buf[0:2])
	c.minorVersion = binary.LittleEndian.Uint16(buf[2:4])
	c.identifier, _ = getLengthPrefixedString(buf, 4)
}

func (c *FileHeaderChunk) Index() FileIndex               { return c.base.Index() }
func (c *FileHeaderChunk) Type() Type                     { return c.base.Type() }
func (c *FileHeaderChunk) MajorVersion() uint16           { return c.majorVersion }
func (c *FileHeaderChunk) MinorVersion() uint16           { return c.minorVersion }
func (c *FileHeaderChunk) Identifier() string             { return c.identifier }
func (c *FileHeaderChunk) AdditionalHeaderSizeBytes() int { return c.base.AdditionalHeaderSizeBytes() }

// Save writes the chunk, re-encoding its additional header first in case
// any setter mutated majorVersion/minorVersion/identifier in place.
func (c *FileHeaderChunk) Save(store BackingStore) Status {
	if st := c.encodeAdditionalHeader(); st.Failure() {
		return st
	}
	return c.base.save(store)
}

// Load reads and validates the chunk, then decodes its additional header.
// Per spec §6, a major-version mismatch against wantMajorVersion is a
// failure; a greater minor version is accepted as forward-compatible.
func (c *FileHeaderChunk) Load(store BackingStore, includeCommonHeader bool, wantMajorVersion uint16) Status {
	if st := c.base.load(store, includeCommonHeader, FileHeaderType); st.Failure() {
		return st
	}
	c.base.addHdr = c.base.ChunkSizeBytes() - CommonHeaderSizeBytes
	c.decodeAdditionalHeader()
	c.base.addHdr = fileHdrAdditionalHeaderSize(c.identifier)
	if c.majorVersion != wantMajorVersion {
		return NewStatus(VersionError, 0, "chunk: FileHeaderChunk: major version mismatch")
	}
	return Status{}
}
