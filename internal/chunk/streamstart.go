package chunk

import "encoding/binary"

// StreamStartChunk marks the beginning of a virtual file within a
// container. Its additional header carries the stream's identifier
// (assigned by the container shell, unique per stream) and the virtual
// filename; isLast (true iff this is also the stream's last chunk) lives
// in the common header's flags byte, per spec §6.
type StreamStartChunk struct {
	base             baseChunk
	streamIdentifier uint32
	virtualFilename  string
}

const streamStartIDBytes = 4

func streamStartAdditionalHeaderSize(filename string) int {
	return streamStartIDBytes + 2 + len(filename)
}

// NewStreamStartChunk constructs a writable StreamStartChunk bound to
// index.
func NewStreamStartChunk(index FileIndex, streamIdentifier uint32, virtualFilename string) (*StreamStartChunk, Status) {
	addHdr := streamStartAdditionalHeaderSize(virtualFilename)
	base, err := newBaseChunk(index, StreamStartType, addHdr, 0)
	if err != nil {
		return nil, NewStatus(FormatError, 0, "chunk: NewStreamStartChunk: "+err.Error())
	}
	c := &StreamStartChunk{base: base, streamIdentifier: streamIdentifier, virtualFilename: virtualFilename}
	if st := c.encodeAdditionalHeader(); st.Failure() {
		return nil, st
	}
	return c, Status{}
}

// NewStreamStartChunkForLoad builds a placeholder StreamStartChunk ready to
// be populated by Load.
func NewStreamStartChunkForLoad(index FileIndex) *StreamStartChunk {
	return &StreamStartChunk{base: newBaseChunkForLoad(index, StreamStartType)}
}

func (c *StreamStartChunk) encodeAdditionalHeader() Status {
	buf := c.base.AdditionalHeader()
	if len(buf) < streamStartIDBytes+2 {
		return NewStatus(FormatError, 0, "chunk: StreamStartChunk: additional header too small")
	}
	binary.LittleEndian.PutUint32(buf[0:4], c.streamIdentifier)
	if _, err := putLengthPrefixedString(buf, 4, c.virtualFilename); err != nil {
		return NewStatus(FormatError, 0, "chunk: StreamStartChunk: "+err.Error())
	}
	return Status{}
}

func (c *StreamStartChunk) decodeAdditionalHeader() {
	buf := c.base.AdditionalHeader()
	c.streamIdentifier = binary.LittleEndian.Uint32(buf[0:4])
	c.virtualFilename, _ = getLengthPrefixedString(buf, 4)
}

func (c *StreamStartChunk) Index() FileIndex         { return c.base.Index() }
func (c *StreamStartChunk) Type() Type               { return c.base.Type() }
func (c *StreamStartChunk) StreamIdentifier() uint32 { return c.streamIdentifier }
func (c *StreamStartChunk) VirtualFilename() string  { return c.virtualFilename }
func (c *StreamStartChunk) IsLast() bool             { return c.base.IsLast() }

// SetStreamIdentifier takes effect immediately in memory; Save persists it.
func (c *StreamStartChunk) SetStreamIdentifier(id uint32) {
	c.streamIdentifier = id
	c.base.markDirty()
}

// SetVirtualFilename takes effect immediately in memory; Save persists it.
// If the new name is longer, the chunk's additional header (and therefore
// its size class) may grow on the next Save.
func (c *StreamStartChunk) SetVirtualFilename(name string) {
	c.virtualFilename = name
	c.base.markDirty()
}

// SetLast takes effect immediately in memory; Save persists it.
func (c *StreamStartChunk) SetLast(last bool) {
	c.base.SetLast(last)
}

func (c *StreamStartChunk) Save(store BackingStore) Status {
	needAddHdr := streamStartAdditionalHeaderSize(c.virtualFilename)
	if needAddHdr != c.base.addHdr {
		class, err := SizeClassFor(needAddHdr, c.base.NumberValidBytes())
		if err != nil {
			return NewStatus(FormatError, 0, "chunk: StreamStartChunk: "+err.Error())
		}
		size, _ := ChunkSizeForClass(class)
		if size != c.base.ChunkSizeBytes() {
			newBuf := make([]byte, size)
			copy(newBuf, c.base.buf[:min(len(c.base.buf), size)])
			c.base.buf = newBuf
		}
		c.base.header.sizeClass = class
		encodeCommonHeader(c.base.buf, c.base.header)
		c.base.addHdr = needAddHdr
		c.base.markDirty()
	}
	if st := c.encodeAdditionalHeader(); st.Failure() {
		return st
	}
	return c.base.save(store)
}

func (c *StreamStartChunk) Load(store BackingStore, includeCommonHeader bool) Status {
	if st := c.base.load(store, includeCommonHeader, StreamStartType); st.Failure() {
		return st
	}
	c.base.addHdr = c.base.ChunkSizeBytes() - CommonHeaderSizeBytes - c.base.NumberValidBytes()
	c.decodeAdditionalHeader()
	c.base.addHdr = streamStartAdditionalHeaderSize(c.virtualFilename)
	return Status{}
}
