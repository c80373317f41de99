package chunk

import "encoding/binary"

// StreamDataChunk carries a span of stream payload bytes. Its additional
// header identifies which stream it belongs to and its position within
// that stream; isLast (final chunk of the stream) lives in the common
// header's flags byte, per spec §6, shared with StreamStartChunk.
//
// Not exercised by the boundary scenarios in spec §8, but named in §4.5.6
// as implied by the format; implemented in full here.
type StreamDataChunk struct {
	base             baseChunk
	streamIdentifier uint32
	sequenceNumber   uint32
}

const (
	streamDataIDBytes  = 4
	streamDataSeqBytes = 4
	streamDataAddHdr   = streamDataIDBytes + streamDataSeqBytes
)

// NewStreamDataChunk constructs a writable StreamDataChunk bound to index,
// carrying payload of validBytes length (the caller fills Payload()
// afterwards).
func NewStreamDataChunk(index FileIndex, streamIdentifier, sequenceNumber uint32, validBytes int) (*StreamDataChunk, Status) {
	base, err := newBaseChunk(index, StreamDataType, streamDataAddHdr, validBytes)
	if err != nil {
		return nil, NewStatus(FormatError, 0, "chunk: NewStreamDataChunk: "+err.Error())
	}
	c := &StreamDataChunk{base: base, streamIdentifier: streamIdentifier, sequenceNumber: sequenceNumber}
	c.encodeAdditionalHeader()
	return c, Status{}
}

// NewStreamDataChunkForLoad builds a placeholder StreamDataChunk ready to
// be populated by Load.
func NewStreamDataChunkForLoad(index FileIndex) *StreamDataChunk {
	c := &StreamDataChunk{base: newBaseChunkForLoad(index, StreamDataType)}
	c.base.addHdr = streamDataAddHdr
	return c
}

func (c *StreamDataChunk) encodeAdditionalHeader() {
	buf := c.base.AdditionalHeader()
	binary.LittleEndian.PutUint32(buf[0:4], c.streamIdentifier)
	binary.LittleEndian.PutUint32(buf[4:8], c.sequenceNumber)
}

func (c *StreamDataChunk) decodeAdditionalHeader() {
	buf := c.base.AdditionalHeader()
	c.streamIdentifier = binary.LittleEndian.Uint32(buf[0:4])
	c.sequenceNumber = binary.LittleEndian.Uint32(buf[4:8])
}

func (c *StreamDataChunk) Index() FileIndex         { return c.base.Index() }
func (c *StreamDataChunk) Type() Type               { return c.base.Type() }
func (c *StreamDataChunk) StreamIdentifier() uint32 { return c.streamIdentifier }
func (c *StreamDataChunk) SequenceNumber() uint32   { return c.sequenceNumber }
func (c *StreamDataChunk) IsLast() bool             { return c.base.IsLast() }
func (c *StreamDataChunk) NumberValidBytes() int    { return c.base.NumberValidBytes() }
func (c *StreamDataChunk) Payload() []byte          { return c.base.Payload() }

func (c *StreamDataChunk) SetLast(last bool) { c.base.SetLast(last) }

// SetNumberValidBytes resizes the payload region, per baseChunk's rule.
func (c *StreamDataChunk) SetNumberValidBytes(n int, canChangeChunkSize bool) (int, Status) {
	return c.base.SetNumberValidBytes(n, canChangeChunkSize)
}

func (c *StreamDataChunk) Save(store BackingStore) Status {
	c.encodeAdditionalHeader()
	return c.base.save(store)
}

func (c *StreamDataChunk) Load(store BackingStore, includeCommonHeader bool) Status {
	c.base.addHdr = streamDataAddHdr
	if st := c.base.load(store, includeCommonHeader, StreamDataType); st.Failure() {
		return st
	}
	c.decodeAdditionalHeader()
	return Status{}
}
