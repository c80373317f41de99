package chunk

// chunkState tracks where a chunk sits in its save/load lifecycle:
//
//	NEW ──save──▶ CLEAN ──setX──▶ DIRTY ──save──▶ CLEAN
//	                 ▲
//	              load (from backing store)
//
// Only the CLEAN state guarantees on-disk and in-memory parity.
type chunkState uint8

const (
	stateNew chunkState = iota
	stateClean
	stateDirty
)

// baseChunk holds the fields and common-header logic shared by every chunk
// variant: the bound FileIndex, the full physical buffer (common header +
// additional header + payload, sized to a power-of-two chunk size), and the
// decoded common header.
//
// Per the source's weak-reference design, a chunk does not own a handle to
// its container; the backing store is passed by reference into each
// Save/Load call instead.
type baseChunk struct {
	index  FileIndex
	buf    []byte
	header commonHeader
	addHdr int
	state  chunkState
}

// newBaseChunk allocates a fresh, writable chunk of the smallest size class
// that fits additionalHeaderSizeBytes + validBytes.
func newBaseChunk(index FileIndex, typeTag Type, additionalHeaderSizeBytes, validBytes int) (baseChunk, error) {
	class, err := SizeClassFor(additionalHeaderSizeBytes, validBytes)
	if err != nil {
		return baseChunk{}, err
	}
	size, err := ChunkSizeForClass(class)
	if err != nil {
		return baseChunk{}, err
	}
	buf := make([]byte, size)
	h := commonHeader{typeTag: typeTag, sizeClass: class, numberValidBytes: uint32(validBytes)}
	encodeCommonHeader(buf, h)
	return baseChunk{index: index, buf: buf, header: h, addHdr: additionalHeaderSizeBytes, state: stateNew}, nil
}

// newBaseChunkForLoad allocates a minimal placeholder chunk bound to index,
// ready to have its real size discovered by Load.
func newBaseChunkForLoad(index FileIndex, typeTag Type) baseChunk {
	buf := make([]byte, CommonHeaderSizeBytes)
	h := commonHeader{typeTag: typeTag, sizeClass: MinSizeClass}
	encodeCommonHeader(buf, h)
	return baseChunk{index: index, buf: buf, header: h, addHdr: 0, state: stateNew}
}

func (b *baseChunk) markDirty() {
	if b.state == stateClean {
		b.state = stateDirty
	}
}

// Index returns the FileIndex this chunk is bound to.
func (b *baseChunk) Index() FileIndex { return b.index }

// SetIndex rebinds the chunk to a new FileIndex without touching its
// buffer; used when the free-space allocator relocates a chunk.
func (b *baseChunk) SetIndex(index FileIndex) { b.index = index }

// Type returns the chunk's current type tag.
func (b *baseChunk) Type() Type { return b.header.typeTag }

// SetType updates the type tag; the chunk becomes DIRTY until the next
// Save.
func (b *baseChunk) SetType(t Type) {
	b.header.typeTag = t
	encodeCommonHeader(b.buf, b.header)
	b.markDirty()
}

// NumberValidBytes returns the number of meaningful bytes in the payload
// region.
func (b *baseChunk) NumberValidBytes() int {
	return int(b.header.numberValidBytes)
}

// SetNumberValidBytes sets the valid byte count. If canChangeChunkSize is
// true and n no longer fits the current size class, the chunk reallocates
// to the smallest power-of-two class that fits n (per DESIGN.md's decision,
// this may both grow and shrink the chunk). Existing header and payload
// bytes are preserved up to the smaller of the old and new sizes.
func (b *baseChunk) SetNumberValidBytes(n int, canChangeChunkSize bool) (int, Status) {
	needed := CommonHeaderSizeBytes + b.addHdr + n
	if needed > len(b.buf) && !canChangeChunkSize {
		return b.NumberValidBytes(), NewStatus(StateError, 0,
			"chunk: setNumberValidBytes: value does not fit current size class and canChangeChunkSize is false")
	}
	if canChangeChunkSize {
		class, err := SizeClassFor(b.addHdr, n)
		if err != nil {
			return b.NumberValidBytes(), NewStatus(FormatError, 0, "chunk: setNumberValidBytes: "+err.Error())
		}
		newSize, _ := ChunkSizeForClass(class)
		if newSize != len(b.buf) {
			newBuf := make([]byte, newSize)
			copy(newBuf, b.buf[:min(len(b.buf), newSize)])
			b.buf = newBuf
			b.header.sizeClass = class
		}
	}
	b.header.numberValidBytes = uint32(n)
	encodeCommonHeader(b.buf, b.header)
	b.markDirty()
	return n, Status{}
}

// AdditionalHeaderSizeBytes returns the size of this chunk's per-variant
// extension header.
func (b *baseChunk) AdditionalHeaderSizeBytes() int { return b.addHdr }

// AdditionalHeader returns raw access to the additional header bytes.
func (b *baseChunk) AdditionalHeader() []byte {
	return b.buf[CommonHeaderSizeBytes : CommonHeaderSizeBytes+b.addHdr]
}

// Payload returns the chunk's payload region, sized to NumberValidBytes.
func (b *baseChunk) Payload() []byte {
	start := CommonHeaderSizeBytes + b.addHdr
	end := start + b.NumberValidBytes()
	return b.buf[start:end]
}

// ChunkSizeBytes returns the chunk's total physical size.
func (b *baseChunk) ChunkSizeBytes() int { return len(b.buf) }

// IsLast reports the common header's isLast flag (stream chunks only).
func (b *baseChunk) IsLast() bool { return b.header.isLast() }

// SetLast sets or clears the common header's isLast flag.
func (b *baseChunk) SetLast(last bool) {
	if last {
		b.header.flags |= flagIsLast
	} else {
		b.header.flags &^= flagIsLast
	}
	encodeCommonHeader(b.buf, b.header)
	b.markDirty()
}

// save computes the CRC over the whole chunk buffer and writes it through
// store at the bound index. A failed save leaves the chunk DIRTY.
func (b *baseChunk) save(store BackingStore) Status {
	crc := computeCRC(b.buf)
	putCRC(b.buf, crc)
	b.header.crc = crc
	if st := WriteFull(store, b.index, b.buf); st.Failure() {
		b.state = stateDirty
		return st
	}
	b.state = stateClean
	return Status{}
}

// load reads the chunk at its bound index and validates its CRC and type
// against expectedType. When includeCommonHeader is false, the caller has
// already placed a valid common header into b.buf[:CommonHeaderSizeBytes].
// A failed load leaves the chunk's in-memory state flagged invalid via its
// returned Status; the caller must discard it.
func (b *baseChunk) load(store BackingStore, includeCommonHeader bool, expectedType Type) Status {
	if includeCommonHeader {
		var hdrBuf [CommonHeaderSizeBytes]byte
		if st := ReadFull(store, b.index, hdrBuf[:]); st.Failure() {
			return st
		}
		if st := b.resizeForHeader(hdrBuf[:]); st.Failure() {
			return st
		}
		copy(b.buf[:CommonHeaderSizeBytes], hdrBuf[:])
		if len(b.buf) > CommonHeaderSizeBytes {
			if st := ReadFull(store, b.index+FileIndex(CommonHeaderSizeBytes), b.buf[CommonHeaderSizeBytes:]); st.Failure() {
				return st
			}
		}
	} else {
		if st := b.resizeForHeader(b.buf[:CommonHeaderSizeBytes]); st.Failure() {
			return st
		}
		if len(b.buf) > CommonHeaderSizeBytes {
			if st := ReadFull(store, b.index+FileIndex(CommonHeaderSizeBytes), b.buf[CommonHeaderSizeBytes:]); st.Failure() {
				return st
			}
		}
	}

	h := decodeCommonHeader(b.buf)
	if h.typeTag != expectedType {
		return NewStatus(FormatError, 0, "chunk: load: type mismatch at index bound to this chunk")
	}
	if computeCRC(b.buf) != h.crc {
		return NewStatus(CRCError, 0, "chunk: load: CRC mismatch at index bound to this chunk")
	}
	b.header = h
	b.state = stateClean
	return Status{}
}

// resizeForHeader grows or shrinks b.buf to match the size class named in
// a freshly-read common header, preserving bytes already present.
func (b *baseChunk) resizeForHeader(headerBuf []byte) Status {
	h := decodeCommonHeader(headerBuf)
	size, err := ChunkSizeForClass(h.sizeClass)
	if err != nil {
		return NewStatus(FormatError, 0, "chunk: load: "+err.Error())
	}
	if size != len(b.buf) {
		newBuf := make([]byte, size)
		copy(newBuf, b.buf[:min(len(b.buf), size)])
		b.buf = newBuf
	}
	return Status{}
}
