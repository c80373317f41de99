package chunk

// FillChunk covers a run of free space with a single chunk so the backing
// store stays fully chunked end to end. It carries no additional header and
// no meaningful payload; its only interesting property is its own size,
// which the allocator's best-fit rule derives from the amount of space
// available to cover.
type FillChunk struct {
	base baseChunk
}

// fillSpaceBytesFor implements the best-fit sizing rule from spec §4.5.3:
//
//	available < 32 (including 0)            -> 32
//	available in [2^k, 2^(k+1)) for k=5..11 -> 2^k
//	available >= 4096                       -> 4096 (cap)
//	available exactly a power of two <=4096 -> that value
//
// i.e. fillSpaceBytes = clamp(roundDownToPow2(available), 32, 4096), with
// available < 32 rounding up to 32.
func fillSpaceBytesFor(available int) int {
	if available <= 0 {
		return MinChunkSizeBytes
	}
	size := roundDownToPowerOfTwo(available)
	if size < MinChunkSizeBytes {
		size = MinChunkSizeBytes
	}
	if size > 4096 {
		size = 4096
	}
	return size
}

func roundDownToPowerOfTwo(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// NewFillChunk constructs a fill chunk sized to cover available bytes of
// free space (capped at 4096; a larger run needs a sequence of fill
// chunks, each constructed separately by the caller).
func NewFillChunk(index FileIndex, available int) *FillChunk {
	size := fillSpaceBytesFor(available)
	class := sizeClassForBytes(size)
	buf := make([]byte, size)
	h := commonHeader{typeTag: FillType, sizeClass: class}
	encodeCommonHeader(buf, h)
	return &FillChunk{base: baseChunk{index: index, buf: buf, header: h, addHdr: 0, state: stateNew}}
}

func sizeClassForBytes(size int) uint8 {
	for k := uint8(MinSizeClass); k <= MaxSizeClass; k++ {
		if chunkSizeForClass(k) == size {
			return k
		}
	}
	return MinSizeClass
}

// NewFillChunkForLoad builds a placeholder fill chunk ready to be populated
// by Load.
func NewFillChunkForLoad(index FileIndex) *FillChunk {
	return &FillChunk{base: newBaseChunkForLoad(index, FillType)}
}

// FillSpaceBytes returns this chunk's physical size — the amount of free
// space it covers.
func (c *FillChunk) FillSpaceBytes() int { return c.base.ChunkSizeBytes() }

// SetBestFitSize recomputes FillSpaceBytes for a new available amount,
// reallocating the chunk's buffer. The chunk is left DIRTY (or NEW, if it
// has never been saved).
func (c *FillChunk) SetBestFitSize(available int) {
	size := fillSpaceBytesFor(available)
	if size == c.base.ChunkSizeBytes() {
		return
	}
	newBuf := make([]byte, size)
	copy(newBuf, c.base.buf[:min(len(c.base.buf), size)])
	c.base.buf = newBuf
	c.base.header.sizeClass = sizeClassForBytes(size)
	encodeCommonHeader(c.base.buf, c.base.header)
	c.base.markDirty()
}

func (c *FillChunk) Index() FileIndex               { return c.base.Index() }
func (c *FillChunk) Type() Type                     { return c.base.Type() }
func (c *FillChunk) NumberValidBytes() int          { return c.base.NumberValidBytes() }
func (c *FillChunk) AdditionalHeaderSizeBytes() int { return c.base.AdditionalHeaderSizeBytes() }
func (c *FillChunk) AdditionalHeader() []byte       { return c.base.AdditionalHeader() }

func (c *FillChunk) Save(store BackingStore) Status {
	return c.base.save(store)
}

func (c *FillChunk) Load(store BackingStore, includeCommonHeader bool) Status {
	return c.base.load(store, includeCommonHeader, FillType)
}
