package chunk

// Side selects which end of a ContainerArea an expand or reduce operation
// acts on.
type Side uint8

const (
	FromFront Side = iota
	FromBack
)

// ContainerArea is the half-open interval [StartingIndex, StartingIndex +
// AreaSize) within a backing store. It is pure arithmetic on unsigned
// indices: no I/O, no validation beyond what the operations below encode.
type ContainerArea struct {
	startingIndex FileIndex
	areaSize      uint64
}

// NewContainerArea builds an area of the given size starting at index.
func NewContainerArea(startingIndex FileIndex, areaSize uint64) ContainerArea {
	return ContainerArea{startingIndex: startingIndex, areaSize: areaSize}
}

// StartingIndex returns the area's start.
func (a ContainerArea) StartingIndex() FileIndex { return a.startingIndex }

// AreaSize returns the area's size in bytes.
func (a ContainerArea) AreaSize() uint64 { return a.areaSize }

// EndingIndex returns StartingIndex + AreaSize.
func (a ContainerArea) EndingIndex() FileIndex {
	return a.startingIndex + FileIndex(a.areaSize)
}

// SetStartingIndex moves the start, leaving AreaSize fixed (so
// EndingIndex moves with it).
func (a *ContainerArea) SetStartingIndex(startingIndex FileIndex) {
	a.startingIndex = startingIndex
}

// SetAreaSize replaces the size, leaving StartingIndex fixed.
func (a *ContainerArea) SetAreaSize(areaSize uint64) {
	a.areaSize = areaSize
}

// SetEndingIndex sets AreaSize = endingIndex - StartingIndex, leaving
// StartingIndex fixed. The caller must ensure endingIndex >= StartingIndex.
func (a *ContainerArea) SetEndingIndex(endingIndex FileIndex) {
	a.areaSize = uint64(endingIndex - a.startingIndex)
}

// ExpandBy grows the area by n bytes on the given side. FromFront subtracts
// n from StartingIndex and adds n to AreaSize; FromBack only adds n to
// AreaSize.
func (a *ContainerArea) ExpandBy(n uint64, side Side) {
	switch side {
	case FromFront:
		a.startingIndex -= FileIndex(n)
		a.areaSize += n
	case FromBack:
		a.areaSize += n
	}
}

// ReduceBy shrinks the area by n bytes on the given side. FromFront adds n
// to StartingIndex and subtracts n from AreaSize; FromBack only subtracts n
// from AreaSize. Reducing beyond the current size is a caller error — the
// invariant AreaSize >= 0 is not itself enforced here, matching the
// source's treatment of this as caller responsibility.
func (a *ContainerArea) ReduceBy(n uint64, side Side) {
	switch side {
	case FromFront:
		a.startingIndex += FileIndex(n)
		a.areaSize -= n
	case FromBack:
		a.areaSize -= n
	}
}
