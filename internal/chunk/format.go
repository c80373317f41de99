package chunk

import (
	"encoding/binary"
	"hash/crc32"
)

// Common header layout (little-endian), per the on-disk format:
//
//	offset  size  field
//	0       1     type tag
//	1       1     size class k; chunkSize = 1 << (k+5)
//	2       4     numberValidBytes
//	6       1     flags; bit 0 = isLast (stream chunks)
//	7       1     reserved
//	8       4     CRC-32C over bytes [0..chunkSize) with this CRC field zeroed (reserved bytes included)
//	12      20    reserved, zero-filled
const (
	MinChunkSizeBytes       = 32
	MaxChunkSizeBytes       = 65536
	MinSizeClass            = 0
	MaxSizeClass            = 11
	CommonHeaderSizeBytes   = 32
	typeOffset              = 0
	sizeClassOffset         = 1
	validBytesOffset        = 2
	flagsOffset             = 6
	reservedByteOffset      = 7
	crcOffset               = 8
	crcFieldSizeBytes       = 4
	headerReservedOffset    = 12
	headerReservedSizeBytes = CommonHeaderSizeBytes - headerReservedOffset

	flagIsLast = 1 << 0
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// SizeClassFor rounds a requested payload footprint up to the smallest size
// class that fits it, per spec: additionalHeaderSizeBytes + validBytes +
// commonHeaderBytes (+ the CRC is inside the common header already). The
// minimum returned size class is always 0 (32 bytes), regardless of
// request.
func SizeClassFor(additionalHeaderSizeBytes, validBytes int) (uint8, error) {
	need := CommonHeaderSizeBytes + additionalHeaderSizeBytes + validBytes
	for k := uint8(MinSizeClass); k <= MaxSizeClass; k++ {
		if chunkSizeForClass(k) >= need {
			return k, nil
		}
	}
	return 0, ErrSizeClassOutOfRange
}

func chunkSizeForClass(k uint8) int {
	return 1 << (k + 5)
}

// ChunkSizeForClass returns the physical chunk size in bytes for size class
// k, or an error if k is out of [MinSizeClass, MaxSizeClass].
func ChunkSizeForClass(k uint8) (int, error) {
	if k > MaxSizeClass {
		return 0, ErrSizeClassOutOfRange
	}
	return chunkSizeForClass(k), nil
}

// commonHeader is the decoded form of the first CommonHeaderSizeBytes of a
// chunk buffer.
type commonHeader struct {
	typeTag          Type
	sizeClass        uint8
	numberValidBytes uint32
	flags            uint8
	crc              uint32
}

func (h commonHeader) chunkSize() int {
	return chunkSizeForClass(h.sizeClass)
}

func (h commonHeader) isLast() bool {
	return h.flags&flagIsLast != 0
}

// decodeCommonHeader parses the first CommonHeaderSizeBytes of buf. It never
// fails on an unrecognized type tag: typeTag holds the raw byte as read.
// baseChunk.load then rejects any tag other than the variant's expected
// one with a FormatError before it checks the CRC.
func decodeCommonHeader(buf []byte) commonHeader {
	return commonHeader{
		typeTag:          Type(buf[typeOffset]),
		sizeClass:        buf[sizeClassOffset],
		numberValidBytes: binary.LittleEndian.Uint32(buf[validBytesOffset : validBytesOffset+4]),
		flags:            buf[flagsOffset],
		crc:              binary.LittleEndian.Uint32(buf[crcOffset : crcOffset+crcFieldSizeBytes]),
	}
}

// encodeCommonHeader writes h's fields into the first CommonHeaderSizeBytes
// of buf, zeroing the CRC field and the trailing reserved bytes. It does not
// compute or write the CRC; callers compute the CRC over the full chunk
// buffer afterwards and write it with putCRC.
func encodeCommonHeader(buf []byte, h commonHeader) {
	buf[typeOffset] = byte(h.typeTag)
	buf[sizeClassOffset] = h.sizeClass
	binary.LittleEndian.PutUint32(buf[validBytesOffset:validBytesOffset+4], h.numberValidBytes)
	buf[flagsOffset] = h.flags
	buf[reservedByteOffset] = 0
	binary.LittleEndian.PutUint32(buf[crcOffset:crcOffset+crcFieldSizeBytes], 0)
	for i := headerReservedOffset; i < CommonHeaderSizeBytes; i++ {
		buf[i] = 0
	}
}

// computeCRC computes CRC-32C over the whole chunk buffer with the CRC
// field (bytes [crcOffset, crcOffset+4)) treated as zero. Per DESIGN.md's
// recorded open-question decision, the zero-filled reserved bytes of the
// common header participate in the CRC along with the payload.
func computeCRC(buf []byte) uint32 {
	crc := crc32.New(castagnoliTable)
	crc.Write(buf[:crcOffset])
	var zero [crcFieldSizeBytes]byte
	crc.Write(zero[:])
	crc.Write(buf[crcOffset+crcFieldSizeBytes:])
	return crc.Sum32()
}

func putCRC(buf []byte, crc uint32) {
	binary.LittleEndian.PutUint32(buf[crcOffset:crcOffset+crcFieldSizeBytes], crc)
}

// putLengthPrefixedString encodes a u16-length-prefixed UTF-8 string into
// buf at offset, returning the offset just past the written field. Returns
// ErrIdentifierTooLong if s does not fit in a uint16 length.
func putLengthPrefixedString(buf []byte, offset int, s string) (int, error) {
	if len(s) > 0xFFFF {
		return 0, ErrIdentifierTooLong
	}
	binary.LittleEndian.PutUint16(buf[offset:offset+2], uint16(len(s)))
	offset += 2
	copy(buf[offset:], s)
	return offset + len(s), nil
}

// getLengthPrefixedString decodes a u16-length-prefixed UTF-8 string from
// buf at offset, returning the string and the offset just past it.
func getLengthPrefixedString(buf []byte, offset int) (string, int) {
	n := int(binary.LittleEndian.Uint16(buf[offset : offset+2]))
	offset += 2
	s := string(buf[offset : offset+n])
	return s, offset + n
}
