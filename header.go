package hashstore

import (
	"encoding/binary"
	"fmt"
)

// Magic are the first eight bytes of every store file, spelling "HSHSTOR1"
// in ASCII. A mismatch means the file is corrupted or not a hash-chain
// store at all.
var Magic = [8]byte{'H', 'S', 'H', 'S', 'T', 'O', 'R', '1'}

// headerSize is the fixed size, in bytes, of the file header that precedes
// the root table: 8-byte magic, 1-byte root_bits, 7 reserved bytes, and
// four 8-byte statistics words.
const headerSize = 8 + 1 + 7 + 4*8

// fileHeader is the fixed-layout block at the start of every store file.
type fileHeader struct {
	rootBits uint8
	// stats words live at fixed offsets within the header so they can be
	// mapped as atomic.Uint64s alongside the root table; see stats.go.
	elements           uint64
	dependencies       uint64
	solvedDependencies uint64
	reserved           uint64
}

func (h fileHeader) marshal() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:8], Magic[:])
	buf[8] = h.rootBits
	// buf[9:16] stays zero: reserved.
	binary.LittleEndian.PutUint64(buf[16:24], h.elements)
	binary.LittleEndian.PutUint64(buf[24:32], h.dependencies)
	binary.LittleEndian.PutUint64(buf[32:40], h.solvedDependencies)
	binary.LittleEndian.PutUint64(buf[40:48], h.reserved)
	return buf
}

func unmarshalHeader(buf []byte) (fileHeader, error) {
	if len(buf) < headerSize {
		return fileHeader{}, fmt.Errorf("hashstore: short header: %d bytes, want %d", len(buf), headerSize)
	}
	var got [8]byte
	copy(got[:], buf[0:8])
	if got != Magic {
		return fileHeader{}, &HeaderError{
			Err:  ErrBadMagic,
			Got:  binary.BigEndian.Uint64(buf[0:8]),
			Want: binary.BigEndian.Uint64(Magic[:]),
		}
	}
	return fileHeader{
		rootBits:           buf[8],
		elements:           binary.LittleEndian.Uint64(buf[16:24]),
		dependencies:       binary.LittleEndian.Uint64(buf[24:32]),
		solvedDependencies: binary.LittleEndian.Uint64(buf[32:40]),
		reserved:           binary.LittleEndian.Uint64(buf[40:48]),
	}, nil
}

// rootTableSize returns the size, in bytes, of the bucket-head array for a
// store with the given root_bits: 2^root_bits buckets, 8 bytes each.
func rootTableSize(rootBits uint8) int64 {
	return int64(1) << rootBits * 8
}

// regionSize returns the total size of the mapped region (header plus root
// table) for a store with the given root_bits.
func regionSize(rootBits uint8) int64 {
	return headerSize + rootTableSize(rootBits)
}
