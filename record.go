package hashstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// KeySize is the fixed width, in bytes, of every key.
const KeySize = 32

// prefixLen is the fixed on-disk size of a recordPrefix: 32-byte key,
// 8-byte prev_pos, 4-byte size, 4-byte time, 1-byte dependency flag.
const prefixLen = KeySize + 8 + 4 + 4 + 1

// recordPrefix is the fixed-layout header that precedes every value's
// payload in the append region. Fields are serialized little-endian, by
// hand, rather than through reflection-based encoding: the layout is part
// of the on-disk format and must never shift because a struct field was
// reordered.
type recordPrefix struct {
	key          Key
	prevPos      Pointer
	size         uint32
	time         uint32
	isDependency bool
}

// marshal appends the serialized form of p to dst and returns the result.
func (p recordPrefix) marshal(dst []byte) []byte {
	var buf [prefixLen]byte
	copy(buf[0:KeySize], p.key[:])
	binary.LittleEndian.PutUint64(buf[32:40], uint64(p.prevPos))
	binary.LittleEndian.PutUint32(buf[40:44], p.size)
	binary.LittleEndian.PutUint32(buf[44:48], p.time)
	if p.isDependency {
		buf[48] = 1
	}
	return append(dst, buf[:]...)
}

// unmarshalPrefix parses the fixed prefix out of b, which must be at least
// prefixLen bytes.
func unmarshalPrefix(b []byte) (recordPrefix, error) {
	if len(b) < prefixLen {
		return recordPrefix{}, fmt.Errorf("hashstore: short prefix buffer: %d bytes, want %d", len(b), prefixLen)
	}
	var p recordPrefix
	copy(p.key[:], b[0:KeySize])
	p.prevPos = Pointer(binary.LittleEndian.Uint64(b[32:40]))
	p.size = binary.LittleEndian.Uint32(b[40:44])
	p.time = binary.LittleEndian.Uint32(b[44:48])
	p.isDependency = b[48] != 0
	return p, nil
}

// appendRecord serializes prefix, appends prefix||payload as a single write
// to the append-only handle, and returns the pointer to the new record.
// The write syscall completes before this function returns, so a
// subsequent CAS publishing the returned pointer is always safe: any
// reader that observes the new head through a different file handle will
// see these bytes.
func (s *Store) appendRecord(prefix recordPrefix, payload []byte) (Pointer, error) {
	buf := make([]byte, 0, prefixLen+len(payload))
	buf = prefix.marshal(buf)
	buf = append(buf, payload...)

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	offset := s.appendOffset
	n, err := s.appendFile.Write(buf)
	if err != nil {
		return 0, fmt.Errorf("hashstore: append write: %w", err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("hashstore: append write: short write %d of %d bytes", n, len(buf))
	}
	s.appendOffset += uint64(n)

	return EncodePointer(offset, len(buf)), nil
}

// readRecordStart performs the probe read of §4.2: it reads
// max(prefixLen+sizeNeeded, ptr.SizeHint()) bytes starting at ptr's file
// offset, tolerating io.EOF as long as at least prefixLen bytes still came
// back (the hint may overshoot the actual record length). Any other error,
// or an EOF that cut off mid-prefix, is always fatal regardless of how
// many bytes ReadAt returned. It returns the parsed prefix and whatever
// payload bytes the probe happened to pick up.
func (s *Store) readRecordStart(ptr Pointer, sizeNeeded int) (recordPrefix, []byte, error) {
	want := prefixLen + sizeNeeded
	if h := ptr.SizeHint(); h > want {
		want = h
	}
	buf := make([]byte, want)
	n, err := s.rwFile.ReadAt(buf, int64(ptr.FileOffset()))
	if err != nil {
		if !errors.Is(err, io.EOF) || n < prefixLen {
			return recordPrefix{}, nil, fmt.Errorf("hashstore: read record at offset %d: %w", ptr.FileOffset(), err)
		}
	}
	buf = buf[:n]

	prefix, uerr := unmarshalPrefix(buf)
	if uerr != nil {
		return recordPrefix{}, nil, uerr
	}
	partial := append([]byte(nil), buf[prefixLen:]...)
	return prefix, partial, nil
}

// readRecordFinish completes a payload read begun by readRecordStart: if
// the probe didn't capture the whole payload, the remaining suffix is read
// sequentially from the position immediately following what was already
// captured. Reaching EOF here means the file is corrupt, since the prefix
// itself declared the payload's true length.
func (s *Store) readRecordFinish(ptr Pointer, prefix recordPrefix, partial []byte) ([]byte, error) {
	if uint32(len(partial)) >= prefix.size {
		return partial[:prefix.size], nil
	}
	missing := int(prefix.size) - len(partial)
	rest := make([]byte, missing)
	at := int64(ptr.FileOffset()) + prefixLen + int64(len(partial))
	n, err := s.rwFile.ReadAt(rest, at)
	if err != nil {
		return nil, &CorruptError{
			Offset: ptr.FileOffset(),
			Reason: fmt.Sprintf("read-finish hit %v after %d/%d payload bytes", err, len(partial)+n, prefix.size),
		}
	}
	return append(partial, rest...), nil
}
