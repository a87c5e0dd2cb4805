package hashstore

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, rootBits uint8) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.bin")
	s, err := Open(path, rootBits)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestPrefixMarshalRoundTrip(t *testing.T) {
	var k Key
	copy(k[:], bytes.Repeat([]byte{0x42}, KeySize))
	p := recordPrefix{key: k, prevPos: Pointer(0xdeadbeef), size: 1234, time: 99, isDependency: true}

	buf := p.marshal(nil)
	require.Len(t, buf, prefixLen)

	got, err := unmarshalPrefix(buf)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestAppendAndReadRecordSmall(t *testing.T) {
	s := openTestStore(t, 4)

	var k Key
	copy(k[:], bytes.Repeat([]byte{0x7}, KeySize))
	payload := []byte("hello, hash chain")

	ptr, err := s.appendRecord(recordPrefix{key: k, size: uint32(len(payload)), time: 7}, payload)
	require.NoError(t, err)

	prefix, partial, err := s.readRecordStart(ptr, 0)
	require.NoError(t, err)
	require.Equal(t, k, prefix.key)
	require.EqualValues(t, len(payload), prefix.size)

	got, err := s.readRecordFinish(ptr, prefix, partial)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestAppendAndReadRecordLarge(t *testing.T) {
	s := openTestStore(t, 4)

	var k Key
	copy(k[:], bytes.Repeat([]byte{0x9}, KeySize))
	payload := bytes.Repeat([]byte{0xAB}, 5_000_000)

	ptr, err := s.appendRecord(recordPrefix{key: k, size: uint32(len(payload)), time: 1}, payload)
	require.NoError(t, err)

	prefix, partial, err := s.readRecordStart(ptr, 0)
	require.NoError(t, err)
	got, err := s.readRecordFinish(ptr, prefix, partial)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestAppendRecordsAreContiguous(t *testing.T) {
	s := openTestStore(t, 4)

	var k1, k2 Key
	copy(k1[:], bytes.Repeat([]byte{0x1}, KeySize))
	copy(k2[:], bytes.Repeat([]byte{0x2}, KeySize))

	ptr1, err := s.appendRecord(recordPrefix{key: k1, size: 3, time: 1}, []byte("abc"))
	require.NoError(t, err)
	ptr2, err := s.appendRecord(recordPrefix{key: k2, size: 3, time: 2}, []byte("xyz"))
	require.NoError(t, err)

	require.Equal(t, ptr1.FileOffset()+uint64(prefixLen+3), ptr2.FileOffset())
}
