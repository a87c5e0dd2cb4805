package hashstore

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bin")
	s, err := Open(path, 8)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	n, err := s.FileLength()
	require.NoError(t, err)
	require.EqualValues(t, regionSize(8), n)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := openTestStoreNoCleanup(t, 4)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func openTestStoreNoCleanup(t *testing.T, rootBits uint8) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.bin")
	s, err := Open(path, rootBits)
	require.NoError(t, err)
	return s
}

func TestFlushSyncsRootTable(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	path := filepath.Join(t.TempDir(), "store.bin")
	s, err := Open(path, 4, WithLogger(logger), WithSyncOnFlush(true))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	_, err = s.SetUnchecked(keyOf(1), []byte("v"), 1)
	require.NoError(t, err)
	require.NoError(t, s.Flush())
}

func TestStatsTrackElementsAndDependencies(t *testing.T) {
	s := openTestStore(t, 4)

	_, err := s.SetUnchecked(keyOf(1), []byte("a"), 1)
	require.NoError(t, err)
	_, err = s.SetUnchecked(keyOf(2), []byte("b"), 2)
	require.NoError(t, err)
	stats, err := s.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Elements())

	_, err = s.GetDependency(keyOf(3), keyOf(4), 1)
	require.ErrorIs(t, err, ErrNotFound)
	stats, err = s.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Dependencies())

	_, err = s.Set(keyOf(3), []byte("c"), map[Key]struct{}{keyOf(4): {}}, FullSearch(), 2)
	require.NoError(t, err)
	stats, err = s.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.SolvedDependencies())

	require.Contains(t, stats.String(), "elements=3")
	require.Greater(t, stats.FileLength(), uint64(regionSize(4)))
}

func TestOpenEmptyRejectsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bin")
	s, err := OpenEmpty(path, 4)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = OpenEmpty(path, 4)
	require.Error(t, err)
}

func TestResetClearsStore(t *testing.T) {
	s := openTestStore(t, 4)

	_, err := s.SetUnchecked(keyOf(1), []byte("a"), 1)
	require.NoError(t, err)
	stats, err := s.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Elements())

	require.NoError(t, s.Reset())

	stats, err = s.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 0, stats.Elements())
	_, err = s.Get(keyOf(1), FullSearch())
	require.ErrorIs(t, err, ErrNotFound)

	n, err := s.FileLength()
	require.NoError(t, err)
	require.EqualValues(t, regionSize(4), n)
}

var _ io.Closer = (*Store)(nil)
