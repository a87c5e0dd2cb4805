package hashstore

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/faithful-store/hashstore/continuity"
)

// Store is a single-file, append-only hash-chain key/value store. All
// exported methods are safe for concurrent use by multiple goroutines.
// Chain operations (Get, Set, Exists, and friends) hold the instance-level
// lock for read, so any number of them run concurrently with each other
// without blocking; Close takes the lock for write, so it always waits out
// every in-flight operation before unmapping the root table and closing the
// underlying file handles.
type Store struct {
	mu     sync.RWMutex
	closed bool

	path     string
	rootBits uint8
	logger   *slog.Logger
	cfg      config

	appendFile   *os.File
	appendMu     sync.Mutex
	appendOffset uint64

	rwFile *os.File

	mmapFile *os.File
	root     *rootTable
}

func closerOrNil(f *os.File) func() error {
	if f == nil {
		return nil
	}
	return f.Close
}

// Open opens the store at path, creating it with the given root_bits if
// it does not exist. If the file exists with a different root_bits, Open
// fails with ErrRootBitsMismatch.
func Open(path string, rootBits uint8, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	cfg.apply(opts)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createEmptyFile(path, rootBits); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("hashstore: stat %s: %w", path, err)
	} else if err := checkHeader(path, rootBits); err != nil {
		return nil, err
	}

	var appendFile, rwFile, mmapFile *os.File
	seqErr := continuity.NewSequence().
		Step(func() (err error) {
			appendFile, err = os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
			return
		}).
		Step(func() (err error) {
			rwFile, err = os.OpenFile(path, os.O_RDWR, 0o644)
			return
		}).
		Step(func() (err error) {
			mmapFile, err = os.OpenFile(path, os.O_RDWR, 0o644)
			return
		}).
		Err()
	if seqErr != nil {
		_ = continuity.CloseAll(closerOrNil(appendFile), closerOrNil(rwFile), closerOrNil(mmapFile))
		return nil, fmt.Errorf("hashstore: open %s: %w", path, seqErr)
	}

	root, err := openRootTable(mmapFile, rootBits)
	if err != nil {
		_ = continuity.CloseAll(appendFile.Close, rwFile.Close, mmapFile.Close)
		return nil, err
	}

	info, err := rwFile.Stat()
	if err != nil {
		_ = root.close()
		_ = continuity.CloseAll(appendFile.Close, rwFile.Close, mmapFile.Close)
		return nil, fmt.Errorf("hashstore: stat %s: %w", path, err)
	}

	s := &Store{
		path:         path,
		rootBits:     rootBits,
		logger:       cfg.logger,
		cfg:          cfg,
		appendFile:   appendFile,
		appendOffset: uint64(info.Size()),
		rwFile:       rwFile,
		mmapFile:     mmapFile,
		root:         root,
	}
	s.logger.Debug("opened store", "path", path, "root_bits", rootBits, "size", info.Size())
	return s, nil
}

// OpenEmpty is like Open, except it requires that no file already exists
// at path: it always creates a fresh store rather than attaching to one.
func OpenEmpty(path string, rootBits uint8, opts ...Option) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("hashstore: %s already exists", path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("hashstore: stat %s: %w", path, err)
	}
	return Open(path, rootBits, opts...)
}

// Reset discards every record and dependency anchor in the store,
// returning it to the same empty state OpenEmpty would have produced.
// Existing Pointers into the store become invalid after Reset.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	for i := range s.root.root {
		s.root.root[i].Store(0)
	}
	s.root.stats[0].Store(0)
	s.root.stats[1].Store(0)
	s.root.stats[2].Store(0)

	s.appendMu.Lock()
	defer s.appendMu.Unlock()
	if err := s.appendFile.Truncate(regionSize(s.rootBits)); err != nil {
		return fmt.Errorf("hashstore: truncate during reset: %w", err)
	}
	s.appendOffset = uint64(regionSize(s.rootBits))
	return nil
}

// createEmptyFile lays down a fresh header and zeroed root table at path.
// The record stream starts immediately after, at regionSize(rootBits).
func createEmptyFile(path string, rootBits uint8) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("hashstore: create %s: %w", path, err)
	}
	defer f.Close()

	hdr := fileHeader{rootBits: rootBits}
	if _, err := f.Write(hdr.marshal()); err != nil {
		return fmt.Errorf("hashstore: write header: %w", err)
	}
	if err := f.Truncate(regionSize(rootBits)); err != nil {
		return fmt.Errorf("hashstore: truncate root table: %w", err)
	}
	return nil
}

// checkHeader reads the header of an existing file and verifies its magic
// and root_bits match what the caller expects.
func checkHeader(path string, rootBits uint8) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("hashstore: open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, headerSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("hashstore: read header: %w", err)
	}
	hdr, err := unmarshalHeader(buf)
	if err != nil {
		return err
	}
	if hdr.rootBits != rootBits {
		return &HeaderError{Err: ErrRootBitsMismatch, Got: uint64(hdr.rootBits), Want: uint64(rootBits)}
	}
	return nil
}

// Stats flushes pending writes, then snapshots the store's element and
// dependency counters together with the current append-file length. The
// flush happens first so the returned file_length is never stale relative
// to the counters taken alongside it.
func (s *Store) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Stats{}, ErrClosed
	}

	if err := s.flushLocked(); err != nil {
		return Stats{}, err
	}

	stats := newStats(s.root.stats)
	s.appendMu.Lock()
	stats.fileLength = s.appendOffset
	s.appendMu.Unlock()
	return stats, nil
}

// FileLength returns the current size of the backing file, including the
// header, root table, and every record ever appended (reachable or not),
// without flushing first.
func (s *Store) FileLength() (uint64, error) {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()
	return s.appendOffset, nil
}

// flushLocked performs the actual durability work behind Flush and Stats.
// Callers must already hold s.mu for read (or write, via Reset) and must
// have checked s.closed.
func (s *Store) flushLocked() error {
	if err := s.root.sync(); err != nil {
		return fmt.Errorf("hashstore: flush root table: %w", err)
	}
	if s.cfg.syncOnFlush {
		if err := s.appendFile.Sync(); err != nil {
			return fmt.Errorf("hashstore: fsync append file: %w", err)
		}
	}
	return nil
}

// Flush durably persists the store to disk: it msyncs the mapped root
// table and, unless WithSyncOnFlush(false) was given, fsyncs the
// append-only handle too.
func (s *Store) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.flushLocked()
}

// Close flushes and releases every resource held by the store. It is safe
// to call Close more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	return continuity.CloseAll(
		s.flushLocked,
		s.root.close,
		s.appendFile.Close,
		s.rwFile.Close,
		s.mmapFile.Close,
	)
}
