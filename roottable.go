package hashstore

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// rootTable is the memory-mapped header-plus-bucket-array region of a
// store file. The header's four statistics words and every bucket head
// pointer are exposed as atomic.Uint64, cast in place over the mapped
// bytes the same way bucketteer.Reader casts a read-only mapped buffer
// into a []uint64 of hashes — except here the mapping is read-write, so
// CAS on a bucket head is durable the instant the kernel flushes the
// page.
type rootTable struct {
	file *os.File
	data []byte // raw mmap'd bytes, len == regionSize(rootBits)

	stats *[4]atomic.Uint64 // elements, dependencies, solvedDependencies, reserved
	root  []atomic.Uint64   // one entry per bucket
}

// openRootTable mmaps the first regionSize(rootBits) bytes of file
// read-write and wires up the atomic views over it. file must already be
// at least that large.
func openRootTable(file *os.File, rootBits uint8) (*rootTable, error) {
	size := regionSize(rootBits)
	data, err := unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("hashstore: mmap root table: %w", err)
	}

	statsBytes := data[16:headerSize]
	stats := (*[4]atomic.Uint64)(unsafe.Pointer(&statsBytes[0]))

	bucketBytes := data[headerSize:]
	numBuckets := int64(1) << rootBits
	var root []atomic.Uint64
	if numBuckets > 0 {
		root = unsafe.Slice((*atomic.Uint64)(unsafe.Pointer(&bucketBytes[0])), numBuckets)
	}

	return &rootTable{
		file:  file,
		data:  data,
		stats: stats,
		root:  root,
	}, nil
}

// head atomically loads the current head pointer for bucket.
func (t *rootTable) head(bucket uint32) Pointer {
	return Pointer(t.root[bucket].Load())
}

// casHead attempts to publish newHead as bucket's head pointer, provided
// the current value is still oldHead. It reports success so callers can
// decide whether to retry.
func (t *rootTable) casHead(bucket uint32, oldHead, newHead Pointer) bool {
	return t.root[bucket].CompareAndSwap(uint64(oldHead), uint64(newHead))
}

func (t *rootTable) incrElements()     { t.stats[0].Add(1) }
func (t *rootTable) incrDependencies() { t.stats[1].Add(1) }
func (t *rootTable) incrSolvedDependencies(n uint64) {
	if n > 0 {
		t.stats[2].Add(n)
	}
}

// sync flushes the mapped region to disk. Cheap no-op on platforms where
// the kernel has already written the pages back; called from Store.Flush.
func (t *rootTable) sync() error {
	return unix.Msync(t.data, unix.MS_SYNC)
}

// close unmaps the region. The underlying file is closed separately by
// the owning Store.
func (t *rootTable) close() error {
	if t.data == nil {
		return nil
	}
	err := unix.Munmap(t.data)
	t.data = nil
	return err
}
