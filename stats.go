package hashstore

import (
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
)

// Stats is a snapshot of a store's three header counters plus the current
// append-file length, taken together by Store.Stats.
type Stats struct {
	elements           uint64
	dependencies       uint64
	solvedDependencies uint64
	fileLength         uint64
}

func newStats(words *[4]atomic.Uint64) Stats {
	return Stats{
		elements:           words[0].Load(),
		dependencies:       words[1].Load(),
		solvedDependencies: words[2].Load(),
	}
}

// Elements is the number of records ever successfully appended and
// published via a winning CAS by Set or SetUnchecked. Dependency anchors
// are not included; they are counted by Dependencies.
func (s Stats) Elements() uint64 { return s.elements }

// Dependencies is the number of dependency anchors inserted by
// GetDependency.
func (s Stats) Dependencies() uint64 { return s.dependencies }

// SolvedDependencies is the number of dependency anchors a Set call has
// found satisfied and consumed.
func (s Stats) SolvedDependencies() uint64 { return s.solvedDependencies }

// FileLength is the size of the backing file, including the header, root
// table, and every record ever appended (reachable or not), as of the
// moment Store.Stats took this snapshot.
func (s Stats) FileLength() uint64 { return s.fileLength }

// GarbageRatio counts every record in the append region, walks every
// bucket's chain, and reports what fraction of the appended records are
// not reachable from any chain head: CAS losers and superseded records
// left behind by the retry protocol in chain.go. It is a diagnostic, not
// part of the mandated chain-engine contract, and its cost is one scan of
// the append region plus one full rescan of every bucket.
//
// Reachable offsets are tracked by their xxHash64 rather than the raw
// 48-bit offset: buckets can number in the millions on a long-lived
// store, and collapsing them through a fixed-width hash keeps the
// in-memory seen-set small and cache-friendly the same way the teacher's
// bucket index computation hashes keys rather than storing them whole.
func (s *Store) GarbageRatio() (float64, error) {
	stats, err := s.Stats()
	if err != nil {
		return 0, err
	}
	var total uint64
	for off := uint64(regionSize(s.rootBits)); off < stats.FileLength(); total++ {
		prefix, _, err := s.readRecordStart(Pointer(off), 0)
		if err != nil {
			return 0, err
		}
		off += prefixLen + uint64(prefix.size)
	}
	if total == 0 {
		return 0, nil
	}

	seen := make(map[uint64]struct{}, total)
	numBuckets := uint32(len(s.root.root))
	for bucket := uint32(0); bucket < numBuckets; bucket++ {
		head := s.root.head(bucket)
		err := s.walkChainFrom(head, FullSearch(), func(ptr Pointer, _ recordPrefix, _ []byte) (bool, error) {
			var off [8]byte
			be := ptr.FileOffset()
			for i := range off {
				off[i] = byte(be >> (8 * i))
			}
			seen[xxhash.Sum64(off[:])] = struct{}{}
			return false, nil
		})
		if err != nil {
			return 0, err
		}
	}

	reachable := uint64(len(seen))
	if reachable >= total {
		return 0, nil
	}
	return float64(total-reachable) / float64(total), nil
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"elements=%s dependencies=%s solved_dependencies=%s file_length=%s",
		humanize.Comma(int64(s.Elements())),
		humanize.Comma(int64(s.Dependencies())),
		humanize.Comma(int64(s.SolvedDependencies())),
		humanize.Bytes(s.FileLength()),
	)
}
