package hashstore

// SearchDepth bounds how far a chain walk is willing to travel back in
// time. It is supplied to Get, Exists, and Set.
type SearchDepth struct {
	after   uint32
	bounded bool
}

// FullSearch walks an entire chain back to its root, regardless of time.
func FullSearch() SearchDepth {
	return SearchDepth{}
}

// SearchAfter bounds a chain walk to records with time >= t, inclusive: the
// record at exactly t is still examined, and the walk stops once a record
// older than t has been considered.
func SearchAfter(t uint32) SearchDepth {
	return SearchDepth{after: t, bounded: true}
}

// check reports whether a chain walk continues past a record with the
// given time once that record has been examined. FullSearch always
// continues; SearchAfter(t) continues while time >= t.
func (d SearchDepth) check(time uint32) bool {
	if !d.bounded {
		return true
	}
	return time >= d.after
}
