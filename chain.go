package hashstore

// chainVisitor is called with each record encountered by walkChainFrom, in
// newest-to-oldest order. partial holds whatever payload bytes the probe
// read already captured; visitors that need the full payload must pass
// partial to readRecordFinish themselves. Returning stop==true ends the
// walk immediately, before the depth predicate is consulted for this
// record.
type chainVisitor func(ptr Pointer, prefix recordPrefix, partial []byte) (stop bool, err error)

// walkChainFrom walks the chain starting at start, newest-to-oldest,
// calling visit for every record. After a non-matching record, depth
// decides whether the walk continues to prefix.prevPos.
func (s *Store) walkChainFrom(start Pointer, depth SearchDepth, visit chainVisitor) error {
	ptr := start
	for !ptr.IsZero() {
		prefix, partial, err := s.readRecordStart(ptr, 0)
		if err != nil {
			return err
		}
		stop, err := visit(ptr, prefix, partial)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
		if !depth.check(prefix.time) {
			return nil
		}
		ptr = prefix.prevPos
	}
	return nil
}

// Exists reports whether k has a non-dependency record reachable within
// depth.
func (s *Store) Exists(k Key, depth SearchDepth) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}

	bucket := bucketIndex(k, s.rootBits)
	head := s.root.head(bucket)
	found := false
	err := s.walkChainFrom(head, depth, func(_ Pointer, prefix recordPrefix, _ []byte) (bool, error) {
		if !prefix.isDependency && prefix.key == k {
			found = true
			return true, nil
		}
		return false, nil
	})
	return found, err
}

// Get walks k's bucket chain and returns the payload of the newest
// non-dependency record matching k within depth. It returns ErrNotFound if
// none is reachable.
func (s *Store) Get(k Key, depth SearchDepth) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	bucket := bucketIndex(k, s.rootBits)
	head := s.root.head(bucket)

	var value []byte
	hit := false
	err := s.walkChainFrom(head, depth, func(ptr Pointer, prefix recordPrefix, partial []byte) (bool, error) {
		if prefix.isDependency || prefix.key != k {
			return false, nil
		}
		payload, ferr := s.readRecordFinish(ptr, prefix, partial)
		if ferr != nil {
			return false, ferr
		}
		value = payload
		hit = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !hit {
		return nil, ErrNotFound
	}
	return value, nil
}

// GetByPtr reads the full record at ptr directly, without any chain walk.
func (s *Store) GetByPtr(ptr Pointer) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	prefix, partial, err := s.readRecordStart(ptr, 0)
	if err != nil {
		return nil, err
	}
	return s.readRecordFinish(ptr, prefix, partial)
}

// SetUnchecked appends a new record for k with value v, stamped with time,
// and publishes it as its bucket's new head. On a CAS collision with a
// concurrent writer it retries: rebuild the record against the new head
// and CAS again, indefinitely. The record left behind by a losing attempt
// stays in the append log, unreachable from any chain.
func (s *Store) SetUnchecked(k Key, v []byte, time uint32) (Pointer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	bucket := bucketIndex(k, s.rootBits)
	for {
		head := s.root.head(bucket)
		prefix := recordPrefix{key: k, prevPos: head, size: uint32(len(v)), time: time}
		ptr, err := s.appendRecord(prefix, v)
		if err != nil {
			return 0, err
		}
		if s.root.casHead(bucket, head, ptr) {
			s.root.incrElements()
			return ptr, nil
		}
		s.logger.Debug("cas retry", "op", "set_unchecked", "bucket", bucket)
	}
}

// scanDependencies walks k's bucket chain under depth, collecting every
// dependency anchor for k. It reports how many anchors were found and how
// many of their dependent_on targets are absent from solved.
func (s *Store) scanDependencies(head Pointer, k Key, depth SearchDepth, solved map[Key]struct{}) (found int, unmet int, err error) {
	err = s.walkChainFrom(head, depth, func(ptr Pointer, prefix recordPrefix, partial []byte) (bool, error) {
		if !prefix.isDependency || prefix.key != k {
			return false, nil
		}
		payload, ferr := s.readRecordFinish(ptr, prefix, partial)
		if ferr != nil {
			return false, ferr
		}
		found++
		var dependentOn Key
		copy(dependentOn[:], payload)
		if _, ok := solved[dependentOn]; !ok {
			unmet++
		}
		return false, nil
	})
	return found, unmet, err
}

// Set appends k/v as SetUnchecked does, but first requires every
// dependency anchor for k reachable within depth to name a target present
// in solved. If any anchor is unmet, Set returns ErrDependencyUnmet and
// writes nothing. The dependency scan and the append/CAS are retried
// together on a CAS collision, so a concurrent writer cannot sneak an
// unmet anchor past a Set that already decided to proceed.
func (s *Store) Set(k Key, v []byte, solved map[Key]struct{}, depth SearchDepth, time uint32) (Pointer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	bucket := bucketIndex(k, s.rootBits)
	for {
		head := s.root.head(bucket)

		found, unmet, err := s.scanDependencies(head, k, depth, solved)
		if err != nil {
			return 0, err
		}
		if unmet > 0 {
			return 0, ErrDependencyUnmet
		}

		prefix := recordPrefix{key: k, prevPos: head, size: uint32(len(v)), time: time}
		ptr, err := s.appendRecord(prefix, v)
		if err != nil {
			return 0, err
		}
		if s.root.casHead(bucket, head, ptr) {
			s.root.incrElements()
			s.root.incrSolvedDependencies(uint64(found))
			return ptr, nil
		}
		s.logger.Debug("cas retry", "op", "set", "bucket", bucket)
	}
}

// GetDependency looks for any record (anchor or real value) keyed by k. If
// one exists, its full payload is returned. Otherwise a dependency anchor
// naming dependentOn is inserted as the new bucket head and ErrNotFound is
// returned; a CAS collision restarts the whole lookup-then-insert
// operation, so the anchor is never silently lost to a concurrent writer
// that prepends a real value in the meantime.
func (s *Store) GetDependency(k Key, dependentOn Key, time uint32) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	bucket := bucketIndex(k, s.rootBits)
	for {
		head := s.root.head(bucket)

		var value []byte
		hit := false
		err := s.walkChainFrom(head, FullSearch(), func(ptr Pointer, prefix recordPrefix, partial []byte) (bool, error) {
			if prefix.key != k {
				return false, nil
			}
			payload, ferr := s.readRecordFinish(ptr, prefix, partial)
			if ferr != nil {
				return false, ferr
			}
			value = payload
			hit = true
			return true, nil
		})
		if err != nil {
			return nil, err
		}
		if hit {
			return value, nil
		}

		anchor := recordPrefix{key: k, prevPos: head, size: KeySize, time: time, isDependency: true}
		ptr, err := s.appendRecord(anchor, dependentOn[:])
		if err != nil {
			return nil, err
		}
		if s.root.casHead(bucket, head, ptr) {
			s.root.incrDependencies()
			return nil, ErrNotFound
		}
		s.logger.Debug("cas retry", "op", "get_dependency", "bucket", bucket)
	}
}

// Update overwrites len(data) bytes of an existing record's payload,
// starting offsetInValue bytes into it, via the positional read-write
// handle. The caller is responsible for ensuring the target byte range
// only ever moves toward one final value; Update never touches chain
// linkage, so it doesn't coordinate with other writers beyond the
// instance-level lock every chain op already takes.
func (s *Store) Update(ptr Pointer, data []byte, offsetInValue int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	at := int64(ptr.FileOffset()) + prefixLen + int64(offsetInValue)
	n, err := s.rwFile.WriteAt(data, at)
	if err != nil {
		return err
	}
	if n != len(data) {
		return ErrCorrupt
	}
	return nil
}
