package hashstore

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Store operations. Wrap these with fmt.Errorf's
// %w verb at call sites that add context; callers should match with
// errors.Is.
var (
	// ErrNotFound is returned when a lookup walks a chain to its end
	// without finding a matching key.
	ErrNotFound = errors.New("hashstore: key not found")

	// ErrKeyExists reports that a key is already present. No Store
	// operation returns it: Set on a key that is already present appends a
	// newer record for it.
	ErrKeyExists = errors.New("hashstore: key already exists")

	// ErrDependencyUnmet is returned by Set when a dependency anchor for
	// the key names a target that is missing from the caller's solved set.
	ErrDependencyUnmet = errors.New("hashstore: dependency not yet solved")

	// ErrClosed is returned by any operation attempted after Close.
	ErrClosed = errors.New("hashstore: store is closed")

	// ErrBadMagic is returned when a file's header does not begin with
	// the expected magic number.
	ErrBadMagic = errors.New("hashstore: bad magic number")

	// ErrRootBitsMismatch is returned when a file is reopened with a
	// root_bits value different from the one it was created with.
	ErrRootBitsMismatch = errors.New("hashstore: root_bits mismatch")

	// ErrCorrupt is returned when a record's on-disk framing cannot be
	// trusted (a read that ends before the payload length its prefix
	// declares), and by Update when a write comes back short.
	ErrCorrupt = errors.New("hashstore: corrupt record")

	// ErrKeyTooLarge reports a caller-supplied key that is not exactly
	// KeySize bytes. No function in this package returns it; KeyFromBytes
	// does not validate its input length.
	ErrKeyTooLarge = errors.New("hashstore: key must be exactly 32 bytes")
)

// CorruptError wraps ErrCorrupt with the file offset at which the
// inconsistency was observed, so operators can locate the bad record with a
// hex dump instead of guessing.
type CorruptError struct {
	Offset uint64
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("hashstore: corrupt record at offset %d: %s", e.Offset, e.Reason)
}

func (e *CorruptError) Unwrap() error { return ErrCorrupt }

// HeaderError wraps ErrBadMagic or ErrRootBitsMismatch with the values that
// were actually read, for diagnostics.
type HeaderError struct {
	Err  error
	Got  uint64
	Want uint64
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%s (got %#x, want %#x)", e.Err, e.Got, e.Want)
}

func (e *HeaderError) Unwrap() error { return e.Err }
