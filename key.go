package hashstore

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Key is a 32-byte opaque lookup key, typically a cryptographic digest
// (e.g. a block hash or account address). It is an alias for
// solana.PublicKey, giving keys base58 String()/MarshalJSON for free when
// logged or dumped in tests, matching how the rest of this domain's tooling
// keys entries.
type Key = solana.PublicKey

// KeyFromBytes copies b (which must be 32 bytes) into a Key.
func KeyFromBytes(b []byte) Key {
	return solana.PublicKeyFromBytes(b)
}

// bucketIndex returns the index into the root table that key falls into,
// given rootBits bits of bucket address space. It takes the first 4 bytes
// of key as a big-endian uint32 and right-shifts so only the top rootBits
// bits remain.
func bucketIndex(key Key, rootBits uint8) uint32 {
	leading := binary.BigEndian.Uint32(key[:4])
	return leading >> (32 - uint(rootBits))
}
