// Package commitment implements the single cryptographic primitive the
// rest of the protocol builds on: a SHA-256 digest over a per-player
// secret followed by the raw bytes of a board.
package commitment

import (
	"crypto/sha256"

	"github.com/invrn/fleetledger/internal/journal"
)

// Commit returns SHA256(random || positions_bytes), where positions_bytes
// is the raw concatenation of each index as a single byte in the order
// supplied. Order matters: callers must preserve the same board byte
// ordering across Join/Fire/Report/Wave/Win or commitments will not match.
func Commit(random string, positions journal.BoardPositions) journal.Commitment {
	h := sha256.New()
	h.Write([]byte(random))
	h.Write([]byte(positions))
	var out journal.Commitment
	copy(out[:], h.Sum(nil))
	return out
}
