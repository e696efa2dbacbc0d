// Package methods pins the five 32-byte program identifiers the ledger
// verifies receipts against. In the original zkVM system these are the
// build-time digests of compiled guest ELF binaries; lacking a zkVM here,
// each identifier is instead the BLAKE3 digest of its program's stable
// name, computed once at package init and never recomputed at runtime.
// Rotating a name (not just its logic) therefore invalidates every
// in-flight receipt, exactly as spec.md §6 requires of the real IDs.
package methods

import "lukechampine.com/blake3"

// ID is a pinned 32-byte program identifier.
type ID [32]byte

func pin(name string) ID {
	sum := blake3.Sum256([]byte(name))
	var id ID
	copy(id[:], sum[:])
	return id
}

var (
	JoinID   = pin("fleetledger.guest.join.v1")
	FireID   = pin("fleetledger.guest.fire.v1")
	ReportID = pin("fleetledger.guest.report.v1")
	WaveID   = pin("fleetledger.guest.wave.v1")
	WinID    = pin("fleetledger.guest.win.v1")
)
