package guest

import (
	"testing"

	"github.com/invrn/fleetledger/internal/journal"
)

func TestValidProductionFleetAcceptsCanonicalLayout(t *testing.T) {
	if !validProductionFleet(validLayout()) {
		t.Fatal("canonical {1,1,2,2,3,4,5} layout must validate")
	}
}

func TestValidProductionFleetRejectsDuplicate(t *testing.T) {
	board := validLayout()
	board[1] = board[0]
	if validProductionFleet(board) {
		t.Fatal("duplicate cell must be rejected")
	}
}

func TestValidProductionFleetRejectsOutOfRange(t *testing.T) {
	board := validLayout()
	board[0] = 150
	if validProductionFleet(board) {
		t.Fatal("out-of-range cell must be rejected")
	}
}

func TestValidProductionFleetRejectsNonContiguousShip(t *testing.T) {
	// Same sizes as a valid fleet, but the "2" is split across two rows:
	// positions 19 and 20 aren't a single axis-aligned run of length 2.
	board := journal.BoardPositions{
		0, 2,
		19, 20,
		23, 33,
		40, 41, 42,
		50, 51, 52, 53,
		60, 61, 62, 63, 64,
	}
	if validProductionFleet(board) {
		t.Fatal("non-contiguous run must be rejected even with matching sizes")
	}
}

func TestValid3ShipDebugLayoutHorizontalAndVertical(t *testing.T) {
	if !valid3ShipDebugLayout(journal.BoardPositions{4, 5, 6}) {
		t.Fatal("horizontal 3-run should validate")
	}
	if !valid3ShipDebugLayout(journal.BoardPositions{4, 14, 24}) {
		t.Fatal("vertical 3-run should validate")
	}
	if valid3ShipDebugLayout(journal.BoardPositions{4, 5, 16}) {
		t.Fatal("non-contiguous 3 cells must be rejected")
	}
}
