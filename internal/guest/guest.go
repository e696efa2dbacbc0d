// Package guest implements the five deterministic proof guests: Join,
// Fire, Report, Wave, Win. Each is a pure function over a private input
// struct that returns a public journal or an error. In the original
// system these run inside a zkVM and a panic aborts proof generation
// before a receipt is ever produced; here an error plays that role —
// internal/receipt.LocalProver never wraps a failed guest call in a
// Receipt, so a rejected guest call never reaches the Ledger.
package guest

import (
	"errors"
	"fmt"

	"github.com/invrn/fleetledger/internal/commitment"
	"github.com/invrn/fleetledger/internal/journal"
)

var (
	// ErrInvalidLayout is returned by Join when the board does not
	// decompose into the required ship set.
	ErrInvalidLayout = errors.New("invalid fleet positioning")
	// ErrInvalidPosition is returned by Fire/Report for pos >= 100.
	ErrInvalidPosition = errors.New("invalid shot position: must be within the 10x10 board (0-99)")
	// ErrFleetSunk is returned by Fire/Win when the board is empty.
	ErrFleetSunk = errors.New("fleet is completely sunk")
	// ErrSelfTarget is returned by Fire when fleet == target.
	ErrSelfTarget = errors.New("cannot fire at own fleet")
)

// Join validates the fleet layout and commits it.
func Join(in journal.BaseInputs) (journal.BaseJournal, error) {
	if !validFleet(in.Board) {
		return journal.BaseJournal{}, ErrInvalidLayout
	}
	return journal.BaseJournal{
		GameID: in.GameID,
		Fleet:  in.Fleet,
		Board:  commitment.Commit(in.Random, in.Board),
	}, nil
}

// Fire validates the shot and firer state, then commits the firer's
// current (unchanged) board alongside the declared target and position.
// It does NOT prove anything about the target board.
func Fire(in journal.FireInputs) (journal.FireJournal, error) {
	if in.Pos >= 100 {
		return journal.FireJournal{}, fmt.Errorf("%w: got %d", ErrInvalidPosition, in.Pos)
	}
	if len(in.Board) == 0 {
		return journal.FireJournal{}, ErrFleetSunk
	}
	if in.Fleet == in.Target {
		return journal.FireJournal{}, ErrSelfTarget
	}
	return journal.FireJournal{
		GameID: in.GameID,
		Fleet:  in.Fleet,
		Board:  commitment.Commit(in.Random, in.Board),
		Target: in.Target,
		Pos:    in.Pos,
	}, nil
}

// Report computes whether in.Pos is occupied, derives next_board by
// removing it on a hit, and commits both the pre- and post-shot boards.
// The zero-knowledge proof this wraps is what makes a reporter's Hit/Miss
// claim binding: next_board's structure is forced by the declared report.
func Report(in journal.FireInputs) (journal.ReportJournal, error) {
	if in.Pos >= 100 {
		return journal.ReportJournal{}, fmt.Errorf("%w: got %d", ErrInvalidPosition, in.Pos)
	}

	isHit := false
	for _, p := range in.Board {
		if p == in.Pos {
			isHit = true
			break
		}
	}

	nextBoard := in.Board
	if isHit {
		nextBoard = make(journal.BoardPositions, 0, len(in.Board)-1)
		for _, p := range in.Board {
			if p != in.Pos {
				nextBoard = append(nextBoard, p)
			}
		}
	}

	report := journal.ReportMiss
	if isHit {
		report = journal.ReportHit
	}

	return journal.ReportJournal{
		GameID:    in.GameID,
		Fleet:     in.Fleet,
		Report:    report,
		Pos:       in.Pos,
		Board:     commitment.Commit(in.Random, in.Board),
		NextBoard: commitment.Commit(in.Random, nextBoard),
	}, nil
}

// Wave is a pure recommit: yield the turn without changing the board.
func Wave(in journal.BaseInputs) (journal.BaseJournal, error) {
	return journal.BaseJournal{
		GameID: in.GameID,
		Fleet:  in.Fleet,
		Board:  commitment.Commit(in.Random, in.Board),
	}, nil
}

// Win proves the claimant's fleet still has at least one un-hit cell.
// It is not a completeness proof that the claimant is the sole survivor
// (spec.md §9 Open Questions) — that is left to external observation.
func Win(in journal.BaseInputs) (journal.BaseJournal, error) {
	if len(in.Board) == 0 {
		return journal.BaseJournal{}, ErrFleetSunk
	}
	return journal.BaseJournal{
		GameID: in.GameID,
		Fleet:  in.Fleet,
		Board:  commitment.Commit(in.Random, in.Board),
	}, nil
}
