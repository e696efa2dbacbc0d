// Package moveencoder is the thin client-side layer described in
// spec.md §4.3: it turns a player's grid-coordinate intent into the
// guest's private-input struct, drives internal/receipt.Prover, and
// hands back a tagged Receipt ready for internal/transport. It owns no
// state and makes no network calls itself — grounded in the teacher's
// own "assemble request, call out, return" client helpers in
// user-console.go (sendHandshake, sendMove) adapted to the five-guest
// shape here instead of OwnWorld's single move verb.
package moveencoder

import (
	"fmt"

	"github.com/invrn/fleetledger/internal/guest"
	"github.com/invrn/fleetledger/internal/journal"
	"github.com/invrn/fleetledger/internal/methods"
	"github.com/invrn/fleetledger/internal/receipt"
)

// Encoder assembles guest inputs and obtains receipts via prover.
type Encoder struct {
	prover receipt.Prover
}

// New builds an Encoder backed by prover (typically a *receipt.LocalProver).
func New(prover receipt.Prover) *Encoder {
	return &Encoder{prover: prover}
}

// Coord converts a zero-based (x, y) grid coordinate into the
// PositionIndex spec.md §3 defines: pos = y*10 + x.
func Coord(x, y int) journal.PositionIndex {
	return journal.PositionIndex(y*10 + x)
}

// Join produces a Join-tagged receipt committing board under random.
func (e *Encoder) Join(gameID, fleet string, board journal.BoardPositions, random string) (journal.Command, receipt.Receipt, error) {
	in := journal.BaseInputs{GameID: gameID, Fleet: fleet, Board: board, Random: random}
	r, err := e.prover.Prove(methods.JoinID, func() (any, error) { return guest.Join(in) })
	if err != nil {
		return journal.CmdJoin, receipt.Receipt{}, fmt.Errorf("moveencoder: join: %w", err)
	}
	return journal.CmdJoin, r, nil
}

// Fire produces a Fire-tagged receipt targeting (x, y) on target's board.
func (e *Encoder) Fire(gameID, fleet string, board journal.BoardPositions, random, target string, x, y int) (journal.Command, receipt.Receipt, error) {
	in := journal.FireInputs{GameID: gameID, Fleet: fleet, Board: board, Random: random, Target: target, Pos: Coord(x, y)}
	r, err := e.prover.Prove(methods.FireID, func() (any, error) { return guest.Fire(in) })
	if err != nil {
		return journal.CmdFire, receipt.Receipt{}, fmt.Errorf("moveencoder: fire: %w", err)
	}
	return journal.CmdFire, r, nil
}

// Report produces a Report-tagged receipt answering the shot at (x, y).
func (e *Encoder) Report(gameID, fleet string, board journal.BoardPositions, random string, x, y int) (journal.Command, receipt.Receipt, error) {
	in := journal.FireInputs{GameID: gameID, Fleet: fleet, Board: board, Random: random, Pos: Coord(x, y)}
	r, err := e.prover.Prove(methods.ReportID, func() (any, error) { return guest.Report(in) })
	if err != nil {
		return journal.CmdReport, receipt.Receipt{}, fmt.Errorf("moveencoder: report: %w", err)
	}
	return journal.CmdReport, r, nil
}

// Wave produces a Wave-tagged receipt yielding the turn without change.
func (e *Encoder) Wave(gameID, fleet string, board journal.BoardPositions, random string) (journal.Command, receipt.Receipt, error) {
	in := journal.BaseInputs{GameID: gameID, Fleet: fleet, Board: board, Random: random}
	r, err := e.prover.Prove(methods.WaveID, func() (any, error) { return guest.Wave(in) })
	if err != nil {
		return journal.CmdWave, receipt.Receipt{}, fmt.Errorf("moveencoder: wave: %w", err)
	}
	return journal.CmdWave, r, nil
}

// Win produces a Win-tagged receipt claiming victory.
func (e *Encoder) Win(gameID, fleet string, board journal.BoardPositions, random string) (journal.Command, receipt.Receipt, error) {
	in := journal.BaseInputs{GameID: gameID, Fleet: fleet, Board: board, Random: random}
	r, err := e.prover.Prove(methods.WinID, func() (any, error) { return guest.Win(in) })
	if err != nil {
		return journal.CmdWin, receipt.Receipt{}, fmt.Errorf("moveencoder: win: %w", err)
	}
	return journal.CmdWin, r, nil
}
