package ledger

import "github.com/invrn/fleetledger/internal/journal"

// player is the Ledger's view of one participant: a fleet id and the
// public commitment of its current (un-hit) board.
type player struct {
	fleet        string
	currentState journal.Commitment
}

// game is a single match, keyed by GameID in Ledger.games. Fields mirror
// spec.md §3 exactly: at most one of nextPlayer/nextReport is set at any
// observable moment (I1), lastShotPos is set iff nextReport is (I3).
type game struct {
	players map[string]*player

	nextPlayer  *string
	nextReport  *string
	lastShotPos *journal.PositionIndex
	lastPlayer  *string
}

func newGame(firstJoiner string) *game {
	fj := firstJoiner
	return &game{
		players:    make(map[string]*player),
		nextPlayer: &fj,
	}
}

func strPtr(s string) *string { return &s }

func posPtr(p journal.PositionIndex) *journal.PositionIndex { return &p }
