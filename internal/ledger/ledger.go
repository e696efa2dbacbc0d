// Package ledger is the per-process authority described in spec.md §4.4:
// it owns the map of live games, validates every incoming receipt against
// its program identifier, and either advances game state and broadcasts
// an event, or rejects with a classified reason. All mutation happens
// inside a single mutual-exclusion region per spec.md §5 — verification
// (the expensive step) always runs before the critical section is
// entered, never inside it.
package ledger

import (
	"fmt"
	"sync"

	"github.com/invrn/fleetledger/internal/journal"
	"github.com/invrn/fleetledger/internal/methods"
	"github.com/invrn/fleetledger/internal/receipt"
)

// Broadcaster publishes a human-readable event string to any number of
// subscribers. internal/eventbus.Bus implements this.
type Broadcaster interface {
	Publish(msg string)
}

// Ledger is the authority for every live game. Safe for concurrent use;
// every exported method acquires mu for the duration of its state
// mutation and releases it before returning.
type Ledger struct {
	verifier receipt.Verifier
	bus      Broadcaster

	mu    sync.Mutex
	games map[string]*game
}

// New builds a Ledger that verifies receipts with verifier and
// broadcasts every outcome through bus.
func New(verifier receipt.Verifier, bus Broadcaster) *Ledger {
	return &Ledger{verifier: verifier, bus: bus, games: make(map[string]*game)}
}

// Outcome is the classified result of one Apply call: the plain-text
// response spec.md §6 defines, plus the §7 Kind it was classified under
// (KindOK on success). internal/audit and internal/transport both key
// off Kind; the wire response is always just Message.
type Outcome struct {
	Message string
	Kind    Kind
}

func (l *Ledger) outcome(kind Kind, format string, args ...any) Outcome {
	msg := fmt.Sprintf(format, args...)
	l.bus.Publish(msg)
	return Outcome{Message: msg, Kind: kind}
}

// Apply verifies r against the program identifier implied by cmd, then
// dispatches to the matching handler, returning the plain-text result for
// the transport layer to relay verbatim: the broadcast event message on
// success (e.g. "Player alice joined game g1"), the rejection reason
// otherwise.
func (l *Ledger) Apply(cmd journal.Command, r receipt.Receipt) string {
	return l.ApplyDetailed(cmd, r).Message
}

// ApplyDetailed is Apply plus the Kind classification, for callers (the
// audit mirror, tests) that need to distinguish rejection reasons.
func (l *Ledger) ApplyDetailed(cmd journal.Command, r receipt.Receipt) Outcome {
	program, ok := programFor(cmd)
	if !ok {
		return l.outcome(KindProofInvalid, "Unknown command %q", cmd)
	}
	if err := l.verifier.Verify(r, program); err != nil {
		return l.outcome(KindProofInvalid, "Attempting to %s with invalid receipt", cmd)
	}

	switch cmd {
	case journal.CmdJoin:
		var j journal.BaseJournal
		if err := r.DecodeJournal(&j); err != nil {
			return l.outcome(KindProofInvalid, "Malformed Join journal: %v", err)
		}
		return l.join(j)
	case journal.CmdFire:
		var j journal.FireJournal
		if err := r.DecodeJournal(&j); err != nil {
			return l.outcome(KindProofInvalid, "Malformed Fire journal: %v", err)
		}
		return l.fire(j)
	case journal.CmdReport:
		var j journal.ReportJournal
		if err := r.DecodeJournal(&j); err != nil {
			return l.outcome(KindProofInvalid, "Malformed Report journal: %v", err)
		}
		return l.report(j)
	case journal.CmdWave:
		var j journal.BaseJournal
		if err := r.DecodeJournal(&j); err != nil {
			return l.outcome(KindProofInvalid, "Malformed Wave journal: %v", err)
		}
		return l.wave(j)
	case journal.CmdWin:
		var j journal.BaseJournal
		if err := r.DecodeJournal(&j); err != nil {
			return l.outcome(KindProofInvalid, "Malformed Win journal: %v", err)
		}
		return l.win(j)
	default:
		return l.outcome(KindProofInvalid, "Unknown command %q", cmd)
	}
}

func programFor(cmd journal.Command) (methods.ID, bool) {
	switch cmd {
	case journal.CmdJoin:
		return methods.JoinID, true
	case journal.CmdFire:
		return methods.FireID, true
	case journal.CmdReport:
		return methods.ReportID, true
	case journal.CmdWave:
		return methods.WaveID, true
	case journal.CmdWin:
		return methods.WinID, true
	default:
		return methods.ID{}, false
	}
}

// join inserts a Player into the (possibly new) Game keyed by j.GameID.
// A second Join for an existing FleetId is a no-op (I4).
func (l *Ledger) join(j journal.BaseJournal) Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, exists := l.games[j.GameID]
	if !exists {
		g = newGame(j.Fleet)
		l.games[j.GameID] = g
	}

	if _, already := g.players[j.Fleet]; already {
		return l.outcome(KindOK, "Player already in game %s", j.GameID)
	}
	g.players[j.Fleet] = &player{fleet: j.Fleet, currentState: j.Board}
	return l.outcome(KindOK, "Player %s joined game %s", j.Fleet, j.GameID)
}

// fire enforces turn order and chain integrity, then hands the turn to
// target as next_report.
func (l *Ledger) fire(j journal.FireJournal) Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, ok := l.games[j.GameID]
	if !ok {
		return l.outcome(KindUnknownGame, "Game %s not found", j.GameID)
	}
	firer, ok := g.players[j.Fleet]
	if !ok {
		return l.outcome(KindUnknownFleet, "Firing fleet %s not found in game %s", j.Fleet, j.GameID)
	}

	if g.nextPlayer == nil {
		return l.outcome(KindOutOfTurn, "No player is allowed to fire right now in game %s. Awaiting report.", j.GameID)
	}
	if *g.nextPlayer != j.Fleet {
		return l.outcome(KindOutOfTurn, "It's not %s's turn to fire in game %s. It's %s's turn.", j.Fleet, j.GameID, *g.nextPlayer)
	}

	if firer.currentState != j.Board {
		return l.outcome(KindStateMismatch, "Invalid fire: board hash does not match stored state for fleet %s in game %s", j.Fleet, j.GameID)
	}

	if _, ok := g.players[j.Target]; !ok {
		return l.outcome(KindIllegalTarget, "Target fleet %s not found in game %s", j.Target, j.GameID)
	}

	g.nextReport = strPtr(j.Target)
	g.nextPlayer = nil
	g.lastPlayer = strPtr(j.Fleet)
	g.lastShotPos = posPtr(j.Pos)
	// Reaffirm rather than change: the check above proved equality, but
	// the firer's random means their commitment is still chained.
	firer.currentState = j.Board

	return l.outcome(KindOK, "Player %s fired at %s's fleet at position %s in game %s", j.Fleet, j.Target, journal.Label(j.Pos), j.GameID)
}

// report enforces report order and the exact-shot check, then advances
// the reporter's commitment to next_board and returns the turn to them.
func (l *Ledger) report(j journal.ReportJournal) Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, ok := l.games[j.GameID]
	if !ok {
		return l.outcome(KindUnknownGame, "Game %s not found", j.GameID)
	}
	reporter, ok := g.players[j.Fleet]
	if !ok {
		return l.outcome(KindUnknownFleet, "Reporting fleet %s not found in game %s", j.Fleet, j.GameID)
	}

	if g.nextReport == nil {
		return l.outcome(KindOutOfTurn, "No report expected at this time in game %s.", j.GameID)
	}
	if *g.nextReport != j.Fleet {
		return l.outcome(KindOutOfTurn, "It's not %s's turn to report in game %s. It's %s's turn.", j.Fleet, j.GameID, *g.nextReport)
	}

	if g.lastShotPos == nil {
		return l.outcome(KindReportMismatch, "Invalid report: no last shot position recorded for fleet %s in game %s", j.Fleet, j.GameID)
	}
	if *g.lastShotPos != j.Pos {
		return l.outcome(KindReportMismatch, "Invalid report: last shot position %s does not match reported position %s for fleet %s in game %s",
			journal.Label(*g.lastShotPos), journal.Label(j.Pos), j.Fleet, j.GameID)
	}

	if reporter.currentState != j.Board {
		return l.outcome(KindStateMismatch, "Invalid report: board hash does not match stored state for fleet %s in game %s", j.Fleet, j.GameID)
	}

	reporter.currentState = j.NextBoard
	g.nextPlayer = strPtr(j.Fleet)
	g.nextReport = nil
	g.lastShotPos = nil

	return l.outcome(KindOK, "Player %s reported result '%s' at position %s in game %s", j.Fleet, j.Report, journal.Label(j.Pos), j.GameID)
}

// wave yields the current turn back to whoever last fired.
func (l *Ledger) wave(j journal.BaseJournal) Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, ok := l.games[j.GameID]
	if !ok {
		return l.outcome(KindUnknownGame, "Game %s not found", j.GameID)
	}
	waver, ok := g.players[j.Fleet]
	if !ok {
		return l.outcome(KindUnknownFleet, "Reporting fleet %s not found in game %s", j.Fleet, j.GameID)
	}

	if waver.currentState != j.Board {
		return l.outcome(KindStateMismatch, "Invalid report: board hash does not match stored state for fleet %s in game %s", j.Fleet, j.GameID)
	}

	if g.nextPlayer == nil {
		return l.outcome(KindOutOfTurn, "No player is allowed to wave right now in game %s. Awaiting report.", j.GameID)
	}
	if *g.nextPlayer != j.Fleet {
		return l.outcome(KindOutOfTurn, "It's not %s's turn to wave in game %s. It's %s's turn.", j.Fleet, j.GameID, *g.nextPlayer)
	}

	if g.lastPlayer == nil {
		return l.outcome(KindOutOfTurn, "No last player found to set next player in game %s", j.GameID)
	}

	out := l.outcome(KindOK, "Player %s waved their turn on game %s", j.Fleet, j.GameID)
	g.nextPlayer = strPtr(*g.lastPlayer)
	g.lastPlayer = strPtr(j.Fleet)
	return out
}

// win records a victory claim. The Ledger does not verify the claimant is
// the sole remaining fleet (spec.md §9 Open Questions) — only that their
// own board commitment matches, which the Win guest's own non-empty-board
// proof already established.
func (l *Ledger) win(j journal.BaseJournal) Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, ok := l.games[j.GameID]
	if !ok {
		return l.outcome(KindUnknownGame, "Game %s not found", j.GameID)
	}
	claimant, ok := g.players[j.Fleet]
	if !ok {
		return l.outcome(KindUnknownFleet, "Reporting fleet %s not found in game %s", j.Fleet, j.GameID)
	}
	if claimant.currentState != j.Board {
		return l.outcome(KindStateMismatch, "Invalid report: board hash does not match stored state for fleet %s in game %s", j.Fleet, j.GameID)
	}
	return l.outcome(KindOK, "Player %s claims victory in game %s!", j.Fleet, j.GameID)
}

// Snapshot returns read-only views used by tests to assert invariants
// without reaching into package-private state.
type Snapshot struct {
	NextPlayer  *string
	NextReport  *string
	LastShotPos *journal.PositionIndex
	LastPlayer  *string
	Players     map[string]journal.Commitment
}

// Inspect returns a Snapshot of the named game, or ok=false if it does
// not exist. Used by tests asserting I1-I5 and the §8 scenarios.
func (l *Ledger) Inspect(gameID string) (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, ok := l.games[gameID]
	if !ok {
		return Snapshot{}, false
	}
	players := make(map[string]journal.Commitment, len(g.players))
	for id, p := range g.players {
		players[id] = p.currentState
	}
	return Snapshot{
		NextPlayer:  g.nextPlayer,
		NextReport:  g.nextReport,
		LastShotPos: g.lastShotPos,
		LastPlayer:  g.lastPlayer,
		Players:     players,
	}, true
}
