package ledger

import (
	"testing"

	"github.com/invrn/fleetledger/internal/commitment"
	"github.com/invrn/fleetledger/internal/guest"
	"github.com/invrn/fleetledger/internal/journal"
	"github.com/invrn/fleetledger/internal/methods"
	"github.com/invrn/fleetledger/internal/receipt"
)

// collectingBus records every published message in order, the direct
// analogue of subscribing to internal/eventbus before any event is
// published (P6).
type collectingBus struct {
	events []string
}

func (b *collectingBus) Publish(msg string) { b.events = append(b.events, msg) }

func newTestLedger() (*Ledger, *collectingBus, *receipt.LocalProver) {
	prover := receipt.NewLocalProver([]byte("test-key"))
	bus := &collectingBus{}
	return New(prover, bus), bus, prover
}

func mustReceipt(t *testing.T, prover *receipt.LocalProver, program methods.ID, guestFn func() (any, error)) receipt.Receipt {
	t.Helper()
	r, err := prover.Prove(program, guestFn)
	if err != nil {
		t.Fatalf("prove failed: %v", err)
	}
	return r
}

func aliceLayout() journal.BoardPositions {
	return journal.BoardPositions{
		0, 2, 4, 5, 8, 18, 30, 31, 32, 50, 51, 52, 53, 70, 71, 72, 73, 74,
	}
}

func bobLayout() journal.BoardPositions {
	return journal.BoardPositions{
		5, 7, 21, 22, 29, 39, 41, 42, 43, 61, 62, 63, 64, 81, 82, 83, 84, 85,
	}
}

func joinReceipt(t *testing.T, prover *receipt.LocalProver, gameID, fleet, random string, board journal.BoardPositions) receipt.Receipt {
	return mustReceipt(t, prover, methods.JoinID, func() (any, error) {
		return guest.Join(journal.BaseInputs{GameID: gameID, Fleet: fleet, Board: board, Random: random})
	})
}

// TestTwoPlayerJoin covers spec.md §8 scenario S1.
func TestTwoPlayerJoin(t *testing.T) {
	l, bus, prover := newTestLedger()

	aliceR := joinReceipt(t, prover, "g1", "alice", "r_a", aliceLayout())
	if msg := l.Apply(journal.CmdJoin, aliceR); msg != "Player alice joined game g1" {
		t.Fatalf("unexpected join message: %q", msg)
	}

	bobR := joinReceipt(t, prover, "g1", "bob", "r_b", bobLayout())
	if msg := l.Apply(journal.CmdJoin, bobR); msg != "Player bob joined game g1" {
		t.Fatalf("unexpected join message: %q", msg)
	}

	snap, ok := l.Inspect("g1")
	if !ok {
		t.Fatal("expected game g1 to exist")
	}
	if len(snap.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(snap.Players))
	}
	if snap.NextPlayer == nil || *snap.NextPlayer != "alice" {
		t.Fatalf("expected alice to have the first turn, got %+v", snap.NextPlayer)
	}
	if snap.NextReport != nil {
		t.Fatalf("expected no pending report, got %+v", snap.NextReport)
	}

	wantEvents := []string{"Player alice joined game g1", "Player bob joined game g1"}
	for i, want := range wantEvents {
		if bus.events[i] != want {
			t.Fatalf("event %d: got %q want %q", i, bus.events[i], want)
		}
	}
}

// TestJoinIsIdempotent covers I4 / P5.
func TestJoinIsIdempotent(t *testing.T) {
	l, _, prover := newTestLedger()

	r := joinReceipt(t, prover, "g1", "alice", "r_a", aliceLayout())
	l.Apply(journal.CmdJoin, r)
	before, _ := l.Inspect("g1")

	msg := l.Apply(journal.CmdJoin, r)
	if msg != "Player already in game g1" {
		t.Fatalf("unexpected repeat-join message: %q", msg)
	}
	after, _ := l.Inspect("g1")
	if before.Players["alice"] != after.Players["alice"] {
		t.Fatalf("repeat join must not change state")
	}
}

func setupTwoPlayerGame(t *testing.T) (*Ledger, *collectingBus, *receipt.LocalProver) {
	l, bus, prover := newTestLedger()
	l.Apply(journal.CmdJoin, joinReceipt(t, prover, "g1", "alice", "r_a", aliceLayout()))
	l.Apply(journal.CmdJoin, joinReceipt(t, prover, "g1", "bob", "r_b", bobLayout()))
	return l, bus, prover
}

func fireReceipt(t *testing.T, prover *receipt.LocalProver, gameID, fleet, random, target string, board journal.BoardPositions, pos journal.PositionIndex) receipt.Receipt {
	return mustReceipt(t, prover, methods.FireID, func() (any, error) {
		return guest.Fire(journal.FireInputs{GameID: gameID, Fleet: fleet, Board: board, Random: random, Target: target, Pos: pos})
	})
}

func reportReceipt(t *testing.T, prover *receipt.LocalProver, gameID, fleet, random string, board journal.BoardPositions, pos journal.PositionIndex) receipt.Receipt {
	return mustReceipt(t, prover, methods.ReportID, func() (any, error) {
		return guest.Report(journal.FireInputs{GameID: gameID, Fleet: fleet, Board: board, Random: random, Pos: pos})
	})
}

// TestFireThenReportMiss covers spec.md §8 scenario S2.
func TestFireThenReportMiss(t *testing.T) {
	l, _, prover := setupTwoPlayerGame(t)

	fireR := fireReceipt(t, prover, "g1", "alice", "r_a", "bob", aliceLayout(), 0)
	msg := l.Apply(journal.CmdFire, fireR)
	if msg != "Player alice fired at bob's fleet at position A0 in game g1" {
		t.Fatalf("unexpected fire message: %q", msg)
	}

	snap, _ := l.Inspect("g1")
	if snap.NextPlayer != nil {
		t.Fatalf("expected no next_player after fire, got %+v", snap.NextPlayer)
	}
	if snap.NextReport == nil || *snap.NextReport != "bob" {
		t.Fatalf("expected bob to owe a report, got %+v", snap.NextReport)
	}
	if snap.LastShotPos == nil || *snap.LastShotPos != 0 {
		t.Fatalf("expected last_shot_pos=0, got %+v", snap.LastShotPos)
	}
	if snap.LastPlayer == nil || *snap.LastPlayer != "alice" {
		t.Fatalf("expected last_player=alice, got %+v", snap.LastPlayer)
	}

	reportR := reportReceipt(t, prover, "g1", "bob", "r_b", bobLayout(), 0)
	msg = l.Apply(journal.CmdReport, reportR)
	if msg != "Player bob reported result 'Miss' at position A0 in game g1" {
		t.Fatalf("unexpected report message: %q", msg)
	}

	snap, _ = l.Inspect("g1")
	if snap.NextPlayer == nil || *snap.NextPlayer != "bob" {
		t.Fatalf("expected bob's turn after report, got %+v", snap.NextPlayer)
	}
	if snap.NextReport != nil {
		t.Fatalf("expected no pending report after report, got %+v", snap.NextReport)
	}
	if snap.Players["bob"] != commitment.Commit("r_b", bobLayout()) {
		t.Fatalf("a Miss must leave bob's commitment unchanged")
	}
}

// TestFireThenReportHit covers spec.md §8 scenario S3.
func TestFireThenReportHit(t *testing.T) {
	l, _, prover := setupTwoPlayerGame(t)
	l.Apply(journal.CmdFire, fireReceipt(t, prover, "g1", "alice", "r_a", "bob", aliceLayout(), 5))

	reportR := reportReceipt(t, prover, "g1", "bob", "r_b", bobLayout(), 5)
	msg := l.Apply(journal.CmdReport, reportR)
	if msg != "Player bob reported result 'Hit' at position F0 in game g1" {
		t.Fatalf("unexpected report message: %q", msg)
	}

	snap, _ := l.Inspect("g1")
	expectBoard := make(journal.BoardPositions, 0, len(bobLayout())-1)
	for _, p := range bobLayout() {
		if p != 5 {
			expectBoard = append(expectBoard, p)
		}
	}
	if snap.Players["bob"] != commitment.Commit("r_b", expectBoard) {
		t.Fatalf("bob's state must advance to board-minus-hit-cell after a Hit")
	}
}

// TestOutOfTurnFire covers spec.md §8 scenario S4.
func TestOutOfTurnFire(t *testing.T) {
	l, _, prover := setupTwoPlayerGame(t)

	fireR := fireReceipt(t, prover, "g1", "bob", "r_b", "alice", bobLayout(), 0)
	msg := l.Apply(journal.CmdFire, fireR)
	want := "It's not bob's turn to fire in game g1. It's alice's turn."
	if msg != want {
		t.Fatalf("got %q want %q", msg, want)
	}

	snap, _ := l.Inspect("g1")
	if snap.NextPlayer == nil || *snap.NextPlayer != "alice" {
		t.Fatalf("out-of-turn fire must not change state")
	}
}

// TestStaleCommitmentFire covers spec.md §8 scenario S5: once a player's
// board has actually advanced (via a Report Hit), a Fire carrying their
// OLD, pre-advance commitment must be rejected with a StateMismatch-class
// reason — the check compares against the Ledger's last recorded state,
// never the player's original Join commitment.
func TestStaleCommitmentFire(t *testing.T) {
	l, _, prover := setupTwoPlayerGame(t)

	// Alice opens with a miss at pos 1 and Bob reports it, handing him the
	// turn. Bob then fires at Alice and hits her at pos 0; Alice reports
	// Hit, which advances her current_state to
	// commit(r_a, aliceLayout-without-0) and makes it her turn again.
	l.Apply(journal.CmdFire, fireReceipt(t, prover, "g1", "alice", "r_a", "bob", aliceLayout(), 1))
	l.Apply(journal.CmdReport, reportReceipt(t, prover, "g1", "bob", "r_b", bobLayout(), 1))
	l.Apply(journal.CmdFire, fireReceipt(t, prover, "g1", "bob", "r_b", "alice", bobLayout(), 0))
	l.Apply(journal.CmdReport, reportReceipt(t, prover, "g1", "alice", "r_a", aliceLayout(), 0))

	// Alice now tries to fire back, but the receipt recommits her STALE
	// pre-hit board rather than the one the Ledger just advanced to.
	staleR := fireReceipt(t, prover, "g1", "alice", "r_a", "bob", aliceLayout(), 1)
	out := l.ApplyDetailed(journal.CmdFire, staleR)
	if out.Kind != KindStateMismatch {
		t.Fatalf("expected KindStateMismatch, got %v: %s", out.Kind, out.Message)
	}
}

// TestWave covers spec.md §8 scenario S6.
func TestWave(t *testing.T) {
	l, _, prover := setupTwoPlayerGame(t)
	l.Apply(journal.CmdFire, fireReceipt(t, prover, "g1", "alice", "r_a", "bob", aliceLayout(), 5))
	l.Apply(journal.CmdReport, reportReceipt(t, prover, "g1", "bob", "r_b", bobLayout(), 5))

	bobAfterHit := make(journal.BoardPositions, 0, len(bobLayout())-1)
	for _, p := range bobLayout() {
		if p != 5 {
			bobAfterHit = append(bobAfterHit, p)
		}
	}
	waveR := mustReceipt(t, prover, methods.WaveID, func() (any, error) {
		return guest.Wave(journal.BaseInputs{GameID: "g1", Fleet: "bob", Board: bobAfterHit, Random: "r_b"})
	})
	msg := l.Apply(journal.CmdWave, waveR)
	if msg != "Player bob waved their turn on game g1" {
		t.Fatalf("unexpected wave message: %q", msg)
	}

	snap, _ := l.Inspect("g1")
	if snap.NextPlayer == nil || *snap.NextPlayer != "alice" {
		t.Fatalf("expected turn to return to alice after bob waves, got %+v", snap.NextPlayer)
	}
	if snap.LastPlayer == nil || *snap.LastPlayer != "bob" {
		t.Fatalf("expected last_player=bob after wave, got %+v", snap.LastPlayer)
	}
}

func TestFireRejectsSelfTarget(t *testing.T) {
	l, _, prover := setupTwoPlayerGame(t)
	// The guest itself rejects self-targeting before a receipt even
	// exists (spec.md §4.2.2) — Prove must fail.
	_, err := prover.Prove(methods.FireID, func() (any, error) {
		return guest.Fire(journal.FireInputs{GameID: "g1", Fleet: "alice", Board: aliceLayout(), Random: "r_a", Target: "alice", Pos: 1})
	})
	if err == nil {
		t.Fatal("expected self-fire to be rejected in-guest, before reaching the ledger")
	}
	_ = l
}

func TestFireRejectsUnknownTarget(t *testing.T) {
	l, _, prover := setupTwoPlayerGame(t)
	fireR := fireReceipt(t, prover, "g1", "alice", "r_a", "carol", aliceLayout(), 1)
	msg := l.Apply(journal.CmdFire, fireR)
	if msg != "Target fleet carol not found in game g1" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestApplyRejectsInvalidReceipt(t *testing.T) {
	l, _, prover := setupTwoPlayerGame(t)
	valid := fireReceipt(t, prover, "g1", "alice", "r_a", "bob", aliceLayout(), 1)
	tampered := valid
	tampered.Journal = append([]byte(nil), valid.Journal...)
	tampered.Journal[len(tampered.Journal)-2] = '9'

	out := l.ApplyDetailed(journal.CmdFire, tampered)
	if out.Kind != KindProofInvalid {
		t.Fatalf("expected KindProofInvalid, got %v: %s", out.Kind, out.Message)
	}
}

func TestWinClaim(t *testing.T) {
	l, _, prover := setupTwoPlayerGame(t)
	winR := mustReceipt(t, prover, methods.WinID, func() (any, error) {
		return guest.Win(journal.BaseInputs{GameID: "g1", Fleet: "alice", Board: aliceLayout(), Random: "r_a"})
	})
	msg := l.Apply(journal.CmdWin, winR)
	if msg != "Player alice claims victory in game g1!" {
		t.Fatalf("unexpected win message: %q", msg)
	}
}

func TestUnknownGame(t *testing.T) {
	l, _, prover := newTestLedger()
	fireR := fireReceipt(t, prover, "ghost", "alice", "r_a", "bob", aliceLayout(), 1)
	out := l.ApplyDetailed(journal.CmdFire, fireR)
	if out.Kind != KindUnknownGame {
		t.Fatalf("expected KindUnknownGame, got %v", out.Kind)
	}
}
