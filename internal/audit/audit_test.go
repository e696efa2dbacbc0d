package audit

import (
	"path/filepath"
	"testing"

	"github.com/invrn/fleetledger/internal/journal"
	"github.com/invrn/fleetledger/internal/ledger"
)

func TestRecordAndTailRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	m, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	out1 := ledger.Outcome{Message: "Player alice joined game g1", Kind: ledger.KindOK}
	out2 := ledger.Outcome{Message: "It's not alice's turn to fire in game g1. It's bob's turn.", Kind: ledger.KindOutOfTurn}

	if err := m.Record("g1", journal.CmdJoin, out1); err != nil {
		t.Fatalf("Record 1: %v", err)
	}
	if err := m.Record("g1", journal.CmdFire, out2); err != nil {
		t.Fatalf("Record 2: %v", err)
	}

	msgs, err := m.Tail("g1", 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0] != out1.Message || msgs[1] != out2.Message {
		t.Fatalf("messages out of order or corrupted: %+v", msgs)
	}
}

func TestTailScopedToGame(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	m, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	m.Record("g1", journal.CmdJoin, ledger.Outcome{Message: "g1 event", Kind: ledger.KindOK})
	m.Record("g2", journal.CmdJoin, ledger.Outcome{Message: "g2 event", Kind: ledger.KindOK})

	msgs, err := m.Tail("g1", 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(msgs) != 1 || msgs[0] != "g1 event" {
		t.Fatalf("expected only g1's event, got %+v", msgs)
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"short",
		"a message long enough to actually compress well because it repeats repeats repeats repeats repeats",
	}
	for _, s := range cases {
		got := decompress(compress([]byte(s)))
		if string(got) != s {
			t.Fatalf("round trip failed for %q: got %q", s, got)
		}
	}
}
