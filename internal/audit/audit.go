// Package audit mirrors accepted and rejected ledger outcomes into
// SQLite for offline inspection. It is grounded directly on the
// teacher's own append-only transaction_log table (db.go:createSchema)
// and its WAL-mode open idiom (db.go:initDB). It is explicitly NOT the
// Ledger's source of truth: spec.md's Non-goals rule out persistence of
// game state across restarts, so nothing ever reads this database back
// into a Ledger. Losing it loses only a debugging trail.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pierrec/lz4/v4"

	"github.com/invrn/fleetledger/internal/journal"
	"github.com/invrn/fleetledger/internal/ledger"
)

// Mirror appends a compressed copy of every recorded outcome to a SQLite
// database. The zero value is not usable; build one with Open.
type Mirror struct {
	db *sql.DB
}

// Open opens (creating if needed) a WAL-mode SQLite database at path and
// ensures the event_log table exists.
func Open(path string) (*Mirror, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS event_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at INTEGER NOT NULL,
		gameid TEXT,
		command TEXT NOT NULL,
		kind TEXT NOT NULL,
		message_lz4 BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_event_log_gameid ON event_log(gameid);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &Mirror{db: db}, nil
}

// Close releases the underlying database handle.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// Record appends one outcome to the mirror. gameid may be empty (e.g. a
// malformed or unrecognized command never resolved to a game).
func (m *Mirror) Record(gameid string, cmd journal.Command, out ledger.Outcome) error {
	compressed := compress([]byte(out.Message))
	_, err := m.db.Exec(
		`INSERT INTO event_log (recorded_at, gameid, command, kind, message_lz4) VALUES (?, ?, ?, ?, ?)`,
		time.Now().Unix(), gameid, string(cmd), out.Kind.String(), compressed,
	)
	return err
}

// Tail returns the most recent n recorded messages (decompressed),
// newest last, for a game. Used by operator tooling, not by the Ledger.
func (m *Mirror) Tail(gameid string, n int) ([]string, error) {
	rows, err := m.db.Query(
		`SELECT message_lz4 FROM event_log WHERE gameid = ? ORDER BY id DESC LIMIT ?`,
		gameid, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reversed []string
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		reversed = append(reversed, string(decompress(blob)))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]string, len(reversed))
	for i, msg := range reversed {
		out[len(reversed)-1-i] = msg
	}
	return out, nil
}

func compress(src []byte) []byte {
	buf := make([]byte, lz4.CompressBlockBound(len(src)))
	var c lz4.Compressor
	n, err := c.CompressBlock(src, buf)
	if err != nil || n == 0 {
		// Incompressible or too short to benefit; store raw. A one-byte
		// tag (0 raw, 1 lz4 block) lets decompress tell them apart.
		return append([]byte{0}, src...)
	}
	return append([]byte{1}, buf[:n]...)
}

func decompress(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	tag, body := src[0], src[1:]
	if tag == 0 {
		return body
	}
	dst := make([]byte, 4096)
	for {
		n, err := lz4.UncompressBlock(body, dst)
		if err == nil {
			return dst[:n]
		}
		dst = make([]byte, len(dst)*2)
		if len(dst) > 1<<24 {
			return nil
		}
	}
}
