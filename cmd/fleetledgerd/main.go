// Command fleetledgerd is the ledger process entrypoint: it reads
// Config from the environment, wires an EventBus into a Ledger, opens
// the optional SQLite audit mirror, and serves the HTTP
// TransportAdapter. Structurally the direct analogue of the teacher's
// main.go (setupLogging, initConfig, initDB, mux + middleware + listen).
package main

import (
	"crypto/rand"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/invrn/fleetledger/internal/audit"
	"github.com/invrn/fleetledger/internal/config"
	"github.com/invrn/fleetledger/internal/eventbus"
	"github.com/invrn/fleetledger/internal/guest"
	"github.com/invrn/fleetledger/internal/ledger"
	"github.com/invrn/fleetledger/internal/receipt"
	"github.com/invrn/fleetledger/internal/transport"
)

var (
	infoLog  *log.Logger
	errorLog *log.Logger
)

// setupLogging opens the rotated-by-hand log files under ./logs, the
// same pair the teacher's utils.go:setupLogging keeps
// (logs/server.log, logs/error.log), teeing each to stdout/stderr too
// so a foreground run still shows output.
func setupLogging() {
	logDir := "./logs"
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		os.Mkdir(logDir, 0755)
	}
	fInfo, err := os.OpenFile(filepath.Join(logDir, "server.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("open server.log: %v", err)
	}
	fErr, err := os.OpenFile(filepath.Join(logDir, "error.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("open error.log: %v", err)
	}
	infoLog = log.New(io.MultiWriter(fInfo, os.Stdout), "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	errorLog = log.New(io.MultiWriter(fErr, os.Stderr), "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	setupLogging()
	cfg := config.FromEnv()
	guest.SetDebugLayout(cfg.DebugLayout)

	infoLog.Printf("fleetledgerd booting: addr=%s eventbus_capacity=%d debug_layout=%v audit_db=%q",
		cfg.Addr, cfg.EventBusCapacity, cfg.DebugLayout, cfg.AuditDBPath)

	proverKey := make([]byte, 32)
	if _, err := rand.Read(proverKey); err != nil {
		errorLog.Fatalf("generate prover key: %v", err)
	}
	prover := receipt.NewLocalProver(proverKey)

	bus := eventbus.New(cfg.EventBusCapacity, func(format string, args ...any) {
		infoLog.Printf(format, args...)
	})
	l := ledger.New(prover, bus)

	var mirror *audit.Mirror
	if cfg.AuditDBPath != "" {
		var err error
		mirror, err = audit.Open(cfg.AuditDBPath)
		if err != nil {
			errorLog.Fatalf("open audit mirror: %v", err)
		}
		defer mirror.Close()
		infoLog.Printf("audit mirror enabled at %s", cfg.AuditDBPath)
	}

	adapter := transport.New(l, transportBus(bus), mirrorRecorder(mirror), func(format string, args ...any) {
		infoLog.Printf(format, args...)
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      adapter.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // /logs streams indefinitely
		IdleTimeout:  120 * time.Second,
	}

	infoLog.Printf("fleetledgerd listening on %s", cfg.Addr)
	if err := server.ListenAndServe(); err != nil {
		errorLog.Fatal(err)
	}
}

// transportBus adapts *eventbus.Bus to transport.Subscribable.
func transportBus(b *eventbus.Bus) transport.Bus {
	return transport.Bus{Sub: func() (<-chan string, func()) {
		sub := b.Subscribe()
		return sub.Events, sub.Unsubscribe
	}}
}

// mirrorRecorder adapts a possibly-nil *audit.Mirror to
// transport.Recorder; a nil *audit.Mirror must become a nil interface,
// not a non-nil interface wrapping a nil pointer.
func mirrorRecorder(m *audit.Mirror) transport.Recorder {
	if m == nil {
		return nil
	}
	return m
}
