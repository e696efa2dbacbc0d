// Package transport is the HTTP TransportAdapter described in spec.md
// §4.6 and §6: deliver {cmd, receipt} to the Ledger and return its plain
// response, stream EventBus broadcasts as Server-Sent Events, and answer
// a liveness probe. Route shape and middleware chain are grounded in the
// teacher's main.go (http.ServeMux, middlewareSecurity, middlewareCORS,
// /api/status), and the SSE log stream in
// original_source/src/blockchain/src/main.rs's logs handler
// (BroadcastStream over a tokio broadcast channel), reimplemented here
// over internal/eventbus.Subscribe.
package transport

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/invrn/fleetledger/internal/journal"
	"github.com/invrn/fleetledger/internal/ledger"
	"github.com/invrn/fleetledger/internal/receipt"
)

// Applier is the subset of *ledger.Ledger the adapter depends on.
type Applier interface {
	ApplyDetailed(cmd journal.Command, r receipt.Receipt) ledger.Outcome
}

// Subscribable is the subset of *eventbus.Bus the /logs route depends on.
type Subscribable interface {
	Subscribe() *Subscription
}

// Subscription mirrors eventbus.Subscription's exported surface, so
// transport depends only on the shape it needs rather than the concrete
// eventbus type.
type Subscription struct {
	Events      <-chan string
	Unsubscribe func()
}

// Bus adapts *eventbus.Bus to Subscribable. cmd/fleetledgerd constructs
// one around its concrete *eventbus.Bus.
type Bus struct {
	Sub func() (events <-chan string, unsubscribe func())
}

// Subscribe satisfies Subscribable.
func (b Bus) Subscribe() *Subscription {
	events, unsub := b.Sub()
	return &Subscription{Events: events, Unsubscribe: unsub}
}

// chainRequest is the wire shape of POST /chain's body, per spec.md §6:
// { cmd: "Join"|"Fire"|"Report"|"Wave"|"Win", receipt: <...> }.
type chainRequest struct {
	Cmd     journal.Command  `json:"cmd"`
	Receipt receipt.Receipt  `json:"receipt"`
}

// Recorder is the subset of internal/audit.Mirror the adapter can log
// outcomes to. Nil-safe: a nil Recorder disables audit mirroring, the
// same opt-in shape spec.md's Non-goals require (no mandatory persistence).
type Recorder interface {
	Record(gameid string, cmd journal.Command, out ledger.Outcome) error
}

// Adapter is the HTTP TransportAdapter. Build one with New and mount its
// Handler.
type Adapter struct {
	ledger   Applier
	bus      Subscribable
	audit    Recorder
	logf     func(format string, args ...any)

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds an Adapter dispatching to ledger and streaming bus.
// audit may be nil to disable mirroring. logf may be nil to discard
// per-request log lines.
func New(l Applier, bus Subscribable, audit Recorder, logf func(format string, args ...any)) *Adapter {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Adapter{ledger: l, bus: bus, audit: audit, logf: logf, limiters: make(map[string]*rate.Limiter)}
}

// Handler builds the mux: POST /chain, GET /logs, GET /healthz, wrapped
// in the same security-then-CORS middleware order the teacher's main.go
// uses.
func (a *Adapter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chain", a.handleChain)
	mux.HandleFunc("/logs", a.handleLogs)
	mux.HandleFunc("/healthz", a.handleHealthz)

	var h http.Handler = mux
	h = a.middlewareRateLimit(h)
	h = middlewareCORS(h)
	return h
}

func (a *Adapter) limiterFor(ip string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.limiters[ip]
	if !ok {
		l = rate.NewLimiter(5, 10)
		a.limiters[ip] = l
	}
	return l
}

// middlewareRateLimit applies a per-remote-address token bucket and tags
// every request with a correlation id, the same shape as the teacher's
// middlewareSecurity / getLimiter pair.
func (a *Adapter) middlewareRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !a.limiterFor(ip).Allow() {
			a.logf("transport[%s]: rate limit exceeded for %s", reqID, ip)
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		a.logf("transport[%s]: %s %s from %s", reqID, r.Method, r.URL.Path, ip)
		next.ServeHTTP(w, r)
	})
}

func middlewareCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleChain implements POST /chain per spec.md §6: decode {cmd,
// receipt}, dispatch to the Ledger, and write its plain-text response
// verbatim.
func (a *Adapter) handleChain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("malformed request: %v", err), http.StatusBadRequest)
		return
	}

	out := a.ledger.ApplyDetailed(req.Cmd, req.Receipt)

	if a.audit != nil {
		gameid := gameIDFromJournal(req.Cmd, req.Receipt)
		if err := a.audit.Record(gameid, req.Cmd, out); err != nil {
			a.logf("transport: audit record failed: %v", err)
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, out.Message)
}

// gameIDFromJournal best-effort extracts a gameid for audit tagging. All
// five journals share the field name, so a partial decode into the
// narrowest shape suffices; a malformed receipt yields an empty gameid,
// which Record tolerates.
func gameIDFromJournal(cmd journal.Command, r receipt.Receipt) string {
	var probe struct {
		GameID string `json:"gameid"`
	}
	_ = r.DecodeJournal(&probe)
	return probe.GameID
}

// handleLogs implements GET /logs: a Server-Sent-Events stream of every
// EventBus broadcast from the moment of subscription onward.
func (a *Adapter) handleLogs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := a.bus.Subscribe()
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg, ok := <-sub.Events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

// handleHealthz is a trivial liveness probe, the analogue of the
// teacher's /api/status.
func (a *Adapter) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
