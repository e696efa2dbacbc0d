// Package receipt defines the verifiable-bundle contract the Ledger
// consumes and supplies one concrete proving facility, LocalProver. Real
// deployments would swap LocalProver for a client of an actual
// zero-knowledge proving service; that service's internals are out of
// scope (spec.md §1) — this package binds only the shape of the contract.
package receipt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/invrn/fleetledger/internal/methods"
)

// Receipt bundles a journal with an opaque proof over it, tagged with the
// program it was produced against.
type Receipt struct {
	ProgramID methods.ID      `json:"program_id"`
	Journal   json.RawMessage `json:"journal"`
	Proof     []byte          `json:"proof"`
}

// DecodeJournal unmarshals the receipt's journal into dst.
func (r Receipt) DecodeJournal(dst any) error {
	return json.Unmarshal(r.Journal, dst)
}

// Verifier checks a Receipt was honestly produced against the named
// program. Ledger validation calls this before touching any game state.
type Verifier interface {
	Verify(r Receipt, program methods.ID) error
}

// Prover produces a Receipt for a named guest program given its private
// input. guestFn runs the guest predicate and returns its public journal.
type Prover interface {
	Prove(program methods.ID, guestFn func() (any, error)) (Receipt, error)
}

// LocalProver runs guest code directly in this process and authenticates
// the resulting journal with an HMAC-SHA256 tag under a process-local
// key, in place of an actual zero-knowledge proof. It satisfies both
// Prover and Verifier so tests and local runs can exercise the full
// verify/reject contract without a real proving backend.
type LocalProver struct {
	key []byte
}

// NewLocalProver builds a LocalProver keyed by key. A fixed, shared key
// lets a single process both prove and verify; a deployment with a
// separate verifier would distribute the key out of band or, more
// realistically, swap in a real zkVM-backed Prover/Verifier pair instead.
func NewLocalProver(key []byte) *LocalProver {
	cp := make([]byte, len(key))
	copy(cp, key)
	return &LocalProver{key: cp}
}

func (p *LocalProver) tag(program methods.ID, journalBytes []byte) []byte {
	mac := hmac.New(sha256.New, p.key)
	mac.Write(program[:])
	mac.Write(journalBytes)
	return mac.Sum(nil)
}

// Prove executes guestFn (the guest predicate), and on success returns a
// Receipt binding its journal to program. A guestFn error is a guest
// rejection (the Go stand-in for a zkVM panic) and yields no Receipt.
func (p *LocalProver) Prove(program methods.ID, guestFn func() (any, error)) (Receipt, error) {
	journalValue, err := guestFn()
	if err != nil {
		return Receipt{}, fmt.Errorf("guest rejected input: %w", err)
	}
	journalBytes, err := json.Marshal(journalValue)
	if err != nil {
		return Receipt{}, fmt.Errorf("encode journal: %w", err)
	}
	return Receipt{
		ProgramID: program,
		Journal:   journalBytes,
		Proof:     p.tag(program, journalBytes),
	}, nil
}

// Verify reports whether r's proof authenticates its journal under program.
func (p *LocalProver) Verify(r Receipt, program methods.ID) error {
	if r.ProgramID != program {
		return fmt.Errorf("receipt program id %x does not match expected %x", r.ProgramID, program)
	}
	want := p.tag(program, r.Journal)
	if !hmac.Equal(want, r.Proof) {
		return fmt.Errorf("receipt failed verification for program %x", program)
	}
	return nil
}
