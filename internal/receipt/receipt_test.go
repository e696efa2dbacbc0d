package receipt

import (
	"testing"

	"github.com/invrn/fleetledger/internal/methods"
)

type dummyJournal struct {
	Value int `json:"value"`
}

func TestProveThenVerifyRoundTrips(t *testing.T) {
	p := NewLocalProver([]byte("test-key"))
	r, err := p.Prove(methods.JoinID, func() (any, error) {
		return dummyJournal{Value: 7}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Verify(r, methods.JoinID); err != nil {
		t.Fatalf("expected receipt to verify: %v", err)
	}

	var decoded dummyJournal
	if err := r.DecodeJournal(&decoded); err != nil {
		t.Fatalf("decode journal: %v", err)
	}
	if decoded.Value != 7 {
		t.Fatalf("journal round-trip mismatch: %+v", decoded)
	}
}

func TestVerifyRejectsWrongProgram(t *testing.T) {
	p := NewLocalProver([]byte("test-key"))
	r, err := p.Prove(methods.JoinID, func() (any, error) { return dummyJournal{Value: 1}, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Verify(r, methods.FireID); err == nil {
		t.Fatal("expected verification to fail for mismatched program id")
	}
}

func TestVerifyRejectsTamperedJournal(t *testing.T) {
	p := NewLocalProver([]byte("test-key"))
	r, err := p.Prove(methods.JoinID, func() (any, error) { return dummyJournal{Value: 1}, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Journal = []byte(`{"value":2}`)
	if err := p.Verify(r, methods.JoinID); err == nil {
		t.Fatal("expected verification to fail for tampered journal")
	}
}

func TestProvePropagatesGuestRejection(t *testing.T) {
	p := NewLocalProver([]byte("test-key"))
	_, err := p.Prove(methods.JoinID, func() (any, error) {
		return nil, errInvalid
	})
	if err == nil {
		t.Fatal("expected guest rejection to surface as a proving error")
	}
}

var errInvalid = &dummyErr{"invalid"}

type dummyErr struct{ s string }

func (e *dummyErr) Error() string { return e.s }
