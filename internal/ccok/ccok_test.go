package ccok

import (
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/niropok/sidechain/internal/consensuserrors"
	"github.com/niropok/sidechain/internal/pqsig"
)

type testParty struct {
	priv *pqsig.PrivateKey
	part Participant
}

func makeParties(t *testing.T, weights []uint64) []testParty {
	t.Helper()
	out := make([]testParty, len(weights))
	for i, w := range weights {
		priv, err := pqsig.KeyGen()
		if err != nil {
			t.Fatalf("KeyGen: %v", err)
		}
		out[i] = testParty{priv: priv, part: Participant{PublicKey: priv.Public(), Weight: w}}
	}
	return out
}

func participantsOf(parties []testParty) []Participant {
	out := make([]Participant, len(parties))
	for i, p := range parties {
		out[i] = p.part
	}
	return out
}

// Scenario 1: trivial certificate, all participants sign, verify succeeds.
func TestSimpleCertificateVerification(t *testing.T) {
	msg := []byte("Test message")
	parties := makeParties(t, []uint64{10, 20, 30})
	b, err := NewBuilder(Params{Msg: msg, ProvenWeight: 30, SecurityParam: 128}, participantsOf(parties))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	for i, p := range parties {
		sig, err := p.priv.Sign(msg)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if err := b.AddSignature(i, sig); err != nil {
			t.Fatalf("AddSignature(%d): %v", i, err)
		}
	}
	if b.SignedWeight() != 60 {
		t.Fatalf("signed weight = %d, want 60", b.SignedWeight())
	}
	cert, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := cert.Verify(Params{Msg: msg, ProvenWeight: 30, SecurityParam: 128}, b.partyTreeRoot); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

// Scenario 2: insufficient weight, build fails.
func TestInsufficientWeight(t *testing.T) {
	msg := []byte("Test message")
	parties := makeParties(t, []uint64{10, 20, 30})
	b, err := NewBuilder(Params{Msg: msg, ProvenWeight: 30, SecurityParam: 128}, participantsOf(parties))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	sig, err := parties[0].priv.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := b.AddSignature(0, sig); err != nil {
		t.Fatalf("AddSignature: %v", err)
	}
	if _, err := b.Build(); err != consensuserrors.ErrInsufficientWeight {
		t.Fatalf("Build: got %v, want InsufficientWeight", err)
	}
}

// Scenario 3: duplicate signature rejected.
func TestDuplicateSignatureRejected(t *testing.T) {
	parties := makeParties(t, []uint64{100})
	b, err := NewBuilder(Params{Msg: []byte("m"), ProvenWeight: 100, SecurityParam: 128}, participantsOf(parties))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	sig, err := parties[0].priv.Sign([]byte("m"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := b.AddSignature(0, sig); err != nil {
		t.Fatalf("first AddSignature: %v", err)
	}
	if err := b.AddSignature(0, sig); err == nil {
		t.Fatal("expected DuplicateSignature on second add")
	}
}

func TestInvalidPositionRejected(t *testing.T) {
	parties := makeParties(t, []uint64{100})
	b, err := NewBuilder(Params{Msg: []byte("m"), ProvenWeight: 100, SecurityParam: 128}, participantsOf(parties))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	sig, err := parties[0].priv.Sign([]byte("m"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := b.AddSignature(5, sig); err == nil {
		t.Fatal("expected InvalidPosition for out-of-range position")
	}
}

// Scenario 4: accumulated weights sequence 0, 10, 30.
func TestAccumulatedWeights(t *testing.T) {
	parties := makeParties(t, []uint64{10, 20, 30})
	b, err := NewBuilder(Params{Msg: []byte("m"), ProvenWeight: 1, SecurityParam: 128}, participantsOf(parties))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	want := []uint64{0, 10, 30}
	for i := range parties {
		sig, err := parties[i].priv.Sign([]byte("m"))
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if err := b.AddSignature(i, sig); err != nil {
			t.Fatalf("AddSignature(%d): %v", i, err)
		}
		if got := b.sigs[i].AccumulatedWeight; got != want[i] {
			t.Fatalf("accumulated_weight[%d] = %d, want %d", i, got, want[i])
		}
	}
}

func TestNumRevealsAtLeastOne(t *testing.T) {
	msg := []byte("m")
	parties := makeParties(t, []uint64{10, 20, 30})
	b, err := NewBuilder(Params{Msg: msg, ProvenWeight: 60, SecurityParam: 128}, participantsOf(parties))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	for i, p := range parties {
		sig, err := p.priv.Sign(msg)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if err := b.AddSignature(i, sig); err != nil {
			t.Fatalf("AddSignature(%d): %v", i, err)
		}
	}
	cert, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(cert.RevealPositions) < 1 {
		t.Fatal("expected at least one reveal even at proven_weight == signed_weight")
	}
}

func TestVerifyRejectsTamperedCoinSpan(t *testing.T) {
	msg := []byte("m")
	parties := makeParties(t, []uint64{10, 20, 30})
	b, err := NewBuilder(Params{Msg: msg, ProvenWeight: 30, SecurityParam: 128}, participantsOf(parties))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	for i, p := range parties {
		sig, err := p.priv.Sign(msg)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if err := b.AddSignature(i, sig); err != nil {
			t.Fatalf("AddSignature(%d): %v", i, err)
		}
	}
	cert, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	pos := cert.RevealPositions[0]
	rv := cert.Reveals[pos]
	rv.SigSlot.AccumulatedWeight += 1000
	cert.Reveals[pos] = rv
	if err := cert.Verify(Params{Msg: msg, ProvenWeight: 30, SecurityParam: 128}, b.partyTreeRoot); err == nil {
		t.Fatalf("expected verification failure after tampering accumulated weight, cert: %s", spew.Sdump(cert))
	}
}
