package hashchain

import "testing"

const testEpochDuration = 10

func TestRevealRoundTripsToCommit(t *testing.T) {
	hc := NewFromNonce(424242, testEpochDuration)
	commit := hc.Commit()
	for _, s := range []uint64{0, 1, 5, testEpochDuration} {
		reveal, err := hc.Reveal(s, testEpochDuration)
		if err != nil {
			t.Fatalf("Reveal(%d): %v", s, err)
		}
		if err := Verify(commit, s, reveal); err != nil {
			t.Fatalf("Verify(slot=%d): %v", s, err)
		}
	}
}

func TestVerifyRejectsFlippedBit(t *testing.T) {
	hc := NewFromNonce(7, testEpochDuration)
	commit := hc.Commit()
	reveal, err := hc.Reveal(3, testEpochDuration)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	reveal[0] ^= 0x01
	if err := Verify(commit, 3, reveal); err == nil {
		t.Fatal("expected verification failure after bit flip")
	}
}

func TestVerifyAtSlotZeroAcceptsRevealEqualsCommit(t *testing.T) {
	hc := NewFromNonce(1, testEpochDuration)
	commit := hc.Commit()
	reveal, err := hc.Reveal(0, testEpochDuration)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if reveal != commit {
		t.Fatalf("reveal(0) should equal commit")
	}
	if err := Verify(commit, 0, reveal); err != nil {
		t.Fatalf("Verify(slot=0): %v", err)
	}
}

func TestRevealOutOfRange(t *testing.T) {
	hc := NewFromNonce(1, testEpochDuration)
	if _, err := hc.Reveal(testEpochDuration+5, testEpochDuration); err == nil {
		t.Fatal("expected out-of-range reveal to fail")
	}
}
