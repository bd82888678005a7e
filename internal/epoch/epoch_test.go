package epoch

import "testing"

func TestProgressAndEndOfEpoch(t *testing.T) {
	e := New(3)
	if e.IsEndOfEpoch() {
		t.Fatal("fresh epoch should not be at end")
	}
	for i := 0; i < 3; i++ {
		e.Progress()
	}
	if !e.IsEndOfEpoch() {
		t.Fatal("expected end of epoch after epochDuration progressions")
	}
	e.Reset()
	if e.SlotInEpoch() != 0 {
		t.Fatal("expected slot counter reset to 0")
	}
}
