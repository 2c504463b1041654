package process

import "testing"

func TestValidateTransition(t *testing.T) {
	valid := [][2]State{
		{StateRunning, StateAwaitingExit},
		{StateAwaitingExit, StateAwaitingExit},
		{StateAwaitingExit, StateExited},
		{StateAwaitingExit, StateTimedOutKilled},
	}
	for _, tr := range valid {
		if err := ValidateTransition(tr[0], tr[1]); err != nil {
			t.Fatalf("expected %s -> %s to be valid, got error: %v", tr[0], tr[1], err)
		}
	}

	invalid := [][2]State{
		{StateRunning, StateExited},
		{StateExited, StateAwaitingExit},
		{StateTimedOutKilled, StateExited},
		{StateAwaitingExit, ""},
		{"bogus", StateExited},
	}
	for _, tr := range invalid {
		if err := ValidateTransition(tr[0], tr[1]); err == nil {
			t.Fatalf("expected %q -> %q to be rejected", tr[0], tr[1])
		}
	}
}

func TestTerminalStates(t *testing.T) {
	if StateRunning.Terminal() || StateAwaitingExit.Terminal() {
		t.Fatalf("non-terminal state reported terminal")
	}
	if !StateExited.Terminal() || !StateTimedOutKilled.Terminal() {
		t.Fatalf("terminal state not reported terminal")
	}
}
