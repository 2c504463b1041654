package instance

import "testing"

func TestValidateTransition(t *testing.T) {
	if err := ValidateTransition("", StateRunning); err != nil {
		t.Fatalf("expected valid transition, got error: %v", err)
	}
	if err := ValidateTransition(StateRunning, StateStopping); err != nil {
		t.Fatalf("expected valid transition, got error: %v", err)
	}
	if err := ValidateTransition(StateStopping, StateKilled); err != nil {
		t.Fatalf("expected valid transition, got error: %v", err)
	}
	if err := ValidateTransition(StateRunning, StateKilled); err == nil {
		t.Fatalf("expected invalid transition error")
	}
	if err := ValidateTransition(StateKilled, StateStopping); err == nil {
		t.Fatalf("expected invalid transition error")
	}
	if err := ValidateTransition("paused", StateRunning); err == nil {
		t.Fatalf("expected unknown state error")
	}
	if err := ValidateTransition(StateRunning, ""); err == nil {
		t.Fatalf("expected empty target error")
	}
}

func TestFinished(t *testing.T) {
	for _, s := range []string{StateExited, StateKilled, StateGone} {
		if !Finished(s) {
			t.Fatalf("%s should be finished", s)
		}
	}
	for _, s := range []string{StateRunning, StateStopping} {
		if Finished(s) {
			t.Fatalf("%s should not be finished", s)
		}
	}
}
