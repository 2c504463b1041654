package process

import "testing"

func TestNormalizeSignal(t *testing.T) {
	cases := map[string]string{
		"":        "TERM",
		"term":    "TERM",
		"SIGINT":  "INT",
		" hup ":   "HUP",
		"sigquit": "QUIT",
	}
	for in, want := range cases {
		got, err := NormalizeSignal(in)
		if err != nil {
			t.Fatalf("NormalizeSignal(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("NormalizeSignal(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := NormalizeSignal("KILL"); err == nil {
		t.Fatalf("KILL must not be accepted as a graceful signal")
	}
}

func TestErrorMatchesSentinels(t *testing.T) {
	wait := &Error{Op: OpWait, PID: 7}
	if !wait.Is(ErrWait) || wait.Is(ErrKill) {
		t.Fatalf("wait error sentinel mismatch")
	}
	kill := &Error{Op: OpKill, PID: 7, Group: true}
	if !kill.Is(ErrKill) || kill.Is(ErrWait) {
		t.Fatalf("kill error sentinel mismatch")
	}
	if got := kill.Error(); got != "kill group 7: <nil>" {
		t.Fatalf("Error() = %q", got)
	}
}
