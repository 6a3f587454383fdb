package version

import "testing"

func TestString(t *testing.T) {
	got := String("arena")
	want := "arena version dev (commit unknown, built unknown)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
