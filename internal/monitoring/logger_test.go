package monitoring

import (
	"fmt"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op; the previous logger must not see further calls
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestWarnfPrefix(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Warnf("dropped %d events", 3)

	if !strings.HasPrefix(got, "WARNING: ") {
		t.Errorf("Warnf output %q missing prefix", got)
	}
	if !strings.Contains(got, "dropped 3 events") {
		t.Errorf("Warnf output %q missing formatted message", got)
	}
}

func TestTaggedFollowsSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	logf := Tagged("Tracker")

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	logf("frames=%d", 10)

	if got != "[Tracker] frames=10" {
		t.Errorf("Tagged output = %q, want %q", got, "[Tracker] frames=10")
	}
}
