package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestSafeGo_RunsFunction(t *testing.T) {
	done := make(chan struct{})

	SafeGo(arbor.NewLogger(), "worker", func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("function never ran")
	}
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	entered := make(chan struct{})

	SafeGo(arbor.NewLogger(), "exploder", func() {
		close(entered)
		panic("boom")
	})

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("function never ran")
	}

	// The panic is swallowed inside the goroutine; a follow-up spawn still
	// works and the test process is alive to observe it.
	done := make(chan struct{})
	SafeGo(arbor.NewLogger(), "survivor", func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("spawning after a recovered panic failed")
	}
}

func TestSafeGo_NilLogger(t *testing.T) {
	entered := make(chan struct{})

	require.NotPanics(t, func() {
		SafeGo(nil, "no-logger", func() {
			close(entered)
			panic("boom")
		})
	})

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("function never ran")
	}

	// Let the recovery path hit the stderr fallback before the test ends.
	time.Sleep(50 * time.Millisecond)
}
