package engine

import (
	"sync/atomic"
	"testing"
	"time"

	. "github.com/nazarko/splitwave/common"
)

// TestThreadPoolSplitCompletesWithoutDeadlock drives a real split point
// through a multi-worker pool with an artificial searchMove and checks
// that it always finishes, that its reported node count is exactly the
// sum of the per-move contributions recorded (spec.md §8 node-accounting
// property), and that recruiting slaves never leaves the master waiting
// forever.
func TestThreadPoolSplitCompletesWithoutDeadlock(t *testing.T) {
	var pool = NewThreadPool(4)
	defer pool.Exit()

	var calls int64
	pool.SetSearchFunc(func(worker *Thread, sp *SplitPoint, move Move) (int, int64) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(time.Millisecond)
		return int(move.To()), 1
	})
	pool.SetMinimumSplitDepth(OnePly)
	pool.SetMaxThreadsPerSplitPoint(4)

	var p, err = NewPositionFromFEN(InitialPositionFen)
	if err != nil {
		t.Fatal(err)
	}
	var picker = NewMovePicker(&p, OnePly, MoveEmpty, MoveEmpty, MoveEmpty, MoveEmpty,
		true, false, nil)

	var master = pool.MainThread()
	var ss = newSearchStack()
	ss.position = p

	var done = make(chan struct{})
	var nodes int64
	var bestValue int
	go func() {
		bestValue, _, nodes = master.split(ss, &p, picker, -ValueInfinite, ValueInfinite,
			-ValueInfinite, MoveEmpty, OnePly, 0, nodeTypePV, false, MoveEmpty)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("split never completed: suspected deadlock")
	}

	var gotCalls = atomic.LoadInt64(&calls)
	if nodes != gotCalls {
		t.Errorf("split returned nodes=%d, want %d (one per searchMove call)", nodes, gotCalls)
	}
	if gotCalls == 0 {
		t.Fatal("expected at least one move to reach searchMove")
	}
	if bestValue < 0 {
		t.Errorf("bestValue = %d, want a non-negative square index from the fake evaluator", bestValue)
	}
}

// TestThreadPoolSplitCutoffStopsEarly checks that once a participant's
// result fails high, the split point's own cutoff flag is observed and
// the reported bestValue reaches at least beta, matching the recorded
// cutoff semantics in SplitPoint.recordResult, and that the participants
// stop before searching every root move.
func TestThreadPoolSplitCutoffStopsEarly(t *testing.T) {
	var pool = NewThreadPool(2)
	defer pool.Exit()

	const beta = 50
	var calls int64
	pool.SetSearchFunc(func(worker *Thread, sp *SplitPoint, move Move) (int, int64) {
		atomic.AddInt64(&calls, 1)
		return beta + 1, 1
	})
	pool.SetMinimumSplitDepth(OnePly)

	var p, err = NewPositionFromFEN(InitialPositionFen)
	if err != nil {
		t.Fatal(err)
	}
	var picker = NewMovePicker(&p, OnePly, MoveEmpty, MoveEmpty, MoveEmpty, MoveEmpty,
		true, false, nil)

	var master = pool.MainThread()
	var ss = newSearchStack()
	ss.position = p

	var done = make(chan struct{})
	var bestValue int
	go func() {
		bestValue, _, _ = master.split(ss, &p, picker, 0, beta, 0, MoveEmpty,
			OnePly, 0, nodeTypeNonPV, true, MoveEmpty)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("split never completed after a fail-high: suspected deadlock")
	}

	if bestValue < beta {
		t.Errorf("bestValue = %d, want at least beta = %d after a fail-high", bestValue, beta)
	}
	if got := atomic.LoadInt64(&calls); got >= 20 {
		t.Errorf("searchMove ran %d times, want fewer than the 20 root moves after a fail-high", got)
	}
}

// TestThreadPoolSplitRecruitsAtMostMaxThreadsPerSplitPoint checks the
// "Max Threads per Split Point" cap directly: with n idle helpers
// available and the cap set below n+1, the split point recruits only
// enough slaves to bring its total participant count (master
// included) up to the cap, never past it.
func TestThreadPoolSplitRecruitsAtMostMaxThreadsPerSplitPoint(t *testing.T) {
	const poolSize = 8
	const cap = 4

	var pool = NewThreadPool(poolSize)
	defer pool.Exit()

	var release = make(chan struct{})
	var inFlight int64
	pool.SetSearchFunc(func(worker *Thread, sp *SplitPoint, move Move) (int, int64) {
		atomic.AddInt64(&inFlight, 1)
		<-release
		return int(move.To()), 1
	})
	pool.SetMinimumSplitDepth(OnePly)
	pool.SetMaxThreadsPerSplitPoint(cap)

	var p, err = NewPositionFromFEN(InitialPositionFen)
	if err != nil {
		t.Fatal(err)
	}
	var picker = NewMovePicker(&p, OnePly, MoveEmpty, MoveEmpty, MoveEmpty, MoveEmpty,
		true, false, nil)

	var master = pool.MainThread()
	var ss = newSearchStack()
	ss.position = p

	var done = make(chan struct{})
	go func() {
		master.split(ss, &p, picker, -ValueInfinite, ValueInfinite,
			-ValueInfinite, MoveEmpty, OnePly, 0, nodeTypePV, false, MoveEmpty)
		close(done)
	}()

	// Give every participant a chance to enter searchMove and block on
	// release, then check no more than cap of them ever did.
	var deadline = time.After(2 * time.Second)
	var settled = time.After(200 * time.Millisecond)
	select {
	case <-settled:
	case <-deadline:
		t.Fatal("timed out waiting for split's participants to settle")
	}

	if got := atomic.LoadInt64(&inFlight); got > cap {
		t.Errorf("split recruited %d total participants, want at most the configured cap %d", got, cap)
	}

	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("split never completed after releasing participants: suspected deadlock")
	}
}

// TestThreadIsAvailableToRespectsHelpfulMasterConstraint checks the
// YBWC recruitment rule directly: an idle thread with no split points
// of its own is available to any master, but once it is sitting as a
// slave at the top of some split point it is only available to that
// split point's own master.
func TestThreadIsAvailableToRespectsHelpfulMasterConstraint(t *testing.T) {
	var pool = NewThreadPool(1)
	defer pool.Exit()

	var other = newThread(99, pool)
	var master = pool.MainThread()
	var unrelated = newThread(100, pool)

	if !other.isAvailableTo(master) {
		t.Error("a fresh idle thread with no split points should be available to any master")
	}

	var sp = newSplitPoint(defaultMaxThreadsPerSplitPoint)
	sp.master = master
	other.activeSplitPoint = sp

	if !other.isAvailableTo(master) {
		t.Error("a slave should remain available to its own split point's master")
	}
	if other.isAvailableTo(unrelated) {
		t.Error("a slave must not be available to a thread other than its split point's master")
	}
}
