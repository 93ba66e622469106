package engine

import (
	"context"
	"fmt"
	"sync"

	. "github.com/nazarko/splitwave/common"
)

type threadState int32

const (
	threadIdle threadState = iota
	threadSearching
	threadExiting
)

// Thread is one worker in the pool's fixed-size duty cycle: it either
// sleeps on cond, waiting to be recruited as a slave, or runs a
// search, either standalone (root/main thread) or as a participant in
// a SplitPoint. A thread owns its own LIFO stack of split points it
// has opened as a master; parentSplitPoint chains walk that stack.
type Thread struct {
	idx  int
	pool *ThreadPool

	mu   sync.Mutex
	cond *sync.Cond

	state threadState

	splitPoints    [maxSplitPointsPerThread]*SplitPoint
	splitPointsLen int

	// activeSplitPoint is the split point this thread is currently
	// drawing moves from, whether as the master or as a recruited
	// slave.
	activeSplitPoint *SplitPoint
	activePosition   *Position

	// recruited marks that this thread currently holds a slaveSlots
	// token of its active split point because a master recruited it; its own
	// runAssignedSplitPoint releases the token on completion. The
	// master's direct call into runAssignedSplitPoint for its own split
	// point never sets this, since the master never goes through
	// recruitment.
	recruited bool

	history  historyService
	material *MaterialTable
	nodes    int64

	// searchCtx and rootHistory are set once per Search call on the
	// main thread before any work starts; split recruits slaves that
	// read them from the same fields on their own Thread, which the
	// driver leaves nil until a search is in flight (checkTimeout is
	// only ever called from inside negamax/quiescence, never before).
	searchCtx   context.Context
	rootHistory []uint64

	// searchMove runs the alpha-beta search for one child move of a
	// split point; wired in by the search driver once it constructs the
	// pool, since SplitPoint/Thread themselves know nothing about
	// alpha-beta. It takes the executing thread explicitly (master or
	// slave) so it can recurse into that thread's own, thread-confined
	// search-stack array and material table rather than the master's.
	searchMove func(t *Thread, sp *SplitPoint, move Move) (value int, nodes int64)

	// stacks holds one searchStack per ply this thread could ever search
	// at, indexed by height. Thread-confined, unlike SplitPoint.ss which
	// only ever points at the splitting node's own stack entry.
	stacks []*searchStack
}

func newThread(idx int, pool *ThreadPool) *Thread {
	var t = &Thread{idx: idx, pool: pool, material: NewMaterialTable(1 << 14)}
	t.cond = sync.NewCond(&t.mu)
	t.stacks = make([]*searchStack, MaxHeight+2)
	for i := range t.stacks {
		t.stacks[i] = newSearchStack()
	}
	return t
}

// currentParentSplitPoint returns the split point on top of this
// thread's own stack, i.e. the one the next split opened by this
// thread should chain to as its parent.
func (t *Thread) currentParentSplitPoint() *SplitPoint {
	if t.splitPointsLen == 0 {
		return nil
	}
	return t.splitPoints[t.splitPointsLen-1]
}

// isAvailableTo reports whether master may recruit t: t must be idle,
// and if it still has an active split point, that split point's master
// must be master. The split points t itself has opened, and the slaves
// listed in them, are not consulted.
func (t *Thread) isAvailableTo(master *Thread) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != threadIdle {
		return false
	}
	var sp = t.activeSplitPoint
	if sp == nil {
		return true
	}
	return sp.master == master
}

// runSupervised is the function handed to the pool's errgroup.Group: it
// runs the worker's duty cycle and converts any panic that is not the
// cooperative search-timeout sentinel into an error, so a programming
// error in one worker surfaces through ThreadPool.Exit's Wait instead of
// crashing the process from a goroutine nothing else is recovering.
func (t *Thread) runSupervised() (err error) {
	defer func() {
		var r = recover()
		if r == nil || r == errSearchTimeout {
			return
		}
		err = fmt.Errorf("thread %d: %v", t.idx, r)
	}()
	t.run()
	return nil
}

// run is the worker's perpetual duty cycle, started once per thread
// at pool construction: sleep until recruited or told to exit, run
// the assigned split-point work as a slave, go idle, repeat.
func (t *Thread) run() {
	for {
		t.mu.Lock()
		for t.state == threadIdle {
			t.cond.Wait()
		}
		var exiting = t.state == threadExiting
		t.mu.Unlock()

		if exiting {
			return
		}

		func() {
			defer recoverSearchTimeout()
			t.runAssignedSplitPoint()
		}()

		t.mu.Lock()
		t.state = threadIdle
		t.mu.Unlock()
	}
}

// runAssignedSplitPoint drains activeSplitPoint's shared picker,
// searching each move via the split point's searchMove callback until
// the picker is empty or a cutoff is observed, then clears this
// thread's slave bit so the master (or, for the master's own call,
// nothing) can observe completion.
func (t *Thread) runAssignedSplitPoint() {
	t.mu.Lock()
	var sp = t.activeSplitPoint
	t.mu.Unlock()
	if sp == nil {
		return
	}
	defer func() {
		sp.clearSlaveBit(t.idx)
		t.mu.Lock()
		t.activeSplitPoint = nil
		var wasRecruited = t.recruited
		t.recruited = false
		t.mu.Unlock()
		if wasRecruited {
			sp.releaseSlaveSlot()
		}
	}()

	for {
		if sp.cutoffOccurred() {
			return
		}
		var move = sp.nextMove()
		if move == MoveEmpty {
			return
		}
		var value, nodes = t.searchMove(t, sp, move)
		if sp.recordResult(move, value, nodes) {
			return
		}
	}
}

// split implements Thread::split (spec §4.2): the caller must already
// be searching and past the minimum split depth; this recruits idle,
// helpful slaves, runs the first-move-searched-sequentially convention
// via its own participation in the picker, waits for every slave to
// finish, and folds the result back.
func (t *Thread) split(parent *searchStack, position *Position, picker *MovePicker,
	alpha, beta, bestValue int, bestMove Move, depth, height, nodeType int,
	cutNode bool, threatMove Move) (int, Move, int64) {

	if t.splitPointsLen >= maxSplitPointsPerThread {
		panic("split: split-point stack overflow")
	}
	if !(bestValue <= alpha && alpha < beta) {
		panic("split: precondition violated on alpha/beta/bestValue ordering")
	}

	t.pool.mu.Lock()
	var sp = newSplitPoint(t.pool.maxThreadsPerSplitPoint)
	sp.parent = t.currentParentSplitPoint()
	sp.master = t
	sp.position = position
	sp.ss = parent
	sp.picker = picker
	sp.depth = depth
	sp.height = height
	sp.nodeType = nodeType
	sp.cutNode = cutNode
	sp.threatMove = threatMove
	sp.alpha, sp.beta = alpha, beta
	sp.bestValue, sp.bestMove = bestValue, bestMove
	sp.slavesMask = uint64(1) << uint(t.idx)

	sp.mu.Lock()

	t.splitPoints[t.splitPointsLen] = sp
	t.splitPointsLen++

	t.mu.Lock()
	t.activeSplitPoint = sp
	t.activePosition = nil
	t.mu.Unlock()

	// slavesCnt counts participants, starting at 1 for the master
	// itself, so recruitment stops once the split point holds
	// maxThreadsPerSplitPoint threads in total (master included).
	var slavesCnt = 1
	for slavesCnt < t.pool.maxThreadsPerSplitPoint {
		var slave = sp.acquireSlaveSlot(t, t.pool)
		if slave == nil {
			break
		}
		slave.mu.Lock()
		slave.activeSplitPoint = sp
		slave.state = threadSearching
		slave.recruited = true
		slave.mu.Unlock()
		sp.slavesMask |= uint64(1) << uint(slave.idx)
		slave.cond.Signal()
		slavesCnt++
	}

	sp.mu.Unlock()
	t.pool.mu.Unlock()

	t.runAssignedSplitPoint()
	sp.waitForSlaves(t.idx)

	sp.mu.Lock()
	var outValue, outMove, outNodes = sp.bestValue, sp.bestMove, sp.nodes
	sp.mu.Unlock()

	t.splitPointsLen--
	t.splitPoints[t.splitPointsLen] = nil

	return outValue, outMove, outNodes
}
