package engine

import (
	"sync"

	"golang.org/x/sync/semaphore"

	. "github.com/nazarko/splitwave/common"
)

// maxSplitPointsPerThread bounds each thread's own split-point stack;
// a thread that tries to split past this depth of nested splits is a
// contract violation, not a runtime condition to recover from.
const maxSplitPointsPerThread = 8

// maxSlaves bounds slavesMask to a plain uint64 bitfield.
const maxSlaves = 64

// SplitPoint is the unit of work shared between a master thread and
// the slaves it recruits: one node's remaining moves, drawn from a
// single MovePicker, searched under a common alpha/beta/bestValue.
// Every mutable field here is guarded by mu; everything else is
// written once by the master before recruitment and only read by
// slaves afterwards.
type SplitPoint struct {
	mu   sync.Mutex
	done *sync.Cond

	parent *SplitPoint
	master *Thread

	position   *Position
	ss         *searchStack
	picker     *MovePicker
	depth      int
	nodeType   int
	cutNode    bool
	threatMove Move
	height     int

	alpha, beta int

	bestValue int
	bestMove  Move
	moveCount int
	nodes     int64

	slavesMask uint64
	cutoff     bool

	// slaveSlots gates this split point's own recruitment, sized to
	// maxThreadsPerSplitPoint-1 slaves (the master already counts as
	// the first participant) at the moment the split opens. Owning the
	// budget per split point, rather than pool-wide, keeps one busy
	// split point from starving recruitment at a sibling or ancestor
	// split point open concurrently elsewhere in the tree.
	slaveSlots *semaphore.Weighted
}

func newSplitPoint(maxThreadsPerSplitPoint int) *SplitPoint {
	var sp = &SplitPoint{}
	sp.done = sync.NewCond(&sp.mu)
	sp.slaveSlots = semaphore.NewWeighted(int64(maxThreadsPerSplitPoint - 1))
	return sp
}

// acquireSlaveSlot reserves one of this split point's own recruitment
// tokens and returns a helpful idle thread to fill it, or nil
// (reserving nothing) if the budget is exhausted or no helpful idle
// thread exists right now. Must be called with pool.mu held.
func (sp *SplitPoint) acquireSlaveSlot(master *Thread, pool *ThreadPool) *Thread {
	if !sp.slaveSlots.TryAcquire(1) {
		return nil
	}
	for _, t := range pool.threads {
		if t == master {
			continue
		}
		if t.isAvailableTo(master) {
			return t
		}
	}
	sp.slaveSlots.Release(1)
	return nil
}

// releaseSlaveSlot returns a recruitment token to this split point
// once a slave has finished participating in it.
func (sp *SplitPoint) releaseSlaveSlot() {
	sp.slaveSlots.Release(1)
}

// cutoffOccurred reports whether this split point, or any ancestor in
// the calling thread's parent-split-point chain, has had its cutoff
// flag set. A slave consults this before pulling its next move and
// bails out immediately if true, which causes the scheduler to clear
// the slave's bit from the corresponding slavesMask.
func (sp *SplitPoint) cutoffOccurred() bool {
	for s := sp; s != nil; s = s.parent {
		s.mu.Lock()
		var c = s.cutoff
		s.mu.Unlock()
		if c {
			return true
		}
	}
	return false
}

// recordResult folds a slave's (or the master's own) search result
// for one move back into the split point: bestValue/bestMove update
// monotonically under the lock, and a fail-high sets cutoff so every
// other participant observes it on its next cutoffOccurred check.
func (sp *SplitPoint) recordResult(move Move, value int, nodes int64) (cutoff bool) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	sp.nodes += nodes

	if value > sp.bestValue {
		sp.bestValue = value
		sp.bestMove = move
		if sp.bestValue >= sp.beta {
			sp.cutoff = true
		}
	}
	return sp.cutoff
}

// nextMove pulls the split point's next move from its shared picker,
// via the picker's own thread-safe accessor, counting it towards
// moveCount. Returns MoveEmpty once the picker is drained.
func (sp *SplitPoint) nextMove() Move {
	var m = sp.picker.GetNextMoveLocked(&sp.mu)
	if m != MoveEmpty {
		sp.mu.Lock()
		sp.moveCount++
		sp.mu.Unlock()
	}
	return m
}

// clearSlaveBit marks idx's participant as finished and wakes the
// master if it is waiting out the remaining slaves.
func (sp *SplitPoint) clearSlaveBit(idx int) {
	sp.mu.Lock()
	sp.slavesMask &^= uint64(1) << uint(idx)
	sp.done.Broadcast()
	sp.mu.Unlock()
}

// waitForSlaves blocks the master until every recruited slave has
// cleared its bit, i.e. slavesMask contains only the master's own bit.
func (sp *SplitPoint) waitForSlaves(masterIdx int) {
	sp.mu.Lock()
	for sp.slavesMask != uint64(1)<<uint(masterIdx) {
		sp.done.Wait()
	}
	sp.mu.Unlock()
}
