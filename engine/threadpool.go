package engine

import (
	"sync"

	"golang.org/x/sync/errgroup"

	. "github.com/nazarko/splitwave/common"
)

// OnePly is the depth unit used throughout search. It is 1, so depths,
// extensions and split-depth thresholds are all whole plies.
const OnePly = 1

// defaultMaxThreadsPerSplitPoint is used until the UCI option sets a
// different value; the option's own range is 4..8.
const defaultMaxThreadsPerSplitPoint = 5

// ThreadPool owns the search workers and mediates slave recruitment.
// Thread 0 is the one Search drives the root from; there is no separate
// timer thread, since search deadlines come from the search context.
// Its own mutex is always
// acquired before any individual SplitPoint's mutex, matching the
// lock order mandated for is_available_to/split.
type ThreadPool struct {
	mu sync.Mutex

	threads []*Thread

	minimumSplitDepth       int
	maxThreadsPerSplitPoint int
	idleThreadsSleep        bool

	// searchFn is recorded so resize can wire it into threads created
	// after SetSearchFunc's initial call (a pool grown by a later
	// "setoption Threads" would otherwise hand out workers with no
	// search callback at all).
	searchFn func(t *Thread, sp *SplitPoint, move Move) (value int, nodes int64)

	// group supervises every worker's duty-cycle goroutine. Exit's Wait
	// surfaces the first non-timeout panic any worker suffered as an
	// error instead of letting it crash the process past the goroutine
	// boundary that launched it.
	group *errgroup.Group
}

// NewThreadPool builds a pool sized to threadCount workers (the UCI
// Threads option), with the minimum split depth auto-picked per the
// thread count unless overridden later via SetMinimumSplitDepth.
func NewThreadPool(threadCount int) *ThreadPool {
	if threadCount < 1 {
		threadCount = 1
	}
	var pool = &ThreadPool{
		maxThreadsPerSplitPoint: defaultMaxThreadsPerSplitPoint,
		idleThreadsSleep:        true,
		group:                   new(errgroup.Group),
	}
	pool.resize(threadCount)
	pool.minimumSplitDepth = autoMinimumSplitDepth(threadCount)
	return pool
}

func autoMinimumSplitDepth(threadCount int) int {
	if threadCount <= 7 {
		return 4 * OnePly
	}
	return 7 * OnePly
}

// SetThreads grows or shrinks the pool to match the UCI Threads
// option. Existing workers below the new size are left running;
// workers above it are signalled to exit and dropped. Worker creation
// here returns once the new goroutine has started, which may be before
// it waits in its idle loop; recruiting it immediately afterwards is
// still race-free, because run checks the state before it waits.
func (pool *ThreadPool) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	pool.mu.Lock()
	defer pool.mu.Unlock()
	pool.resize(n)
	pool.minimumSplitDepth = autoMinimumSplitDepth(n)
}

func (pool *ThreadPool) resize(n int) {
	for len(pool.threads) < n {
		var idx = len(pool.threads)
		var t = newThread(idx, pool)
		t.searchMove = pool.searchFn
		pool.threads = append(pool.threads, t)

		var ready = make(chan struct{})
		pool.group.Go(func() error {
			close(ready)
			return t.runSupervised()
		})
		<-ready
	}
	for len(pool.threads) > n {
		var last = pool.threads[len(pool.threads)-1]
		last.mu.Lock()
		last.state = threadExiting
		last.cond.Signal()
		last.mu.Unlock()
		pool.threads = pool.threads[:len(pool.threads)-1]
	}
}

// SetMinimumSplitDepth applies the UCI "Min Split Depth" option: 0
// means auto-pick from the current thread count, otherwise clamp to
// at least 4 plies.
func (pool *ThreadPool) SetMinimumSplitDepth(plies int) {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if plies == 0 {
		pool.minimumSplitDepth = autoMinimumSplitDepth(len(pool.threads))
		return
	}
	if plies < 4*OnePly {
		plies = 4 * OnePly
	}
	pool.minimumSplitDepth = plies
}

// SetMaxThreadsPerSplitPoint applies the UCI "Max Threads per Split
// Point" option, clamped to the documented 4..8 range.
func (pool *ThreadPool) SetMaxThreadsPerSplitPoint(n int) {
	if n < 4 {
		n = 4
	}
	if n > 8 {
		n = 8
	}
	pool.mu.Lock()
	pool.maxThreadsPerSplitPoint = n
	pool.mu.Unlock()
}

// SetIdleThreadsSleep applies the UCI "Idle Threads Sleep" option.
// This implementation always blocks idle workers on a condition
// variable rather than spinning; the option is accepted and recorded
// for GetOptions round-tripping but a false value does not currently
// switch to a spin loop, since Go's scheduler makes busy-spinning
// workers a poor trade against the runtime's own goroutine scheduling.
func (pool *ThreadPool) SetIdleThreadsSleep(sleep bool) {
	pool.mu.Lock()
	pool.idleThreadsSleep = sleep
	pool.mu.Unlock()
}

func (pool *ThreadPool) MinimumSplitDepth() int {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return pool.minimumSplitDepth
}

// MainThread returns the pool's thread 0, conventionally the one that
// drives iterative deepening at the root.
func (pool *ThreadPool) MainThread() *Thread {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return pool.threads[0]
}

func (pool *ThreadPool) Size() int {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return len(pool.threads)
}

// SetSearchFunc installs the alpha-beta callback every thread's
// runAssignedSplitPoint uses to search one child move of a split
// point. Must be called before any search starts; the callback itself
// must be safe to invoke concurrently from any worker.
func (pool *ThreadPool) SetSearchFunc(fn func(t *Thread, sp *SplitPoint, move Move) (value int, nodes int64)) {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	pool.searchFn = fn
	for _, t := range pool.threads {
		t.searchMove = fn
	}
}

// Exit signals every worker to terminate and waits for the supervising
// errgroup to drain them, returning the first non-timeout panic any
// worker suffered, if any.
func (pool *ThreadPool) Exit() error {
	pool.mu.Lock()
	var threads = append([]*Thread(nil), pool.threads...)
	pool.mu.Unlock()

	for _, t := range threads {
		t.mu.Lock()
		t.state = threadExiting
		t.cond.Signal()
		t.mu.Unlock()
	}
	return pool.group.Wait()
}
