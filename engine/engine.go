package engine

import (
	"runtime"
	"sync"

	. "github.com/nazarko/splitwave/common"
)

// Evaluator scores a position from the side-to-move's perspective,
// consulting mat for the position's material analysis. It is injected
// from outside the package (the eval package depends on engine for
// MaterialTable, so engine cannot import eval back) exactly the way the
// teacher's Engine.evaluate field is assigned a free function after
// construction.
type Evaluator func(p *Position, mat *MaterialTable) int

// Engine wires the move picker, the split-point scheduler and the
// material table into a runnable UCI search: iterative deepening at
// the root, aspiration windows, and a negamax/quiescence core that
// calls Thread.split once a node is deep enough, recruiting whatever
// idle helpers exist at that moment (possibly none).
type Engine struct {
	Hash                    IntUciOption
	Threads                 IntUciOption
	MinSplitDepth           IntUciOption
	MaxThreadsPerSplitPoint IntUciOption
	IdleThreadsSleep        BoolUciOption
	MultiPV                 IntUciOption
	Ponder                  BoolUciOption
	ClearHash               BoolUciOption
	UCIChess960             BoolUciOption

	mu       sync.Mutex
	pool     *ThreadPool
	tt       TransTable
	evaluate Evaluator
}

// NewEngine constructs an engine with the pack's default option values
// and no evaluator installed; call SetEvaluator before the first Search.
func NewEngine() *Engine {
	var numCPUs = runtime.NumCPU()
	var e = &Engine{
		Hash:                    IntUciOption{Name: "Hash", Value: 16, Min: 1, Max: 4096},
		Threads:                 IntUciOption{Name: "Threads", Value: numCPUs, Min: 1, Max: 128},
		MinSplitDepth:           IntUciOption{Name: "Min Split Depth", Value: 0, Min: 0, Max: 12},
		MaxThreadsPerSplitPoint: IntUciOption{Name: "Max Threads per Split Point", Value: 5, Min: 4, Max: 8},
		IdleThreadsSleep:        BoolUciOption{Name: "Idle Threads Sleep", Value: true},
		MultiPV:                 IntUciOption{Name: "MultiPV", Value: 1, Min: 1, Max: 10},
		Ponder:                  BoolUciOption{Name: "Ponder", Value: false},
		ClearHash:               BoolUciOption{Name: "Clear Hash", Value: false},
		UCIChess960:             BoolUciOption{Name: "UCI_Chess960", Value: false},
	}
	return e
}

// SetEvaluator installs the leaf evaluator; main wires eval.Evaluate
// here after constructing both packages, breaking the import cycle that
// would otherwise exist between engine and eval.
func (e *Engine) SetEvaluator(fn Evaluator) {
	e.evaluate = fn
}

func (e *Engine) GetInfo() (name, version, author string) {
	return "Splitwave", "1.0", "a YBWC chess engine"
}

func (e *Engine) GetOptions() []UciOption {
	return []UciOption{
		&e.Hash, &e.Threads, &e.MinSplitDepth, &e.MaxThreadsPerSplitPoint,
		&e.IdleThreadsSleep, &e.MultiPV, &e.Ponder, &e.ClearHash, &e.UCIChess960,
	}
}

// Prepare lazily (re)builds the transposition table and thread pool
// whenever the options that size them have changed, and applies every
// other scheduler-facing option. Safe to call before every search, as
// the UCI "isready" handler does.
func (e *Engine) Prepare() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tt == nil || e.tt.Megabytes() != e.Hash.Value {
		e.tt = NewTransTable(e.Hash.Value)
	}
	if e.pool == nil {
		e.pool = NewThreadPool(e.Threads.Value)
		e.pool.SetSearchFunc(e.searchSplitMove)
	} else {
		e.pool.SetThreads(e.Threads.Value)
	}
	e.pool.SetMinimumSplitDepth(e.MinSplitDepth.Value * OnePly)
	e.pool.SetMaxThreadsPerSplitPoint(e.MaxThreadsPerSplitPoint.Value)
	e.pool.SetIdleThreadsSleep(e.IdleThreadsSleep.Value)
}

// Clear resets all learned state for a new game: transposition table,
// every thread's history tables and material cache entries age out
// naturally since the material key space is reused across games.
func (e *Engine) Clear() {
	e.Prepare()
	e.tt.Clear()
	e.pool.mu.Lock()
	for _, t := range e.pool.threads {
		t.history.Clear()
	}
	e.pool.mu.Unlock()
}
