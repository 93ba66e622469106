package engine

import (
	"sync/atomic"

	. "github.com/nazarko/splitwave/common"
)

// Bound flags stored with a transposition-table entry's score.
const (
	BoundLower = 1 << iota
	BoundUpper
	BoundExact = BoundLower | BoundUpper
)

// TransTable is the external, out-of-scope transposition table this
// search consults; it is shared across threads without a mutex, since
// every probe and update is on the hot path. Each slot has a
// compare-and-swap gate, and a probe or update that finds the gate
// taken skips the slot instead of waiting.
type TransTable interface {
	Megabytes() int
	PrepareNewSearch()
	Clear()
	Read(p *Position) (depth, score, bound int, move Move, ok bool)
	Update(p *Position, depth, score, bound int, move Move)
}

type transEntry struct {
	gate     int32
	key32    uint32
	move     Move
	score    int16
	depth    int8
	boundGen uint8
}

func roundPowerOfTwoTT(size int) int {
	var x = 1
	for (x << 1) <= size {
		x <<= 1
	}
	return x
}

// deepReplaceTransTable is a depth-preferred replacement table: an
// entry is overwritten only by an equal-or-deeper search from the
// current generation, or when the generation has rolled over, or when
// the incoming write is to the same position (a re-verification).
type deepReplaceTransTable struct {
	megabytes  int
	entries    []transEntry
	generation uint8
	mask       uint32
}

// NewTransTable allocates a table sized to megabytes, rounded down to
// a power-of-two slot count.
func NewTransTable(megabytes int) TransTable {
	if megabytes < 1 {
		megabytes = 1
	}
	var size = roundPowerOfTwoTT(1024 * 1024 * megabytes / 16)
	return &deepReplaceTransTable{
		megabytes: megabytes,
		entries:   make([]transEntry, size),
		mask:      uint32(size - 1),
	}
}

func (tt *deepReplaceTransTable) Megabytes() int {
	return tt.megabytes
}

func (tt *deepReplaceTransTable) PrepareNewSearch() {
	tt.generation = (tt.generation + 1) & 63
}

func (tt *deepReplaceTransTable) Clear() {
	for i := range tt.entries {
		tt.entries[i] = transEntry{}
	}
}

func (tt *deepReplaceTransTable) Read(p *Position) (depth, score, bound int, move Move, ok bool) {
	var entry = &tt.entries[uint32(p.Key)&tt.mask]
	if atomic.CompareAndSwapInt32(&entry.gate, 0, 1) {
		if entry.key32 == uint32(p.Key>>32) {
			entry.boundGen = (entry.boundGen & 3) + (tt.generation << 2)
			score = int(entry.score)
			move = entry.move
			depth = int(entry.depth)
			bound = int(entry.boundGen & 3)
			ok = true
		}
		atomic.StoreInt32(&entry.gate, 0)
	}
	return
}

func (tt *deepReplaceTransTable) Update(p *Position, depth, score, bound int, move Move) {
	var entry = &tt.entries[uint32(p.Key)&tt.mask]
	if atomic.CompareAndSwapInt32(&entry.gate, 0, 1) {
		if entry.boundGen>>2 != tt.generation ||
			depth >= int(entry.depth) ||
			entry.key32 == uint32(p.Key>>32) {
			entry.key32 = uint32(p.Key >> 32)
			entry.move = move
			entry.score = int16(score)
			entry.depth = int8(depth)
			entry.boundGen = uint8(bound) + (tt.generation << 2)
		}
		atomic.StoreInt32(&entry.gate, 0)
	}
}
