package engine

import (
	"sync"

	. "github.com/nazarko/splitwave/common"
)

// HistoryMax bounds the magnitude of each history table entry; killer
// moves are scored just above it. A quiet move's history score is the
// sum of up to three tables plus a piece-square delta, so a quiet move
// with strong history can still sort ahead of a killer.
const HistoryMax = 1 << 14

// orderedMove pairs a move with the score it was assigned when its
// phase was materialized.
type orderedMove struct {
	move  Move
	score int
}

// MovePicker yields pseudo-legal moves for one search node in an order
// designed to maximize alpha-beta cutoffs, advancing lazily through a
// fixed phase sequence chosen at construction time. It never
// materializes more of the move list than the phase it is currently
// draining requires.
type MovePicker struct {
	pos *Position

	sequence     []phase
	seqIdx       int
	materialized bool

	ttMove, mateKiller, killer1, killer2 Move
	pvNode                               bool
	depth                                int

	pinned     uint64
	discovered uint64

	moves       []orderedMove
	movesPicked int
	numOfMoves  int

	badCaptures       []orderedMove
	badCapturesPicked int
	numOfBadCaptures  int

	squaresTouched uint64

	hist *historyContext

	finished bool
}

// NewMovePicker constructs a picker for pos at depth, with the given
// hint moves and a capturesPossible hint (see CapturesPossible); hist
// may be nil, in which case quiet moves score zero from history.
func NewMovePicker(pos *Position, depth int, ttMove, mateKiller, killer1, killer2 Move,
	pvNode bool, capturesPossible bool, hist *historyContext) *MovePicker {

	var mp = &MovePicker{
		pos:        pos,
		ttMove:     ttMove,
		mateKiller: mateKiller,
		killer1:    killer1,
		killer2:    killer2,
		pvNode:     pvNode,
		depth:      depth,
		hist:       hist,
		pinned:     PinnedPieces(pos, pos.WhiteMove),
		discovered: DiscoveredCheckCandidates(pos, pos.WhiteMove),
	}

	switch {
	case pos.IsCheck():
		mp.sequence = sequenceEvasions[:]
	case depth > 0:
		mp.sequence = sequenceMainSearch[:]
	case depth == 0:
		if capturesPossible {
			mp.sequence = sequenceQSearchWithChecks[:]
		} else {
			mp.sequence = sequenceQSearchNoCaptures[:]
		}
	default:
		if capturesPossible {
			mp.sequence = sequenceQSearchWithoutCheck[:]
		} else {
			mp.sequence = sequenceNoMoves[:]
		}
	}
	return mp
}

// CapturesPossible is the cheap over-approximation that lets qsearch
// skip the QCAPTURES phase entirely when no capture could possibly be
// available: the side to move attacks nothing, there is no en-passant
// square, and it has no pawn one step from promotion.
func CapturesPossible(p *Position, specializedEndgameActive bool) bool {
	if p.EpSquare != SquareNone {
		return true
	}
	if specializedEndgameActive {
		return true
	}
	var side = p.WhiteMove
	var ownPawns = p.Pawns & p.PiecesByColor(side)
	var seventhRank = Rank7Mask
	if !side {
		seventhRank = Rank2Mask
	}
	if ownPawns&seventhRank != 0 {
		return true
	}
	return attacksAnyEnemyPiece(p, side)
}

func attacksAnyEnemyPiece(p *Position, side bool) bool {
	var occ = p.White | p.Black
	var enemy = p.PiecesByColor(!side)
	var own = p.PiecesByColor(side)

	for b := p.Pawns & own; b != 0; b &= b - 1 {
		if PawnAttacks(FirstOne(b), side)&enemy != 0 {
			return true
		}
	}
	for b := p.Knights & own; b != 0; b &= b - 1 {
		if KnightAttacks[FirstOne(b)]&enemy != 0 {
			return true
		}
	}
	for b := p.Bishops & own; b != 0; b &= b - 1 {
		if BishopAttacks(FirstOne(b), occ)&enemy != 0 {
			return true
		}
	}
	for b := p.Rooks & own; b != 0; b &= b - 1 {
		if RookAttacks(FirstOne(b), occ)&enemy != 0 {
			return true
		}
	}
	for b := p.Queens & own; b != 0; b &= b - 1 {
		if QueenAttacks(FirstOne(b), occ)&enemy != 0 {
			return true
		}
	}
	return false
}

func (mp *MovePicker) currentPhase() phase {
	if mp.seqIdx >= len(mp.sequence) {
		return phaseStop
	}
	return mp.sequence[mp.seqIdx]
}

func (mp *MovePicker) advance() {
	mp.seqIdx++
	mp.materialized = false
}

func (mp *MovePicker) verifyHint(m Move) bool {
	if m == MoveEmpty {
		return false
	}
	if mp.pos.WhatPiece(m.From()) != m.MovingPiece() {
		return false
	}
	if mp.pos.PiecesByColor(mp.pos.WhiteMove)&SquareMask[m.From()] == 0 {
		return false
	}
	return PseudoLegalIsLegal(mp.pos, m, mp.pinned)
}

// GetNextMove drives the phase state machine and returns the next
// legal move, or MoveEmpty once the STOP phase is reached.
func (mp *MovePicker) GetNextMove() Move {
	for {
		switch mp.currentPhase() {
		case phaseStop:
			return MoveEmpty

		case phaseTTMove:
			mp.advance()
			if mp.verifyHint(mp.ttMove) {
				return mp.ttMove
			}

		case phaseMateKiller:
			mp.advance()
			if mp.mateKiller != mp.ttMove && mp.verifyHint(mp.mateKiller) {
				return mp.mateKiller
			}

		case phaseGoodCaptures:
			if !mp.materialized {
				mp.materializeCaptures()
				mp.materialized = true
			}
			if m := mp.pickBestScan(mp.moves, &mp.movesPicked, mp.numOfMoves); m != MoveEmpty {
				return m
			}
			mp.advance()

		case phaseNonCaptures:
			if !mp.materialized {
				mp.materializeNonCaptures()
				mp.materialized = true
			}
			if m := mp.pickNonCapture(); m != MoveEmpty {
				return m
			}
			mp.advance()

		case phaseBadCaptures:
			if !mp.materialized {
				mp.badCapturesPicked = 0
				mp.materialized = true
			}
			if m := mp.pickBadCapture(); m != MoveEmpty {
				return m
			}
			mp.advance()

		case phaseEvasions:
			if !mp.materialized {
				mp.materializeEvasions()
				mp.materialized = true
			}
			if m := mp.pickBestScanUnfiltered(mp.moves, &mp.movesPicked, mp.numOfMoves); m != MoveEmpty {
				return m
			}
			mp.advance()

		case phaseQCaptures:
			if !mp.materialized {
				mp.materializeQCaptures()
				mp.materialized = true
			}
			if m := mp.pickQCapture(); m != MoveEmpty {
				return m
			}
			mp.advance()

		case phaseQChecks:
			if !mp.materialized {
				mp.materializeQChecks()
				mp.materialized = true
			}
			if m := mp.pickQCheck(); m != MoveEmpty {
				return m
			}
			mp.advance()
		}
	}
}

// mvvLva scores a capture or promotion for the GOOD_CAPTURES phase:
// QueenValueMg for a winning promotion, otherwise victim value minus a
// small attacker-type penalty.
func mvvLva(m Move) int {
	if m.Promotion() != Empty {
		return QueenValueMg
	}
	return PieceValueMg[m.CapturedPiece()] - m.MovingPiece()
}

func (mp *MovePicker) materializeCaptures() {
	var buf [MaxMoves]Move
	var gen = GenerateCaptures(buf[:], mp.pos, false)
	mp.moves = mp.moves[:0]
	mp.badCaptures = mp.badCaptures[:0]
	for _, m := range gen {
		if m == mp.ttMove || m == mp.mateKiller {
			continue
		}
		var see = SEE(mp.pos, m)
		if see >= 0 {
			mp.moves = append(mp.moves, orderedMove{m, mvvLva(m)})
		} else {
			mp.badCaptures = append(mp.badCaptures, orderedMove{m, see})
		}
	}
	mp.movesPicked = 0
	mp.numOfMoves = len(mp.moves)
	mp.badCapturesPicked = 0
	mp.numOfBadCaptures = len(mp.badCaptures)
}

// pickBestScan implements the GOOD_CAPTURES/NONCAPTURES selection
// rule: a linear scan from the cursor for the highest-scoring move,
// swapped into place, skipping illegal moves (ttMove/mateKiller are
// already left out when the list is materialized).
func (mp *MovePicker) pickBestScan(list []orderedMove, picked *int, count int) Move {
	for *picked < count {
		var bestIdx = *picked
		for i := *picked + 1; i < count; i++ {
			if list[i].score > list[bestIdx].score {
				bestIdx = i
			}
		}
		list[*picked], list[bestIdx] = list[bestIdx], list[*picked]
		var m = list[*picked].move
		*picked++
		if PseudoLegalIsLegal(mp.pos, m, mp.pinned) {
			return m
		}
	}
	return MoveEmpty
}

// pickBestScanUnfiltered is pickBestScan without the legality check,
// used by EVASIONS, whose generator already yields only legal moves
// and whose TT move is scored to sort first.
func (mp *MovePicker) pickBestScanUnfiltered(list []orderedMove, picked *int, count int) Move {
	for *picked < count {
		var bestIdx = *picked
		for i := *picked + 1; i < count; i++ {
			if list[i].score > list[bestIdx].score {
				bestIdx = i
			}
		}
		list[*picked], list[bestIdx] = list[bestIdx], list[*picked]
		var m = list[*picked].move
		*picked++
		return m
	}
	return MoveEmpty
}

func (mp *MovePicker) materializeNonCaptures() {
	var buf [MaxMoves]Move
	var gen = GenerateNonCaptures(buf[:], mp.pos)
	mp.moves = mp.moves[:0]
	for _, m := range gen {
		if m == mp.ttMove || m == mp.mateKiller {
			continue
		}
		var sc int
		switch {
		case m == mp.killer1:
			sc = HistoryMax + 2
		case m == mp.killer2:
			sc = HistoryMax + 1
		case mp.hist != nil:
			sc = mp.hist.ReadTotal(mp.pos.WhiteMove, m)
		}
		if sc > 0 {
			sc += 1000
		}
		sc += MgPstDelta(mp.pos, m)
		mp.moves = append(mp.moves, orderedMove{m, sc})
	}
	mp.movesPicked = 0
	mp.numOfMoves = len(mp.moves)
}

// pickNonCapture implements the NONCAPTURES rule: same best-scan as
// good captures, but when not searching a PV node and 12 or more
// entries of the quiet list have already been taken, it front-picks
// instead of scanning, trading order quality for speed deep in the
// tree where move ordering matters less.
func (mp *MovePicker) pickNonCapture() Move {
	if !mp.pvNode && mp.movesPicked >= 12 {
		for mp.movesPicked < mp.numOfMoves {
			var m = mp.moves[mp.movesPicked].move
			mp.movesPicked++
			if PseudoLegalIsLegal(mp.pos, m, mp.pinned) {
				return m
			}
		}
		return MoveEmpty
	}
	return mp.pickBestScan(mp.moves, &mp.movesPicked, mp.numOfMoves)
}

// pickBadCapture implements the BAD_CAPTURES rule: iterate in stored
// order, no resorting, same ttMove/mateKiller/legality filter (the
// ttMove/mateKiller exclusion already happened at materialization).
func (mp *MovePicker) pickBadCapture() Move {
	for mp.badCapturesPicked < mp.numOfBadCaptures {
		var m = mp.badCaptures[mp.badCapturesPicked].move
		mp.badCapturesPicked++
		if PseudoLegalIsLegal(mp.pos, m, mp.pinned) {
			return m
		}
	}
	return MoveEmpty
}

func (mp *MovePicker) materializeEvasions() {
	var buf [MaxMoves]Move
	var gen = GenerateEvasions(buf[:], mp.pos)
	mp.moves = mp.moves[:0]
	for _, m := range gen {
		var sc int
		switch {
		case m == mp.ttMove:
			sc = 2 * HistoryMax
		case IsCaptureOrPromotion(m):
			var see = SEE(mp.pos, m)
			sc = see
			if see >= 0 {
				sc += HistoryMax
			}
		case mp.hist != nil:
			sc = mp.hist.ReadTotal(mp.pos.WhiteMove, m)
		}
		mp.moves = append(mp.moves, orderedMove{m, sc})
	}
	mp.movesPicked = 0
	mp.numOfMoves = len(mp.moves)
}

func (mp *MovePicker) materializeQCaptures() {
	var buf [MaxMoves]Move
	var gen = GenerateCaptures(buf[:], mp.pos, false)
	mp.moves = mp.moves[:0]
	for _, m := range gen {
		mp.moves = append(mp.moves, orderedMove{m, mvvLva(m)})
	}
	mp.movesPicked = 0
	mp.numOfMoves = len(mp.moves)
}

// pickQCapture implements the QCAPTURES rule: best-scan for the first
// four picks (enough to find any clearly winning capture), then
// front-picking for the remainder.
func (mp *MovePicker) pickQCapture() Move {
	if mp.movesPicked < 4 {
		return mp.pickBestScan(mp.moves, &mp.movesPicked, mp.numOfMoves)
	}
	for mp.movesPicked < mp.numOfMoves {
		var m = mp.moves[mp.movesPicked].move
		mp.movesPicked++
		if PseudoLegalIsLegal(mp.pos, m, mp.pinned) {
			return m
		}
	}
	return MoveEmpty
}

func (mp *MovePicker) materializeQChecks() {
	var buf [MaxMoves]Move
	var gen = GenerateChecks(buf[:], mp.pos, mp.discovered)
	mp.moves = mp.moves[:0]
	for _, m := range gen {
		mp.moves = append(mp.moves, orderedMove{m, 0})
	}
	mp.movesPicked = 0
	mp.numOfMoves = len(mp.moves)
}

// pickQCheck implements the QCHECKS rule: plain generation-order
// iteration, no scoring, no TT filter, legality required.
func (mp *MovePicker) pickQCheck() Move {
	for mp.movesPicked < mp.numOfMoves {
		var m = mp.moves[mp.movesPicked].move
		mp.movesPicked++
		if PseudoLegalIsLegal(mp.pos, m, mp.pinned) {
			return m
		}
	}
	return MoveEmpty
}

// findBestIndexCoalesced is the attacker-coalescing alternative to a
// plain best-scan: a move whose destination is already marked in
// squaresTouched scores 0xB00 lower, and the chosen move's destination
// is then marked. The penalty is the same however often a square has
// been picked; it does not grow with repeat hits. Exposed for callers that want
// to spread tactical attention across the board; the main picker does
// not use it.
func findBestIndexCoalesced(list []orderedMove, from int, squaresTouched *uint64) int {
	var bestIdx = from
	var bestScore = -1 << 30
	for i := from; i < len(list); i++ {
		var sc = list[i].score
		var to = list[i].move.To()
		if *squaresTouched&SquareMask[to] != 0 {
			sc -= 0xB00
		}
		if sc > bestScore {
			bestScore = sc
			bestIdx = i
		}
	}
	*squaresTouched |= SquareMask[list[bestIdx].move.To()]
	return bestIdx
}

// GetNextMoveLocked is the thread-safe wrapper a SplitPoint uses to
// share one picker across its master and slaves: the lock is supplied
// by the caller so contention granularity stays the split point's
// choice. Once the sequential form returns MoveEmpty, finished is
// latched so every later caller short-circuits without re-entering the
// state machine.
func (mp *MovePicker) GetNextMoveLocked(lock *sync.Mutex) Move {
	lock.Lock()
	defer lock.Unlock()
	if mp.finished {
		return MoveEmpty
	}
	var m = mp.GetNextMove()
	if m == MoveEmpty {
		mp.finished = true
	}
	return m
}
