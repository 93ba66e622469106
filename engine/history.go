package engine

import (
	. "github.com/nazarko/splitwave/common"
)

// historyService owns the three exponential-moving-average tables that
// back quiet-move ordering: a plain from-to butterfly table, plus
// counter-move and follow-up tables indexed by the previous move's
// piece/destination so a quiet reply can be rewarded specifically for
// answering (or continuing) the move that preceded it.
type historyService struct {
	ButterflyHistory [8192]int16
	CounterHistory   [1024][1024]int16
	FollowUpHistory  [1024][1024]int16
}

// historyContext is the read/write view of the three tables relevant
// to one node: the butterfly table is always present, counter/follow-up
// are nil when the node has no previous move (or grandparent move) to
// index by.
type historyContext struct {
	butterfly *[8192]int16
	counter   *[1024]int16
	followUp  *[1024]int16
}

// ReadTotal is the score NONCAPTURES and EVASIONS consult for a
// quiet move at this node: the sum of whichever of the three tables
// apply.
func (h *historyContext) ReadTotal(side bool, m Move) int {
	var s int
	if h.butterfly != nil {
		s += int(h.butterfly[sideFromToIndex(side, m)])
	}
	var idx = pieceSquareIndex(side, m)
	if h.counter != nil {
		s += int(h.counter[idx])
	}
	if h.followUp != nil {
		s += int(h.followUp[idx])
	}
	return s
}

// Update applies the EMA bonus/malus for one completed node: bestMove
// moves towards historyMax, every quiet move tried before it at this
// node moves towards -historyMax, scaled by a depth-dependent learning
// rate. Quiet moves listed after bestMove are left unchanged.
func (h *historyContext) Update(side bool, quietsSearched []Move, bestMove Move, depth int) {
	var bonus = depth * depth
	if bonus > 400 {
		bonus = 400
	}

	for _, m := range quietsSearched {
		var target = -HistoryMax
		if m == bestMove {
			target = HistoryMax
		}

		if h.butterfly != nil {
			var i = sideFromToIndex(side, m)
			h.butterfly[i] += int16((target - int(h.butterfly[i])) * bonus / 512)
		}
		var idx = pieceSquareIndex(side, m)
		if h.counter != nil {
			h.counter[idx] += int16((target - int(h.counter[idx])) * bonus / 512)
		}
		if h.followUp != nil {
			h.followUp[idx] += int16((target - int(h.followUp[idx])) * bonus / 512)
		}

		if m == bestMove {
			break
		}
	}
}

func (h *historyService) Clear() {
	for i := range h.ButterflyHistory {
		h.ButterflyHistory[i] = 0
	}
	for i := range h.CounterHistory {
		for j := range h.CounterHistory[i] {
			h.CounterHistory[i][j] = 0
			h.FollowUpHistory[i][j] = 0
		}
	}
}

// getContext builds the view for a node whose previous move was
// counterMove (the reply this node's quiet moves counter) and whose
// grandparent move was followUpMove (the move this node's quiet moves
// continue a plan from). Either may be MoveEmpty at the root or just
// below it.
func (h *historyService) getContext(side bool, counterMove, followUpMove Move) historyContext {
	var ctx historyContext
	ctx.butterfly = &h.ButterflyHistory
	if counterMove != MoveEmpty {
		ctx.counter = &h.CounterHistory[pieceSquareIndex(side, counterMove)]
	}
	if followUpMove != MoveEmpty {
		ctx.followUp = &h.FollowUpHistory[pieceSquareIndex(side, followUpMove)]
	}
	return ctx
}

func pieceSquareIndex(side bool, m Move) int {
	var result = (m.MovingPiece() << 6) | m.To()
	if side {
		result |= 1 << 9
	}
	return result
}

func sideFromToIndex(side bool, m Move) int {
	var result = (m.From() << 6) | m.To()
	if side {
		result |= 1 << 12
	}
	return result
}
