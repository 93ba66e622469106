package engine

import (
	. "github.com/nazarko/splitwave/common"
)

const (
	ValueInfinite = 30000
	ValueMate     = 29000
	ValueDraw     = 0
	MaxHeight     = 127
)

// MateIn and MatedIn express mate scores relative to height so that a
// shorter mate is preferred to a longer one regardless of the ply at
// which it is found.
func MateIn(height int) int {
	return ValueMate - height
}

func MatedIn(height int) int {
	return -ValueMate + height
}

func ValueToTT(score, height int) int {
	if score >= ValueMate-MaxHeight {
		return score + height
	}
	if score <= -ValueMate+MaxHeight {
		return score - height
	}
	return score
}

func ValueFromTT(score, height int) int {
	if score >= ValueMate-MaxHeight {
		return score - height
	}
	if score <= -ValueMate+MaxHeight {
		return score + height
	}
	return score
}

// searchStack is one ply of per-thread search state: the position at
// this height, the scratch move buffers a MovePicker draws from, and
// the principal variation accumulated below this node.
type searchStack struct {
	position           Position
	principalVariation []Move
	quietsSearched     []Move
	killer1, killer2   Move
	mateKiller         Move
	buffer0            [MaxMoves]Move
	buffer1            []orderedMove
	buffer2            []orderedMove
}

func newSearchStack() *searchStack {
	return &searchStack{
		principalVariation: make([]Move, 0, MaxHeight),
		quietsSearched:     make([]Move, 0, MaxMoves),
		buffer1:            make([]orderedMove, 0, MaxMoves),
		buffer2:            make([]orderedMove, 0, MaxMoves),
	}
}

func (ss *searchStack) clearPV() {
	ss.principalVariation = ss.principalVariation[:0]
}

func (ss *searchStack) composePV(move Move, child *searchStack) {
	ss.principalVariation = append(append(ss.principalVariation[:0], move), child.principalVariation...)
}

func (ss *searchStack) bestMove() Move {
	if len(ss.principalVariation) == 0 {
		return MoveEmpty
	}
	return ss.principalVariation[0]
}
