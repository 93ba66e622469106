// Package eval implements the black-box evaluation primitives the
// scheduler and move picker consult: a material-plus-piece-square
// midgame/endgame evaluator that dispatches through the material
// table for specialized endgames and scaling. Board representation
// and move generation are treated as given; this package only assigns
// values to them.
package eval

import (
	. "github.com/nazarko/splitwave/common"
	"github.com/nazarko/splitwave/engine"
)

type score struct {
	midgame, endgame int
}

func (s *score) Add(r score) {
	s.midgame += r.midgame
	s.endgame += r.endgame
}

func (s score) Sub(r score) score {
	return score{s.midgame - r.midgame, s.endgame - r.endgame}
}

func (s score) taper(phase int) int {
	return (s.midgame*phase + s.endgame*(128-phase)) / 128
}

// egPstKing is the only endgame-specific piece-square table this
// evaluator needs: everywhere else the endgame value tracks the
// midgame value from common.MgPst, but a king wants the center in the
// endgame and the back rank while material is still on the board.
var egPstKing = [64]int{
	-50, -30, -30, -30, -30, -30, -30, -50,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-50, -40, -30, -20, -20, -30, -40, -50,
}

func egPst(piece, sq int, side bool) int {
	if piece == King {
		var s = sq
		if side {
			s = sq ^ 56
		}
		return egPstKing[s]
	}
	return MgPst(piece, sq, side)
}

// Evaluate scores the position from the side-to-move's perspective, in
// centipawns, consulting mat for the position's material analysis.
func Evaluate(p *Position, mat *engine.MaterialTable) int {
	var entry = mat.Probe(p)

	if entry.EvaluationFunction != nil {
		var v = entry.EvaluationFunction(p, entry.StrongSide)
		if p.WhiteMove != entry.StrongSide {
			v = -v
		}
		return v
	}

	var white, black score
	var npmWhite = p.NonPawnMaterial(true)
	var npmBlack = p.NonPawnMaterial(false)

	white.midgame += npmWhite + p.PieceCount(true, Pawn)*PawnValueMg
	black.midgame += npmBlack + p.PieceCount(false, Pawn)*PawnValueMg
	white.endgame = white.midgame
	black.endgame = black.midgame

	for sq := 0; sq < 64; sq++ {
		var piece = p.WhatPiece(sq)
		if piece == Empty {
			continue
		}
		var side = (p.White & SquareMask[sq]) != 0
		var s = score{MgPst(piece, sq, side), egPst(piece, sq, side)}
		if side {
			white.Add(s)
		} else {
			black.Add(s)
		}
	}

	var phase = entry.GamePhase
	if phase == 0 && npmWhite+npmBlack > 0 {
		phase = int16(engine.GamePhase(npmWhite + npmBlack))
	}
	var result = white.Sub(black).taper(int(phase))

	var leadingSideIsWhite = result >= 0
	result = (result * int(scaleFactor(p, entry, leadingSideIsWhite))) / 128

	if p.WhiteMove {
		return result
	}
	return -result
}

// scaleFactor returns the /128 scaling applied to the evaluation,
// consulting entry's per-side scaling function (for known scalable
// endgames such as KBPsK) or its static factor table otherwise.
func scaleFactor(p *Position, entry *engine.MaterialEntry, leadingSideIsWhite bool) uint8 {
	var side = 0
	if !leadingSideIsWhite {
		side = 1
	}
	if entry.ScalingFunction[side] != nil {
		return uint8(entry.ScalingFunction[side](p, leadingSideIsWhite))
	}
	if entry.Factor[side] != 0 {
		return entry.Factor[side]
	}
	return 128
}
