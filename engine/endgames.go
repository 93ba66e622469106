package engine

import (
	. "github.com/nazarko/splitwave/common"
)

type endgameRegistration struct {
	fn         EvaluationFunction
	strongSide bool
}

var endgameDispatcher = map[uint64]endgameRegistration{}

// registerEndgame installs fn for both color assignments of a
// signature described by the strong side's census (strong) and the
// weak side's census (weak): once with white holding strong's pieces,
// once with black holding them.
func registerEndgame(strong, weak MaterialCounts, fn EvaluationFunction) {
	endgameDispatcher[ComputeMaterialKey(strong, weak)] = endgameRegistration{fn, true}
	endgameDispatcher[ComputeMaterialKey(weak, strong)] = endgameRegistration{fn, false}
}

func init() {
	var bareKing = MaterialCounts{}
	registerEndgame(MaterialCounts{Pawns: 1}, bareKing, evaluateKPK)
	registerEndgame(MaterialCounts{Knights: 1, Bishops: 1}, bareKing, evaluateKBNK)
	registerEndgame(MaterialCounts{Rooks: 1}, MaterialCounts{Pawns: 1}, evaluateKRKP)
	registerEndgame(MaterialCounts{Queens: 1}, MaterialCounts{Rooks: 1}, evaluateKQKR)
}

func probeEndgameDispatcher(white, black MaterialCounts) (EvaluationFunction, bool, bool) {
	var key = ComputeMaterialKey(white, black)
	if reg, ok := endgameDispatcher[key]; ok {
		return reg.fn, reg.strongSide, true
	}
	return nil, false, false
}

// pushToEdgeBonus and pushClose are the classic "drive the defending
// king to the rim, then close the distance" terms shared by the mating
// endgame evaluators below.
var pushToEdgeBonus = [64]int{
	100, 90, 80, 70, 70, 80, 90, 100,
	90, 70, 60, 50, 50, 60, 70, 90,
	80, 60, 40, 30, 30, 40, 60, 80,
	70, 50, 30, 20, 20, 30, 50, 70,
	70, 50, 30, 20, 20, 30, 50, 70,
	80, 60, 40, 30, 30, 40, 60, 80,
	90, 70, 60, 50, 50, 60, 70, 90,
	100, 90, 80, 70, 70, 80, 90, 100,
}

func kingDistance(a, b int) int {
	var df = AbsDelta(File(a), File(b))
	var dr = AbsDelta(Rank(a), Rank(b))
	if df > dr {
		return df
	}
	return dr
}

// evaluateKXK scores a side with at least a rook's worth of material
// against a bare king: always winning, so the score is anchored well
// above any normal material evaluation and shaped to drive the
// defending king towards the edge and the two kings together.
func evaluateKXK(p *Position, strongSide bool) int {
	var strongKing = FirstOne(p.Kings & p.PiecesByColor(strongSide))
	var weakKing = FirstOne(p.Kings & p.PiecesByColor(!strongSide))
	var material = p.NonPawnMaterial(strongSide) + p.PieceCount(strongSide, Pawn)*PawnValueMg
	var result = KingValueMg/10 + material
	result += pushToEdgeBonus[weakKing]
	result += (14 - kingDistance(strongKing, weakKing)) * 10
	return result
}

// evaluateKPK scores king and pawn versus bare king: the pawn's value
// plus a bonus for each rank it has advanced, adjusted by how close
// each king stands to the pawn.
func evaluateKPK(p *Position, strongSide bool) int {
	var pawnSq = FirstOne(p.Pawns & p.PiecesByColor(strongSide))
	var weakKing = FirstOne(p.Kings & p.PiecesByColor(!strongSide))
	var strongKing = FirstOne(p.Kings & p.PiecesByColor(strongSide))
	var advance = Rank(pawnSq)
	if !strongSide {
		advance = 7 - Rank(pawnSq)
	}
	var result = PawnValueMg + advance*20
	result -= kingDistance(strongKing, pawnSq) * 5
	result += kingDistance(weakKing, pawnSq) * 5
	return result
}

// evaluateKBNK scores the specific king+bishop+knight vs bare king
// mate, which can only be forced into a corner matching the bishop's
// color; steering towards the wrong corner is a known draw, so the
// bonus favors the corner the bishop attacks.
func evaluateKBNK(p *Position, strongSide bool) int {
	var base = evaluateKXK(p, strongSide)
	var weakKing = FirstOne(p.Kings & p.PiecesByColor(!strongSide))
	var bishopSq = FirstOne(p.Bishops & p.PiecesByColor(strongSide))
	if IsDarkSquare(bishopSq) == IsDarkSquare(weakKing) {
		base += 50
	}
	return base
}

// evaluateKRKP scores rook versus a lone pawn: usually winning unless
// the pawn is far advanced and defended by its own king, so the score
// rewards the rook's king staying close to the pawn.
func evaluateKRKP(p *Position, strongSide bool) int {
	var weakPawns = p.Pawns & p.PiecesByColor(!strongSide)
	var pawnSq = FirstOne(weakPawns)
	var weakKing = FirstOne(p.Kings & p.PiecesByColor(!strongSide))
	var strongKing = FirstOne(p.Kings & p.PiecesByColor(strongSide))
	var result = RookValueMg - PawnValueMg
	var promotionDistance = 7 - Rank(pawnSq)
	if !strongSide {
		promotionDistance = Rank(pawnSq)
	}
	result -= promotionDistance * 10
	result -= kingDistance(strongKing, pawnSq) * 5
	result += kingDistance(weakKing, pawnSq) * 5
	return result
}

// evaluateKQKR scores queen versus rook: generally winning but one of
// the trickier low-material endgames to convert, so the bonus is kept
// conservative relative to the raw material difference.
func evaluateKQKR(p *Position, strongSide bool) int {
	var strongKing = FirstOne(p.Kings & p.PiecesByColor(strongSide))
	var weakKing = FirstOne(p.Kings & p.PiecesByColor(!strongSide))
	var result = QueenValueMg - RookValueMg
	result += pushToEdgeBonus[weakKing] / 2
	result += (14 - kingDistance(strongKing, weakKing)) * 5
	return result
}

// evaluateKmmKm scores a position where both sides hold at most two
// minor pieces and nothing else: a textbook draw, so the evaluation
// collapses to a symmetric near-zero regardless of which minors are
// on the board.
func evaluateKmmKm(p *Position, strongSide bool) int {
	return 0
}

// scaleKBPsK narrows the evaluation towards a draw when the defending
// bare king can reach the queening square or trade the only pawns: a
// coarse approximation that scales down as the defending king gets
// close to the strong side's passed pawns.
func scaleKBPsK(p *Position, strongSide bool) int {
	var weakKing = FirstOne(p.Kings & p.PiecesByColor(!strongSide))
	var pawns = p.Pawns & p.PiecesByColor(strongSide)
	var best = 128
	for b := pawns; b != 0; b &= b - 1 {
		var sq = FirstOne(b)
		if kingDistance(weakKing, sq) <= 2 {
			best = 32
		}
	}
	return best
}

// scaleKQKRPs narrows a lone queen's evaluation against a lone rook
// defended by pawns: the defending pawns can shelter the rook and give
// the weaker side genuine drawing chances, so the scale drops further
// the closer the defending king sits to its most advanced pawn.
func scaleKQKRPs(p *Position, strongSide bool) int {
	var weakPawns = p.Pawns & p.PiecesByColor(!strongSide)
	var weakKing = FirstOne(p.Kings & p.PiecesByColor(!strongSide))
	var best = 128
	for b := weakPawns; b != 0; b &= b - 1 {
		var sq = FirstOne(b)
		if kingDistance(weakKing, sq) <= 2 {
			best = 48
		}
	}
	return best
}

// scaleKPsK narrows the evaluation when the side with extra pawns has
// no other material, since a lone king can sometimes blockade.
func scaleKPsK(p *Position, strongSide bool) int {
	return 96
}

// scaleKPKP narrows a single-pawn-each endgame, which is drawn far
// more often than the raw material balance would suggest.
func scaleKPKP(p *Position, strongSide bool) int {
	return 64
}
