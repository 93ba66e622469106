package engine

import (
	. "github.com/nazarko/splitwave/common"
)

// EvaluationFunction scores a position known to match a specialized
// endgame signature, from strongSide's point of view.
type EvaluationFunction func(p *Position, strongSide bool) int

// ScalingFunction narrows an evaluation towards a draw for positions
// that are materially ahead but theoretically drawish (e.g. a lone
// extra bishop with rook pawns on one side). Returns a /128 factor.
type ScalingFunction func(p *Position, strongSide bool) int

// MaterialEntry is the material table's unit of caching: the analysis
// of one material signature, independent of where the pieces stand.
// Sized to stay cache-line friendly.
type MaterialEntry struct {
	Key                uint64
	Value              int16
	Factor             [2]uint8
	GamePhase          int16
	SpaceWeight        int16
	StrongSide         bool
	EvaluationFunction EvaluationFunction
	ScalingFunction    [2]ScalingFunction
}

func (e *MaterialEntry) reset(key uint64) {
	*e = MaterialEntry{Key: key, Factor: [2]uint8{128, 128}}
}

// MaterialTable is a direct-mapped, power-of-two-sized, single-probe
// cache of material analyses, confined to one searching thread. A key
// miss overwrites the slot; there is no LRU and no collision chaining,
// since within one search the material key changes slowly and most
// probes hit.
type MaterialTable struct {
	entries []MaterialEntry
	mask    uint64
}

// NewMaterialTable allocates a table with at most size slots: size
// rounded down to the nearest power of two.
func NewMaterialTable(size int) *MaterialTable {
	var n = roundPowerOfTwo(size)
	return &MaterialTable{
		entries: make([]MaterialEntry, n),
		mask:    uint64(n - 1),
	}
}

func roundPowerOfTwo(size int) int {
	var x = 1
	for (x << 1) <= size {
		x <<= 1
	}
	return x
}

// Probe returns the material analysis for p, computing and caching it
// on a miss.
func (mt *MaterialTable) Probe(p *Position) *MaterialEntry {
	var key = p.MaterialKey()
	var entry = &mt.entries[key&mt.mask]
	if entry.Key == key {
		return entry
	}
	entry.reset(key)
	classify(p, entry)
	return entry
}

// NoPawnsSF mirrors the classic draw-leaning scale factors applied to
// a side with no pawns and at most a bishop's worth of material
// advantage, indexed by the number of bishops that side holds (0, 1 or
// 2+, clamped).
var NoPawnsSF = [3]uint8{4, 12, 24}

// classify runs the material classification cascade described for the
// table: the first specialized rule that matches returns immediately;
// the remaining rules (pawnless-side scaling, space weight, imbalance)
// always run and may coexist.
func classify(p *Position, entry *MaterialEntry) {
	var white = p.MaterialCounts(true)
	var black = p.MaterialCounts(false)

	if fn, strongSide, ok := probeEndgameDispatcher(white, black); ok {
		entry.EvaluationFunction = fn
		entry.StrongSide = strongSide
		computeGamePhase(p, entry)
		return
	}

	if isBareKing(black) && isAtLeastRook(white) {
		entry.EvaluationFunction = evaluateKXK
		entry.StrongSide = true
		computeGamePhase(p, entry)
		return
	}
	if isBareKing(white) && isAtLeastRook(black) {
		entry.EvaluationFunction = evaluateKXK
		entry.StrongSide = false
		computeGamePhase(p, entry)
		return
	}

	if isMinorsOnly(white) && isMinorsOnly(black) {
		entry.EvaluationFunction = evaluateKmmKm
		entry.StrongSide = true
		computeGamePhase(p, entry)
		return
	}

	if isKBPsK(white, black) {
		entry.ScalingFunction[0] = scaleKBPsK
	}
	if isKBPsK(black, white) {
		entry.ScalingFunction[1] = scaleKBPsK
	}

	if isKQKRPs(white, black) {
		entry.ScalingFunction[0] = scaleKQKRPs
	} else if isKQKRPs(black, white) {
		entry.ScalingFunction[1] = scaleKQKRPs
	}

	var npm = p.NonPawnMaterial(true) + p.NonPawnMaterial(false)
	if npm == 0 {
		if white.Pawns > 0 && black.Pawns == 0 {
			entry.ScalingFunction[0] = scaleKPsK
		}
		if black.Pawns > 0 && white.Pawns == 0 {
			entry.ScalingFunction[1] = scaleKPsK
		}
		if white.Pawns == 1 && black.Pawns == 1 {
			entry.ScalingFunction[0] = scaleKPKP
			entry.ScalingFunction[1] = scaleKPKP
		}
	}

	applyPawnlessPenalty(white, black, entry)
	applySpaceWeight(white, black, entry)
	applyImbalance(white, black, entry)

	computeGamePhase(p, entry)
}

func computeGamePhase(p *Position, entry *MaterialEntry) {
	entry.GamePhase = int16(GamePhase(p.NonPawnMaterial(true) + p.NonPawnMaterial(false)))
}

const (
	midgameLimitNpm = 15581
	endgameLimitNpm = 3998
)

func GamePhase(npm int) int {
	if npm > midgameLimitNpm {
		npm = midgameLimitNpm
	}
	if npm < endgameLimitNpm {
		npm = endgameLimitNpm
	}
	return ((npm - endgameLimitNpm) * 128) / (midgameLimitNpm - endgameLimitNpm)
}

func isBareKing(c MaterialCounts) bool {
	return c.Pawns == 0 && c.Knights == 0 && c.Bishops == 0 && c.Rooks == 0 && c.Queens == 0
}

func isAtLeastRook(c MaterialCounts) bool {
	return c.Rooks > 0 || c.Queens > 0
}

func isMinorsOnly(c MaterialCounts) bool {
	return c.Pawns == 0 && c.Rooks == 0 && c.Queens == 0 &&
		(c.Knights+c.Bishops) <= 2
}

func isKBPsK(strong, weak MaterialCounts) bool {
	return strong.Bishops == 1 && strong.Knights == 0 && strong.Rooks == 0 &&
		strong.Queens == 0 && strong.Pawns > 0 && isBareKing(weak)
}

// isKQKRPs matches a lone queen (and nothing else, no pawns of its own)
// against exactly one rook and at least one pawn; the weak side's
// knights, bishops and queens are not checked. This is a notoriously
// hard-to-convert material edge, so it earns its own scaling function
// rather than falling through to the generic pawnless-penalty rule.
func isKQKRPs(strong, weak MaterialCounts) bool {
	return strong.Pawns == 0 && strong.Queens == 1 &&
		strong.Knights == 0 && strong.Bishops == 0 && strong.Rooks == 0 &&
		weak.Rooks == 1 && weak.Pawns > 0
}

// applyPawnlessPenalty narrows the scale factor of a side with no
// pawns at all towards a draw once its non-pawn-material edge over
// the opponent is no greater than a single bishop's worth - a lone
// extra minor or even an exchange up is not enough to win without
// pawns on the board.
func applyPawnlessPenalty(white, black MaterialCounts, entry *MaterialEntry) {
	var npmWhite = nonPawnMaterialOf(white)
	var npmBlack = nonPawnMaterialOf(black)
	if white.Pawns == 0 && npmWhite-npmBlack <= BishopValueMg {
		entry.Factor[0] = NoPawnsSF[clampBishops(white.Bishops)]
	}
	if black.Pawns == 0 && npmBlack-npmWhite <= BishopValueMg {
		entry.Factor[1] = NoPawnsSF[clampBishops(black.Bishops)]
	}
}

func nonPawnMaterialOf(c MaterialCounts) int {
	return c.Knights*KnightValueMg + c.Bishops*BishopValueMg +
		c.Rooks*RookValueMg + c.Queens*QueenValueMg
}

func clampBishops(n int) int {
	if n > 2 {
		return 2
	}
	return n
}

func applySpaceWeight(white, black MaterialCounts, entry *MaterialEntry) {
	var npm = (white.Knights+white.Bishops+black.Knights+black.Bishops)*KnightValueMg +
		(white.Rooks+black.Rooks)*RookValueMg + (white.Queens+black.Queens)*QueenValueMg
	var threshold = 2*QueenValueMg + 4*RookValueMg + 2*KnightValueMg
	if npm >= threshold {
		var minors = white.Knights + white.Bishops + black.Knights + black.Bishops
		entry.SpaceWeight = int16(minors * minors)
	}
}

// applyImbalance computes a Kaufman/Romstad-style polynomial of piece
// counts: same-color-pair and opposite-color-pair quadratic terms for
// each side, subtracted symmetrically, then scaled down.
func applyImbalance(white, black MaterialCounts, entry *MaterialEntry) {
	entry.Value = int16((imbalanceOf(white, black) - imbalanceOf(black, white)) / 16)
}

var imbalanceOwnWeight = [5]int{2, 7, 7, 7, 12}
var imbalanceOppWeight = [5]int{0, 2, 2, 3, -1}

func imbalanceOf(own, opp MaterialCounts) int {
	var counts = [5]int{own.Pawns, own.Knights, own.Bishops, own.Rooks, own.Queens}
	var oppCounts = [5]int{opp.Pawns, opp.Knights, opp.Bishops, opp.Rooks, opp.Queens}
	var total = 0
	for i := range counts {
		if counts[i] == 0 {
			continue
		}
		total += counts[i] * (imbalanceOwnWeight[i]*counts[i] + imbalanceOppWeight[i]*oppCounts[i])
	}
	return total
}
