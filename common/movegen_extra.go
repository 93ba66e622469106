package common

// GenerateNonCaptures fills ml with the pseudo-legal quiet moves (no
// captures, no promotions) available to the side to move.
func GenerateNonCaptures(ml []Move, p *Position) []Move {
	var buffer [MaxMoves]Move
	var count = 0
	for _, m := range GenerateMoves(buffer[:], p) {
		if !IsCaptureOrPromotion(m) {
			ml[count] = m
			count++
		}
	}
	return ml[:count]
}

// GenerateEvasions fills ml with the legal evasions of a position in
// check. The output is guaranteed legal, as required by callers that
// skip a separate legality filter for this phase.
func GenerateEvasions(ml []Move, p *Position) []Move {
	var buffer [MaxMoves]Move
	var count = 0
	var child Position
	for _, m := range GenerateMoves(buffer[:], p) {
		if p.MakeMove(m, &child) {
			ml[count] = m
			count++
		}
	}
	return ml[:count]
}

// GenerateChecks fills ml with the quiet moves that give check: direct
// checks from GenerateCaptures' genChecks pass, plus every quiet move of
// a piece listed in discoveredCandidates. A candidate's move that stays
// on the line to the enemy king is included too, although it gives no
// check.
func GenerateChecks(ml []Move, p *Position, discoveredCandidates uint64) []Move {
	var buffer [MaxMoves]Move
	var count = 0
	for _, m := range GenerateCaptures(buffer[:], p, true) {
		if IsCaptureOrPromotion(m) {
			continue
		}
		ml[count] = m
		count++
	}
	if discoveredCandidates == 0 {
		return ml[:count]
	}
	var quiet [MaxMoves]Move
	for _, m := range GenerateNonCaptures(quiet[:], p) {
		if (discoveredCandidates & SquareMask[m.From()]) == 0 {
			continue
		}
		var dup = false
		for i := 0; i < count; i++ {
			if ml[i] == m {
				dup = true
				break
			}
		}
		if !dup {
			ml[count] = m
			count++
		}
	}
	return ml[:count]
}

// IsCaptureOrPromotion reports whether m captures a piece or promotes a
// pawn.
func IsCaptureOrPromotion(m Move) bool {
	return m.CapturedPiece() != Empty || m.Promotion() != Empty
}

// PseudoLegalIsLegal reports whether a pseudo-legal move leaves the
// mover's own king safe. pinned is an optional fast-path hint: a move
// whose origin square is not pinned, that is not an en-passant capture
// and does not move the king, can never expose the king and is legal
// without simulating it.
func PseudoLegalIsLegal(p *Position, move Move, pinned uint64) bool {
	var isEnPassant = move.CapturedPiece() == Pawn && move.To() == p.EpSquare &&
		move.MovingPiece() == Pawn
	if p.Checkers == 0 && move.MovingPiece() != King && !isEnPassant &&
		(pinned&SquareMask[move.From()]) == 0 {
		return true
	}
	var child Position
	return p.MakeMove(move, &child)
}

// PinnedPieces returns the bitboard of side's own pieces that sit
// between side's king and an enemy slider attacking along that same
// line, one xray at a time.
func PinnedPieces(p *Position, side bool) uint64 {
	var ownPieces = p.PiecesByColor(side)
	var enemyPieces = p.PiecesByColor(!side)
	var kingSq = FirstOne(p.Kings & ownPieces)
	var result uint64

	var sliders = (p.Rooks | p.Queens) & enemyPieces & rookMoves[kingSq]
	sliders |= (p.Bishops | p.Queens) & enemyPieces & bishopMoves[kingSq]

	for ; sliders != 0; sliders &= sliders - 1 {
		var sq = FirstOne(sliders)
		var between = betweenMask[kingSq][sq] & (p.White | p.Black)
		if between != 0 && MoreThanOne(between) == false && (between&ownPieces) != 0 {
			result |= between
		}
	}
	return result
}

// DiscoveredCheckCandidates returns side's own pieces that, if moved off
// their current square, would unmask an attack by one of side's own
// sliders onto the enemy king — the mirror image of PinnedPieces played
// against the opposing king.
func DiscoveredCheckCandidates(p *Position, side bool) uint64 {
	var ownPieces = p.PiecesByColor(side)
	var enemyKingSq = FirstOne(p.Kings & p.PiecesByColor(!side))
	var result uint64

	var sliders = (p.Rooks | p.Queens) & ownPieces & rookMoves[enemyKingSq]
	sliders |= (p.Bishops | p.Queens) & ownPieces & bishopMoves[enemyKingSq]

	for ; sliders != 0; sliders &= sliders - 1 {
		var sq = FirstOne(sliders)
		var between = betweenMask[enemyKingSq][sq] & (p.White | p.Black)
		if between != 0 && MoreThanOne(between) == false && (between&ownPieces) != 0 {
			result |= between
		}
	}
	return result
}
