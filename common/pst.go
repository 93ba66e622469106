package common

// Midgame piece-square tables, laid out as white sees the board: rank 8
// in the first row, rank 1 in the last. pstSquare flips a white piece's
// square to index them; a black piece's square indexes the mirror image
// directly. These back the mg_pst_delta and midgame_value_of_piece_on
// primitives consumed by move ordering; they do not attempt to be a
// complete evaluation function.
var mgPstKnight = [64]int{
	-40, -30, -20, -20, -20, -20, -30, -40,
	-30, -10, 0, 0, 0, 0, -10, -30,
	-20, 0, 10, 15, 15, 10, 0, -20,
	-20, 5, 15, 20, 20, 15, 5, -20,
	-20, 0, 15, 20, 20, 15, 0, -20,
	-20, 5, 10, 15, 15, 10, 5, -20,
	-30, -10, 0, 5, 5, 0, -10, -30,
	-40, -30, -20, -20, -20, -20, -30, -40,
}

var mgPstBishop = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var mgPstRook = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var mgPstQueen = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var mgPstPawn = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var mgPstKing = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

func pstSquare(sq int, side bool) int {
	if side {
		return sq ^ 56
	}
	return sq
}

// MgPst returns the midgame piece-square value of pieceType standing
// on sq, from side's point of view.
func MgPst(pieceType, sq int, side bool) int {
	var s = pstSquare(sq, side)
	switch pieceType {
	case Pawn:
		return mgPstPawn[s]
	case Knight:
		return mgPstKnight[s]
	case Bishop:
		return mgPstBishop[s]
	case Rook:
		return mgPstRook[s]
	case Queen:
		return mgPstQueen[s]
	case King:
		return mgPstKing[s]
	}
	return 0
}

// MgPstDelta returns the midgame piece-square swing a quiet or capture
// move causes for the moving side: the value of landing on To() minus
// the value of standing on From(). Move ordering adds this to a quiet
// move's history score to prefer centralizing moves among otherwise
// equal-scoring ones.
func MgPstDelta(p *Position, move Move) int {
	var side = p.WhiteMove
	var piece = move.MovingPiece()
	var landingPiece = piece
	if move.Promotion() != Empty {
		landingPiece = move.Promotion()
	}
	return MgPst(landingPiece, move.To(), side) - MgPst(piece, move.From(), side)
}

// MidgameValueOfPieceOn returns the midgame material-plus-PST value of
// whatever piece stands on sq, or 0 if the square is empty.
func MidgameValueOfPieceOn(p *Position, sq int) int {
	var piece = p.WhatPiece(sq)
	if piece == Empty {
		return 0
	}
	var side = (p.White & SquareMask[sq]) != 0
	return PieceValueMg[piece] + MgPst(piece, sq, side)
}
