package uci

import (
	"fmt"

	"github.com/nazarko/splitwave/common"
)

const (
	whiteKing   = "♔"
	whiteQueen  = "♕"
	whiteRook   = "♖"
	whiteBishop = "♗"
	whiteKnight = "♘"
	whitePawn   = "♙"
	blackKing   = "♚"
	blackQueen  = "♛"
	blackRook   = "♜"
	blackBishop = "♝"
	blackKnight = "♞"
	blackPawn   = "♟"
)

var chessSymbols = [2][7]string{
	{".", whitePawn, whiteKnight, whiteBishop, whiteRook, whiteQueen, whiteKing},
	{".", blackPawn, blackKnight, blackBishop, blackRook, blackQueen, blackKing},
}

// PrintPosition renders the board for the console "move" command,
// rank 8 down to rank 1, followed by the side to move and the
// material table's non-pawn-material reading for both sides - the
// same figure applyPawnlessPenalty and the game-phase weight consult
// when scoring this exact position.
func PrintPosition(p *common.Position) {
	for rank := 7; rank >= 0; rank-- {
		fmt.Printf("%d ", rank+1)
		for file := common.FileA; file <= common.FileH; file++ {
			var sq = common.MakeSquare(file, rank)
			piece, side := p.GetPieceTypeAndSide(sq)
			fmt.Print(pieceString(piece, side))
		}
		fmt.Println()
	}
	fmt.Println("  a b c d e f g h")

	var stm = "black"
	if p.WhiteMove {
		stm = "white"
	}
	fmt.Printf("%s to move, non-pawn material: white %d, black %d\n",
		stm, p.NonPawnMaterial(true), p.NonPawnMaterial(false))
}

func pieceString(piece int, side bool) string {
	var sideIdx = 1
	if side {
		sideIdx = 0
	}
	return chessSymbols[sideIdx][piece] + " "
}
