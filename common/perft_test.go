package common

import (
	"testing"
)

// https://www.chessprogramming.org/Perft_Results
func TestPerft(t *testing.T) {
	var tests = []struct {
		fen   string
		depth int
		nodes int
	}{
		{
			fen:   InitialPositionFen,
			depth: 5,
			nodes: 4865609,
		},
		{
			fen:   "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
			depth: 4,
			nodes: 4085603,
		},
		{
			fen:   "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
			depth: 6,
			nodes: 11030083,
		},
	}
	for i, test := range tests {
		var p, err = NewPositionFromFEN(test.fen)
		if err != nil {
			t.Fatal(err)
		}
		var nodes = Perft(&p, test.depth)
		if nodes != test.nodes {
			t.Errorf("case %d: got %v want %v", i, nodes, test.nodes)
		}
	}
}

func Perft(p *Position, depth int) int {
	var result = 0
	var buffer [MaxMoves]Move
	var child Position
	for _, move := range GenerateMoves(buffer[:], p) {
		if p.MakeMove(move, &child) {
			if depth > 1 {
				result += Perft(&child, depth-1)
			} else {
				result++
			}
		}
	}
	return result
}
