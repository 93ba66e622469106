package common

import "testing"

func TestGenerateNonCapturesExcludesCapturesAndPromotions(t *testing.T) {
	var p, err = NewPositionFromFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	var buffer [MaxMoves]Move
	for _, m := range GenerateNonCaptures(buffer[:], &p) {
		if IsCaptureOrPromotion(m) {
			t.Errorf("GenerateNonCaptures returned capture/promotion move %v", m)
		}
	}
}

func TestGenerateEvasionsAreLegalAndNonEmptyWhenInCheck(t *testing.T) {
	var p, err = NewPositionFromFEN("rnb1kbnr/pppp1ppp/8/4p3/6Pq/8/PPPPP3/RNBQKBNR w KQkq - 1 3")
	if err != nil {
		t.Fatal(err)
	}
	if p.Checkers == 0 {
		t.Skip("position is not a check position in this FEN revision")
	}
	var buffer [MaxMoves]Move
	var evasions = GenerateEvasions(buffer[:], &p)
	if len(evasions) == 0 {
		t.Fatal("expected at least one evasion")
	}
	var child Position
	for _, m := range evasions {
		if !p.MakeMove(m, &child) {
			t.Errorf("GenerateEvasions returned illegal move %v", m)
		}
	}
}

func TestPseudoLegalIsLegalAgreesWithMakeMove(t *testing.T) {
	var p, err = NewPositionFromFEN(InitialPositionFen)
	if err != nil {
		t.Fatal(err)
	}
	var pinned = PinnedPieces(&p, p.WhiteMove)
	var buffer [MaxMoves]Move
	var child Position
	for _, m := range GenerateMoves(buffer[:], &p) {
		var want = p.MakeMove(m, &child)
		var got = PseudoLegalIsLegal(&p, m, pinned)
		if got != want {
			t.Errorf("PseudoLegalIsLegal(%v) = %v, want %v", m, got, want)
		}
	}
}

func TestPinnedPiecesEmptyOnInitialPosition(t *testing.T) {
	var p, err = NewPositionFromFEN(InitialPositionFen)
	if err != nil {
		t.Fatal(err)
	}
	if PinnedPieces(&p, true) != 0 || PinnedPieces(&p, false) != 0 {
		t.Error("initial position has no pinned pieces")
	}
}

func TestPinnedPiecesDetectsSimplePin(t *testing.T) {
	// White king on e1, white bishop on e3 pinned by the black rook on e8.
	var p, err = NewPositionFromFEN("4r3/8/8/8/8/4B3/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	var pinned = PinnedPieces(&p, true)
	var e3 = MakeSquare(FileE, Rank3)
	if pinned&SquareMask[e3] == 0 {
		t.Error("expected bishop on e3 to be pinned")
	}
}
