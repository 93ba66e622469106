package common

import "testing"

func TestSeeRooksTradeIsEven(t *testing.T) {
	// Rook takes rook on d5, recaptured by the other rook: an even trade.
	var p, err = NewPositionFromFEN("3r4/8/8/3R4/3r4/8/8/3K3k w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	var buffer [MaxMoves]Move
	var move Move
	var found = false
	for _, m := range GenerateCaptures(buffer[:], &p, false) {
		if m.MovingPiece() == Rook && m.CapturedPiece() == Rook {
			move = m
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected a rook-takes-rook capture")
	}
	if got := SEE(&p, move); got != 0 {
		t.Errorf("SEE(RxR recaptured) = %v, want 0", got)
	}
}

func TestSeeWinningPawnTakesUndefendedKnight(t *testing.T) {
	var p, err = NewPositionFromFEN("3k4/8/8/3n4/4P3/8/8/3K4 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	var buffer [MaxMoves]Move
	var move Move
	var found = false
	for _, m := range GenerateCaptures(buffer[:], &p, false) {
		if m.MovingPiece() == Pawn && m.CapturedPiece() == Knight {
			move = m
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected pawn-takes-knight capture")
	}
	if got := SEE(&p, move); got <= 0 {
		t.Errorf("SEE(pawn takes undefended knight) = %v, want > 0", got)
	}
}

func TestSeeGEAgreesWithSeeSign(t *testing.T) {
	var p, err = NewPositionFromFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	var buffer [MaxMoves]Move
	for _, m := range GenerateCaptures(buffer[:], &p, false) {
		var score = SEE(&p, m)
		var ge0 = SeeGE(&p, m, 0)
		if (score >= 0) != ge0 {
			t.Errorf("move %v: SEE=%v but SeeGE(0)=%v", m, score, ge0)
		}
	}
}
