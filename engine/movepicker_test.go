package engine

import (
	"testing"

	. "github.com/nazarko/splitwave/common"
)

// legalMoveSet returns every legal move from p via the plain generator,
// used as the ground truth a MovePicker must reproduce exactly once each.
func legalMoveSet(p *Position) map[Move]bool {
	var buffer [MaxMoves]Move
	var pinned = PinnedPieces(p, p.WhiteMove)
	var result = make(map[Move]bool)
	for _, m := range GenerateMoves(buffer[:], p) {
		if PseudoLegalIsLegal(p, m, pinned) {
			result[m] = true
		}
	}
	return result
}

func drainPicker(mp *MovePicker) []Move {
	var result []Move
	for {
		var m = mp.GetNextMove()
		if m == MoveEmpty {
			return result
		}
		result = append(result, m)
	}
}

var pickerTestFENs = []string{
	InitialPositionFen,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"rnb1kbnr/pp1ppppp/8/1q6/2PpP3/5N2/PP3PPP/RNBQ1K1R b kq c3 0 6",
	"2rqkb1r/p1pnpppp/3p3n/3B4/2BPP3/1QP5/PP3PPP/RN2K1NR w KQk - 0 1",
}

// TestMovePickerMainSearchExhaustive checks that the main-search phase
// sequence (TT move, mate killer, good captures, quiets, bad captures)
// yields exactly the legal move set with no move emitted twice.
func TestMovePickerMainSearchExhaustive(t *testing.T) {
	for _, fen := range pickerTestFENs {
		var p, err = NewPositionFromFEN(fen)
		if err != nil {
			t.Fatal(err)
		}
		if p.IsCheck() {
			continue
		}
		var want = legalMoveSet(&p)
		var capturesPossible = CapturesPossible(&p, false)
		var mp = NewMovePicker(&p, OnePly, MoveEmpty, MoveEmpty, MoveEmpty, MoveEmpty,
			true, capturesPossible, nil)
		var seen = make(map[Move]bool)
		for _, m := range drainPicker(mp) {
			if seen[m] {
				t.Errorf("%s: move %s emitted twice", fen, m.String())
			}
			seen[m] = true
			if !want[m] {
				t.Errorf("%s: picker emitted illegal/pseudo-legal move %s", fen, m.String())
			}
		}
		for m := range want {
			if !seen[m] {
				t.Errorf("%s: picker never emitted legal move %s", fen, m.String())
			}
		}
	}
}

// TestMovePickerEvasionsExhaustive checks the same exhaustiveness
// property for the evasions phase sequence used when the king is in
// check.
func TestMovePickerEvasionsExhaustive(t *testing.T) {
	// Black king on e8 attacked by a rook on e1.
	var p, err = NewPositionFromFEN("4k3/8/8/8/8/8/8/4R2K b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsCheck() {
		t.Fatal("expected position to be in check")
	}

	var want = legalMoveSet(&p)
	var mp = NewMovePicker(&p, OnePly, MoveEmpty, MoveEmpty, MoveEmpty, MoveEmpty,
		true, true, nil)
	var seen = make(map[Move]bool)
	for _, m := range drainPicker(mp) {
		if seen[m] {
			t.Errorf("move %s emitted twice in evasions", m.String())
		}
		seen[m] = true
		if !want[m] {
			t.Errorf("picker emitted illegal evasion %s", m.String())
		}
	}
	for m := range want {
		if !seen[m] {
			t.Errorf("picker never emitted legal evasion %s", m.String())
		}
	}
}

// TestMovePickerTTMoveFirst checks that a legal hint move registered as
// ttMove is always the very first move returned, regardless of its
// static ordering score.
func TestMovePickerTTMoveFirst(t *testing.T) {
	var p, err = NewPositionFromFEN(InitialPositionFen)
	if err != nil {
		t.Fatal(err)
	}
	var buffer [MaxMoves]Move
	var ttMove Move
	for _, m := range GenerateMoves(buffer[:], &p) {
		if m.MovingPiece() == Knight {
			ttMove = m
			break
		}
	}
	if ttMove == MoveEmpty {
		t.Fatal("expected a knight move in the initial position")
	}

	var mp = NewMovePicker(&p, OnePly, ttMove, MoveEmpty, MoveEmpty, MoveEmpty,
		true, false, nil)
	if got := mp.GetNextMove(); got != ttMove {
		t.Errorf("first move = %s, want tt move %s", got.String(), ttMove.String())
	}
}

// TestMovePickerBadCapturesDrainLast checks the partition invariant from
// the bad-captures phase: any capture with a negative SEE score is
// deferred past every quiet move, never interleaved with them.
func TestMovePickerBadCapturesDrainLast(t *testing.T) {
	// White queen can be recaptured by a pawn if it takes the knight: a
	// losing capture that the picker should defer.
	var p, err = NewPositionFromFEN("4k3/8/4p3/3n4/8/8/3Q4/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	var mp = NewMovePicker(&p, OnePly, MoveEmpty, MoveEmpty, MoveEmpty, MoveEmpty,
		true, true, nil)

	var badSeen = false
	for {
		var m = mp.GetNextMove()
		if m == MoveEmpty {
			break
		}
		var isLosingQxN = m.MovingPiece() == Queen && m.CapturedPiece() == Knight
		if isLosingQxN {
			badSeen = true
			continue
		}
		if badSeen && !IsCaptureOrPromotion(m) {
			t.Errorf("quiet move %s emitted after a deferred bad capture", m.String())
		}
	}
}
