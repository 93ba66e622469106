package engine

import (
	"testing"

	. "github.com/nazarko/splitwave/common"
)

// TestMaterialTableCoherentOnRepeatedProbe checks that probing the same
// material signature twice returns the identical analysis, whether or
// not the second probe is a cache hit or a recomputed miss forced by a
// colliding key.
func TestMaterialTableCoherentOnRepeatedProbe(t *testing.T) {
	var p, err = NewPositionFromFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	var mt = NewMaterialTable(1 << 10)

	var first = *mt.Probe(&p)
	var second = *mt.Probe(&p)

	if first.Key != second.Key || first.Value != second.Value ||
		first.GamePhase != second.GamePhase || first.StrongSide != second.StrongSide {
		t.Errorf("repeated probe of the same material key disagreed: %+v vs %+v", first, second)
	}
}

// TestMaterialTableRecoversFromCollision checks that a direct-mapped
// collision (two different material keys hashing to the same slot)
// still gives each position its own analysis on re-probe, i.e. the
// table never silently returns a stale entry for the wrong key.
func TestMaterialTableRecoversFromCollision(t *testing.T) {
	var mt = NewMaterialTable(1) // single slot: every key collides.

	var p1, err = NewPositionFromFEN(InitialPositionFen)
	if err != nil {
		t.Fatal(err)
	}
	var p2, err2 = NewPositionFromFEN("4k3/8/8/8/8/8/8/4K2R w K - 0 1")
	if err2 != nil {
		t.Fatal(err2)
	}

	var e1 = mt.Probe(&p1)
	if e1.Key != p1.MaterialKey() {
		t.Fatalf("entry key %d, want %d", e1.Key, p1.MaterialKey())
	}
	var e2 = mt.Probe(&p2)
	if e2.Key != p2.MaterialKey() {
		t.Fatalf("entry key %d, want %d", e2.Key, p2.MaterialKey())
	}
	// Re-probing p1 after the collision must recompute rather than
	// return p2's stale entry.
	var e1Again = mt.Probe(&p1)
	if e1Again.Key != p1.MaterialKey() {
		t.Errorf("probe after collision returned stale key %d, want %d", e1Again.Key, p1.MaterialKey())
	}
}

// TestGamePhaseMonotonic checks that GamePhase is monotonically
// non-decreasing in non-pawn material, clamped at both ends, matching
// the interpolation spec.md describes between the endgame and midgame
// limits.
func TestGamePhaseMonotonic(t *testing.T) {
	var prev = -1
	for npm := 0; npm <= 20000; npm += 250 {
		var phase = GamePhase(npm)
		if phase < 0 || phase > 128 {
			t.Fatalf("GamePhase(%d) = %d, out of [0,128]", npm, phase)
		}
		if phase < prev {
			t.Fatalf("GamePhase(%d) = %d, decreased from previous %d", npm, phase, prev)
		}
		prev = phase
	}
	if GamePhase(0) != 0 {
		t.Errorf("GamePhase(0) = %d, want 0 (fully endgame)", GamePhase(0))
	}
	if GamePhase(999999) != 128 {
		t.Errorf("GamePhase(999999) = %d, want 128 (fully midgame)", GamePhase(999999))
	}
}

// TestApplyPawnlessPenaltyComparesMaterialDifference checks the rule
// directly against a non-pawn-material difference rather than the
// piece-count proxy it replaced: a pawnless side up by more than a
// bishop's worth of material (here two knights and a bishop against a
// bare king) must not be scaled down, while the same three minors
// against two knights - a net edge of exactly one bishop - must be.
func TestApplyPawnlessPenaltyComparesMaterialDifference(t *testing.T) {
	var tooStrong, err = NewPositionFromFEN("4k3/8/8/8/8/8/8/NNB1K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	var mt = NewMaterialTable(1 << 8)
	var entry = mt.Probe(&tooStrong)
	if entry.Factor[0] != 128 {
		t.Errorf("K+2N+B vs bare K: Factor[0] = %d, want 128 (advantage exceeds a bishop, no scaling)", entry.Factor[0])
	}

	var atBishop, err2 = NewPositionFromFEN("1n2k1n1/8/8/8/8/8/8/1NB1K1N1 w - - 0 1")
	if err2 != nil {
		t.Fatal(err2)
	}
	var entry2 = mt.Probe(&atBishop)
	if entry2.Factor[0] != NoPawnsSF[1] {
		t.Errorf("K+N+N+B vs K+N+N: Factor[0] = %d, want %d (edge of exactly one bishop is scaled)",
			entry2.Factor[0], NoPawnsSF[1])
	}
}

// TestKQKRPsInstallsScalingFunction checks that a lone queen against a
// lone rook defended by pawns installs the dedicated KQKRPs scaling
// function on the queen's side rather than falling through to the
// generic pawnless-penalty or imbalance rules, and that the installed
// function itself narrows the score once the defending king shelters
// close to its pawn.
func TestKQKRPsInstallsScalingFunction(t *testing.T) {
	var p, err = NewPositionFromFEN("r7/5kp1/8/8/8/8/8/3QK3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	var mt = NewMaterialTable(1 << 8)
	var entry = mt.Probe(&p)
	if entry.ScalingFunction[0] == nil {
		t.Fatal("expected a KQKRPs scaling function installed on the queen's side")
	}
	if got := entry.ScalingFunction[0](&p, true); got != 48 {
		t.Errorf("scaleKQKRPs with the defending king sheltering its pawn = %d, want 48", got)
	}
}

// TestKPKDispatchesSpecializedEvaluation checks that a bare KPK
// signature is recognized by the endgame dispatcher rather than falling
// through to the generic imbalance scoring.
func TestKPKDispatchesSpecializedEvaluation(t *testing.T) {
	var p, err = NewPositionFromFEN("8/8/8/4k3/4P3/4K3/8/8 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	var mt = NewMaterialTable(1 << 8)
	var entry = mt.Probe(&p)
	if entry.EvaluationFunction == nil {
		t.Error("expected KPK to dispatch to a specialized evaluation function")
	}
}
