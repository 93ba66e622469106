package common

// materialPieceKeys hashes the count of each piece type and color into
// a 64-bit material signature, independent of square occupancy. Two
// positions with the same piece counts share the same material key
// regardless of where the pieces stand.
var materialPieceKeys [2][7][16]uint64

func init() {
	var rnd = rngState(0xD6E8FEB86659FD93)
	for side := 0; side < 2; side++ {
		for piece := Pawn; piece <= King; piece++ {
			for count := 0; count < 16; count++ {
				rnd = rnd.next()
				materialPieceKeys[side][piece][count] = uint64(rnd)
			}
		}
	}
}

type rngState uint64

func (r rngState) next() rngState {
	var x = uint64(r)
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	return rngState(x)
}

// MaterialCounts is the piece census of one side, pawns included, king
// excluded (a king's presence is implicit and never varies).
type MaterialCounts struct {
	Pawns, Knights, Bishops, Rooks, Queens int
}

// ComputeMaterialKey hashes a pair of piece censuses into the same
// 64-bit space as Position.MaterialKey, letting the endgame dispatcher
// register evaluators by named signature (e.g. KPK) without needing a
// live position to hash.
func ComputeMaterialKey(white, black MaterialCounts) uint64 {
	var result uint64
	result ^= materialPieceKeys[0][Pawn][white.Pawns&15]
	result ^= materialPieceKeys[0][Knight][white.Knights&15]
	result ^= materialPieceKeys[0][Bishop][white.Bishops&15]
	result ^= materialPieceKeys[0][Rook][white.Rooks&15]
	result ^= materialPieceKeys[0][Queen][white.Queens&15]
	result ^= materialPieceKeys[1][Pawn][black.Pawns&15]
	result ^= materialPieceKeys[1][Knight][black.Knights&15]
	result ^= materialPieceKeys[1][Bishop][black.Bishops&15]
	result ^= materialPieceKeys[1][Rook][black.Rooks&15]
	result ^= materialPieceKeys[1][Queen][black.Queens&15]
	return result
}

// MaterialKey returns a 64-bit hash of the piece counts on the board,
// suitable for indexing a material cache. Unlike Key, it ignores
// square occupancy, side to move, castling rights and en-passant.
func (p *Position) MaterialKey() uint64 {
	return ComputeMaterialKey(p.MaterialCounts(true), p.MaterialCounts(false))
}

// MaterialCounts returns side's piece census.
func (p *Position) MaterialCounts(side bool) MaterialCounts {
	var own = p.PiecesByColor(side)
	return MaterialCounts{
		Pawns:   PopCount(p.Pawns & own),
		Knights: PopCount(p.Knights & own),
		Bishops: PopCount(p.Bishops & own),
		Rooks:   PopCount(p.Rooks & own),
		Queens:  PopCount(p.Queens & own),
	}
}

// PieceCount returns how many pieces of pieceType side currently has.
func (p *Position) PieceCount(side bool, pieceType int) int {
	var own = p.PiecesByColor(side)
	switch pieceType {
	case Pawn:
		return PopCount(p.Pawns & own)
	case Knight:
		return PopCount(p.Knights & own)
	case Bishop:
		return PopCount(p.Bishops & own)
	case Rook:
		return PopCount(p.Rooks & own)
	case Queen:
		return PopCount(p.Queens & own)
	case King:
		return PopCount(p.Kings & own)
	}
	return 0
}

// NonPawnMaterial sums the midgame value of all of side's pieces other
// than pawns and the king.
func (p *Position) NonPawnMaterial(side bool) int {
	return p.PieceCount(side, Knight)*KnightValueMg +
		p.PieceCount(side, Bishop)*BishopValueMg +
		p.PieceCount(side, Rook)*RookValueMg +
		p.PieceCount(side, Queen)*QueenValueMg
}

// Midgame piece values, shared by evaluation, move ordering and the
// material table's imbalance and space-weight computations.
const (
	PawnValueMg   = 100
	KnightValueMg = 320
	BishopValueMg = 330
	RookValueMg   = 500
	QueenValueMg  = 900
	KingValueMg   = 20000
)

var PieceValueMg = [...]int{0, PawnValueMg, KnightValueMg, BishopValueMg, RookValueMg, QueenValueMg, KingValueMg}
