package engine

import (
	"context"
	"errors"
	"time"

	. "github.com/nazarko/splitwave/common"
)

// errSearchTimeout is the sentinel panicked by negamax/quiescence once
// the search context is cancelled, recovered at the top of every
// persistent worker loop and at the root of Search itself, mirroring
// the teacher's errSearchTimeout panic/recover convention.
var errSearchTimeout = errors.New("search timeout")

func recoverSearchTimeout() {
	var r = recover()
	if r != nil && r != errSearchTimeout {
		panic(r)
	}
}

const (
	valueWin  = ValueMate - 2*MaxHeight
	valueLoss = -valueWin
)

// nodeType tags a SplitPoint the way spec.md §3 describes; it is read
// back out of the split point only for bookkeeping, since this negamax
// already carries its own pvNode/cutNode booleans end to end.
const (
	nodeTypePV = iota
	nodeTypeNonPV
)

// Search runs iterative deepening from the position at the end of
// params.Positions until ctx is cancelled or a search limit is hit,
// reporting progress through params.Progress and returning the last
// completed iteration's result.
func (e *Engine) Search(ctx context.Context, params SearchParams) (result SearchInfo) {
	e.Prepare()

	var rootPos = params.Positions[len(params.Positions)-1]
	var history = positionsToHistoryKeys(params.Positions)

	e.tt.PrepareNewSearch()
	if e.ClearHash.Value {
		e.tt.Clear()
		e.ClearHash.Value = false
	}

	var start = time.Now()
	var deadline, hasDeadline = computeDeadline(params.Limits, rootPos.WhiteMove, start)
	if hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}
	var softDeadline, hasSoftDeadline = computeSoftDeadline(params.Limits, rootPos.WhiteMove, start)

	e.mu.Lock()
	var pool = e.pool
	e.mu.Unlock()

	var t = pool.MainThread()
	pool.mu.Lock()
	for _, worker := range pool.threads {
		worker.searchCtx = ctx
		worker.rootHistory = history
		if worker != t {
			worker.nodes = 0
		}
	}
	pool.mu.Unlock()

	// The root thread otherwise never touches its own state field, so it
	// would sit at threadIdle for the whole call: isAvailableTo's
	// state==threadIdle check is the only thing that keeps a thread busy
	// with its own split points from being recruited into a second,
	// unrelated one, and every recruited worker relies on that check
	// staying false for its entire top-level episode.
	t.mu.Lock()
	t.state = threadSearching
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.state = threadIdle
		t.mu.Unlock()
	}()

	t.nodes = 0
	t.history.Clear()
	t.stacks[0].position = rootPos
	t.stacks[0].clearPV()
	t.stacks[0].mateKiller = MoveEmpty
	t.stacks[0].killer1 = MoveEmpty
	t.stacks[0].killer2 = MoveEmpty

	defer recoverSearchTimeout()
	defer func() {
		result.Time = int64(time.Since(start) / time.Millisecond)
		result.Nodes = e.totalNodes()
	}()

	var maxDepth = MaxHeight
	if params.Limits.Depth > 0 {
		maxDepth = params.Limits.Depth
	}

	var prevScore = ValueDraw
	for depth := 1; depth <= maxDepth; depth++ {
		var score = e.aspirationWindow(ctx, t, depth*OnePly, prevScore)

		result = SearchInfo{
			Depth:    depth,
			Score:    toUciScore(score),
			MainLine: append([]Move(nil), t.stacks[0].principalVariation...),
			Time:     int64(time.Since(start) / time.Millisecond),
			Nodes:    e.totalNodes(),
		}
		if params.Progress != nil {
			params.Progress(result)
		}

		if params.Limits.Nodes > 0 && result.Nodes >= int64(params.Limits.Nodes) {
			break
		}
		if score >= MateIn(depth) || score <= MatedIn(depth) {
			break
		}
		if hasSoftDeadline && AbsDelta(prevScore, score) <= PawnValueMg/2 && time.Now().After(softDeadline) {
			break
		}
		prevScore = score
	}
	return
}

// aspirationWindow narrows the alpha/beta window around prevScore for
// depth ≥ 5, widening and re-searching on either bound failing, exactly
// the teacher's iterativeDeepening shape generalized to call into
// negamax/split instead of a flat move loop.
func (e *Engine) aspirationWindow(ctx context.Context, t *Thread, depth, prevScore int) int {
	if depth < 5*OnePly {
		return e.negamax(t, 0, depth, -ValueInfinite, ValueInfinite, false)
	}
	var window = PawnValueMg / 2
	var alpha = Max(prevScore-window, -ValueInfinite)
	var beta = Min(prevScore+window, ValueInfinite)
	for {
		var score = e.negamax(t, 0, depth, alpha, beta, false)
		if score <= alpha {
			alpha = Max(alpha-window, -ValueInfinite)
			window *= 2
			continue
		}
		if score >= beta {
			beta = Min(beta+window, ValueInfinite)
			window *= 2
			continue
		}
		return score
	}
}

func toUciScore(score int) UciScore {
	if score >= valueWin {
		return UciScore{Mate: (ValueMate - score + 1) / 2}
	}
	if score <= valueLoss {
		return UciScore{Mate: -(ValueMate + score) / 2}
	}
	return UciScore{Centipawns: score}
}

func positionsToHistoryKeys(positions []Position) []uint64 {
	var result []uint64
	for _, p := range positions {
		if p.Rule50 == 0 {
			result = result[:0]
		}
		result = append(result, p.Key)
	}
	return result
}

// totalNodes sums every worker's node counter; node accounting within
// one split point is exact (§8 property 9), but the UI-facing total is
// simplest read as a sum across threads rather than folded incrementally
// into the master, since multiple split points can be live at once.
func (e *Engine) totalNodes() int64 {
	e.mu.Lock()
	var pool = e.pool
	e.mu.Unlock()

	pool.mu.Lock()
	defer pool.mu.Unlock()
	var total int64
	for _, th := range pool.threads {
		total += th.nodes
	}
	return total
}

func (e *Engine) checkTimeout(t *Thread) {
	if t.nodes&2047 == 0 && t.searchCtx.Err() != nil {
		panic(errSearchTimeout)
	}
}

func (e *Engine) isDraw(t *Thread, height int) bool {
	var p = &t.stacks[height].position

	if (p.Pawns|p.Rooks|p.Queens) == 0 && !MoreThanOne(p.Knights|p.Bishops) {
		return true
	}
	if p.Rule50 >= 100 {
		return true
	}
	for i := height - 1; i >= 0; i-- {
		var prior = &t.stacks[i].position
		if prior.Key == p.Key {
			return true
		}
		if prior.Rule50 == 0 || prior.LastMove == MoveEmpty {
			break
		}
	}
	var repeats = 0
	for _, k := range t.rootHistory {
		if k == p.Key {
			repeats++
		}
	}
	return repeats >= 2
}

// newDepth extends one ply for a reply that recaptures on the same
// square as a good exchange, a check not too deep to run out, or a
// 7th-rank pawn push with a safe SEE — the same three extension rules
// as the teacher's node.newDepth, generalized to the Thread-confined
// stacks this scheduler uses.
func (e *Engine) newDepth(depth int, parent, child *Position) int {
	var prevMove = parent.LastMove
	var move = child.LastMove

	if prevMove != MoveEmpty && prevMove.To() == move.To() &&
		move.CapturedPiece() > Pawn && prevMove.CapturedPiece() > Pawn &&
		SEE(parent, move) >= 0 {
		return depth
	}
	if child.IsCheck() && (depth <= OnePly || SEE(parent, move) >= 0) {
		return depth
	}
	if IsPawnPush7th(move, parent.WhiteMove) && SEE(parent, move) >= 0 {
		return depth
	}
	return depth - OnePly
}

// IsPawnPush7th reports whether move pushes a pawn to the rank one
// short of promotion.
func IsPawnPush7th(move Move, side bool) bool {
	if move.MovingPiece() != Pawn {
		return false
	}
	if side {
		return Rank(move.To()) == Rank7
	}
	return Rank(move.To()) == Rank2
}

// negamax is the search core spec.md §2 describes: construct a
// MovePicker for the current node, search the first move sequentially,
// then either hand the remainder to Thread.split (once depth and
// scheduler state allow it) or keep pulling moves from the picker
// itself.
func (e *Engine) negamax(t *Thread, height, depth, alpha, beta int, cutNode bool) int {
	var ss = t.stacks[height]
	ss.clearPV()

	if height >= MaxHeight {
		return ValueDraw
	}
	if height > 0 && e.isDraw(t, height) {
		return ValueDraw
	}
	if depth <= 0 {
		return e.quiescence(t, height, 0, alpha, beta)
	}

	t.nodes++
	e.checkTimeout(t)

	var pos = &ss.position
	var isCheck = pos.IsCheck()
	var pvNode = beta-alpha > 1

	if MateIn(height+1) <= alpha {
		return alpha
	}
	if MatedIn(height+2) >= beta && !isCheck {
		return beta
	}

	var ttMove = MoveEmpty
	if ttDepth, ttScore, ttBound, ttm, ok := e.tt.Read(pos); ok {
		ttMove = ttm
		if ttDepth >= depth {
			var score = ValueFromTT(ttScore, height)
			if score >= beta && ttBound&BoundLower != 0 {
				return beta
			}
			if score <= alpha && ttBound&BoundUpper != 0 {
				return alpha
			}
		}
	}

	var child = t.stacks[height+1]
	var followUpMove = MoveEmpty
	if height >= 2 {
		followUpMove = t.stacks[height-2].position.LastMove
	}
	var histCtx = t.history.getContext(pos.WhiteMove, pos.LastMove, followUpMove)
	// capturesPossible only selects between qsearch phase sequences; a
	// positive depth always resolves to the evasions or main-search
	// sequence regardless of it, so there is nothing to compute here.
	var picker = NewMovePicker(pos, depth, ttMove, ss.mateKiller, ss.killer1, ss.killer2,
		pvNode, false, &histCtx)

	var bestMove = MoveEmpty
	var bestValue = -ValueInfinite
	var moveCount = 0
	ss.quietsSearched = ss.quietsSearched[:0]

	for {
		var move = picker.GetNextMove()
		if move == MoveEmpty {
			break
		}
		moveCount++

		pos.MakeMove(move, &child.position)
		var newDepth = e.newDepth(depth, pos, &child.position)

		var score int
		if moveCount == 1 {
			score = -e.negamax(t, height+1, newDepth, -beta, -alpha, false)
		} else {
			score = -e.negamax(t, height+1, newDepth, -(alpha + 1), -alpha, true)
			if score > alpha && score < beta {
				score = -e.negamax(t, height+1, newDepth, -beta, -alpha, false)
			}
		}

		if !IsCaptureOrPromotion(move) {
			ss.quietsSearched = append(ss.quietsSearched, move)
		}

		if score > bestValue {
			bestValue = score
			bestMove = move
			if score > alpha {
				alpha = score
				ss.composePV(move, child)
			}
		}
		if alpha >= beta {
			break
		}

		if moveCount == 1 && t.splitPointsLen < maxSplitPointsPerThread &&
			depth >= t.pool.MinimumSplitDepth() {
			var nt = nodeTypeNonPV
			if pvNode {
				nt = nodeTypePV
			}
			var spValue, spMove, _ = t.split(ss, pos, picker, alpha, beta, bestValue, bestMove,
				depth, height, nt, cutNode, MoveEmpty)
			bestValue, bestMove = spValue, spMove
			if bestValue > alpha {
				alpha = bestValue
			}
			break
		}
	}

	if moveCount == 0 {
		if isCheck {
			return MatedIn(height)
		}
		return ValueDraw
	}

	if bestMove != MoveEmpty && !IsCaptureOrPromotion(bestMove) {
		if bestMove != ss.killer1 {
			ss.killer2 = ss.killer1
			ss.killer1 = bestMove
		}
		if bestValue >= valueWin {
			ss.mateKiller = bestMove
		}
		histCtx.Update(pos.WhiteMove, ss.quietsSearched, bestMove, depth)
	}

	var bound = 0
	if bestMove != MoveEmpty {
		bound |= BoundLower
	}
	if alpha < beta {
		bound |= BoundUpper
	}
	e.tt.Update(pos, depth, ValueToTT(alpha, height), bound, bestMove)

	return alpha
}

// searchSplitMove is wired into every Thread via
// ThreadPool.SetSearchFunc: it makes move from the split point's
// shared position snapshot into the calling thread's own child stack
// entry, searches it with the standard null-window-then-re-search
// shape, and reports the node delta this call contributed.
func (e *Engine) searchSplitMove(t *Thread, sp *SplitPoint, move Move) (int, int64) {
	var before = t.nodes

	sp.mu.Lock()
	var alpha, beta = sp.bestValue, sp.beta
	if alpha < sp.alpha {
		alpha = sp.alpha
	}
	var parentPos = *sp.position
	sp.mu.Unlock()

	var child = t.stacks[sp.height+1]
	parentPos.MakeMove(move, &child.position)
	var newDepth = e.newDepth(sp.depth, &parentPos, &child.position)

	var score = -e.negamax(t, sp.height+1, newDepth, -(alpha + 1), -alpha, true)
	if score > alpha && score < beta {
		score = -e.negamax(t, sp.height+1, newDepth, -beta, -alpha, false)
	}

	return score, t.nodes - before
}

// quiescence searches only captures, promotions and (near the horizon)
// checks, exactly the QSEARCH phase sequences spec.md §4.1 prescribes,
// stopping the instant a standing-pat or captured score fails high.
func (e *Engine) quiescence(t *Thread, height, depth, alpha, beta int) int {
	var ss = t.stacks[height]
	ss.clearPV()

	t.nodes++
	e.checkTimeout(t)

	if height >= MaxHeight {
		return ValueDraw
	}

	var pos = &ss.position
	var isCheck = pos.IsCheck()

	if !isCheck {
		var standPat = e.evaluate(pos, t.material)
		if standPat >= beta {
			return standPat
		}
		if standPat > alpha {
			alpha = standPat
		}
	}

	var depthParam = depth
	if isCheck {
		depthParam = OnePly
	}
	var capturesPossible = CapturesPossible(pos, false)
	var picker = NewMovePicker(pos, depthParam, MoveEmpty, MoveEmpty, MoveEmpty, MoveEmpty,
		false, capturesPossible, nil)

	var child = t.stacks[height+1]
	var moveCount = 0

	for {
		var move = picker.GetNextMove()
		if move == MoveEmpty {
			break
		}
		moveCount++

		pos.MakeMove(move, &child.position)
		var score = -e.quiescence(t, height+1, depth-OnePly, -beta, -alpha)

		if score > alpha {
			alpha = score
			ss.composePV(move, child)
			if alpha >= beta {
				break
			}
		}
	}

	if isCheck && moveCount == 0 {
		return MatedIn(height)
	}
	return alpha
}

func computeDeadline(limits LimitsType, whiteToMove bool, start time.Time) (time.Time, bool) {
	if limits.MoveTime > 0 {
		return start.Add(time.Duration(limits.MoveTime) * time.Millisecond), true
	}
	var main, increment = limits.BlackTime, limits.BlackIncrement
	if whiteToMove {
		main, increment = limits.WhiteTime, limits.WhiteIncrement
	}
	if main <= 0 {
		return time.Time{}, false
	}
	var _, hard = timeControlSmart(main, increment, limits.MovesToGo)
	return start.Add(time.Duration(hard) * time.Millisecond), true
}

func computeSoftDeadline(limits LimitsType, whiteToMove bool, start time.Time) (time.Time, bool) {
	if limits.MoveTime > 0 || limits.Infinite || limits.Depth > 0 || limits.Nodes > 0 {
		return time.Time{}, false
	}
	var main, increment = limits.BlackTime, limits.BlackIncrement
	if whiteToMove {
		main, increment = limits.WhiteTime, limits.WhiteIncrement
	}
	if main <= 0 {
		return time.Time{}, false
	}
	var soft, _ = timeControlSmart(main, increment, limits.MovesToGo)
	return start.Add(time.Duration(soft) * time.Millisecond), true
}

// timeControlSmart is the teacher's time-control formula
// (engine/timemanager.go timeControlSmart), unchanged: a soft budget
// that assumes roughly 35 moves remain unless told otherwise, and a
// hard budget four times as generous as a panic valve.
func timeControlSmart(main, inc, moves int) (softLimit, hardLimit int) {
	const (
		movesToGo       = 35
		lastMoveReserve = 300
	)

	if moves == 0 || moves > movesToGo {
		moves = movesToGo
	}

	main = Max(1, main-lastMoveReserve)
	var maxLimit = main
	if moves > 1 {
		maxLimit = Min(maxLimit, main/2+inc)
	}

	var safeMoves = 1 + float64(moves-1)*1.41
	softLimit = int(float64(main)/safeMoves) + inc
	hardLimit = softLimit * 4

	softLimit = Max(1, Min(maxLimit, softLimit))
	hardLimit = Max(1, Min(maxLimit, hardLimit))
	return
}
