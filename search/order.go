package search

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/domino14/boardbot/game"
)

// boardState is what make/unmake must leave untouched.
type boardState struct {
	digest  uint64
	turn    int
	moveNum int
	clone   game.Board
}

func snapshot(b game.Board) boardState {
	s := boardState{digest: b.Digest(), turn: b.WhoseTurn(), moveNum: b.MoveNumber()}
	if _, ok := b.(game.SameBoarder); ok {
		s.clone = b.Clone()
	}
	return s
}

func (s boardState) verify(b game.Board, m *Candidate) error {
	if w := b.WhoseTurn(); w != s.turn {
		return fmt.Errorf("%w: %v changed whose turn %d -> %d", ErrDigestMismatch, m.Move, s.turn, w)
	}
	if mn := b.MoveNumber(); mn != s.moveNum {
		return fmt.Errorf("%w: %v changed move number %d -> %d", ErrDigestMismatch, m.Move, s.moveNum, mn)
	}
	if s.clone != nil {
		if err := b.(game.SameBoarder).SameBoard(s.clone); err != nil {
			return fmt.Errorf("%w: %v: %w", ErrDigestMismatch, m.Move, err)
		}
	}
	if d := b.Digest(); d != s.digest {
		return fmt.Errorf("%w: %v changed digest %x -> %x", ErrDigestMismatch, m.Move, s.digest, d)
	}
	return nil
}

// staticEvaluate makes c, scores the resulting position and unmakes it.
func (d *Driver) staticEvaluate(n *Node, c *Candidate, digests map[uint64]*Candidate) error {
	b := d.board
	if err := b.MakeMove(c.Move); err != nil {
		return fmt.Errorf("make %v: %w", c.Move, err)
	}
	d.report.EvalClock++
	dig := b.Digest()
	if digests != nil {
		if prev, ok := digests[dig]; ok && !prev.Same(c) {
			b.UnmakeMove(c.Move)
			return fmt.Errorf("%w: %v and %v both give %x", ErrDuplicateDigest, prev.Move, c.Move, dig)
		}
		digests[dig] = c
	}
	v := d.evaluator.StaticEvaluate(b, c.Move)
	switch {
	case b.GameOver():
		c.Status = DepthLimitedGameOver
		c.gameOver = true
	case d.cfg.Repetitions != nil && d.cfg.Repetitions.WouldRepeat(dig):
		c.Status = EvaluatedDrawn
		c.gameOver = true
		v = 0
	case game.DepthLimit(b, n.ply+1, d.maxDepth):
		c.Status = DepthLimited
	default:
		c.Status = Evaluated
	}
	c.LocalEvaluation = v
	c.Evaluation = v
	b.UnmakeMove(c.Move)
	return nil
}

// EvaluateAndSortMoves is the default Orderer. It gives every move a
// static value and puts the most promising first: promoted moves, then
// game-ending and horizon moves, then the rest by value. It can also stop
// early once a move is found that will cut the node off anyway.
func (d *Driver) EvaluateAndSortMoves(n *Node, moves []*Candidate) (int, error) {
	cfg := &d.cfg
	pred := n.predecessor
	sz := len(moves)
	if sz == 0 {
		return 0, nil
	}
	cutting := cfg.AlphaBeta && cfg.StaticEvalOptimization && pred != nil
	cutoff := -n.heCanGet

	if n.theNullMove == nil && pred != nil {
		n.theNullMove = pred.theNullMove
	}
	var promoted *Candidate
	if cfg.NullMovePromotions && pred != nil && pred.theNullMove != nil {
		promoted = pred.theNullMove.BestReply
	}
	if promoted != nil && moves[0].Player != promoted.Player {
		promoted = nil
	}
	var hashMove game.Move
	if d.hash != nil {
		hashMove = d.hash.probe(n.digest)
	}

	var before boardState
	if cfg.SaveDigest {
		before = snapshot(d.board)
	}
	var digests map[uint64]*Candidate
	if cfg.CheckDuplicateDigests {
		digests = make(map[uint64]*Candidate, sz)
	}

	extra := 0
	hasNull := moves[0].Null
	if hasNull {
		moves[0].Status = Evaluated
		extra++
	}
	if cfg.BestKiller {
		if kb := n.KillerBestMove(); kb != nil {
			for i := extra; i < sz; i++ {
				if moves[i].Same(kb) {
					moves[i], moves[extra] = moves[extra], moves[i]
					extra++
					d.report.Killers++
					break
				}
			}
		}
	}

	allTerminals, someTerminals := true, false
	start := 0
	if hasNull {
		start = 1
	}
	for i := start; i < sz; i++ {
		c := moves[i]
		d.report.Evaluations++
		if err := d.staticEvaluate(n, c, digests); err != nil {
			return 0, err
		}
		if cutting && c.Status != Evaluated && c.LocalEvaluation >= cutoff {
			d.report.StaticEvalSkips += sz - i - 1
			sz = i + 1
		} else if cfg.Killers && c.SearchDeeper() && !c.gameOver {
			if k := n.KillerEvaluateMove(c); k != nil && !k.gameOver && k.SearchDeeper() {
				c.Evaluation = k.Evaluation
				c.seeded = true
				d.report.Killers++
			}
		}
		switch {
		case promoted != nil && promoted.Same(c):
			moves[i], moves[extra] = moves[extra], c
			extra++
			promoted = nil
			d.report.NullMovePromotions++
		case hashMove != nil && hashMove.Same(c.Move):
			moves[i], moves[extra] = moves[extra], c
			extra++
			hashMove = nil
			d.report.HashMoveHits++
		}
		if cfg.SaveDigest {
			if err := before.verify(d.board, c); err != nil {
				return 0, err
			}
		}
		terminal := c.gameOver || !c.SearchDeeper()
		someTerminals = someTerminals || terminal
		allTerminals = allTerminals && terminal
	}
	n.someTerminals = someTerminals
	n.allTerminals = allTerminals
	if someTerminals {
		if hasNull {
			moves[0] = moves[sz-1]
			moves[sz-1] = nil
			sz--
			n.theNullMove = nil
			if pred != nil {
				n.theNullMove = pred.theNullMove
			}
		}
		extra = 0
	}
	if allTerminals {
		slices.SortStableFunc(moves[extra:sz], byEvaluation)
	} else {
		slices.SortStableFunc(moves[extra:sz], terminalsFirst)
		if cfg.WidthLimiter != nil {
			sz = cfg.WidthLimiter.WidthLimit(n.ply, d.maxDepth, moves, sz)
		}
	}
	return sz, nil
}

func byEvaluation(a, b *Candidate) int {
	return cmp.Compare(b.Evaluation, a.Evaluation)
}

func terminalsFirst(a, b *Candidate) int {
	rank := func(c *Candidate) int {
		switch {
		case c.gameOver:
			return 0
		case !c.SearchDeeper():
			return 1
		}
		return 2
	}
	if r := cmp.Compare(rank(a), rank(b)); r != 0 {
		return r
	}
	return byEvaluation(a, b)
}
