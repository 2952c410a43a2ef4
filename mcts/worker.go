package mcts

import (
	"fmt"

	"lukechampine.com/frand"

	"github.com/domino14/boardbot/game"
)

// worker runs simulations on its own board, which is at the root position
// between simulations.
type worker struct {
	s       *Searcher
	board   game.Board
	rng     *frand.RNG
	path    []nodeIndex
	counted []bool
	played  []game.Move
	scratch []nodeIndex
}

// simulate runs one select, expand, playout and backpropagation cycle.
func (w *worker) simulate() error {
	s, t, b := w.s, w.s.tree, w.board
	w.path, w.counted, w.played = w.path[:0], w.counted[:0], w.played[:0]
	defer w.unwind()

	cur := s.root
	var last game.Move
	for !b.GameOver() {
		n := t.node(cur)
		if n.children.Load() == nil && !n.terminal.Load() {
			if cur != s.root && n.visits.Load() <= s.opts.NodeExpansionRate {
				break
			}
			if err := s.expand(cur, b, w.rng); err != nil {
				return err
			}
		}
		next := t.selectChild(cur, s.opts.Alpha, w.rng, w.scratch)
		if next == nilNode {
			break
		}
		c := t.node(next)
		if err := b.MakeMove(c.move); err != nil {
			return fmt.Errorf("make %v: %w", c.move, err)
		}
		w.played = append(w.played, c.move)
		last = c.move
		// virtual loss until the playout is scored
		counted := c.visit()
		if counted {
			c.addWins(-1)
		}
		w.path = append(w.path, next)
		w.counted = append(w.counted, counted)
		cur = next
	}

	scores, err := w.playout(last)
	if err != nil {
		return err
	}
	t.node(s.root).visits.Add(1)
	for i, k := range w.path {
		if w.counted[i] {
			n := t.node(k)
			n.addWins(scores[n.player] + 1)
		}
	}
	return nil
}

func (w *worker) unwind() {
	for i := len(w.played) - 1; i >= 0; i-- {
		w.board.UnmakeMove(w.played[i])
	}
	w.played = w.played[:0]
}

// playout plays random moves from the current position and scores the
// result for every player. The moves are left for unwind to take back.
func (w *worker) playout(last game.Move) ([]float64, error) {
	b := w.board
	depth := w.s.opts.PlayoutDepth
	for d := 0; !b.GameOver() && (depth <= 0 || d < depth); d++ {
		m := game.RandomMove(b, w.rng)
		if m == nil {
			break
		}
		if err := b.MakeMove(m); err != nil {
			return nil, fmt.Errorf("playout %v: %w", m, err)
		}
		w.played = append(w.played, m)
		last = m
	}
	return w.s.score(b, last), nil
}

// score rates the position for each player in [-1, 1].
func (s *Searcher) score(b game.Board, last game.Move) []float64 {
	scores := make([]float64, b.NumPlayers())
	if o, ok := b.(game.Outcome); ok && b.GameOver() {
		winner := -1
		for p := range scores {
			if o.WinForPlayer(p) {
				winner = p
				break
			}
		}
		if winner >= 0 {
			for p := range scores {
				scores[p] = -1
			}
			scores[winner] = 1
		}
		return scores
	}
	if last == nil {
		return scores
	}
	v := s.squash(s.evaluator.StaticEvaluate(b, last))
	for p := range scores {
		if p == last.Player() {
			scores[p] = v
		} else {
			scores[p] = -v
		}
	}
	return scores
}
