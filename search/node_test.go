package search

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/games/nim"
	"github.com/domino14/boardbot/games/tictactoe"
)

type seenNode struct {
	ply      int
	root     *Candidate
	hasNull  bool
	toMove   int
	nullSide int
}

// recordingOrderer notes every node it is asked to order.
type recordingOrderer struct {
	d    *Driver
	seen []seenNode
}

func (r *recordingOrderer) EvaluateAndSortMoves(n *Node, moves []*Candidate) (int, error) {
	s := seenNode{ply: n.Ply(), root: n.RootMove(), hasNull: moves[0].Null, toMove: r.d.board.WhoseTurn()}
	if s.hasNull {
		s.nullSide = moves[0].Player
	}
	r.seen = append(r.seen, s)
	return r.d.EvaluateAndSortMoves(n, moves)
}

func TestNullMoveLegality(t *testing.T) {
	is := is.New(t)
	for _, level := range []int{1, 2, 3} {
		b := position(t, "X...O....", 0)
		rec := &recordingOrderer{}
		cfg := DefaultConfig()
		cfg.MaxDepth = 4
		cfg.NullMove = true
		cfg.NullMoveSearchLevel = level
		cfg.Orderer = rec
		d := NewDriver(b, tictactoe.NewEvaluator(), cfg)
		rec.d = d
		res, err := d.Search(context.Background())
		is.NoErr(err)
		is.True(!res.Best.Null)

		nulls := 0
		for _, s := range rec.seen {
			if !s.hasNull {
				continue
			}
			nulls++
			is.True(s.ply < level)
			is.Equal(s.nullSide, s.toMove)
			if s.root != nil {
				is.True(!s.root.Null)
				is.True(s.root.Player != s.toMove)
			}
		}
		is.True(nulls > 0)
		for _, s := range rec.seen {
			if s.root != nil && s.root.Null {
				is.True(!s.hasNull)
			}
		}
	}
}

func TestNullMoveNeverBest(t *testing.T) {
	is := is.New(t)
	// O has to block; passing loses at once
	b := position(t, "XX..O....", 1)
	d := Setup(b, tictactoe.NewEvaluator(), 3, 0, 0, WithNullMove(true, 1))
	res, err := d.Search(context.Background())
	is.NoErr(err)
	is.True(!res.Best.Null)
	is.Equal(square(res.Best), 2)
	for _, c := range res.RootMoves {
		if c.Null {
			is.True(c.BestReply != nil)
		}
	}
}

// multisetNim digests nim heaps without regard to their order, so moves on
// equal heaps collide.
type multisetNim struct {
	*nim.Board
}

func (m multisetNim) Digest() uint64 {
	heaps := m.Heaps()
	slices.Sort(heaps)
	var h uint64 = 14695981039346656037
	for _, n := range heaps {
		h = (h ^ uint64(n)) * 1099511628211
	}
	return h ^ uint64(m.WhoseTurn())
}

func (m multisetNim) Clone() game.Board {
	return multisetNim{m.Board.Clone().(*nim.Board)}
}

type zeroEvaluator struct{}

func (zeroEvaluator) StaticEvaluate(game.Board, game.Move) float64 { return 0 }
func (zeroEvaluator) SetWeights([]float64)                         {}
func (zeroEvaluator) Weights() []float64                           { return nil }

func TestDuplicateDigest(t *testing.T) {
	is := is.New(t)
	nb, err := nim.NewBoard(2, 2, 2)
	is.NoErr(err)
	b := multisetNim{nb}
	before := b.Digest()
	d := Setup(b, zeroEvaluator{}, 2, 0, 0, WithDigestChecks(false, true))
	_, err = d.Search(context.Background())
	is.True(errors.Is(err, ErrDuplicateDigest))
	is.Equal(b.Digest(), before)

	// the real nim digest tells the heaps apart
	nb, err = nim.NewBoard(2, 2, 2)
	is.NoErr(err)
	d = Setup(nb, nim.NewEvaluator(), 3, 0, 0, WithDigestChecks(true, true))
	_, err = d.Search(context.Background())
	is.NoErr(err)
}

func TestNoFalseDuplicatesInTicTacToe(t *testing.T) {
	is := is.New(t)
	d := Setup(tictactoe.NewBoard(), tictactoe.NewEvaluator(), 9, 0, 0,
		WithDigestChecks(true, true), WithNullMove(true, 2))
	res, err := d.Search(context.Background())
	is.NoErr(err)
	is.True(res.Best != nil)
}

// leakyBoard forgets to restore its digest when a move is taken back.
type leakyBoard struct {
	*tictactoe.Board
	salt uint64
}

func (l *leakyBoard) MakeMove(m game.Move) error {
	l.salt++
	return l.Board.MakeMove(m)
}

func (l *leakyBoard) Digest() uint64 { return l.Board.Digest() ^ l.salt }

func (l *leakyBoard) Clone() game.Board {
	return &leakyBoard{Board: l.Board.Clone().(*tictactoe.Board), salt: l.salt}
}

func (l *leakyBoard) SameBoard(other game.Board) error {
	return l.Board.SameBoard(other.(*leakyBoard).Board)
}

func TestSaveDigestCatchesUnsoundUnmake(t *testing.T) {
	is := is.New(t)
	b := &leakyBoard{Board: tictactoe.NewBoard()}
	d := Setup(b, zeroEvaluator{}, 2, 0, 0, WithDigestChecks(true, false))
	_, err := d.Search(context.Background())
	is.True(errors.Is(err, ErrDigestMismatch))
}

func TestPresort(t *testing.T) {
	is := is.New(t)
	b := position(t, "X...O....", 0)
	d := Setup(b, tictactoe.NewEvaluator(), 2, 0, 0, WithProgressive(false), WithGoodEnough(false, 0))
	_, err := d.Search(context.Background())
	is.NoErr(err)
	old := d.completed
	is.True(old.bestMove != nil)

	n := newNode(d, nil, nil)
	_, err = n.Moves()
	is.NoErr(err)
	n.Presort(old)
	is.True(n.moves[0].Same(old.bestMove))

	prev := old.evaluatedMoves()
	index := func(c *Candidate) int {
		for i, o := range prev {
			if o.Same(c) {
				return i
			}
		}
		return len(prev)
	}
	for i := 2; i < n.numberOfMoves; i++ {
		is.True(index(n.moves[i-1]) <= index(n.moves[i]))
	}
}

func TestKillerRing(t *testing.T) {
	is := is.New(t)
	d := &Driver{}
	cand := func(sq int) *Candidate {
		c, err := NewCandidate(tictactoe.NewMove(0, sq))
		is.NoErr(err)
		c.Status = Evaluated
		c.Evaluation = float64(sq)
		return c
	}
	g := &Node{d: d, clock: 5}
	p := &Node{d: d, ply: 1, predecessor: g, clock: 6}
	k := &Node{d: d, ply: 2, predecessor: p, clock: 7,
		moves: []*Candidate{cand(3), cand(4)}, numberOfMoves: 2, nextMoveIndex: 1}
	k.bestMove = k.moves[0]
	p.principalVariation = k
	d.killers.record(g, p)

	// a cousin of k under the same grandparent sees the killer
	p2 := &Node{d: d, ply: 1, predecessor: g, clock: 8}
	cousin := &Node{d: d, ply: 2, predecessor: p2, clock: 9}
	is.True(cousin.KillerBestMove().Same(cand(3)))
	is.True(cousin.KillerEvaluateMove(cand(3)) == k.moves[0])
	// only the evaluated prefix is offered
	is.True(cousin.KillerEvaluateMove(cand(4)) == nil)

	// a node under another grandparent does not
	other := &Node{d: d, ply: 2, predecessor: &Node{d: d, predecessor: &Node{d: d, clock: 10}}}
	is.True(other.KillerBestMove() == nil)
	// nor does a node at another ply
	deeper := &Node{d: d, ply: 3, predecessor: cousin}
	is.True(deeper.KillerBestMove() == nil)
}

func TestPercentDone(t *testing.T) {
	is := is.New(t)
	n := &Node{numberOfMoves: 4, nextMoveIndex: 3}
	is.Equal(n.PercentDone(), 0.5)
	n.successor = &Node{numberOfMoves: 2, nextMoveIndex: 2}
	is.Equal(n.PercentDone(), 0.625)
}

// passingNim offers a pass that nim itself does not have.
type passingNim struct {
	*nim.Board
}

func (p passingNim) NullMove() game.Move { return nim.NewMove(p.WhoseTurn(), 0, 0) }

func TestNoRootNullMoveForThreePlayers(t *testing.T) {
	is := is.New(t)
	nb, err := nim.NewBoard(3, 2, 3, 4)
	is.NoErr(err)
	rec := &recordingOrderer{}
	cfg := DefaultConfig()
	cfg.MaxDepth = 3
	cfg.NullMove = true
	cfg.NullMoveSearchLevel = 1
	cfg.Orderer = rec
	d := NewDriver(passingNim{nb}, nim.NewEvaluator(), cfg)
	rec.d = d
	res, err := d.Search(context.Background())
	is.NoErr(err)
	is.True(!res.Best.Null)
	is.True(len(rec.seen) > 0)
	for _, s := range rec.seen {
		is.True(!s.hasNull)
	}
}
