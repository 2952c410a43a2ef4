package mcts

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/domino14/boardbot/games/nim"
	"github.com/domino14/boardbot/games/tictactoe"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func testRNG() *frand.RNG {
	return frand.NewCustom(make([]byte, 32), 1024, 12)
}

func TestFindsImmediateWin(t *testing.T) {
	is := is.New(t)
	b := tictactoe.NewBoard()
	is.NoErr(b.Set("XX.OO....", 0))
	before := b.Digest()
	s := New(b, tictactoe.NewEvaluator(), WithThreads(2), WithPlayouts(2000), WithSeed(42))
	res, err := s.Search(context.Background())
	is.NoErr(err)
	is.Equal(res.Best.(tictactoe.Move).Square(), 2)
	is.True(res.Simulations >= 2000)
	is.True(res.TreeSize > len(res.Children))
	is.Equal(res.WinRate, 1.0)
	is.Equal(b.Digest(), before)
	for i := 1; i < len(res.Children); i++ {
		is.True(res.Children[i-1].Visits >= res.Children[i].Visits)
	}
}

func TestSingleRootChild(t *testing.T) {
	is := is.New(t)
	b := tictactoe.NewBoard()
	is.NoErr(b.Set("XOXXOO.XO", 0))
	s := New(b, tictactoe.NewEvaluator())
	res, err := s.Search(context.Background())
	is.NoErr(err)
	is.Equal(res.Best.(tictactoe.Move).Square(), 6)
	is.Equal(res.Simulations, int64(0))
}

func TestNoMoves(t *testing.T) {
	is := is.New(t)
	b := tictactoe.NewBoard()
	is.NoErr(b.Set("XXXOO....", 1))
	_, err := New(b, tictactoe.NewEvaluator()).Search(context.Background())
	is.True(errors.Is(err, ErrNoMoves))

	_, err = New(b, tictactoe.NewEvaluator()).BestWinrateMove(testRNG())
	is.True(errors.Is(err, ErrNoChildren))
}

func TestCancelledContextStillAnswers(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(tictactoe.NewBoard(), tictactoe.NewEvaluator(), WithTimeLimit(time.Minute))
	res, err := s.Search(ctx)
	is.NoErr(err)
	is.True(res.Best != nil)
}

func TestMultiPlayerNim(t *testing.T) {
	is := is.New(t)
	b, err := nim.NewBoard(3, 3, 4, 5)
	is.NoErr(err)
	s := New(b, nim.NewEvaluator(), WithThreads(3), WithPlayouts(500), WithSeed(7))
	res, err := s.Search(context.Background())
	is.NoErr(err)
	m := res.Best.(nim.Move)
	is.Equal(m.Player(), 0)
	is.NoErr(b.MakeMove(m))
}

// prepared returns a searcher whose root has been expanded but not
// searched.
func prepared(t *testing.T, s *Searcher) []nodeIndex {
	t.Helper()
	s.tree = newTree(1)
	s.root = s.tree.alloc(nilNode, nil, -1)
	if err := s.expand(s.root, s.board, testRNG()); err != nil {
		t.Fatal(err)
	}
	return s.tree.children(s.root)
}

func TestFallbackNeverNil(t *testing.T) {
	is := is.New(t)

	s := New(tictactoe.NewBoard(), tictactoe.NewEvaluator())
	for _, k := range prepared(t, s) {
		s.tree.node(k).kill()
	}
	m, err := s.BestWinrateMove(testRNG())
	is.NoErr(err)
	is.True(m.(tictactoe.Move).IsResign())
	is.Equal(m.Player(), 0)

	b, err := nim.NewBoard(3, 2, 2)
	is.NoErr(err)
	s = New(b, nim.NewEvaluator())
	kids := prepared(t, s)
	for _, k := range kids {
		s.tree.node(k).kill()
	}
	m, err = s.BestWinrateMove(testRNG())
	is.NoErr(err)
	is.True(m.Same(s.tree.node(kids[0]).move))
}

func TestBestWinrateMove(t *testing.T) {
	is := is.New(t)
	s := New(tictactoe.NewBoard(), tictactoe.NewEvaluator())
	kids := prepared(t, s)
	for i, k := range kids {
		n := s.tree.node(k)
		n.visits.Store(int64(10 * (i + 1)))
		n.addWins(float64(i))
	}
	// the last child has the most wins per visit
	m, err := s.BestWinrateMove(testRNG())
	is.NoErr(err)
	is.True(m.Same(s.tree.node(kids[len(kids)-1]).move))

	s.opts.WinRandomization = 3
	top := map[int]bool{}
	for _, k := range kids[len(kids)-3:] {
		top[s.tree.node(k).move.(tictactoe.Move).Square()] = true
	}
	rng := testRNG()
	for range 50 {
		m, err := s.BestWinrateMove(rng)
		is.NoErr(err)
		is.True(top[m.(tictactoe.Move).Square()])
	}
}

func TestKillHopeless(t *testing.T) {
	is := is.New(t)
	s := New(tictactoe.NewBoard(), tictactoe.NewEvaluator())
	kids := prepared(t, s)
	s.tree.node(s.root).visits.Store(1000)
	s.tree.node(kids[0]).visits.Store(900)
	for _, k := range kids[1:] {
		s.tree.node(k).visits.Store(10)
	}
	s.killHopeless(0.9)
	is.True(s.tree.node(kids[0]).visits.Load() > 0)
	is.Equal(len(s.liveRootChildren()), 1)
	for _, k := range kids[1:] {
		is.Equal(s.tree.node(k).visits.Load(), int64(-10))
	}
}

func TestArenaGrows(t *testing.T) {
	is := is.New(t)
	tr := newTree(1)
	g := errgroup.Group{}
	for w := 0; w < 4; w++ {
		g.Go(func() error {
			for i := 0; i < 3*chunkSize; i++ {
				k := tr.alloc(nilNode, nil, w)
				tr.node(k).visits.Add(1)
			}
			return nil
		})
	}
	is.NoErr(g.Wait())
	is.Equal(tr.Size(), 12*chunkSize)
	for i := 0; i < tr.Size(); i++ {
		is.Equal(tr.node(nodeIndex(i)).visits.Load(), int64(1))
	}
}

// gate holds callers of WaitIfPaused until it is opened.
type gate struct {
	open  chan struct{}
	waits atomic.Int64
}

func (g *gate) WaitIfPaused(ctx context.Context) time.Duration {
	start := time.Now()
	select {
	case <-g.open:
		return 0
	default:
	}
	g.waits.Add(1)
	select {
	case <-g.open:
	case <-ctx.Done():
	}
	return time.Since(start)
}

func TestPausedSearchWaits(t *testing.T) {
	is := is.New(t)
	g := &gate{open: make(chan struct{})}
	s := New(tictactoe.NewBoard(), tictactoe.NewEvaluator(),
		WithTimeLimit(50*time.Millisecond), WithKillHopeless(false), WithSeed(3))
	s.SetPauser(g)

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.Search(context.Background())
		done <- outcome{res, err}
	}()

	select {
	case <-done:
		t.Fatal("search finished while paused")
	case <-time.After(200 * time.Millisecond):
	}
	is.Equal(s.simulations.Load(), int64(0))
	is.True(g.waits.Load() > 0)
	// the pause does not count against the time limit
	is.True(s.Progress() < 1)

	close(g.open)
	select {
	case o := <-done:
		is.NoErr(o.err)
		is.True(o.res.Simulations > 0)
		is.True(o.res.Best != nil)
	case <-time.After(10 * time.Second):
		t.Fatal("search never finished after resuming")
	}
}

func TestProgress(t *testing.T) {
	is := is.New(t)
	s := New(tictactoe.NewBoard(), tictactoe.NewEvaluator(),
		WithPlayouts(200), WithTimeLimit(time.Minute), WithKillHopeless(false), WithSeed(5))
	is.Equal(s.Progress(), 0.0)
	res, err := s.Search(context.Background())
	is.NoErr(err)
	is.True(res.Simulations >= 200)
	is.Equal(s.Progress(), 1.0)
}
