// Package mcts is a parallel Monte Carlo tree searcher using UCT.
// Workers share one tree of atomic counters; each plays on its own copy of
// the board.
package mcts

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/domino14/boardbot/game"
)

var (
	ErrNoMoves    = errors.New("no legal moves at the root")
	ErrNoChildren = errors.New("root has no children")
)

const (
	checkInterval = 20 * time.Millisecond
	// stallChecks without a new simulation end the search
	stallChecks = 25
)

// Pauser blocks while the owner of a search has paused it, and returns
// how long it blocked.
type Pauser interface {
	WaitIfPaused(ctx context.Context) time.Duration
}

// ChildStat describes one root move after a search.
type ChildStat struct {
	Move    game.Move
	Visits  int64
	WinRate float64
	Killed  bool
}

type Result struct {
	Best        game.Move
	Visits      int64
	WinRate     float64
	TreeSize    int
	Simulations int64
	Elapsed     time.Duration
	// Children are sorted by visits, most first.
	Children []ChildStat
}

// Searcher runs UCT searches from one position.
type Searcher struct {
	board     game.Board
	evaluator game.Evaluator
	opts      Options

	pauser    Pauser

	tree        *Tree
	root        nodeIndex
	simulations atomic.Int64
	// start, paused and pausedAt are in nanoseconds; Progress reads them
	// from other goroutines.
	start    atomic.Int64
	paused   atomic.Int64
	pausedAt atomic.Int64
}

// New prepares a search of b. b itself is never modified.
func New(b game.Board, ev game.Evaluator, opts ...Option) *Searcher {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Threads < 1 {
		o.Threads = 1
	}
	if o.NodeExpansionRate < 1 {
		o.NodeExpansionRate = 1
	}
	if o.EvalScale <= 0 {
		o.EvalScale = 1
	}
	if o.Seed == 0 {
		o.Seed = frand.Uint64n(math.MaxUint64) + 1
	}
	return &Searcher{board: b.Clone(), evaluator: ev, opts: o}
}

func (s *Searcher) Options() Options { return s.opts }

// SetPauser makes the workers and the clock stop while p is paused.
func (s *Searcher) SetPauser(p Pauser) { s.pauser = p }

func (s *Searcher) waitIfPaused(ctx context.Context) time.Duration {
	if s.pauser == nil {
		return 0
	}
	return s.pauser.WaitIfPaused(ctx)
}

// elapsed is the search time so far, not counting pauses.
func (s *Searcher) elapsed() time.Duration {
	start := s.start.Load()
	if start == 0 {
		return 0
	}
	now := time.Now().UnixNano()
	d := now - start - s.paused.Load()
	if at := s.pausedAt.Load(); at != 0 {
		d -= now - at
	}
	return time.Duration(d)
}

// Progress is the fraction of the time or playout budget used so far,
// whichever is further along.
func (s *Searcher) Progress() float64 {
	var p float64
	if s.opts.TimeLimit > 0 {
		p = float64(s.elapsed()) / float64(s.opts.TimeLimit)
	}
	if s.opts.Playouts > 0 {
		p = max(p, float64(s.simulations.Load())/float64(s.opts.Playouts))
	}
	return min(max(p, 0), 1)
}

func (s *Searcher) rng(stream uint64) *frand.RNG {
	seed := make([]byte, 32)
	binary.LittleEndian.PutUint64(seed, s.opts.Seed)
	binary.LittleEndian.PutUint64(seed[8:], stream)
	return frand.NewCustom(seed, 1024, 12)
}

// Search grows the tree until a stopping condition is met and returns the
// chosen move.
func (s *Searcher) Search(ctx context.Context) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	if s.board.GameOver() || len(s.board.LegalMoves()) == 0 {
		return nil, ErrNoMoves
	}
	s.tree = newTree(s.opts.Capacity)
	s.root = s.tree.alloc(nilNode, nil, game.NoPlayer)
	s.simulations.Store(0)
	s.paused.Store(0)
	s.pausedAt.Store(0)
	s.start.Store(time.Now().UnixNano())
	if err := s.expand(s.root, s.board, s.rng(0)); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if len(s.tree.children(s.root)) > 1 {
		ctrl := errgroup.Group{}
		ctrl.Go(func() error {
			s.control(ctx, cancel)
			return nil
		})
		g := errgroup.Group{}
		for t := 0; t < s.opts.Threads; t++ {
			w := &worker{s: s, board: s.board.Clone(), rng: s.rng(uint64(t) + 1)}
			g.Go(func() error {
				defer logger.Debug().Int("thread", t).Msg("uct-thread-exiting")
				for ctx.Err() == nil {
					s.waitIfPaused(ctx)
					if ctx.Err() != nil {
						break
					}
					if err := w.simulate(); err != nil {
						cancel()
						return fmt.Errorf("thread %d: %w", t, err)
					}
					n := s.simulations.Add(1)
					if s.opts.Playouts > 0 && n >= s.opts.Playouts {
						cancel()
					}
				}
				return nil
			})
		}
		err := g.Wait()
		cancel()
		ctrl.Wait()
		if err != nil {
			return nil, err
		}
	}

	best, err := s.BestWinrateMove(s.rng(math.MaxUint64))
	if err != nil {
		return nil, err
	}
	res := s.result(best)
	logger.Debug().Int64("simulations", res.Simulations).Int("tree", res.TreeSize).
		Dur("elapsed", res.Elapsed).Stringer("best", best).Msg("uct-search-done")
	return res, nil
}

// control watches the clock and the tree and cancels the workers when the
// search should end.
func (s *Searcher) control(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	last, stalled := int64(-1), 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.pausedAt.Store(time.Now().UnixNano())
		d := s.waitIfPaused(ctx)
		s.pausedAt.Store(0)
		if d > 0 {
			s.paused.Add(int64(d))
			if ctx.Err() != nil {
				return
			}
			last, stalled = -1, 0
			continue
		}
		elapsed := s.elapsed()
		if s.opts.TimeLimit > 0 && elapsed >= s.opts.TimeLimit {
			cancel()
			return
		}
		n := s.simulations.Load()
		if n == last {
			stalled++
			if stalled >= stallChecks {
				zerolog.Ctx(ctx).Debug().Int64("simulations", n).Msg("uct-stalled")
				cancel()
				return
			}
		} else {
			stalled = 0
		}
		last = n
		if s.opts.KillHopeless && s.opts.TimeLimit > 0 {
			s.killHopeless(float64(elapsed) / float64(s.opts.TimeLimit))
		}
		if len(s.liveRootChildren()) <= 1 {
			cancel()
			return
		}
	}
}

func (s *Searcher) liveRootChildren() []nodeIndex {
	return lo.Filter(s.tree.children(s.root), func(k nodeIndex, _ int) bool {
		return s.tree.node(k).visits.Load() >= 0
	})
}

// killHopeless retires root children that cannot catch up with the most
// visited one in the time that is left, even if they got a fair share of
// the remaining visits.
func (s *Searcher) killHopeless(partDone float64) {
	if partDone <= 0 || partDone >= 1 {
		return
	}
	live := s.liveRootChildren()
	if len(live) < 2 {
		return
	}
	rootVisits := float64(s.tree.node(s.root).visits.Load())
	remaining := rootVisits/partDone - rootVisits
	most := lo.MaxBy(live, func(a, b nodeIndex) bool {
		return s.tree.node(a).visits.Load() > s.tree.node(b).visits.Load()
	})
	bestVisits := float64(s.tree.node(most).visits.Load())
	active := len(live)
	for _, k := range live {
		if k == most || active <= 1 {
			continue
		}
		share := remaining / float64(active)
		n := s.tree.node(k)
		if float64(n.visits.Load())+share < bestVisits {
			n.kill()
			active--
		}
	}
}

// BestWinrateMove chooses the move to play from the root. With
// randomization above 1 it picks at random among the most visited moves,
// otherwise it takes the best win rate, perturbed by the randomization. If
// every child has been killed it resigns in a two player game, or plays
// the first child otherwise.
func (s *Searcher) BestWinrateMove(rng *frand.RNG) (game.Move, error) {
	if s.tree == nil {
		return nil, ErrNoChildren
	}
	kids := slices.Clone(s.tree.children(s.root))
	if len(kids) == 0 {
		return nil, ErrNoChildren
	}
	r := s.opts.WinRandomization
	salvage := kids[0]
	best, rate := nilNode, math.Inf(-1)
	if r > 1 {
		slices.SortStableFunc(kids, func(a, b nodeIndex) int {
			return int(s.tree.node(b).visits.Load() - s.tree.node(a).visits.Load())
		})
		salvage = kids[0]
		lim := min(len(kids), rng.Intn(int(r))+1)
		for _, k := range kids[:lim] {
			if s.tree.node(k).visits.Load() < 0 {
				continue
			}
			if w := rng.Float64(); best == nilNode || w > rate {
				best, rate = k, w
			}
		}
	} else {
		for _, k := range kids {
			n := s.tree.node(k)
			if n.visits.Load() < 0 {
				continue
			}
			w := n.winRate()
			if r > 0 {
				w += rng.Float64() * r
			}
			if best == nilNode || w > rate {
				best, rate = k, w
			}
		}
	}
	if best != nilNode {
		return s.tree.node(best).move, nil
	}
	if s.board.NumPlayers() <= 2 {
		if rs, ok := s.board.(game.Resigner); ok {
			return rs.ResignMove(s.board.WhoseTurn()), nil
		}
	}
	return s.tree.node(salvage).move, nil
}

func (s *Searcher) result(best game.Move) *Result {
	root := s.tree.node(s.root)
	stats := lo.Map(s.tree.children(s.root), func(k nodeIndex, _ int) ChildStat {
		n := s.tree.node(k)
		v := n.visits.Load()
		return ChildStat{Move: n.move, Visits: max(v, -v), WinRate: n.winRate(), Killed: v < 0}
	})
	slices.SortStableFunc(stats, func(a, b ChildStat) int { return int(b.Visits - a.Visits) })
	res := &Result{
		Best:        best,
		Visits:      root.visits.Load(),
		TreeSize:    s.tree.Size(),
		Simulations: s.simulations.Load(),
		Elapsed:     s.elapsed(),
		Children:    stats,
	}
	if st, ok := lo.Find(stats, func(c ChildStat) bool { return c.Move.Same(best) }); ok {
		res.WinRate = st.WinRate
	}
	return res
}

// expand gives node i its children. b must be at i's position.
func (s *Searcher) expand(i nodeIndex, b game.Board, rng *frand.RNG) error {
	n := s.tree.node(i)
	n.expand.Lock()
	defer n.expand.Unlock()
	if n.children.Load() != nil || n.terminal.Load() {
		return nil
	}
	if b.GameOver() {
		n.terminal.Store(true)
		return nil
	}
	moves := b.LegalMoves()
	if len(moves) == 0 {
		n.terminal.Store(true)
		return nil
	}
	kids := make([]nodeIndex, len(moves))
	for j, m := range moves {
		if m.Player() == game.NoPlayer {
			return fmt.Errorf("move %v has no player", m)
		}
		k := s.tree.alloc(i, m, m.Player())
		if s.opts.InitialWinRateWeight > 0 {
			v, err := s.evaluateMove(b, m)
			if err != nil {
				return err
			}
			c := s.tree.node(k)
			c.biasVisits = s.opts.InitialWinRateWeight
			c.biasWins = s.squash(v) * s.opts.InitialWinRateWeight
		}
		kids[j] = k
	}
	// shuffle so equal children are not explored in generation order
	rng.Shuffle(len(kids), func(a, c int) { kids[a], kids[c] = kids[c], kids[a] })
	n.children.Store(&kids)
	return nil
}

// evaluateMove is the static value of m for its player.
func (s *Searcher) evaluateMove(b game.Board, m game.Move) (float64, error) {
	if err := b.MakeMove(m); err != nil {
		return 0, fmt.Errorf("make %v: %w", m, err)
	}
	v := s.evaluator.StaticEvaluate(b, m)
	b.UnmakeMove(m)
	return v, nil
}

func (s *Searcher) squash(v float64) float64 {
	return math.Tanh(v / s.opts.EvalScale)
}
