// Package search is an alpha-beta searcher for games that implement the
// interfaces in package game. A search deepens progressively until it
// reaches its depth or runs out of time, and every pass reuses what the
// previous one learned for move ordering.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"lukechampine.com/frand"

	"github.com/domino14/boardbot/game"
)

var (
	errTimeUp  = errors.New("time limit reached")
	errOverrun = errors.New("projected time overrun")
)

// Pauser blocks while the owner of a search has paused it, and returns
// how long it blocked.
type Pauser interface {
	WaitIfPaused(ctx context.Context) time.Duration
}

// Result is the outcome of a search.
type Result struct {
	Best  *Candidate
	Value float64
	PV    PVLine
	// Depth is the depth of the deepest completed pass.
	Depth     int
	Passes    int
	Stop      Stop
	RootMoves []*Candidate
	Report    Report
}

// Driver runs searches on one board. The board is modified during a
// search and restored before Search returns.
type Driver struct {
	cfg       Config
	board     game.Board
	evaluator game.Evaluator
	pauser    Pauser

	finalDepth int
	maxDepth   int

	root      *Node
	completed *Node
	doneDepth int
	single    bool

	killers   killerRing
	hash      *hashMoves
	nodeClock uint64
	report    Report

	start     time.Time
	passStart time.Duration
	paused    time.Duration

	aborted  atomic.Bool
	active   atomic.Bool
	progress atomic.Uint64
}

// NewDriver prepares a search of b with a full configuration.
func NewDriver(b game.Board, ev game.Evaluator, cfg Config) *Driver {
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = 1
	}
	if cfg.NullMoveSearchLevel < 1 {
		cfg.NullMoveSearchLevel = 1
	}
	d := &Driver{cfg: cfg, board: b, evaluator: ev, finalDepth: cfg.MaxDepth}
	if cfg.HashMoves {
		d.hash = newHashMoves(cfg.HashMemoryFraction)
	}
	return d
}

// Setup prepares a search of b to depth plies. timeLimit bounds a
// progressive search; firstDepth is the depth of its first pass, or 0 to
// pick one.
func Setup(b game.Board, ev game.Evaluator, depth int, timeLimit time.Duration, firstDepth int, opts ...Option) *Driver {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	cfg.MaxDepth = depth
	cfg.TimeLimit = timeLimit
	if firstDepth > 0 {
		cfg.FirstDepth = firstDepth
	}
	return NewDriver(b, ev, cfg)
}

func (d *Driver) Config() Config { return d.cfg }

func (d *Driver) SetPauser(p Pauser) { d.pauser = p }

func (d *Driver) orderer() Orderer {
	if d.cfg.Orderer != nil {
		return d.cfg.Orderer
	}
	return d
}

// Abort stops the search in progress, or the next one if none is running.
// That search returns ErrSearchAborted; later searches run normally.
func (d *Driver) Abort() {
	d.aborted.Store(true)
}

// Active is true while Search is running.
func (d *Driver) Active() bool {
	return d.active.Load()
}

// Progress is the fraction of the current pass that has been searched.
func (d *Driver) Progress() float64 {
	return math.Float64frombits(d.progress.Load())
}

func (d *Driver) elapsed() time.Duration {
	return time.Since(d.start) - d.paused
}

// Search runs the configured search and returns the best move found.
func (d *Driver) Search(ctx context.Context) (*Result, error) {
	if !d.active.CompareAndSwap(false, true) {
		return nil, errors.New("search already active")
	}
	defer func() {
		d.aborted.Store(false)
		d.active.Store(false)
	}()
	if d.aborted.Load() {
		return nil, ErrSearchAborted
	}
	logger := zerolog.Ctx(ctx)

	d.start = time.Now()
	d.paused = 0
	d.report = Report{}
	d.completed = nil
	d.single = false
	d.killers.reset()

	depth := d.finalDepth
	if d.cfg.Progressive {
		depth = d.cfg.FirstDepth
		if depth <= 0 {
			depth = firstDepth(d.finalDepth)
		}
		depth = min(depth, d.finalDepth)
	}
	var prev *Node
	for {
		d.maxDepth = depth
		d.passStart = d.elapsed()
		root := newNode(d, nil, nil)
		d.root = root
		moves, err := root.Moves()
		if err != nil {
			return nil, err
		}
		if root.bestMove == nil {
			return nil, fmt.Errorf("%w at move %d", ErrNoMoves, d.board.MoveNumber())
		}
		if prev != nil {
			root.Presort(prev)
		}
		logger.Debug().Int("depth", depth).Int("moves", len(moves)).Msg("search-pass-start")

		err = d.searchNode(ctx, root)
		if errors.Is(err, errTimeUp) || errors.Is(err, errOverrun) {
			d.report.Aborted = true
			logger.Debug().Int("depth", depth).Err(err).Msg("search-pass-aborted")
			break
		}
		if err != nil {
			d.root = nil
			return nil, err
		}
		d.completed = root
		d.doneDepth = depth
		d.report.Passes++
		logger.Debug().Int("depth", depth).Stringer("best", root.bestMove).
			Float64("value", root.bestValue).Int("nodes", d.report.SearchClock).
			Dur("elapsed", d.elapsed()).Msg("search-pass-done")

		if d.single || depth >= d.finalDepth || !d.cfg.Progressive {
			break
		}
		if best := root.bestMove; best != nil && best.GameOver() && !best.Drawn() {
			logger.Debug().Msg("search-reached-end")
			break
		}
		elapsed := d.elapsed()
		if d.cfg.TimeLimit > 0 && elapsed > d.cfg.TimeLimit*3/4 {
			logger.Debug().Dur("elapsed", elapsed).Msg("search-out-of-time")
			break
		}
		step := 2
		if d.cfg.TimeLimit > 0 && elapsed > d.cfg.TimeLimit/5 {
			step = 1
		}
		depth = min(depth+step, d.finalDepth)
		prev = root
	}
	d.root = d.completed
	d.progress.Store(0)
	return d.result(), nil
}

func (d *Driver) result() *Result {
	root := d.completed
	r := &Result{
		Best:      root.bestMove,
		Value:     root.bestValue,
		Depth:     d.doneDepth,
		Passes:    d.report.Passes,
		Stop:      root.stop,
		RootMoves: slices.Clone(root.evaluatedMoves()),
	}
	if r.Best != nil && root.bestMoveIndex == -1 {
		r.Value = r.Best.Evaluation
	}
	r.PV = newPVLine(r.Best, r.Value)
	d.report.Elapsed = d.elapsed()
	r.Report = d.report
	return r
}

// checkAbort is consulted before every move searched.
func (d *Driver) checkAbort(ctx context.Context) error {
	if d.pauser != nil {
		d.paused += d.pauser.WaitIfPaused(ctx)
	}
	if d.aborted.Load() {
		return ErrSearchAborted
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSearchAborted, err)
	}
	pc := d.root.PercentDone()
	d.progress.Store(math.Float64bits(pc))
	if !d.cfg.Progressive || d.completed == nil || d.cfg.TimeLimit <= 0 {
		return nil
	}
	elapsed := d.elapsed()
	if elapsed > d.cfg.TimeLimit {
		return errTimeUp
	}
	if pc > 0.05 {
		projected := d.passStart + time.Duration(float64(elapsed-d.passStart)/pc)
		if projected > d.cfg.TimeLimit*3/2 {
			return errOverrun
		}
	}
	return nil
}

// searchNode searches every move of n, recursing into the ones that need
// it. On error the board has been restored to n's position.
func (d *Driver) searchNode(ctx context.Context, n *Node) error {
	if _, err := n.Moves(); err != nil {
		return err
	}
	if n.numberOfMoves == 0 {
		return nil
	}
	if n.ply == 0 && d.cfg.SingleChoice && d.realMoves(n) == 1 {
		d.single = true
		c := n.moves[n.numberOfMoves-1]
		n.nextMoveIndex = n.numberOfMoves
		n.bestMove, n.bestValue, n.bestMoveIndex = c, c.Evaluation, n.numberOfMoves-1
		return nil
	}
	if d.cfg.DepthLimitOptimization && n.allTerminals {
		c, _ := n.NextCandidateMove()
		d.report.SearchClock++
		d.accumulateTerminal(n, c)
		return nil
	}
	for n.stop == DontStop {
		if err := d.checkAbort(ctx); err != nil {
			return err
		}
		c, err := n.NextCandidateMove()
		if err != nil {
			return err
		}
		if c == nil {
			break
		}
		d.report.SearchClock++
		if d.cfg.TerminalOptimization && !c.SearchDeeper() {
			d.accumulateTerminal(n, c)
			continue
		}
		if err := d.board.MakeMove(c.Move); err != nil {
			return fmt.Errorf("make %v: %w", c.Move, err)
		}
		child := newNode(d, n, c)
		child.inheritBounds(d.board.WhoseTurn())
		n.successor = child
		if c.SearchDeeper() {
			err = d.searchNode(ctx, child)
		}
		n.successor = nil
		d.board.UnmakeMove(c.Move)
		if err != nil {
			return err
		}
		d.returnFromChild(n, child)
	}
	if d.hash != nil && n.bestMove != nil && n.bestMoveIndex >= 0 {
		d.hash.store(n.digest, n.bestMove.Move)
	}
	return nil
}

func (d *Driver) realMoves(n *Node) int {
	count := 0
	for _, c := range n.moves[:n.numberOfMoves] {
		if !c.Null {
			count++
		}
	}
	return count
}

// returnFromChild backs the value of a searched child up into its parent.
func (d *Driver) returnFromChild(n, child *Node) {
	pcm := n.currentMove
	value := pcm.LocalEvaluation
	if bm := child.bestMove; bm != nil {
		value = game.Rescore(bm.Move, bm.Evaluation, pcm.Player)
		pcm.gameOver = bm.gameOver
		if bm.gameOver && bm.Drawn() {
			pcm.Status = EvaluatedDrawn
		}
	}
	pcm.Evaluation = value
	pcm.BestReply = child.bestMove
	if n.bestMoveIndex != -1 && value <= n.bestValue {
		return
	}
	if pcm.Null && !d.cfg.ReturnNullMove {
		return
	}
	n.bestValue = value
	n.bestMove = pcm
	n.bestMoveIndex = n.nextMoveIndex - 1
	n.principalVariation = child
	if d.cfg.Killers {
		d.killers.record(n, child)
	}
	d.cutoffs(n)
}

// accumulateTerminal takes the static value of a move that needs no
// deeper search.
func (d *Driver) accumulateTerminal(n *Node, c *Candidate) {
	value := c.LocalEvaluation
	c.Evaluation = value
	if n.bestMoveIndex != -1 && value <= n.bestValue {
		return
	}
	c.BestReply = nil
	if c.Null && !d.cfg.ReturnNullMove {
		return
	}
	n.bestValue = value
	n.bestMove = c
	n.bestMoveIndex = n.nextMoveIndex - 1
	n.principalVariation = nil
	d.cutoffs(n)
}

func (d *Driver) cutoffs(n *Node) {
	best := n.bestValue
	if d.cfg.AlphaBeta {
		if best >= -n.heCanGet {
			n.stop = AlphaCutoff
			d.report.AlphaBetaCutoffs++
			d.report.AlphaBetaCost += n.bestMoveIndex
		}
		n.iCanGet = max(n.iCanGet, best)
	}
	if d.cfg.GoodEnough && d.cfg.GoodEnoughValue < best {
		n.stop = GoodEnough
		d.report.GoodEnoughCutoffs++
	}
}

// NthGoodMove returns the nth best root move of the last search, counting
// only moves within dif of the best when dif is positive. n wraps around
// the number of eligible moves.
func (d *Driver) NthGoodMove(n int, dif float64) *Candidate {
	root := d.completed
	if root == nil || root.bestMove == nil {
		return nil
	}
	moves := slices.Clone(root.evaluatedMoves())
	moves = slices.DeleteFunc(moves, func(c *Candidate) bool { return c.Null && !d.cfg.ReturnNullMove })
	if len(moves) == 0 {
		return root.bestMove
	}
	slices.SortStableFunc(moves, byEvaluation)
	best := moves[0].Evaluation
	if dif > 0 {
		for len(moves) > 1 && best-moves[len(moves)-1].Evaluation >= dif {
			moves = moves[:len(moves)-1]
		}
	}
	return moves[max(n, 0)%len(moves)]
}

// RandomGoodMove picks one of the n best root moves within dif of the
// best.
func (d *Driver) RandomGoodMove(n int, dif float64, rng *frand.RNG) *Candidate {
	if n <= 1 {
		return d.NthGoodMove(0, dif)
	}
	return d.NthGoodMove(rng.Intn(n), dif)
}
