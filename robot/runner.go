// Package robot runs a search engine as a long-lived player: the owner of
// a game asks it for moves one turn at a time and collects the answers
// without blocking.
package robot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/mcts"
	"github.com/domino14/boardbot/search"
)

var (
	ErrAlreadyInitialized   = errors.New("robot already initialized")
	ErrNotInitialized       = errors.New("robot not initialized")
	ErrAlreadyRunning       = errors.New("robot is already working on a move")
	ErrResultWhenNotRunning = errors.New("robot produced a move it was not asked for")
	ErrStrategyUnavailable  = errors.New("robot has no strategy for this kind of search")
	ErrBoardChanged         = errors.New("robot search did not restore the board")
	ErrQuit                 = errors.New("robot has quit")
)

type State int

const (
	Idle State = iota
	Preparing
	Searching
	ResultReady
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Searching:
		return "searching"
	case ResultReady:
		return "result-ready"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome is delivered on the Results channel when a move is ready, or
// when the robot stopped on an error.
type Outcome struct {
	Player int
	Move   game.Move
	Err    error
}

type command struct {
	seq    uint64
	board  game.Board
	player int
}

// Runner owns one robot worker goroutine. All methods are safe to call
// from any goroutine.
type Runner struct {
	game      game.Board
	evaluator game.Evaluator
	opts      options

	mu            sync.Mutex
	state         State
	initialized   bool
	quit          bool
	exit          bool
	continuous    bool
	running       bool
	resultPending bool
	player        int
	seq           uint64
	result        game.Move
	paused        bool
	resume        chan struct{}
	cancelSearch  context.CancelFunc

	cmds    chan command
	results chan Outcome
	done    chan struct{}

	source   atomic.Pointer[progressSource]
	progress atomic.Uint64
}

// New makes a robot playing on g, which stays owned by the caller. The
// robot copies g at the start of every turn.
func New(g game.Board, ev game.Evaluator, opts ...Option) *Runner {
	o := options{
		search:   search.DefaultConfig(),
		mcts:     mcts.DefaultOptions(),
		reporter: func(err error) { log.Error().Err(err).Msg("robot-error") },
	}
	for _, opt := range opts {
		opt(&o)
	}
	r := &Runner{game: g, evaluator: ev, opts: o}
	if !o.strategySet {
		r.opts.strategy = &DefaultStrategy{
			Evaluator:    ev,
			Search:       o.search,
			MCTS:         o.mcts,
			RandomizeN:   o.randomizeN,
			RandomizeDif: o.randomizeDif,
			runner:       r,
		}
	}
	return r
}

// Init starts the worker goroutine. It runs until Quit or until ctx is
// done.
func (r *Runner) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return ErrAlreadyInitialized
	}
	r.initialized = true
	r.quit = false
	r.exit = true
	r.state = Stopped
	r.cmds = make(chan command, 2)
	r.results = make(chan Outcome, 4)
	r.done = make(chan struct{})
	go r.loop(ctx, r.cmds, r.done)
	return nil
}

// Start readies the robot to take turns for player. A continuous robot
// keeps serving turns; otherwise it exits after its first result is
// collected.
func (r *Runner) Start(continuous bool, player int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.usable(); err != nil {
		return err
	}
	r.exit = false
	r.continuous = continuous
	r.player = player
	r.running = false
	r.resultPending = false
	r.result = nil
	r.state = Idle
	return nil
}

func (r *Runner) usable() error {
	if r.quit {
		return ErrQuit
	}
	if !r.initialized {
		return ErrNotInitialized
	}
	return nil
}

// DoTurnStep asks for a move from the current position of the game. It
// returns at once; a pending result that was not collected yet makes it
// a no-op.
func (r *Runner) DoTurnStep(player int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.usable(); err != nil {
		return err
	}
	if r.resultPending {
		return nil
	}
	if r.running {
		return ErrAlreadyRunning
	}
	r.seq++
	select {
	case r.cmds <- command{seq: r.seq, board: r.game.Clone(), player: player}:
	default:
		return ErrAlreadyRunning
	}
	r.exit = false
	r.running = true
	r.player = player
	r.state = Preparing
	r.progress.Store(0)
	return nil
}

// Result collects a finished move. It reports false if no move is ready.
func (r *Runner) Result() (game.Move, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.resultPending {
		return nil, false
	}
	m := r.result
	r.result = nil
	r.resultPending = false
	r.running = false
	r.state = Idle
	if !r.continuous {
		r.exit = true
		r.shutdown()
	}
	return m, true
}

// Results delivers an Outcome for every finished turn. A move still has
// to be collected with Result.
func (r *Runner) Results() <-chan Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results
}

// Running is true while the robot owes or holds a move.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.exit && (r.running || r.resultPending)
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Stop abandons the current turn. The worker stays alive for Start.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Runner) stopLocked() {
	r.exit = true
	r.running = false
	r.resultPending = false
	r.result = nil
	r.state = Stopped
	if r.cancelSearch != nil {
		r.cancelSearch()
	}
	r.resumeLocked()
}

// Quit stops the robot and ends its worker. Init may be called again
// afterwards.
func (r *Runner) Quit() {
	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return
	}
	r.stopLocked()
	r.shutdown()
	done := r.done
	r.mu.Unlock()
	<-done
}

// shutdown makes the worker exit once it is idle. r.mu must be held.
func (r *Runner) shutdown() {
	if !r.initialized {
		return
	}
	r.initialized = false
	r.quit = true
	close(r.cmds)
}

// Pause freezes a running search until Resume.
func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return
	}
	r.paused = true
	r.resume = make(chan struct{})
	if r.state == Searching {
		r.state = Paused
	}
}

func (r *Runner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumeLocked()
}

func (r *Runner) resumeLocked() {
	if !r.paused {
		return
	}
	r.paused = false
	close(r.resume)
	if r.state == Paused {
		r.state = Searching
	}
}

// WaitIfPaused blocks while the robot is paused.
func (r *Runner) WaitIfPaused(ctx context.Context) time.Duration {
	r.mu.Lock()
	paused, ch := r.paused, r.resume
	r.mu.Unlock()
	if !paused {
		return 0
	}
	start := time.Now()
	select {
	case <-ch:
	case <-ctx.Done():
	}
	return time.Since(start)
}

// Progress is the fraction of the current search done, from 0 to 1.
func (r *Runner) Progress() float64 {
	if src := r.source.Load(); src != nil {
		return (*src).Progress()
	}
	return math.Float64frombits(r.progress.Load())
}

// SetProgress is for strategies that track their own progress.
func (r *Runner) SetProgress(v float64) {
	r.progress.Store(math.Float64bits(v))
}

func (r *Runner) watch(src progressSource) {
	if src == nil {
		r.source.Store(nil)
		return
	}
	r.source.Store(&src)
}

// DoFullMove computes a move for the current position of the game
// synchronously, outside the worker.
func (r *Runner) DoFullMove(ctx context.Context) (game.Move, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	b := r.game.Clone()
	r.mu.Unlock()
	return r.move(ctx, b)
}

func (r *Runner) move(ctx context.Context, b game.Board) (m game.Move, err error) {
	s := r.opts.strategy
	if s == nil {
		return nil, ErrStrategyUnavailable
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("robot panic: %v", p)
		}
	}()
	if r.opts.monteBot {
		return s.MonteCarloMove(ctx, b)
	}
	return s.AlphaBetaMove(ctx, b)
}

type snapshot struct {
	digest     uint64
	moveNumber int
	turn       int
	board      game.Board
}

func takeSnapshot(b game.Board) snapshot {
	return snapshot{digest: b.Digest(), moveNumber: b.MoveNumber(), turn: b.WhoseTurn(), board: b.Clone()}
}

func (s snapshot) verify(b game.Board) error {
	if b.Digest() != s.digest || b.MoveNumber() != s.moveNumber || b.WhoseTurn() != s.turn {
		return fmt.Errorf("%w: digest %x move %d, was %x move %d",
			ErrBoardChanged, b.Digest(), b.MoveNumber(), s.digest, s.moveNumber)
	}
	if sb, ok := b.(game.SameBoarder); ok {
		if err := sb.SameBoard(s.board); err != nil {
			return fmt.Errorf("%w: %w", ErrBoardChanged, err)
		}
	}
	return nil
}

func (r *Runner) loop(ctx context.Context, cmds <-chan command, done chan<- struct{}) {
	defer close(done)
	logger := zerolog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.stopLocked()
			r.shutdown()
			r.mu.Unlock()
			logger.Debug().Msg("robot-context-done")
			return
		case c, ok := <-cmds:
			if !ok {
				logger.Debug().Msg("robot-exiting")
				return
			}
			r.turn(ctx, c)
		}
	}
}

func (r *Runner) turn(ctx context.Context, c command) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.mu.Lock()
	if r.exit || !r.running || c.seq != r.seq {
		r.mu.Unlock()
		return
	}
	r.cancelSearch = cancel
	r.state = Searching
	if r.paused {
		r.state = Paused
	}
	r.mu.Unlock()

	before := takeSnapshot(c.board)
	m, err := r.move(sctx, c.board)
	if err == nil {
		err = before.verify(c.board)
	}
	if err == nil && m == nil {
		err = search.ErrNoMoves
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelSearch = nil
	if r.exit || c.seq != r.seq {
		// Stopped while searching, possibly with a newer turn queued;
		// whatever came back is stale.
		return
	}
	if err != nil {
		r.stopLocked()
		r.opts.reporter(err)
		r.send(Outcome{Player: c.player, Err: err})
		return
	}
	if !r.running {
		r.opts.reporter(ErrResultWhenNotRunning)
		return
	}
	r.result = m
	r.resultPending = true
	r.state = ResultReady
	r.progress.Store(math.Float64bits(1))
	r.send(Outcome{Player: c.player, Move: m})
}

// send must not block while r.mu is held.
func (r *Runner) send(o Outcome) {
	select {
	case r.results <- o:
	default:
		log.Warn().Int("player", o.Player).Msg("robot-outcome-dropped")
	}
}
