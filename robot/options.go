package robot

import (
	"time"

	"github.com/domino14/boardbot/mcts"
	"github.com/domino14/boardbot/repetition"
	"github.com/domino14/boardbot/search"
)

// ErrorReporter is told about every error that stops a robot.
type ErrorReporter func(err error)

type options struct {
	search       search.Config
	mcts         mcts.Options
	monteBot     bool
	reporter     ErrorReporter
	strategy     Strategy
	strategySet  bool
	randomizeN   int
	randomizeDif float64
}

type Option func(*options)

func WithSearchConfig(cfg search.Config) Option { return func(o *options) { o.search = cfg } }
func WithMCTS(opts mcts.Options) Option         { return func(o *options) { o.mcts = opts } }
func WithMonteBot(on bool) Option               { return func(o *options) { o.monteBot = on } }
func WithErrorReporter(r ErrorReporter) Option  { return func(o *options) { o.reporter = r } }

// WithStrategy replaces the engine's own searches. A nil strategy leaves
// the robot unable to move.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		o.strategy = s
		o.strategySet = true
	}
}

// WithDepth sets the alpha-beta search depth.
func WithDepth(d int) Option { return func(o *options) { o.search.MaxDepth = d } }

// WithTimeLimit bounds both kinds of search.
func WithTimeLimit(t time.Duration) Option {
	return func(o *options) {
		o.search.TimeLimit = t
		o.mcts.TimeLimit = t
	}
}

// WithDigestChecks turns on the search's make/unmake checks.
func WithDigestChecks(on bool) Option {
	return func(o *options) {
		o.search.SaveDigest = on
		o.search.CheckDuplicateDigests = on
	}
}

// WithRandomizeFirst makes each player's first move a random pick among
// the n best moves within dif of the best.
func WithRandomizeFirst(n int, dif float64) Option {
	return func(o *options) {
		o.randomizeN = n
		o.randomizeDif = dif
	}
}

// WithRepetitions makes searches score positions that would repeat
// against the game's history as draws.
func WithRepetitions(p *repetition.Positions) Option {
	return func(o *options) { o.search.Repetitions = p }
}
