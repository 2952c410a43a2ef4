package mcts

import "time"

// Options tune a Searcher.
type Options struct {
	Threads   int
	TimeLimit time.Duration
	// Playouts stops the search after this many simulations; 0 means no
	// cap.
	Playouts int64
	// Alpha weights exploration in the uct formula.
	Alpha float64
	// NodeExpansionRate is how many visits a leaf needs before it grows
	// children.
	NodeExpansionRate int64
	// PlayoutDepth caps random playouts; 0 plays to the end of the game.
	PlayoutDepth int
	// WinRandomization above 1 picks among that many most visited moves;
	// between 0 and 1 it adds noise to the win rates.
	WinRandomization float64
	// InitialWinRateWeight seeds new children with this many virtual
	// visits at their static evaluation.
	InitialWinRateWeight float64
	// EvalScale squashes static evaluations into win rates.
	EvalScale    float64
	KillHopeless bool
	// Seed makes the workers' random streams reproducible; 0 picks one.
	Seed     uint64
	Capacity int
}

func DefaultOptions() Options {
	return Options{
		Threads:           2,
		TimeLimit:         time.Second,
		Alpha:             0.5,
		NodeExpansionRate: 1,
		EvalScale:         100,
		KillHopeless:      true,
		Capacity:          1 << 16,
	}
}

type Option func(*Options)

func WithThreads(n int) Option                  { return func(o *Options) { o.Threads = n } }
func WithTimeLimit(t time.Duration) Option      { return func(o *Options) { o.TimeLimit = t } }
func WithPlayouts(n int64) Option               { return func(o *Options) { o.Playouts = n } }
func WithAlpha(a float64) Option                { return func(o *Options) { o.Alpha = a } }
func WithPlayoutDepth(d int) Option             { return func(o *Options) { o.PlayoutDepth = d } }
func WithWinRandomization(r float64) Option     { return func(o *Options) { o.WinRandomization = r } }
func WithInitialWinRateWeight(w float64) Option { return func(o *Options) { o.InitialWinRateWeight = w } }
func WithSeed(s uint64) Option                  { return func(o *Options) { o.Seed = s } }
func WithKillHopeless(on bool) Option           { return func(o *Options) { o.KillHopeless = on } }

// WithOptions replaces every option at once.
func WithOptions(opts Options) Option { return func(o *Options) { *o = opts } }
