package search

import (
	"time"

	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/repetition"
)

// Orderer statically evaluates and sorts the candidates of a node. It
// returns how many of them should be searched.
type Orderer interface {
	EvaluateAndSortMoves(n *Node, moves []*Candidate) (int, error)
}

// WidthLimiter may shorten the sorted move list of a node that has
// something left to search.
type WidthLimiter interface {
	WidthLimit(depth, maxDepth int, moves []*Candidate, n int) int
}

// Config holds every tunable of a search.
type Config struct {
	MaxDepth int
	// FirstDepth is the depth of the first progressive pass; 0 picks one
	// from MaxDepth.
	FirstDepth int
	// TimeLimit is the wall-clock budget of a progressive search. Zero
	// means no budget.
	TimeLimit   time.Duration
	Progressive bool

	AlphaBeta       bool
	GoodEnough      bool
	GoodEnoughValue float64

	NullMove            bool
	ReturnNullMove      bool
	NullMovePromotions  bool
	NullMoveSearchLevel int

	Killers    bool
	BestKiller bool

	SingleChoice           bool
	TerminalOptimization   bool
	StaticEvalOptimization bool
	DepthLimitOptimization bool

	SaveDigest            bool
	CheckDuplicateDigests bool

	HashMoves bool
	// HashMemoryFraction is the share of system memory the hash-move table
	// may use.
	HashMemoryFraction float64

	Orderer      Orderer
	WidthLimiter WidthLimiter
	// Repetitions, if set, marks moves that would repeat a position as
	// drawn.
	Repetitions *repetition.Positions
}

func DefaultConfig() Config {
	return Config{
		MaxDepth:               4,
		Progressive:            true,
		AlphaBeta:              true,
		GoodEnough:             true,
		GoodEnoughValue:        game.ValueOfWin / 2,
		NullMovePromotions:     true,
		NullMoveSearchLevel:    1,
		Killers:                true,
		BestKiller:             true,
		SingleChoice:           true,
		TerminalOptimization:   true,
		StaticEvalOptimization: true,
		DepthLimitOptimization: true,
		HashMemoryFraction:     0.01,
	}
}

type Option func(*Config)

func WithMaxDepth(d int) Option   { return func(c *Config) { c.MaxDepth = d } }
func WithFirstDepth(d int) Option { return func(c *Config) { c.FirstDepth = d } }
func WithTimeLimit(t time.Duration) Option {
	return func(c *Config) { c.TimeLimit = t }
}
func WithProgressive(on bool) Option { return func(c *Config) { c.Progressive = on } }
func WithAlphaBeta(on bool) Option   { return func(c *Config) { c.AlphaBeta = on } }

// WithGoodEnough enables the good-enough cutoff at value.
func WithGoodEnough(on bool, value float64) Option {
	return func(c *Config) {
		c.GoodEnough = on
		c.GoodEnoughValue = value
	}
}

// WithNullMove enables null moves at plies shallower than level.
func WithNullMove(on bool, level int) Option {
	return func(c *Config) {
		c.NullMove = on
		if level > 0 {
			c.NullMoveSearchLevel = level
		}
	}
}

func WithReturnNullMove(on bool) Option { return func(c *Config) { c.ReturnNullMove = on } }
func WithKillers(on bool) Option {
	return func(c *Config) {
		c.Killers = on
		c.BestKiller = on
	}
}

// WithDigestChecks turns on the make/unmake soundness checks.
func WithDigestChecks(save, duplicates bool) Option {
	return func(c *Config) {
		c.SaveDigest = save
		c.CheckDuplicateDigests = duplicates
	}
}

func WithHashMoves(on bool) Option           { return func(c *Config) { c.HashMoves = on } }
func WithOrderer(o Orderer) Option           { return func(c *Config) { c.Orderer = o } }
func WithWidthLimiter(w WidthLimiter) Option { return func(c *Config) { c.WidthLimiter = w } }
func WithRepetitions(p *repetition.Positions) Option {
	return func(c *Config) { c.Repetitions = p }
}

// firstDepth picks the first progressive depth for a search to depth.
func firstDepth(depth int) int {
	switch {
	case depth == 4:
		return 3
	case depth < 4:
		return depth
	}
	return depth - depth/2
}
