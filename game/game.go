// Package game holds the narrow interfaces a board game implements in order
// to be searched by the engine. Nothing in here knows about any particular
// game's rules.
package game

import (
	"lukechampine.com/frand"
)

const (
	// NoPlayer is what an unassigned move reports from Player().
	NoPlayer = -1
	// ValueOfWin is the conventional evaluation of a won position.
	ValueOfWin = 1e6
)

// Move is an opaque game-specific move.
type Move interface {
	// Player is the board index of the player making the move.
	Player() int
	// Same compares by content, not identity.
	Same(other Move) bool
	String() string
}

// Board is the per-game collaborator the search drives. MakeMove and
// UnmakeMove must be exact inverses, including the digest.
type Board interface {
	LegalMoves() []Move
	MakeMove(m Move) error
	UnmakeMove(m Move)
	GameOver() bool
	Digest() uint64
	Clone() Board
	WhoseTurn() int
	NumPlayers() int
	MoveNumber() int
}

// Evaluator statically scores positions.
type Evaluator interface {
	// StaticEvaluate returns the value of the current position of b, which
	// was reached by m, from the point of view of m.Player().
	StaticEvaluate(b Board, m Move) float64
	SetWeights(w []float64)
	Weights() []float64
}

// NullMover is implemented by boards that can hand the turn over without
// otherwise changing the position.
type NullMover interface {
	NullMove() Move
}

// Resigner is implemented by boards that have a resignation move.
type Resigner interface {
	ResignMove(player int) Move
}

// DepthLimiter lets a game extend or shorten the search horizon, for
// example to keep searching through captures.
type DepthLimiter interface {
	DepthLimit(current, max int) bool
}

// SameBoarder compares two boards field by field and reports the first
// difference.
type SameBoarder interface {
	SameBoard(other Board) error
}

// Outcome reports the result of a finished game.
type Outcome interface {
	WinForPlayer(p int) bool
}

// Randomizer supplies cheap random moves for playouts.
type Randomizer interface {
	RandomMove(rng *frand.RNG) Move
}

// Rescore converts value, which is from m's player's perspective, to the
// perspective of forPlayer.
func Rescore(m Move, value float64, forPlayer int) float64 {
	if m.Player() == forPlayer {
		return value
	}
	return -value
}

// DepthLimit applies b's DepthLimiter, or the plain current >= max rule.
func DepthLimit(b Board, current, max int) bool {
	if dl, ok := b.(DepthLimiter); ok {
		return dl.DepthLimit(current, max)
	}
	return current >= max
}

// RandomMove picks a random legal move, or nil if there are none.
func RandomMove(b Board, rng *frand.RNG) Move {
	if r, ok := b.(Randomizer); ok {
		return r.RandomMove(rng)
	}
	moves := b.LegalMoves()
	if len(moves) == 0 {
		return nil
	}
	return moves[rng.Intn(len(moves))]
}
