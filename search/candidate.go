package search

import (
	"fmt"

	"github.com/domino14/boardbot/game"
)

// Status says how far a candidate has been evaluated.
type Status int

const (
	NotEvaluated Status = iota
	// Evaluated has a static value but the position should be searched
	// deeper.
	Evaluated
	// EvaluatedDrawn is final: the position would be a repetition draw.
	EvaluatedDrawn
	// DepthLimited is final: the horizon was reached.
	DepthLimited
	// DepthLimitedGameOver is final: the game ended.
	DepthLimitedGameOver
)

func (s Status) String() string {
	switch s {
	case NotEvaluated:
		return "not-evaluated"
	case Evaluated:
		return "evaluated"
	case EvaluatedDrawn:
		return "drawn"
	case DepthLimited:
		return "depth-limited"
	case DepthLimitedGameOver:
		return "gameover"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Candidate is a move plus the bookkeeping the search keeps about it.
type Candidate struct {
	Move game.Move
	// Player who makes Move.
	Player int
	// Evaluation is the backed-up value, from Player's point of view.
	Evaluation float64
	// LocalEvaluation is the static value of the position after Move.
	LocalEvaluation float64
	Status          Status
	Null            bool
	// BestReply is the best continuation found after Move.
	BestReply *Candidate

	gameOver bool
	// set when Evaluation came from a killer rather than static eval
	seeded bool
}

// NewCandidate wraps m. It fails with ErrUnsetPlayer if m has no player.
func NewCandidate(m game.Move) (*Candidate, error) {
	if m.Player() == game.NoPlayer {
		return nil, fmt.Errorf("%w: %v", ErrUnsetPlayer, m)
	}
	return &Candidate{Move: m, Player: m.Player()}, nil
}

// SearchDeeper is true if the position after the move is not final.
func (c *Candidate) SearchDeeper() bool {
	return c.Status == NotEvaluated || c.Status == Evaluated
}

// GameOver is true if the game ends somewhere along this line.
func (c *Candidate) GameOver() bool { return c.gameOver }

func (c *Candidate) Drawn() bool { return c.Status == EvaluatedDrawn }

func (c *Candidate) Same(o *Candidate) bool {
	return o != nil && c.Move.Same(o.Move)
}

// Line is the move and its chain of best replies.
func (c *Candidate) Line() []*Candidate {
	var line []*Candidate
	for m := c; m != nil && len(line) < MaxPly; m = m.BestReply {
		line = append(line, m)
	}
	return line
}

func (c *Candidate) String() string {
	return fmt.Sprintf("%v (%.2f %s)", c.Move, c.Evaluation, c.Status)
}
