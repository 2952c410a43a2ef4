// Package selfplay plays robots against each other, for testing engine
// changes and tuning evaluator weights.
package selfplay

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/repetition"
	"github.com/domino14/boardbot/robot"
)

// Result is a game's outcome from one seat's point of view.
type Result int

const (
	Loss Result = iota
	Draw
	Win
)

func (r Result) String() string {
	switch r {
	case Loss:
		return "loss"
	case Draw:
		return "draw"
	case Win:
		return "win"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// End says how a game finished.
type End string

const (
	EndGameOver  End = "game-over"
	EndRepeated  End = "repetition"
	EndMoveLimit End = "move-limit"
)

var ErrRobotGaveNoMove = errors.New("robot gave no move")

// Player configures one seat.
type Player struct {
	Name    string
	Weights []float64
	Options []robot.Option
}

// Turn is logged for every move played.
type Turn struct {
	Seed   Seed
	Number int
	Player int
	Move   game.Move
	Random bool
}

// GameRecord is a finished game.
type GameRecord struct {
	Seed   Seed
	Winner int
	End    End
	Moves  []game.Move
}

// ResultFor is the game's result for seat p.
func (g *GameRecord) ResultFor(p int) Result {
	switch g.Winner {
	case p:
		return Win
	case game.NoPlayer:
		return Draw
	}
	return Loss
}

// GameRunner plays one game at a time between robots.
type GameRunner struct {
	NewBoard     func() (game.Board, error)
	NewEvaluator func() game.Evaluator
	Players      []Player
	// RandomOpening is the number of plies played at random from the seed
	// before the robots take over.
	RandomOpening int
	MaxMoves      int
	RepeatLimit   int
	// Turns, if set, receives every move played.
	Turns chan<- Turn
}

// PlayGame plays a full game from seed.
func (r *GameRunner) PlayGame(ctx context.Context, seed Seed) (*GameRecord, error) {
	logger := zerolog.Ctx(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := r.NewBoard()
	if err != nil {
		return nil, err
	}
	n := b.NumPlayers()
	if len(r.Players) < n {
		return nil, fmt.Errorf("%d players for a %d player game", len(r.Players), n)
	}
	positions := repetition.New(r.RepeatLimit)
	positions.Add(b.Digest(), nil)

	robots := make([]*robot.Runner, n)
	for i := range robots {
		ev := r.NewEvaluator()
		if w := r.Players[i].Weights; w != nil {
			ev.SetWeights(w)
		}
		opts := append([]robot.Option{}, r.Players[i].Options...)
		opts = append(opts, robot.WithRepetitions(positions))
		robots[i] = robot.New(b, ev, opts...)
		if err := robots[i].Init(ctx); err != nil {
			return nil, err
		}
		defer robots[i].Quit()
		if err := robots[i].Start(true, i); err != nil {
			return nil, err
		}
	}

	rec := &GameRecord{Seed: seed, Winner: game.NoPlayer, End: EndMoveLimit}
	rng := seed.RNG()
	for !b.GameOver() && (r.MaxMoves <= 0 || len(rec.Moves) < r.MaxMoves) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := b.WhoseTurn()
		random := b.MoveNumber() < r.RandomOpening
		var m game.Move
		if random {
			m = game.RandomMove(b, rng)
		} else {
			m, err = r.robotMove(ctx, robots[p], p)
			if err != nil {
				return nil, err
			}
		}
		if m == nil {
			return nil, ErrRobotGaveNoMove
		}
		if err := b.MakeMove(m); err != nil {
			return nil, fmt.Errorf("move %d %s: %w", b.MoveNumber(), m, err)
		}
		rec.Moves = append(rec.Moves, m)
		if r.Turns != nil {
			r.Turns <- Turn{Seed: seed, Number: len(rec.Moves), Player: p, Move: m, Random: random}
		}
		if positions.CheckForRepetition(b, m) {
			rec.End = EndRepeated
			break
		}
	}
	if b.GameOver() {
		rec.End = EndGameOver
		if o, ok := b.(game.Outcome); ok {
			for p := range n {
				if o.WinForPlayer(p) {
					rec.Winner = p
				}
			}
		}
	}
	logger.Debug().Str("seed", seed.String()).Str("end", string(rec.End)).
		Int("winner", rec.Winner).Int("moves", len(rec.Moves)).Msg("game-over")
	return rec, nil
}

func (r *GameRunner) robotMove(ctx context.Context, rb *robot.Runner, p int) (game.Move, error) {
	if err := rb.DoTurnStep(p); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	select {
	case o := <-rb.Results():
		if o.Err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("robot %d: %w", p, o.Err)
		}
		m, ok := rb.Result()
		if !ok {
			return nil, ErrRobotGaveNoMove
		}
		return m, nil
	case <-ctx.Done():
		rb.Stop()
		return nil, ctx.Err()
	}
}
