package robot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"lukechampine.com/frand"

	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/mcts"
	"github.com/domino14/boardbot/search"
)

// Strategy picks a move for the player on turn of b. b may be changed
// while the move is computed but must be restored before returning.
type Strategy interface {
	AlphaBetaMove(ctx context.Context, b game.Board) (game.Move, error)
	MonteCarloMove(ctx context.Context, b game.Board) (game.Move, error)
}

// progressSource is what the runner polls while a search is running.
type progressSource interface {
	Progress() float64
}

// DefaultStrategy runs the engine's own searches.
type DefaultStrategy struct {
	Evaluator    game.Evaluator
	Search       search.Config
	MCTS         mcts.Options
	RandomizeN   int
	RandomizeDif float64
	Summary      *search.Summary

	runner *Runner
	rng    *frand.RNG
}

func (s *DefaultStrategy) AlphaBetaMove(ctx context.Context, b game.Board) (game.Move, error) {
	d := search.NewDriver(b, s.Evaluator, s.Search)
	if s.runner != nil {
		d.SetPauser(s.runner)
		s.runner.watch(d)
		defer s.runner.watch(nil)
	}
	res, err := d.Search(ctx)
	if err != nil {
		return nil, err
	}
	if s.Summary != nil {
		s.Summary.Add(res.Report)
	}
	best := res.Best
	if s.RandomizeN > 1 && b.MoveNumber() < b.NumPlayers() {
		if s.rng == nil {
			s.rng = frand.New()
		}
		if c := d.RandomGoodMove(s.RandomizeN, s.RandomizeDif, s.rng); c != nil {
			best = c
		}
	}
	zerolog.Ctx(ctx).Debug().Stringer("move", best).Float64("value", best.Evaluation).
		Int("depth", res.Depth).Str("pv", res.PV.NLBString()).Str("report", res.Report.String()).
		Msg("alphabeta-move")
	return best.Move, nil
}

func (s *DefaultStrategy) MonteCarloMove(ctx context.Context, b game.Board) (game.Move, error) {
	sr := mcts.New(b, s.Evaluator, mcts.WithOptions(s.MCTS))
	if s.runner != nil {
		sr.SetPauser(s.runner)
		s.runner.watch(sr)
		defer s.runner.watch(nil)
	}
	res, err := sr.Search(ctx)
	if err != nil {
		return nil, fmt.Errorf("uct: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Stringer("move", res.Best).Float64("winrate", res.WinRate).
		Int64("simulations", res.Simulations).Msg("uct-move")
	return res.Best, nil
}
