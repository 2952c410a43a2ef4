package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/domino14/boardbot/config"
	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/games"
	"github.com/domino14/boardbot/robot"
	"github.com/domino14/boardbot/selfplay"
)

// selfplay runs a tournament of the current game against itself. With
// -mutants n, n perturbed copies of the evaluator weights take turns in
// one seat and are ranked afterwards.
func (sc *ShellController) selfplay(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if err := sc.requireGame(); err != nil {
		return nil, err
	}
	nGames, err := cmd.options.IntDefault("games", sc.config.GetInt(config.ConfigSelfplayGames))
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", sc.config.GetInt(config.ConfigSelfplayThreads))
	if err != nil {
		return nil, err
	}
	opening, err := cmd.options.IntDefault("random", 0)
	if err != nil {
		return nil, err
	}
	mutants, err := cmd.options.IntDefault("mutants", 0)
	if err != nil {
		return nil, err
	}
	if nGames < 1 || threads < 1 {
		return nil, errors.New("games and threads must be at least 1")
	}
	opts := sc.config.RobotOptions()
	if cmd.options.String("depth") != "" {
		depth, err := cmd.options.IntDefault("depth", 0)
		if err != nil {
			return nil, err
		}
		opts = append(opts, robot.WithDepth(depth))
	}

	seed, err := sc.selfplaySeed()
	if err != nil {
		return nil, err
	}
	name, args := sc.gameName, sc.gameArgs
	players := make([]selfplay.Player, sc.board.NumPlayers())
	for i := range players {
		players[i] = selfplay.Player{Name: fmt.Sprintf("p%d", i), Options: opts}
	}
	t := &selfplay.Tournament{
		Runner: selfplay.GameRunner{
			NewBoard: func() (game.Board, error) {
				b, _, err := games.New(name, args)
				return b, err
			},
			NewEvaluator: func() game.Evaluator {
				_, ev, _ := games.New(name, args)
				return ev
			},
			Players:       players,
			RandomOpening: opening,
			MaxMoves:      sc.config.GetInt(config.ConfigSelfplayMaxMoves),
		},
		Games:   nGames,
		Threads: threads,
		Seed:    seed,
	}
	if mutants > 0 {
		t.Pool = selfplay.NewPool(sc.evaluator.Weights(), mutants, 0.2, seed.RNG())
	}
	log.Info().Str("seed", seed.String()).Str("game", sc.gameName).Msg("shell-selfplay")

	sum, err := t.Run(ctx)
	if err != nil && sum == nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString(sum.String())
	if herr := sum.Histogram(&sb); herr != nil {
		return nil, herr
	}
	if t.Pool != nil {
		sb.WriteString("mutants:\n")
		for _, m := range t.Pool.Ranked() {
			sb.WriteString("  " + m.String() + "\n")
		}
	}
	if err != nil {
		fmt.Fprintf(&sb, "stopped early: %v\n", err)
	}
	return msg(sb.String()), nil
}

func (sc *ShellController) selfplaySeed() (selfplay.Seed, error) {
	if s := sc.config.GetString(config.ConfigSelfplaySeed); s != "" {
		return selfplay.ParseSeed(s)
	}
	return selfplay.GenerateSeeds(1)[0], nil
}
