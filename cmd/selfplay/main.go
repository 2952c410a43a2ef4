// Command selfplay runs a robot tournament from the command line:
//
//	selfplay [flags] [game] [game args...]
//
// With --selfplay.mutants-file the least played mutant in the file takes
// a seat in every game, and the file is written back with the results.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/boardbot/config"
	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/games"
	"github.com/domino14/boardbot/selfplay"
)

const defaultMutants = 8

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	level := zerolog.InfoLevel
	if cfg.GetBool(config.ConfigDebug) {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
	log.Logger = logger

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("got quit signal, finishing games in progress...")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("selfplay-failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	name, args := "tictactoe", []string(nil)
	if a := cfg.Args(); len(a) > 0 {
		name, args = a[0], a[1:]
	}
	probe, ev, err := games.New(name, args)
	if err != nil {
		return err
	}

	var seed selfplay.Seed
	if s := cfg.GetString(config.ConfigSelfplaySeed); s != "" {
		if seed, err = selfplay.ParseSeed(s); err != nil {
			return err
		}
	} else {
		seed = selfplay.GenerateSeeds(1)[0]
	}
	log.Info().Str("seed", seed.String()).Str("game", name).Msg("selfplay-seed")

	var pool *selfplay.Pool
	mutantsFile := cfg.GetString(config.ConfigSelfplayMutantsFile)
	if mutantsFile != "" {
		pool, err = selfplay.LoadPool(mutantsFile)
		if errors.Is(err, fs.ErrNotExist) {
			pool = selfplay.NewPool(ev.Weights(), defaultMutants, 0.2, seed.RNG())
			log.Info().Str("file", mutantsFile).Int("mutants", defaultMutants).Msg("new-mutant-pool")
		} else if err != nil {
			return err
		}
	}

	players := make([]selfplay.Player, probe.NumPlayers())
	for i := range players {
		players[i] = selfplay.Player{Name: fmt.Sprintf("p%d", i), Options: cfg.RobotOptions()}
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
			Players:  players,
			MaxMoves: cfg.GetInt(config.ConfigSelfplayMaxMoves),
		},
		Pool:    pool,
		Games:   cfg.GetInt(config.ConfigSelfplayGames),
		Threads: cfg.GetInt(config.ConfigSelfplayThreads),
		Seed:    seed,
	}
	sum, runErr := t.Run(ctx)
	if sum != nil {
		fmt.Print(sum.String())
		if err := sum.Histogram(os.Stdout); err != nil {
			return err
		}
	}
	if pool != nil {
		for _, m := range pool.Ranked() {
			fmt.Println(m.String())
		}
		if err := pool.Save(mutantsFile); err != nil {
			return err
		}
	}
	log.Info().Int64("games", selfplay.GamesPlayed.Value()).Msg("selfplay-done")
	return runErr
}
