// Package games registers the boards the engine ships with, by name.
package games

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/games/nim"
	"github.com/domino14/boardbot/games/tictactoe"
)

// Maker builds a board and its evaluator from command-line style args.
type Maker func(args []string) (game.Board, game.Evaluator, error)

var makers = map[string]Maker{
	// tictactoe [position] [side to move]
	"tictactoe": func(args []string) (game.Board, game.Evaluator, error) {
		b := tictactoe.NewBoard()
		if len(args) > 0 {
			turn := 0
			if len(args) > 1 && (strings.EqualFold(args[1], "O") || args[1] == "1") {
				turn = 1
			}
			if err := b.Set(args[0], turn); err != nil {
				return nil, nil, err
			}
		}
		return b, tictactoe.NewEvaluator(), nil
	},
	// nim <players> <heap> [heap...]
	"nim": func(args []string) (game.Board, game.Evaluator, error) {
		nums := make([]int, 0, len(args))
		for _, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil {
				return nil, nil, fmt.Errorf("nim: %w", err)
			}
			nums = append(nums, n)
		}
		if len(nums) == 0 {
			nums = []int{2, 3, 4, 5}
		}
		if len(nums) < 2 {
			return nil, nil, fmt.Errorf("nim needs a player count and at least one heap")
		}
		b, err := nim.NewBoard(nums[0], nums[1:]...)
		if err != nil {
			return nil, nil, err
		}
		return b, nim.NewEvaluator(), nil
	},
}

// New sets up the named game.
func New(name string, args []string) (game.Board, game.Evaluator, error) {
	m, ok := makers[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown game %q; choose one of %s", name, strings.Join(Names(), ", "))
	}
	return m(args)
}

// Names lists the registered games, sorted.
func Names() []string {
	names := make([]string, 0, len(makers))
	for n := range makers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
