package shell

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/games"
	"github.com/domino14/boardbot/repetition"
)

func (sc *ShellController) requireGame() error {
	if sc.board == nil {
		return errNoGame
	}
	return nil
}

func (sc *ShellController) newGame(cmd *shellcmd) (*Response, error) {
	name := "tictactoe"
	var args []string
	if len(cmd.args) > 0 {
		name, args = cmd.args[0], cmd.args[1:]
	}
	b, ev, err := games.New(name, args)
	if err != nil {
		return nil, err
	}
	sc.stopRobot()
	sc.gameName = name
	sc.gameArgs = args
	sc.board = b
	sc.evaluator = ev
	sc.history = nil
	sc.positions = repetition.New(repetition.DefaultLimit)
	sc.positions.Add(b.Digest(), nil)
	return sc.show(cmd)
}

func (sc *ShellController) boardText() string {
	var sb strings.Builder
	if s, ok := sc.board.(fmt.Stringer); ok {
		sb.WriteString(s.String())
		if !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteString("\n")
		}
	}
	fmt.Fprintf(&sb, "%s, move %d, ", sc.gameName, sc.board.MoveNumber()+1)
	if sc.board.GameOver() {
		sb.WriteString("game over")
		if w := winner(sc.board); w != game.NoPlayer {
			fmt.Fprintf(&sb, ", player %d wins", w)
		}
	} else {
		fmt.Fprintf(&sb, "player %d to move", sc.board.WhoseTurn())
	}
	return sb.String()
}

func winner(b game.Board) int {
	o, ok := b.(game.Outcome)
	if !ok {
		return game.NoPlayer
	}
	for p := range b.NumPlayers() {
		if o.WinForPlayer(p) {
			return p
		}
	}
	return game.NoPlayer
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	if err := sc.requireGame(); err != nil {
		return nil, err
	}
	text := sc.boardText()
	if len(sc.history) > 0 {
		moves := lo.Map(sc.history, func(m game.Move, _ int) string { return m.String() })
		text += "\nhistory: " + strings.Join(moves, " ")
	}
	return msg(text), nil
}

type scoredMove struct {
	move  game.Move
	value float64
}

// scoreMoves statically evaluates every legal move, best first.
func (sc *ShellController) scoreMoves() ([]scoredMove, error) {
	moves := sc.board.LegalMoves()
	scored := make([]scoredMove, 0, len(moves))
	for _, m := range moves {
		if err := sc.board.MakeMove(m); err != nil {
			return nil, fmt.Errorf("%s: %w", m, err)
		}
		scored = append(scored, scoredMove{m, sc.evaluator.StaticEvaluate(sc.board, m)})
		sc.board.UnmakeMove(m)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].value > scored[j].value })
	return scored, nil
}

func (sc *ShellController) moves(cmd *shellcmd) (*Response, error) {
	if err := sc.requireGame(); err != nil {
		return nil, err
	}
	if !cmd.options.Bool("eval") {
		moves := sc.board.LegalMoves()
		if len(moves) == 0 {
			return msg("no legal moves"), nil
		}
		var sb strings.Builder
		for i, m := range moves {
			fmt.Fprintf(&sb, "%3d: %s\n", i+1, m)
		}
		return msg(sb.String()), nil
	}
	scored, err := sc.scoreMoves()
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for i, s := range scored {
		fmt.Fprintf(&sb, "%3d: %-12s %10.2f\n", i+1, s.move, s.value)
	}
	return msg(sb.String()), nil
}

// findMove resolves a 1-based index into LegalMoves or a move's text.
func (sc *ShellController) findMove(arg string) (game.Move, error) {
	moves := sc.board.LegalMoves()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(moves) {
			return nil, fmt.Errorf("move index %d out of range 1-%d", n, len(moves))
		}
		return moves[n-1], nil
	}
	m, ok := lo.Find(moves, func(m game.Move) bool { return strings.EqualFold(m.String(), arg) })
	if !ok {
		return nil, fmt.Errorf("%q is not a legal move", arg)
	}
	return m, nil
}

// playMove makes m on the shell's board and reports what it led to.
func (sc *ShellController) playMove(m game.Move) (*Response, error) {
	if err := sc.board.MakeMove(m); err != nil {
		return nil, err
	}
	sc.history = append(sc.history, m)
	text := sc.boardText()
	if sc.positions.CheckForRepetition(sc.board, m) {
		text += fmt.Sprintf("\nposition repeated %d times: draw", sc.positions.Count(sc.board.Digest()))
	}
	return msg(text), nil
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if err := sc.requireGame(); err != nil {
		return nil, err
	}
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: play <move number or move>")
	}
	if sc.board.GameOver() {
		return nil, errors.New("the game is over")
	}
	m, err := sc.findMove(strings.Join(cmd.args, " "))
	if err != nil {
		return nil, err
	}
	return sc.playMove(m)
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	if err := sc.requireGame(); err != nil {
		return nil, err
	}
	n, err := cmd.options.IntDefault("n", 1)
	if err != nil {
		return nil, err
	}
	if len(cmd.args) > 0 {
		if n, err = strconv.Atoi(cmd.args[0]); err != nil {
			return nil, err
		}
	}
	if n < 1 || n > len(sc.history) {
		return nil, fmt.Errorf("can't undo %d moves; %d played", n, len(sc.history))
	}
	sc.stopRobot()
	for range n {
		last := sc.history[len(sc.history)-1]
		sc.positions.Remove(sc.board.Digest())
		sc.board.UnmakeMove(last)
		sc.history = slices.Delete(sc.history, len(sc.history)-1, len(sc.history))
	}
	return sc.show(cmd)
}

func (sc *ShellController) configCmd(cmd *shellcmd) (*Response, error) {
	args := cmd.args
	if cmd.cmd == "set" {
		args = append([]string{"set"}, args...)
	}
	if len(args) == 0 {
		out, err := sc.config.DumpYAML()
		if err != nil {
			return nil, err
		}
		return msg(out), nil
	}
	switch args[0] {
	case "get":
		if len(args) != 2 {
			return nil, errors.New("usage: config get <key>")
		}
		if !sc.config.IsSet(args[1]) {
			return nil, fmt.Errorf("unknown setting %s", args[1])
		}
		return msg(fmt.Sprintf("%s = %v", args[1], sc.config.Get(args[1]))), nil
	case "set":
		if len(args) != 3 {
			return nil, errors.New("usage: set <key> <value>")
		}
		if err := sc.config.SetString(args[1], args[2]); err != nil {
			return nil, err
		}
		return msg(fmt.Sprintf("%s = %v", args[1], sc.config.Get(args[1]))), nil
	}
	return nil, fmt.Errorf("unknown config subcommand %q; use get or set", args[0])
}

func (sc *ShellController) alias(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 || cmd.args[0] == "list" {
		if len(sc.aliases) == 0 {
			return msg("no aliases defined"), nil
		}
		names := lo.Keys(sc.aliases)
		slices.Sort(names)
		var sb strings.Builder
		for _, name := range names {
			fmt.Fprintf(&sb, "  %s = %s\n", name, sc.aliases[name])
		}
		return msg(sb.String()), nil
	}
	switch cmd.args[0] {
	case "set":
		if len(cmd.args) < 3 {
			return nil, errors.New("usage: alias set <name> <command>")
		}
		parts := cmd.args[2:]
		keys := lo.Keys(cmd.options)
		slices.Sort(keys)
		for _, opt := range keys {
			for _, val := range cmd.options[opt] {
				parts = append(parts, "-"+opt, val)
			}
		}
		sc.aliases[cmd.args[1]] = strings.Join(parts, " ")
		return msg(fmt.Sprintf("alias %s = %s", cmd.args[1], sc.aliases[cmd.args[1]])), nil
	case "delete", "rm":
		if len(cmd.args) < 2 {
			return nil, errors.New("usage: alias delete <name>")
		}
		if _, ok := sc.aliases[cmd.args[1]]; !ok {
			return nil, fmt.Errorf("alias %s not found", cmd.args[1])
		}
		delete(sc.aliases, cmd.args[1])
		return msg("deleted alias " + cmd.args[1]), nil
	}
	return nil, fmt.Errorf("unknown alias subcommand %q; use set, delete or list", cmd.args[0])
}
