package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/domino14/boardbot/config"
	"github.com/domino14/boardbot/games"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"search -depth 6",
			&shellcmd{"search", nil, CmdOptions{"depth": {"6"}}},
			nil},
		{"robot go",
			&shellcmd{"robot", []string{"go"}, CmdOptions{}},
			nil},
		{"new nim 2 3 4 -x 1 ",
			&shellcmd{"new",
				[]string{"nim", "2", "3", "4"},
				CmdOptions{"x": {"1"}}},
			nil,
		},
		{"set search.good-enough-value -5",
			&shellcmd{"set", []string{"search.good-enough-value", "-5"}, CmdOptions{}},
			nil},
		{"script -e 'print(1)'",
			&shellcmd{"script", nil, CmdOptions{"e": {"print(1)"}}},
			nil},
		{"search -depth",
			nil, errWrongOptionSyntax},
	}
	for _, tc := range cases {
		cmd, err := extractFields(tc.line)
		is.Equal(cmd, tc.expCmd)
		is.Equal(err, tc.expErr)
	}
}

func newTestShell(t *testing.T) *ShellController {
	t.Helper()
	sc := newController(config.New(), &bytes.Buffer{})
	t.Cleanup(sc.stopRobot)
	return sc
}

func run(t *testing.T, sc *ShellController, line string) string {
	t.Helper()
	r, err := sc.Execute(context.Background(), line)
	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	if r == nil {
		return ""
	}
	return r.message
}

func TestPlayAndUndo(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	_, err := sc.Execute(context.Background(), "show")
	is.True(errors.Is(err, errNoGame))

	out := run(t, sc, "new tictactoe XX.OO....")
	is.True(strings.Contains(out, "player 0 to move"))

	out = run(t, sc, "moves")
	is.True(strings.Contains(out, "1: X@2"))
	out = run(t, sc, "moves -eval true")
	is.True(strings.HasPrefix(strings.TrimSpace(out), "1: X@2"))

	_, err = sc.Execute(context.Background(), "play 99")
	is.True(err != nil)
	_, err = sc.Execute(context.Background(), "play O@2")
	is.True(err != nil)

	out = run(t, sc, "play x@2")
	is.True(strings.Contains(out, "game over, player 0 wins"))
	_, err = sc.Execute(context.Background(), "play 1")
	is.True(err != nil)

	out = run(t, sc, "undo")
	is.True(strings.Contains(out, "player 0 to move"))
	is.Equal(len(sc.history), 0)
	_, err = sc.Execute(context.Background(), "undo")
	is.True(err != nil)

	run(t, sc, "play 3")
	run(t, sc, "play 1")
	out = run(t, sc, "show")
	is.True(strings.Contains(out, "history: X@5 O@2"))
	run(t, sc, "undo 2")
	is.Equal(sc.board.MoveNumber(), 4)
}

func TestUndoForgetsPositions(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	run(t, sc, "new tictactoe")
	start := sc.board.Digest()
	is.Equal(sc.positions.Count(start), 1)
	run(t, sc, "play 1")
	run(t, sc, "undo")
	is.Equal(sc.positions.Count(start), 1)
	is.Equal(sc.positions.Len(), 1)
}

func TestNim(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	run(t, sc, "new nim 2 1")
	is.Equal(len(sc.board.LegalMoves()), 1)
	_, err := sc.Execute(context.Background(), "new nim 2")
	is.True(err != nil)
	_, err = sc.Execute(context.Background(), "new chess")
	is.True(err != nil)
}

func TestSearchCommand(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	run(t, sc, "new tictactoe XX.OO....")
	out := run(t, sc, "search -depth 3")
	is.True(strings.Contains(out, "best: X@2"))
	is.True(strings.Contains(out, "pv:"))
	// the board is restored after the search
	is.Equal(sc.board.MoveNumber(), 4)

	_, err := sc.Execute(context.Background(), "search -depth 0")
	is.True(err != nil)
	_, err = sc.Execute(context.Background(), "search -time soon")
	is.True(err != nil)
}

func TestMCTSCommand(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	run(t, sc, "new tictactoe XX.OO....")
	out := run(t, sc, "mcts -playouts 500 -threads 1 -seed 3 -time 10s")
	is.True(strings.Contains(out, "best: "))
	is.True(strings.Contains(out, "X@2"))
	_, err := sc.Execute(context.Background(), "mcts -threads 0")
	is.True(err != nil)
}

func TestRobotCommand(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	_, err := sc.Execute(context.Background(), "robot")
	is.True(errors.Is(err, errNoGame))
	run(t, sc, "new tictactoe XX.OO....")
	is.Equal(run(t, sc, "robot status"), "no robot")

	run(t, sc, "robot go")
	require.Eventually(t, func() bool {
		return strings.Contains(run(t, sc, "robot status"), "result-ready")
	}, 10*time.Second, 10*time.Millisecond)
	out := run(t, sc, "robot take")
	is.True(strings.Contains(out, "player 0 wins"))
	is.Equal(sc.history[0].String(), "X@2")

	_, err = sc.Execute(context.Background(), "robot take")
	is.True(err != nil)
	run(t, sc, "robot quit")
	is.True(sc.currentRobot() == nil)
}

func TestConfigCommands(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	run(t, sc, "set search.depth 3")
	is.Equal(run(t, sc, "config get search.depth"), "search.depth = 3")
	run(t, sc, "config set mcts.time-limit 250ms")
	is.Equal(sc.config.SearchConfig().MaxDepth, 3)
	is.Equal(sc.config.MCTSOptions().TimeLimit, 250*time.Millisecond)
	is.True(strings.Contains(run(t, sc, "config"), "time-limit: 250ms"))

	_, err := sc.Execute(context.Background(), "set no.such.key 1")
	is.True(errors.Is(err, config.ErrBadValue))
	_, err = sc.Execute(context.Background(), "set search.depth 0")
	is.True(err != nil)
}

func TestAlias(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	run(t, sc, "alias set ttt new tictactoe")
	is.True(strings.Contains(run(t, sc, "alias"), "ttt = new tictactoe"))
	out := run(t, sc, "ttt XX.OO....")
	is.True(strings.Contains(out, "player 0 to move"))
	run(t, sc, "alias delete ttt")
	_, err := sc.Execute(context.Background(), "ttt")
	is.True(err != nil)
}

func TestScript(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	out := run(t, sc, `script -e 'boardbot_new("tictactoe XX.OO....")
print(#boardbot_moves())
boardbot_play("X@2")
print(boardbot_over(), boardbot_winner())
print(boardbot_play("1"))'`)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	is.Equal(len(lines), 3)
	is.Equal(lines[0], "5")
	is.Equal(lines[1], "true\t0")
	is.True(strings.HasPrefix(lines[2], "ERROR:"))

	_, err := sc.Execute(context.Background(), "script -e 'this is not lua'")
	is.True(err != nil)
}

func TestSelfplayCommand(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	run(t, sc, "new tictactoe")
	out := run(t, sc, "selfplay -games 4 -threads 2 -depth 1 -random 2 -mutants 2")
	is.True(strings.Contains(out, "games: 4"))
	is.True(strings.Contains(out, "mutants:"))
}

func TestHelp(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	is.True(strings.Contains(run(t, sc, "help"), "selfplay"))
	is.True(strings.Contains(run(t, sc, "help robot"), "take"))
	_, err := sc.Execute(context.Background(), "help nothing")
	is.True(err != nil)
}

func TestCompleter(t *testing.T) {
	is := is.New(t)
	sc := newTestShell(t)
	c := NewShellCompleter(sc)

	line := []rune("sea")
	got, n := c.Do(line, len(line))
	is.Equal(n, 3)
	is.Equal(got, [][]rune{[]rune("rch")})

	line = []rune("robot pa")
	got, _ = c.Do(line, len(line))
	is.Equal(got, [][]rune{[]rune("use")})

	line = []rune("new ")
	got, _ = c.Do(line, len(line))
	is.Equal(len(got), len(games.Names()))
}
