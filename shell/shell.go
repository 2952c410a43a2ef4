// Package shell is an interactive front end to the engine: set up a
// position, look at its moves, search it, and run robots and self-play.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/domino14/boardbot/config"
	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/repetition"
	"github.com/domino14/boardbot/robot"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errNoGame            = errors.New("no game; start one with `new`")
	errQuit              = errors.New("quit")
)

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

// CmdOptions are the -name value pairs of a command line.
type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	if v := c[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) IntDefault(key string, def int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return def, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	return len(v) > 0 && strings.EqualFold(v[0], "true")
}

func isOption(f string) bool {
	if len(f) < 2 || f[0] != '-' {
		return false
	}
	_, err := strconv.ParseFloat(f, 64)
	return err != nil
}

func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := &shellcmd{cmd: fields[0], options: CmdOptions{}}
	for i := 1; i < len(fields); i++ {
		f := fields[i]
		if !isOption(f) {
			cmd.args = append(cmd.args, f)
			continue
		}
		if i == len(fields)-1 {
			return nil, errWrongOptionSyntax
		}
		name := strings.TrimLeft(f, "-")
		cmd.options[name] = append(cmd.options[name], fields[i+1])
		i++
	}
	return cmd, nil
}

// Response is what a command prints.
type Response struct {
	message string
}

func (r *Response) String() string { return r.message }

func msg(message string) *Response {
	return &Response{message: message}
}

type ShellController struct {
	l      *readline.Instance
	outMu  sync.Mutex
	out    io.Writer
	config *config.Config
	p      *message.Printer

	gameName  string
	gameArgs  []string
	board     game.Board
	evaluator game.Evaluator
	history   []game.Move
	positions *repetition.Positions

	robotMu sync.Mutex
	robot   *robot.Runner
	robotCh chan struct{}

	aliases map[string]string
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func newController(cfg *config.Config, out io.Writer) *ShellController {
	return &ShellController{
		out:     out,
		config:  cfg,
		p:       message.NewPrinter(language.English),
		aliases: map[string]string{},
	}
}

// NewShellController makes a shell reading from the terminal.
func NewShellController(cfg *config.Config) (*ShellController, error) {
	sc := newController(cfg, os.Stderr)
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mboardbot>\033[0m ",
		HistoryFile:     "/tmp/boardbot-readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",
		AutoComplete:    NewShellCompleter(sc),

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return nil, err
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc, nil
}

func (sc *ShellController) showMessage(s string) {
	sc.outMu.Lock()
	defer sc.outMu.Unlock()
	io.WriteString(sc.out, s)
	if !strings.HasSuffix(s, "\n") {
		io.WriteString(sc.out, "\n")
	}
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

func (sc *ShellController) expandAlias(line string) string {
	name, rest, _ := strings.Cut(line, " ")
	if v, ok := sc.aliases[name]; ok {
		return strings.TrimSpace(v + " " + rest)
	}
	return line
}

// Execute runs one command line.
func (sc *ShellController) Execute(ctx context.Context, line string) (*Response, error) {
	cmd, err := extractFields(sc.expandAlias(line))
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "new":
		return sc.newGame(cmd)
	case "show", "s":
		return sc.show(cmd)
	case "moves":
		return sc.moves(cmd)
	case "play":
		return sc.play(cmd)
	case "undo":
		return sc.undo(cmd)
	case "search":
		return sc.search(ctx, cmd)
	case "mcts":
		return sc.mcts(ctx, cmd)
	case "robot":
		return sc.robotCmd(ctx, cmd)
	case "selfplay":
		return sc.selfplay(ctx, cmd)
	case "config", "set":
		return sc.configCmd(cmd)
	case "alias":
		return sc.alias(cmd)
	case "script":
		return sc.script(ctx, cmd)
	case "help":
		return sc.help(cmd)
	case "exit", "bye":
		return nil, errQuit
	}
	return nil, fmt.Errorf("unknown command %q", cmd.cmd)
}

// Loop reads commands until exit or end of input, then signals sig.
func (sc *ShellController) Loop(ctx context.Context, sig chan os.Signal) {
	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		resp, err := sc.Execute(ctx, line)
		if errors.Is(err, errQuit) {
			sig <- syscall.SIGINT
			break
		}
		if err != nil {
			sc.showError(err)
			continue
		}
		if resp != nil && resp.message != "" {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msg("exiting-readline-loop")
}

// Cleanup stops the robot and releases the terminal.
func (sc *ShellController) Cleanup() {
	sc.stopRobot()
	if sc.l != nil {
		sc.l.Close()
	}
}
