package shell

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
)

// luaCommand makes a lua function that runs a shell command line prefixed
// by name and returns its output, or "ERROR: ..." on failure.
func (sc *ShellController) luaCommand(ctx context.Context, name string) lua.LGFunction {
	return func(L *lua.LState) int {
		line := strings.TrimSpace(name + " " + L.OptString(1, ""))
		r, err := sc.Execute(ctx, line)
		if err != nil {
			log.Err(err).Str("line", line).Msg("error-executing-script-command")
			L.Push(lua.LString("ERROR: " + err.Error()))
			return 1
		}
		if r == nil {
			L.Push(lua.LString(""))
			return 1
		}
		L.Push(lua.LString(r.message))
		return 1
	}
}

func (sc *ShellController) luaMoves(L *lua.LState) int {
	t := L.NewTable()
	if sc.board != nil {
		for _, m := range sc.board.LegalMoves() {
			t.Append(lua.LString(m.String()))
		}
	}
	L.Push(t)
	return 1
}

func (sc *ShellController) luaGameOver(L *lua.LState) int {
	L.Push(lua.LBool(sc.board == nil || sc.board.GameOver()))
	return 1
}

func (sc *ShellController) luaWinner(L *lua.LState) int {
	if sc.board == nil {
		L.Push(lua.LNumber(-1))
		return 1
	}
	L.Push(lua.LNumber(winner(sc.board)))
	return 1
}

// script runs a lua file, or the code given with -e, against this shell.
func (sc *ShellController) script(ctx context.Context, cmd *shellcmd) (*Response, error) {
	code := cmd.options.String("e")
	if len(cmd.args) == 0 && code == "" {
		return nil, errors.New("usage: script <file.lua> | script -e <code>")
	}

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	var out strings.Builder
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		out.WriteString(strings.Join(parts, "\t") + "\n")
		return 0
	}))
	L.SetGlobal("boardbot_run", L.NewFunction(sc.luaCommand(ctx, "")))
	for _, name := range []string{"new", "play", "undo", "search", "mcts", "show", "set"} {
		L.SetGlobal("boardbot_"+name, L.NewFunction(sc.luaCommand(ctx, name)))
	}
	L.SetGlobal("boardbot_moves", L.NewFunction(sc.luaMoves))
	L.SetGlobal("boardbot_over", L.NewFunction(sc.luaGameOver))
	L.SetGlobal("boardbot_winner", L.NewFunction(sc.luaWinner))

	var err error
	if code != "" {
		err = L.DoString(code)
	} else {
		err = L.DoFile(cmd.args[0])
	}
	if err != nil {
		return nil, err
	}
	return msg(out.String()), nil
}
