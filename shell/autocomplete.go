package shell

import (
	"slices"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"

	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/games"
)

// ShellCompleter completes commands and their options.
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata is what a command accepts after its name.
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"search": {
		Options: []string{"-depth", "-first", "-time", "-null", "-hash"},
	},
	"mcts": {
		Options: []string{"-time", "-threads", "-playouts", "-seed"},
	},
	"moves": {
		Options: []string{"-eval"},
	},
	"undo": {
		Options: []string{"-n"},
	},
	"robot": {
		Args: []string{"go", "take", "stop", "pause", "resume", "status", "quit"},
	},
	"selfplay": {
		Options: []string{"-games", "-threads", "-random", "-mutants", "-depth"},
	},
	"config": {
		Args: []string{"get", "set"},
	},
	"alias": {
		Args: []string{"set", "delete", "list", "rm"},
	},
}

var commandNames = []string{
	"new", "show", "s", "moves", "play", "undo", "search", "mcts", "robot",
	"selfplay", "config", "set", "alias", "script", "help", "exit",
}

var boolValues = []string{"true", "false"}

// Do implements readline.AutoCompleter.
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string
	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = append(slices.Clone(commandNames), lo.Keys(c.sc.aliases)...)
	} else {
		cmdName := fields[0]
		if v, ok := c.sc.aliases[cmdName]; ok {
			if af, err := shellquote.Split(v); err == nil && len(af) > 0 {
				cmdName = af[0]
			}
		}
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}
		var last string
		if endsWithSpace {
			last = fields[len(fields)-1]
		} else if len(fields) > 1 {
			last = fields[len(fields)-2]
		}
		switch {
		case last == "-null" || last == "-hash" || last == "-eval":
			completions = boolValues
		case cmdName == "new" && len(fields) <= 2 && last == "new":
			completions = games.Names()
		case (cmdName == "set" && last == "set") || (cmdName == "config" && (last == "set" || last == "get")):
			completions = c.sc.config.AllKeys()
			slices.Sort(completions)
		case cmdName == "play" && c.sc.board != nil:
			completions = lo.Map(c.sc.board.LegalMoves(), func(m game.Move, _ int) string { return m.String() })
		}
		if completions == nil {
			if md, ok := commandMetadata[cmdName]; ok {
				if strings.HasPrefix(prefix, "-") || len(md.Args) == 0 {
					completions = md.Options
				} else {
					completions = md.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}
