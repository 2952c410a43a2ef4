package shell

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/boardbot/mcts"
	"github.com/domino14/boardbot/search"
)

func durationOption(opts CmdOptions, key string, def time.Duration) (time.Duration, error) {
	v := opts.String(key)
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	// bare numbers are seconds
	var secs float64
	if _, err := fmt.Sscanf(v, "%g", &secs); err != nil {
		return 0, fmt.Errorf("bad duration %q for -%s", v, key)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (sc *ShellController) search(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if err := sc.requireGame(); err != nil {
		return nil, err
	}
	cfg := sc.config.SearchConfig()
	var err error
	if cfg.MaxDepth, err = cmd.options.IntDefault("depth", cfg.MaxDepth); err != nil {
		return nil, err
	}
	if cfg.FirstDepth, err = cmd.options.IntDefault("first", cfg.FirstDepth); err != nil {
		return nil, err
	}
	if cfg.FirstDepth > cfg.MaxDepth {
		cfg.FirstDepth = 0
	}
	if cfg.TimeLimit, err = durationOption(cmd.options, "time", cfg.TimeLimit); err != nil {
		return nil, err
	}
	if v := cmd.options.String("null"); v != "" {
		cfg.NullMove = cmd.options.Bool("null")
	}
	if v := cmd.options.String("hash"); v != "" {
		cfg.HashMoves = cmd.options.Bool("hash")
	}
	if cfg.MaxDepth < 1 || cfg.MaxDepth >= search.MaxPly {
		return nil, fmt.Errorf("depth must be between 1 and %d", search.MaxPly-1)
	}
	cfg.Repetitions = sc.positions

	d := search.NewDriver(sc.board, sc.evaluator, cfg)
	res, err := d.Search(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("depth", res.Depth).Int("nodes", res.Report.SearchClock).Msg("shell-search-done")

	var sb strings.Builder
	fmt.Fprintf(&sb, "best: %s, value %.2f, depth %d (%s)\n", res.Best, res.Value, res.Depth, res.Stop)
	fmt.Fprintf(&sb, "pv: %s\n", res.PV.String())
	sb.WriteString(res.Report.String())
	if secs := res.Report.Elapsed.Seconds(); secs > 0 {
		sb.WriteString(sc.p.Sprintf("\n%d nodes/s", int(float64(res.Report.SearchClock)/secs)))
	}
	return msg(sb.String()), nil
}

func (sc *ShellController) mcts(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if err := sc.requireGame(); err != nil {
		return nil, err
	}
	o := sc.config.MCTSOptions()
	var err error
	if o.TimeLimit, err = durationOption(cmd.options, "time", o.TimeLimit); err != nil {
		return nil, err
	}
	if o.Threads, err = cmd.options.IntDefault("threads", o.Threads); err != nil {
		return nil, err
	}
	playouts, err := cmd.options.IntDefault("playouts", int(o.Playouts))
	if err != nil {
		return nil, err
	}
	o.Playouts = int64(playouts)
	seed, err := cmd.options.IntDefault("seed", int(o.Seed))
	if err != nil {
		return nil, err
	}
	o.Seed = uint64(seed)
	if o.Threads < 1 {
		return nil, fmt.Errorf("threads must be at least 1")
	}

	res, err := mcts.New(sc.board, sc.evaluator, mcts.WithOptions(o)).Search(ctx)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString(sc.p.Sprintf("best: %s, win rate %.3f, %d visits\n", res.Best, res.WinRate, res.Visits))
	sb.WriteString(sc.p.Sprintf("%d simulations in %s, %d nodes\n", res.Simulations, res.Elapsed.Round(time.Millisecond), res.TreeSize))
	fmt.Fprintf(&sb, "%-12s %10s %8s\n", "move", "visits", "win")
	for _, c := range res.Children {
		killed := ""
		if c.Killed {
			killed = " (pruned)"
		}
		sb.WriteString(sc.p.Sprintf("%-12s %10d %8.3f%s\n", c.Move, c.Visits, c.WinRate, killed))
	}
	return msg(sb.String()), nil
}
