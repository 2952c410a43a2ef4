// Package config gathers engine settings from defaults, an optional YAML
// file, BOARDBOT_ environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/domino14/boardbot/mcts"
	"github.com/domino14/boardbot/robot"
	"github.com/domino14/boardbot/search"
)

const (
	ConfigDebug      = "debug"
	ConfigCPUProfile = "cpu-profile"
	ConfigMemProfile = "mem-profile"

	ConfigSearchDepth                 = "search.depth"
	ConfigSearchFirstDepth            = "search.first-depth"
	ConfigSearchTimeLimit             = "search.time-limit"
	ConfigSearchAlphaBeta             = "search.alpha-beta"
	ConfigSearchGoodEnough            = "search.good-enough"
	ConfigSearchGoodEnoughValue       = "search.good-enough-value"
	ConfigSearchNullMove              = "search.null-move"
	ConfigSearchNullMoveLevel         = "search.null-move-level"
	ConfigSearchKillers               = "search.killers"
	ConfigSearchSaveDigest            = "search.save-digest"
	ConfigSearchCheckDuplicateDigests = "search.check-duplicate-digests"
	ConfigSearchHashMoves             = "search.hash-moves"
	ConfigSearchRandomizeFirst        = "search.randomize-first"
	ConfigSearchRandomizeDif          = "search.randomize-dif"

	ConfigRobotMontebot   = "robot.montebot"
	ConfigRobotContinuous = "robot.continuous"

	ConfigMCTSThreads          = "mcts.threads"
	ConfigMCTSTimeLimit        = "mcts.time-limit"
	ConfigMCTSPlayouts         = "mcts.playouts"
	ConfigMCTSAlpha            = "mcts.alpha"
	ConfigMCTSWinRandomization = "mcts.win-randomization"

	ConfigSelfplayGames       = "selfplay.games"
	ConfigSelfplayThreads     = "selfplay.threads"
	ConfigSelfplayMutantsFile = "selfplay.mutants-file"
	ConfigSelfplaySeed        = "selfplay.seed"
	ConfigSelfplayMaxMoves    = "selfplay.max-moves"
)

var ErrBadValue = errors.New("bad config value")

type Config struct {
	viper.Viper
	args []string
}

// New returns a config holding only the defaults.
func New() *Config {
	c := &Config{Viper: *viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	sc := search.DefaultConfig()
	mo := mcts.DefaultOptions()
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigCPUProfile, "")
	c.SetDefault(ConfigMemProfile, "")
	c.SetDefault(ConfigSearchDepth, sc.MaxDepth)
	c.SetDefault(ConfigSearchFirstDepth, 0)
	c.SetDefault(ConfigSearchTimeLimit, sc.TimeLimit)
	c.SetDefault(ConfigSearchAlphaBeta, sc.AlphaBeta)
	c.SetDefault(ConfigSearchGoodEnough, sc.GoodEnough)
	c.SetDefault(ConfigSearchGoodEnoughValue, sc.GoodEnoughValue)
	c.SetDefault(ConfigSearchNullMove, sc.NullMove)
	c.SetDefault(ConfigSearchNullMoveLevel, sc.NullMoveSearchLevel)
	c.SetDefault(ConfigSearchKillers, sc.Killers)
	c.SetDefault(ConfigSearchSaveDigest, sc.SaveDigest)
	c.SetDefault(ConfigSearchCheckDuplicateDigests, sc.CheckDuplicateDigests)
	c.SetDefault(ConfigSearchHashMoves, sc.HashMoves)
	c.SetDefault(ConfigSearchRandomizeFirst, 0)
	c.SetDefault(ConfigSearchRandomizeDif, 0.0)
	c.SetDefault(ConfigRobotMontebot, false)
	c.SetDefault(ConfigRobotContinuous, true)
	c.SetDefault(ConfigMCTSThreads, mo.Threads)
	c.SetDefault(ConfigMCTSTimeLimit, mo.TimeLimit)
	c.SetDefault(ConfigMCTSPlayouts, mo.Playouts)
	c.SetDefault(ConfigMCTSAlpha, mo.Alpha)
	c.SetDefault(ConfigMCTSWinRandomization, mo.WinRandomization)
	c.SetDefault(ConfigSelfplayGames, 100)
	c.SetDefault(ConfigSelfplayThreads, 4)
	c.SetDefault(ConfigSelfplayMutantsFile, "")
	c.SetDefault(ConfigSelfplaySeed, "")
	c.SetDefault(ConfigSelfplayMaxMoves, 200)
}

func flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "YAML file with settings")
	fs.Bool(ConfigDebug, false, "debug logging")
	fs.String(ConfigCPUProfile, "", "write a CPU profile here")
	fs.String(ConfigMemProfile, "", "write a heap profile here on exit")
	fs.Int(ConfigSearchDepth, 0, "alpha-beta search depth")
	fs.Int(ConfigSearchFirstDepth, 0, "first depth of progressive deepening")
	fs.Duration(ConfigSearchTimeLimit, 0, "time limit per alpha-beta move")
	fs.Bool(ConfigSearchNullMove, false, "search null moves")
	fs.Bool(ConfigSearchHashMoves, false, "order moves with the hash-move table")
	fs.Bool(ConfigRobotMontebot, false, "robots use UCT instead of alpha-beta")
	fs.Int(ConfigMCTSThreads, 0, "UCT worker goroutines")
	fs.Duration(ConfigMCTSTimeLimit, 0, "time limit per UCT move")
	fs.Int64(ConfigMCTSPlayouts, 0, "UCT playout limit, 0 for none")
	fs.Int(ConfigSelfplayGames, 0, "self-play games to run")
	fs.Int(ConfigSelfplayThreads, 0, "self-play games to run at once")
	fs.String(ConfigSelfplayMutantsFile, "", "YAML file of mutant weights")
	fs.String(ConfigSelfplaySeed, "", "base64 seed for reproducible self-play")
	return fs
}

// Load builds a config from args, the environment and the file named by
// --config, if any.
func Load(args []string) (*Config, error) {
	c := New()
	fs := flagSet("boardbot")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	c.args = fs.Args()
	// only flags given on the command line override the other sources
	var bindErr error
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		if err := c.BindPFlag(f.Name, f); err != nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	c.SetEnvPrefix("boardbot")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		c.SetConfigFile(path)
		c.SetConfigType("yaml")
		if err := c.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return c, c.Validate()
}

// Args are the command-line arguments left after the flags.
func (c *Config) Args() []string { return c.args }

func (c *Config) Validate() error {
	if d := c.GetInt(ConfigSearchDepth); d < 1 || d >= search.MaxPly {
		return fmt.Errorf("%w: %s=%d", ErrBadValue, ConfigSearchDepth, d)
	}
	if d := c.GetInt(ConfigSearchFirstDepth); d < 0 || d > c.GetInt(ConfigSearchDepth) {
		return fmt.Errorf("%w: %s=%d", ErrBadValue, ConfigSearchFirstDepth, d)
	}
	if c.GetDuration(ConfigSearchTimeLimit) < 0 || c.GetDuration(ConfigMCTSTimeLimit) < 0 {
		return fmt.Errorf("%w: negative time limit", ErrBadValue)
	}
	if c.GetInt(ConfigMCTSThreads) < 1 {
		return fmt.Errorf("%w: %s=%d", ErrBadValue, ConfigMCTSThreads, c.GetInt(ConfigMCTSThreads))
	}
	if c.GetInt(ConfigSelfplayThreads) < 1 {
		return fmt.Errorf("%w: %s=%d", ErrBadValue, ConfigSelfplayThreads, c.GetInt(ConfigSelfplayThreads))
	}
	return nil
}

func (c *Config) SearchConfig() search.Config {
	sc := search.DefaultConfig()
	sc.MaxDepth = c.GetInt(ConfigSearchDepth)
	sc.FirstDepth = c.GetInt(ConfigSearchFirstDepth)
	sc.TimeLimit = c.GetDuration(ConfigSearchTimeLimit)
	sc.AlphaBeta = c.GetBool(ConfigSearchAlphaBeta)
	sc.GoodEnough = c.GetBool(ConfigSearchGoodEnough)
	sc.GoodEnoughValue = c.GetFloat64(ConfigSearchGoodEnoughValue)
	sc.NullMove = c.GetBool(ConfigSearchNullMove)
	sc.NullMoveSearchLevel = c.GetInt(ConfigSearchNullMoveLevel)
	sc.Killers = c.GetBool(ConfigSearchKillers)
	sc.BestKiller = sc.Killers
	sc.SaveDigest = c.GetBool(ConfigSearchSaveDigest)
	sc.CheckDuplicateDigests = c.GetBool(ConfigSearchCheckDuplicateDigests)
	sc.HashMoves = c.GetBool(ConfigSearchHashMoves)
	return sc
}

func (c *Config) MCTSOptions() mcts.Options {
	o := mcts.DefaultOptions()
	o.Threads = c.GetInt(ConfigMCTSThreads)
	o.TimeLimit = c.GetDuration(ConfigMCTSTimeLimit)
	o.Playouts = c.GetInt64(ConfigMCTSPlayouts)
	o.Alpha = c.GetFloat64(ConfigMCTSAlpha)
	o.WinRandomization = c.GetFloat64(ConfigMCTSWinRandomization)
	return o
}

// RobotOptions configures a robot.Runner from these settings.
func (c *Config) RobotOptions() []robot.Option {
	return []robot.Option{
		robot.WithSearchConfig(c.SearchConfig()),
		robot.WithMCTS(c.MCTSOptions()),
		robot.WithMonteBot(c.GetBool(ConfigRobotMontebot)),
		robot.WithRandomizeFirst(c.GetInt(ConfigSearchRandomizeFirst), c.GetFloat64(ConfigSearchRandomizeDif)),
	}
}

// DumpYAML renders every effective setting.
func (c *Config) DumpYAML() (string, error) {
	settings := c.AllSettings()
	// durations read back nicer as strings
	for _, k := range []string{ConfigSearchTimeLimit, ConfigMCTSTimeLimit} {
		section, key, _ := strings.Cut(k, ".")
		if m, ok := settings[section].(map[string]any); ok {
			m[key] = c.GetDuration(k).String()
		}
	}
	out, err := yaml.Marshal(settings)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SetString parses value into key, for the shell's set command.
func (c *Config) SetString(key, value string) error {
	if !c.IsSet(key) {
		return fmt.Errorf("%w: unknown setting %s", ErrBadValue, key)
	}
	switch c.Get(key).(type) {
	case time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBadValue, key, err)
		}
		c.Set(key, d)
	default:
		c.Set(key, value)
	}
	return c.Validate()
}
