package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"gopkg.in/yaml.v3"

	"github.com/domino14/boardbot/search"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	c, err := Load(nil)
	is.NoErr(err)
	sc := c.SearchConfig()
	def := search.DefaultConfig()
	is.Equal(sc.MaxDepth, def.MaxDepth)
	is.Equal(sc.AlphaBeta, def.AlphaBeta)
	is.Equal(sc.GoodEnoughValue, def.GoodEnoughValue)
	is.Equal(c.MCTSOptions().Threads, 2)
	is.True(c.GetBool(ConfigRobotContinuous))
	is.Equal(len(c.RobotOptions()), 4)
}

func TestPrecedence(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "boardbot.yaml")
	err := os.WriteFile(path, []byte("search:\n  depth: 6\n  null-move: true\nmcts:\n  threads: 3\n"), 0o644)
	is.NoErr(err)

	t.Setenv("BOARDBOT_MCTS_THREADS", "5")
	t.Setenv("BOARDBOT_SEARCH_TIME_LIMIT", "3s")
	c, err := Load([]string{"--config", path, "--search.depth", "8"})
	is.NoErr(err)
	// flag beats file
	is.Equal(c.GetInt(ConfigSearchDepth), 8)
	// file beats default
	is.True(c.SearchConfig().NullMove)
	// environment beats file
	is.Equal(c.MCTSOptions().Threads, 5)
	is.Equal(c.SearchConfig().TimeLimit, 3*time.Second)

	c, err = Load([]string{"--debug", "new", "nim"})
	is.NoErr(err)
	is.True(c.GetBool(ConfigDebug))
	is.Equal(c.Args(), []string{"new", "nim"})
}

func TestValidation(t *testing.T) {
	is := is.New(t)
	_, err := Load([]string{"--search.depth", "0"})
	is.True(errors.Is(err, ErrBadValue))
	_, err = Load([]string{"--search.depth", "3", "--search.first-depth", "5"})
	is.True(errors.Is(err, ErrBadValue))
	_, err = Load([]string{"--mcts.threads=0"})
	is.True(errors.Is(err, ErrBadValue))
	_, err = Load([]string{"--no-such-flag"})
	is.True(err != nil)
	_, err = Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	is.True(err != nil)
}

func TestSetString(t *testing.T) {
	is := is.New(t)
	c := New()
	is.NoErr(c.SetString(ConfigSearchDepth, "7"))
	is.Equal(c.SearchConfig().MaxDepth, 7)
	is.NoErr(c.SetString(ConfigSearchTimeLimit, "250ms"))
	is.Equal(c.SearchConfig().TimeLimit, 250*time.Millisecond)
	is.NoErr(c.SetString(ConfigRobotMontebot, "true"))
	is.True(c.GetBool(ConfigRobotMontebot))
	is.True(errors.Is(c.SetString("search.bogus", "1"), ErrBadValue))
	is.True(errors.Is(c.SetString(ConfigSearchTimeLimit, "soon"), ErrBadValue))
	is.True(errors.Is(c.SetString(ConfigSearchDepth, "0"), ErrBadValue))
}

func TestDumpYAML(t *testing.T) {
	is := is.New(t)
	c, err := Load([]string{"--search.depth", "5", "--mcts.time-limit", "2s"})
	is.NoErr(err)
	out, err := c.DumpYAML()
	is.NoErr(err)
	is.True(strings.Contains(out, "time-limit: 2s"))

	var back struct {
		Search struct {
			Depth int `yaml:"depth"`
		} `yaml:"search"`
		MCTS struct {
			TimeLimit string `yaml:"time-limit"`
		} `yaml:"mcts"`
	}
	is.NoErr(yaml.Unmarshal([]byte(out), &back))
	is.Equal(back.Search.Depth, 5)
	is.Equal(back.MCTS.TimeLimit, "2s")
}
