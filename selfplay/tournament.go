package selfplay

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/stats"
)

var (
	GamesPlayed = expvar.NewInt("selfplayGames")
	Playing     = expvar.NewInt("selfplayThreads")
)

var ErrAlreadyPlaying = errors.New("a tournament is already running")

// Tournament plays many games in parallel. When Pool is set, every game
// seats the least used mutant, rotating its seat from game to game.
type Tournament struct {
	Runner  GameRunner
	Pool    *Pool
	Games   int
	Threads int
	// Seeds are used in order; games past the end derive theirs from Seed.
	Seeds []Seed
	Seed  Seed
}

func (t *Tournament) seed(i int) Seed {
	if i < len(t.Seeds) {
		return t.Seeds[i]
	}
	return t.Seed.Derive(i)
}

// Run plays the games. A cancelled ctx stops the tournament after the
// games in progress; the summary of what was played is returned with the
// error.
func (t *Tournament) Run(ctx context.Context) (*Summary, error) {
	if Playing.Value() > 0 {
		return nil, ErrAlreadyPlaying
	}
	logger := zerolog.Ctx(ctx)
	probe, err := t.Runner.NewBoard()
	if err != nil {
		return nil, err
	}
	players := probe.NumPlayers()
	sum := newSummary(players)
	threads := max(t.Threads, 1)
	logger.Info().Int("games", t.Games).Int("threads", threads).Msg("tournament-start")

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	g.Go(func() error {
		defer close(jobs)
		for i := range t.Games {
			select {
			case jobs <- i:
			case <-gctx.Done():
				logger.Info().Int("queued", i).Msg("tournament-stopping")
				return nil
			}
		}
		return nil
	})
	for range threads {
		g.Go(func() error {
			Playing.Add(1)
			defer Playing.Add(-1)
			for i := range jobs {
				if err := t.play(gctx, i, players, sum); err != nil {
					return fmt.Errorf("game %d: %w", i, err)
				}
				GamesPlayed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	logger.Info().Int("games", sum.Games()).Msg("tournament-done")
	return sum, err
}

func (t *Tournament) play(ctx context.Context, i, players int, sum *Summary) error {
	runner := t.Runner
	runner.Players = append([]Player(nil), t.Runner.Players...)
	var mutant *Mutant
	seat := i % players
	if t.Pool != nil {
		var err error
		if mutant, err = t.Pool.LeastUsed(); err != nil {
			return err
		}
		runner.Players[seat].Name = mutant.Name
		runner.Players[seat].Weights = mutant.Weights
	}
	rec, err := runner.PlayGame(ctx, t.seed(i))
	if err != nil {
		return err
	}
	sum.add(rec)
	if mutant != nil {
		return t.Pool.Update(mutant.Name, rec.ResultFor(seat))
	}
	return nil
}

// Summary totals a tournament. It is safe for concurrent use.
type Summary struct {
	mu      sync.Mutex
	wins    []int
	draws   int
	ends    map[End]int
	lengths []float64
	length  stats.Statistic
}

func newSummary(players int) *Summary {
	return &Summary{wins: make([]int, players), ends: make(map[End]int)}
}

func (s *Summary) add(rec *GameRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Winner == game.NoPlayer {
		s.draws++
	} else {
		s.wins[rec.Winner]++
	}
	s.ends[rec.End]++
	s.lengths = append(s.lengths, float64(len(rec.Moves)))
	s.length.Push(float64(len(rec.Moves)))
}

func (s *Summary) Games() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lengths)
}

// Wins is the number of games won from each seat.
func (s *Summary) Wins() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.wins...)
}

func (s *Summary) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draws
}

func (s *Summary) Ends(e End) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ends[e]
}

// Histogram draws the distribution of game lengths.
func (s *Summary) Histogram(w io.Writer) error {
	s.mu.Lock()
	lengths := append([]float64(nil), s.lengths...)
	s.mu.Unlock()
	if len(lengths) == 0 {
		return nil
	}
	if slices.Min(lengths) == slices.Max(lengths) {
		_, err := fmt.Fprintf(w, "%d games, all %.0f moves\n", len(lengths), lengths[0])
		return err
	}
	return histogram.Fprint(w, histogram.Hist(10, lengths), histogram.Linear(40))
}

func (s *Summary) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sb strings.Builder
	fmt.Fprintf(&sb, "games: %d\n", len(s.lengths))
	for p, w := range s.wins {
		fmt.Fprintf(&sb, "seat %d wins: %d\n", p, w)
	}
	fmt.Fprintf(&sb, "draws: %d\n", s.draws)
	fmt.Fprintf(&sb, "ends: %d game over, %d repetition, %d move limit\n",
		s.ends[EndGameOver], s.ends[EndRepeated], s.ends[EndMoveLimit])
	fmt.Fprintf(&sb, "length: %.2f ± %.2f moves\n", s.length.Mean(), s.length.Stdev())
	return sb.String()
}
