package selfplay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/games/nim"
	"github.com/domino14/boardbot/games/tictactoe"
	"github.com/domino14/boardbot/robot"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func ticTacToeRunner(depth int) GameRunner {
	opts := []robot.Option{robot.WithDepth(depth)}
	return GameRunner{
		NewBoard:     func() (game.Board, error) { return tictactoe.NewBoard(), nil },
		NewEvaluator: func() game.Evaluator { return tictactoe.NewEvaluator() },
		Players:      []Player{{Name: "x", Options: opts}, {Name: "o", Options: opts}},
	}
}

func TestSeedsRoundTrip(t *testing.T) {
	is := is.New(t)
	seeds := GenerateSeeds(5)
	path := filepath.Join(t.TempDir(), "seeds.txt")
	is.NoErr(SaveSeeds(seeds, path))
	back, err := LoadSeeds(path)
	is.NoErr(err)
	is.Equal(back, seeds)

	s, err := ParseSeed(seeds[0].String())
	is.NoErr(err)
	is.Equal(s, seeds[0])
	_, err = ParseSeed("c2hvcnQ")
	is.True(err != nil)
	_, err = ParseSeed("not base64!")
	is.True(err != nil)

	is.True(seeds[0].Derive(1) != seeds[0].Derive(2))
	is.Equal(seeds[0].Derive(3), seeds[0].Derive(3))
}

func TestRandomGameIsReproducible(t *testing.T) {
	is := is.New(t)
	r := ticTacToeRunner(1)
	r.RandomOpening = 9
	seed := GenerateSeeds(1)[0]
	a, err := r.PlayGame(context.Background(), seed)
	is.NoErr(err)
	b, err := r.PlayGame(context.Background(), seed)
	is.NoErr(err)
	is.Equal(len(a.Moves), len(b.Moves))
	for i := range a.Moves {
		is.True(a.Moves[i].Same(b.Moves[i]))
	}
	is.Equal(a.Winner, b.Winner)
	is.Equal(a.End, EndGameOver)
}

func TestRobotGame(t *testing.T) {
	is := is.New(t)
	r := ticTacToeRunner(4)
	turns := make(chan Turn, 9)
	r.Turns = turns
	rec, err := r.PlayGame(context.Background(), GenerateSeeds(1)[0])
	is.NoErr(err)
	is.Equal(rec.End, EndGameOver)
	is.True(len(rec.Moves) >= 5 && len(rec.Moves) <= 9)
	is.Equal(len(turns), len(rec.Moves))
	first := <-turns
	is.Equal(first.Number, 1)
	is.Equal(first.Player, 0)
	is.True(!first.Random)
	is.True(rec.Winner >= game.NoPlayer && rec.Winner <= 1)
	switch rec.Winner {
	case game.NoPlayer:
		is.Equal(rec.ResultFor(0), Draw)
	default:
		is.Equal(rec.ResultFor(rec.Winner), Win)
		is.Equal(rec.ResultFor(1-rec.Winner), Loss)
	}
}

func TestMoveLimit(t *testing.T) {
	is := is.New(t)
	opts := []robot.Option{robot.WithDepth(2)}
	r := GameRunner{
		NewBoard:     func() (game.Board, error) { return nim.NewBoard(3, 4, 5, 6) },
		NewEvaluator: func() game.Evaluator { return nim.NewEvaluator() },
		Players:      []Player{{Options: opts}, {Options: opts}, {Options: opts}},
		MaxMoves:     2,
	}
	rec, err := r.PlayGame(context.Background(), GenerateSeeds(1)[0])
	is.NoErr(err)
	is.Equal(rec.End, EndMoveLimit)
	is.Equal(len(rec.Moves), 2)
	is.Equal(rec.Winner, game.NoPlayer)

	r.Players = r.Players[:2]
	_, err = r.PlayGame(context.Background(), GenerateSeeds(1)[0])
	is.True(err != nil)
}

// shuttle is a token on three squares that the players push back and
// forth forever.
type shuttle struct {
	pos, turn, moves int
}

type push struct{ player, dir int }

func (m push) Player() int               { return m.player }
func (m push) Same(other game.Move) bool { return other == game.Move(m) }
func (m push) String() string            { return fmt.Sprintf("%+d", m.dir) }

func (s *shuttle) LegalMoves() []game.Move {
	var moves []game.Move
	if s.pos > 0 {
		moves = append(moves, push{s.turn, -1})
	}
	if s.pos < 2 {
		moves = append(moves, push{s.turn, 1})
	}
	return moves
}

func (s *shuttle) MakeMove(m game.Move) error {
	s.pos += m.(push).dir
	s.turn = 1 - s.turn
	s.moves++
	return nil
}

func (s *shuttle) UnmakeMove(m game.Move) {
	s.pos -= m.(push).dir
	s.turn = 1 - s.turn
	s.moves--
}

func (s *shuttle) GameOver() bool  { return false }
func (s *shuttle) Digest() uint64  { return uint64(s.pos*2 + s.turn + 1) }
func (s *shuttle) WhoseTurn() int  { return s.turn }
func (s *shuttle) NumPlayers() int { return 2 }
func (s *shuttle) MoveNumber() int { return s.moves }

func (s *shuttle) Clone() game.Board {
	c := *s
	return &c
}

type flatEvaluator struct{}

func (flatEvaluator) StaticEvaluate(game.Board, game.Move) float64 { return 0 }
func (flatEvaluator) SetWeights([]float64)                         {}
func (flatEvaluator) Weights() []float64                           { return nil }

func TestRepetitionEndsGame(t *testing.T) {
	is := is.New(t)
	r := GameRunner{
		NewBoard:      func() (game.Board, error) { return &shuttle{}, nil },
		NewEvaluator:  func() game.Evaluator { return flatEvaluator{} },
		Players:       []Player{{}, {}},
		RandomOpening: 1000,
		MaxMoves:      100,
	}
	rec, err := r.PlayGame(context.Background(), GenerateSeeds(1)[0])
	is.NoErr(err)
	is.Equal(rec.End, EndRepeated)
	is.Equal(rec.ResultFor(0), Draw)
	// six positions, each allowed twice before the third
	is.True(len(rec.Moves) <= 13)
}

func TestPool(t *testing.T) {
	is := is.New(t)
	rng := GenerateSeeds(1)[0].RNG()
	p := NewPool([]float64{1, 10}, 3, 0.2, rng)
	is.Equal(p.Len(), 3)
	for _, m := range p.Mutants {
		is.True(m.Weights[1] >= 8 && m.Weights[1] <= 12)
	}

	m, err := p.LeastUsed()
	is.NoErr(err)
	is.Equal(m.Name, "m000")
	is.NoErr(p.Update("m000", Win))
	is.NoErr(p.Update("m000", Draw))
	is.NoErr(p.Update("m001", Loss))
	is.True(p.Update("nobody", Win) != nil)
	m, err = p.LeastUsed()
	is.NoErr(err)
	is.Equal(m.Name, "m002")
	is.Equal(p.Ranked()[0].Name, "m000")
	is.Equal(p.Mutants[0].Score(), 0.75)

	low, high := p.Mutants[0].Confidence(95)
	is.True(low >= 0 && low <= 0.75 && high >= 0.75 && high <= 1)

	path := filepath.Join(t.TempDir(), "mutants.yaml")
	is.NoErr(p.Save(path))
	back, err := LoadPool(path)
	is.NoErr(err)
	is.Equal(back.Len(), 3)
	is.Equal(back.Mutants[0].Wins, 1)
	is.Equal(back.Mutants[0].Weights, p.Mutants[0].Weights)

	worst, ok := p.RemoveLowest(1)
	is.True(ok)
	is.Equal(worst.Name, "m001")
	is.Equal(p.Len(), 2)
	_, ok = p.RemoveLowest(5)
	is.True(!ok)

	empty := &Pool{}
	_, err = empty.LeastUsed()
	is.True(errors.Is(err, ErrEmptyPool))
}

func TestTournament(t *testing.T) {
	is := is.New(t)
	runner := ticTacToeRunner(2)
	runner.RandomOpening = 2
	pool := NewPool(tictactoe.DefaultWeights, 3, 0.5, GenerateSeeds(1)[0].RNG())
	tour := &Tournament{Runner: runner, Pool: pool, Games: 6, Threads: 2, Seed: GenerateSeeds(1)[0]}
	sum, err := tour.Run(context.Background())
	is.NoErr(err)
	is.Equal(sum.Games(), 6)
	wins := sum.Wins()
	is.Equal(wins[0]+wins[1]+sum.Draws(), 6)
	is.Equal(sum.Ends(EndGameOver), 6)
	played := 0
	for _, m := range pool.Mutants {
		played += m.Games()
	}
	is.Equal(played, 6)

	var buf bytes.Buffer
	is.NoErr(sum.Histogram(&buf))
	is.True(buf.Len() > 0)
	is.True(len(sum.String()) > 0)
	is.Equal(Playing.Value(), int64(0))
}

func TestTournamentCancelled(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tour := &Tournament{Runner: ticTacToeRunner(2), Games: 50, Threads: 2}
	sum, err := tour.Run(ctx)
	is.True(errors.Is(err, context.Canceled))
	is.True(sum.Games() < 50)
}
