package nim

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"lukechampine.com/frand"
)

func TestDigestRoundTrip(t *testing.T) {
	is := is.New(t)
	rng := frand.NewCustom(make([]byte, 32), 1024, 12)
	for _, players := range []int{2, 3} {
		b, err := NewBoard(players, 3, 4, 5)
		is.NoErr(err)
		for !b.GameOver() {
			before := b.Digest()
			clone := b.Clone()
			for _, m := range b.LegalMoves() {
				is.NoErr(b.MakeMove(m))
				b.UnmakeMove(m)
				is.Equal(b.Digest(), before)
				is.NoErr(b.SameBoard(clone))
			}
			m := b.RandomMove(rng)
			is.True(m != nil)
			is.NoErr(b.MakeMove(m))
		}
		is.True(b.RandomMove(rng) == nil)
	}
}

func TestWinner(t *testing.T) {
	is := is.New(t)
	b, err := NewBoard(3, 1, 1)
	is.NoErr(err)
	is.NoErr(b.MakeMove(NewMove(0, 0, 1)))
	is.NoErr(b.MakeMove(NewMove(1, 1, 1)))
	is.True(b.GameOver())
	is.True(b.WinForPlayer(1))
	is.True(!b.WinForPlayer(0))
	is.Equal(b.WhoseTurn(), 2)
}

func TestBadMoves(t *testing.T) {
	is := is.New(t)
	b, err := NewBoard(2, 2)
	is.NoErr(err)
	is.True(errors.Is(b.MakeMove(NewMove(0, 0, 3)), ErrBadMove))
	is.True(errors.Is(b.MakeMove(NewMove(1, 0, 1)), ErrNotYourTurn))
	_, err = NewBoard(1, 3)
	is.True(err != nil)
}

func TestEvaluatorPrefersZeroNimSum(t *testing.T) {
	is := is.New(t)
	b, err := NewBoard(2, 1, 2)
	is.NoErr(err)
	ev := NewEvaluator()
	good := NewMove(0, 1, 1) // leaves 1,1
	bad := NewMove(0, 1, 2)  // leaves 1,0
	is.NoErr(b.MakeMove(good))
	g := ev.StaticEvaluate(b, good)
	b.UnmakeMove(good)
	is.NoErr(b.MakeMove(bad))
	bd := ev.StaticEvaluate(b, bad)
	b.UnmakeMove(bad)
	is.True(g > bd)
}
