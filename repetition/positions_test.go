package repetition

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/boardbot/games/tictactoe"
)

func TestCheckForRepetition(t *testing.T) {
	is := is.New(t)
	p := New(0)
	is.Equal(p.Limit(), DefaultLimit)

	b := tictactoe.NewBoard()
	// shuffling the turn back and forth with passes repeats the position
	var repeated bool
	for i := 0; i < 6 && !repeated; i++ {
		m := b.NullMove()
		is.NoErr(b.MakeMove(m))
		repeated = p.CheckForRepetition(b, m)
	}
	is.True(repeated)
	is.Equal(p.Count(b.Digest()), 3)
}

func TestAddRemove(t *testing.T) {
	is := is.New(t)
	p := New(2)
	m := tictactoe.NewMove(0, 4)
	is.Equal(p.Add(7, m), 1)
	is.True(p.WouldRepeat(7))
	is.True(!p.WouldRepeat(8))
	c := p.Clone()
	is.Equal(p.Add(7, m), 2)
	p.Remove(7)
	p.Remove(7)
	is.Equal(p.Count(7), 0)
	is.Equal(p.Len(), 0)
	is.Equal(c.Count(7), 1)
	c.Reset()
	is.Equal(c.Len(), 0)
}
