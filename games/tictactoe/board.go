// Package tictactoe is a small two-player reference game for exercising the
// search engine.
package tictactoe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/zobrist"
)

const (
	Empty   = -1
	squares = 9
	// the tenth zobrist feature records a resignation
	resignFeature = squares
)

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

var (
	ErrOccupied    = errors.New("square is occupied")
	ErrNotYourTurn = errors.New("move is not for the player on turn")
	ErrGameOver    = errors.New("game is over")
)

type moveKind uint8

const (
	place moveKind = iota
	pass
	resign
)

// Move places a mark, passes (null move) or resigns.
type Move struct {
	player int
	square int
	kind   moveKind
}

func NewMove(player, square int) Move { return Move{player: player, square: square} }

func (m Move) Player() int { return m.player }
func (m Move) Square() int { return m.square }
func (m Move) IsNull() bool {
	return m.kind == pass
}
func (m Move) IsResign() bool { return m.kind == resign }

func (m Move) Same(other game.Move) bool {
	o, ok := other.(Move)
	return ok && o == m
}

func (m Move) String() string {
	mark := "XO"[m.player%2 : m.player%2+1]
	switch m.kind {
	case pass:
		return mark + " pass"
	case resign:
		return mark + " resign"
	}
	return fmt.Sprintf("%s@%d", mark, m.square)
}

// Board is a tic-tac-toe position.
type Board struct {
	cells    [squares]int
	turn     int
	moveNum  int
	resigned int
	digest   uint64
	z        *zobrist.Table
}

// NewBoard returns the empty board with X (player 0) to move.
func NewBoard() *Board {
	b := &Board{resigned: Empty, z: zobrist.Get("tictactoe", squares+1, 2)}
	for i := range b.cells {
		b.cells[i] = Empty
	}
	b.digest = b.recompute()
	return b
}

func (b *Board) recompute() uint64 {
	vals := make([]int, squares+1)
	copy(vals, b.cells[:])
	vals[resignFeature] = b.resigned
	return b.z.Hash(vals, b.turn)
}

func (b *Board) Cell(i int) int { return b.cells[i] }

func (b *Board) winner() int {
	if b.resigned != Empty {
		return 1 - b.resigned
	}
	for _, l := range lines {
		c := b.cells[l[0]]
		if c != Empty && c == b.cells[l[1]] && c == b.cells[l[2]] {
			return c
		}
	}
	return Empty
}

func (b *Board) full() bool {
	for _, c := range b.cells {
		if c == Empty {
			return false
		}
	}
	return true
}

func (b *Board) LegalMoves() []game.Move {
	if b.GameOver() {
		return nil
	}
	moves := make([]game.Move, 0, squares)
	for i, c := range b.cells {
		if c == Empty {
			moves = append(moves, Move{player: b.turn, square: i})
		}
	}
	return moves
}

func (b *Board) MakeMove(gm game.Move) error {
	m, ok := gm.(Move)
	if !ok {
		return fmt.Errorf("not a tictactoe move: %v", gm)
	}
	if m.player != b.turn {
		return ErrNotYourTurn
	}
	switch m.kind {
	case pass:
	case resign:
		b.digest = b.z.Toggle(b.digest, resignFeature, m.player)
		b.resigned = m.player
	default:
		if b.GameOver() {
			return ErrGameOver
		}
		if b.cells[m.square] != Empty {
			return ErrOccupied
		}
		b.cells[m.square] = m.player
		b.digest = b.z.Toggle(b.digest, m.square, m.player)
	}
	b.digest = b.z.Turn(b.digest, b.turn, 1-b.turn)
	b.turn = 1 - b.turn
	b.moveNum++
	return nil
}

func (b *Board) UnmakeMove(gm game.Move) {
	m := gm.(Move)
	b.turn = m.player
	b.moveNum--
	b.digest = b.z.Turn(b.digest, 1-m.player, m.player)
	switch m.kind {
	case pass:
	case resign:
		b.resigned = Empty
		b.digest = b.z.Toggle(b.digest, resignFeature, m.player)
	default:
		b.cells[m.square] = Empty
		b.digest = b.z.Toggle(b.digest, m.square, m.player)
	}
}

func (b *Board) GameOver() bool { return b.winner() != Empty || b.full() }
func (b *Board) Digest() uint64 { return b.digest }
func (b *Board) WhoseTurn() int { return b.turn }
func (b *Board) NumPlayers() int { return 2 }
func (b *Board) MoveNumber() int { return b.moveNum }

func (b *Board) Clone() game.Board {
	c := *b
	return &c
}

// WinForPlayer implements game.Outcome.
func (b *Board) WinForPlayer(p int) bool { return b.winner() == p }

// NullMove implements game.NullMover.
func (b *Board) NullMove() game.Move { return Move{player: b.turn, kind: pass} }

// ResignMove implements game.Resigner.
func (b *Board) ResignMove(player int) game.Move { return Move{player: player, kind: resign} }

// SameBoard implements game.SameBoarder.
func (b *Board) SameBoard(other game.Board) error {
	o, ok := other.(*Board)
	if !ok {
		return fmt.Errorf("not a tictactoe board: %T", other)
	}
	switch {
	case b.cells != o.cells:
		return fmt.Errorf("cells differ: %v vs %v", b.cells, o.cells)
	case b.turn != o.turn:
		return fmt.Errorf("turn differs: %d vs %d", b.turn, o.turn)
	case b.moveNum != o.moveNum:
		return fmt.Errorf("move number differs: %d vs %d", b.moveNum, o.moveNum)
	case b.resigned != o.resigned:
		return fmt.Errorf("resigned differs: %d vs %d", b.resigned, o.resigned)
	case b.digest != o.digest:
		return fmt.Errorf("digest differs: %x vs %x", b.digest, o.digest)
	}
	return nil
}

// Set places marks from a 9-character string of 'X', 'O' and '.', and sets
// the side to move. Used to build test positions.
func (b *Board) Set(pos string, onTurn int) error {
	if len(pos) != squares {
		return fmt.Errorf("position must have %d squares", squares)
	}
	n := 0
	for i, ch := range pos {
		switch ch {
		case 'X', 'x':
			b.cells[i] = 0
			n++
		case 'O', 'o':
			b.cells[i] = 1
			n++
		case '.':
			b.cells[i] = Empty
		default:
			return fmt.Errorf("bad square %q", ch)
		}
	}
	b.turn = onTurn
	b.moveNum = n
	b.resigned = Empty
	b.digest = b.recompute()
	return nil
}

func (b *Board) String() string {
	var sb strings.Builder
	for i, c := range b.cells {
		switch c {
		case 0:
			sb.WriteByte('X')
		case 1:
			sb.WriteByte('O')
		default:
			sb.WriteByte('.')
		}
		if i%3 == 2 {
			sb.WriteByte('\n')
		}
	}
	fmt.Fprintf(&sb, "%s to move\n", "XO"[b.turn:b.turn+1])
	return sb.String()
}
