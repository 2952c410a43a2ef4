// Package nim is a reference game for two or more players: players take
// turns removing stones from one heap, and whoever takes the last stone
// wins.
package nim

import (
	"errors"
	"fmt"
	"strings"

	"lukechampine.com/frand"

	"github.com/domino14/boardbot/game"
	"github.com/domino14/boardbot/zobrist"
)

var (
	ErrBadMove     = errors.New("illegal nim move")
	ErrNotYourTurn = errors.New("move is not for the player on turn")
)

// Move takes Count stones from Heap.
type Move struct {
	player int
	Heap   int
	Count  int
}

func NewMove(player, heap, count int) Move {
	return Move{player: player, Heap: heap, Count: count}
}

func (m Move) Player() int { return m.player }

func (m Move) Same(other game.Move) bool {
	o, ok := other.(Move)
	return ok && o == m
}

func (m Move) String() string {
	return fmt.Sprintf("p%d take %d from heap %d", m.player+1, m.Count, m.Heap)
}

// Board is a nim position.
type Board struct {
	heaps   []int
	players int
	turn    int
	moveNum int
	digest  uint64
	z       *zobrist.Table
}

// NewBoard returns a game with the given heap sizes among players players.
func NewBoard(players int, heaps ...int) (*Board, error) {
	if players < 2 || players > zobrist.MaxPlayers {
		return nil, fmt.Errorf("nim needs between 2 and %d players", zobrist.MaxPlayers)
	}
	if len(heaps) == 0 {
		return nil, errors.New("nim needs at least one heap")
	}
	largest := 0
	for _, h := range heaps {
		if h < 0 {
			return nil, errors.New("heap sizes must not be negative")
		}
		largest = max(largest, h)
	}
	b := &Board{
		heaps:   append([]int(nil), heaps...),
		players: players,
		z:       zobrist.Get("nim", len(heaps), largest+1),
	}
	b.digest = b.z.Hash(b.heaps, 0)
	return b, nil
}

func (b *Board) Heaps() []int { return append([]int(nil), b.heaps...) }

func (b *Board) LegalMoves() []game.Move {
	var moves []game.Move
	for h, n := range b.heaps {
		for c := n; c >= 1; c-- {
			moves = append(moves, Move{player: b.turn, Heap: h, Count: c})
		}
	}
	return moves
}

// RandomMove implements game.Randomizer.
func (b *Board) RandomMove(rng *frand.RNG) game.Move {
	total := 0
	for _, n := range b.heaps {
		total += n
	}
	if total == 0 {
		return nil
	}
	// pick a stone uniformly, then a count within its heap
	s := rng.Intn(total)
	for h, n := range b.heaps {
		if s < n {
			return Move{player: b.turn, Heap: h, Count: rng.Intn(n) + 1}
		}
		s -= n
	}
	return nil
}

func (b *Board) next(p int) int { return (p + 1) % b.players }

func (b *Board) MakeMove(gm game.Move) error {
	m, ok := gm.(Move)
	if !ok {
		return fmt.Errorf("not a nim move: %v", gm)
	}
	if m.player != b.turn {
		return ErrNotYourTurn
	}
	if m.Heap < 0 || m.Heap >= len(b.heaps) || m.Count < 1 || m.Count > b.heaps[m.Heap] {
		return fmt.Errorf("%w: %v", ErrBadMove, m)
	}
	old := b.heaps[m.Heap]
	b.heaps[m.Heap] -= m.Count
	b.digest = b.z.Toggle(b.z.Toggle(b.digest, m.Heap, old), m.Heap, b.heaps[m.Heap])
	b.digest = b.z.Turn(b.digest, b.turn, b.next(b.turn))
	b.turn = b.next(b.turn)
	b.moveNum++
	return nil
}

func (b *Board) UnmakeMove(gm game.Move) {
	m := gm.(Move)
	cur := b.heaps[m.Heap]
	b.heaps[m.Heap] += m.Count
	b.digest = b.z.Toggle(b.z.Toggle(b.digest, m.Heap, cur), m.Heap, b.heaps[m.Heap])
	b.digest = b.z.Turn(b.digest, b.turn, m.player)
	b.turn = m.player
	b.moveNum--
}

func (b *Board) GameOver() bool {
	for _, n := range b.heaps {
		if n > 0 {
			return false
		}
	}
	return true
}

func (b *Board) lastMover() int { return (b.turn - 1 + b.players) % b.players }

// WinForPlayer implements game.Outcome.
func (b *Board) WinForPlayer(p int) bool {
	return b.moveNum > 0 && b.GameOver() && b.lastMover() == p
}

func (b *Board) Digest() uint64 { return b.digest }
func (b *Board) WhoseTurn() int { return b.turn }
func (b *Board) NumPlayers() int { return b.players }
func (b *Board) MoveNumber() int { return b.moveNum }

func (b *Board) Clone() game.Board {
	c := *b
	c.heaps = append([]int(nil), b.heaps...)
	return &c
}

// SameBoard implements game.SameBoarder.
func (b *Board) SameBoard(other game.Board) error {
	o, ok := other.(*Board)
	if !ok {
		return fmt.Errorf("not a nim board: %T", other)
	}
	if len(o.heaps) != len(b.heaps) {
		return fmt.Errorf("heap count differs: %d vs %d", len(b.heaps), len(o.heaps))
	}
	for i := range b.heaps {
		if b.heaps[i] != o.heaps[i] {
			return fmt.Errorf("heap %d differs: %d vs %d", i, b.heaps[i], o.heaps[i])
		}
	}
	if b.turn != o.turn || b.moveNum != o.moveNum {
		return fmt.Errorf("turn/move number differ: %d/%d vs %d/%d", b.turn, b.moveNum, o.turn, o.moveNum)
	}
	if b.digest != o.digest {
		return fmt.Errorf("digest differs: %x vs %x", b.digest, o.digest)
	}
	return nil
}

// NimSum is the xor of the heap sizes.
func (b *Board) NimSum() int {
	s := 0
	for _, n := range b.heaps {
		s ^= n
	}
	return s
}

func (b *Board) String() string {
	var sb strings.Builder
	for i, n := range b.heaps {
		fmt.Fprintf(&sb, "%d: %s (%d)\n", i, strings.Repeat("o", n), n)
	}
	fmt.Fprintf(&sb, "player %d to move\n", b.turn+1)
	return sb.String()
}
