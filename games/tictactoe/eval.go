package tictactoe

import (
	"github.com/domino14/boardbot/game"
)

// DefaultWeights score a line holding one or two of a player's marks and
// none of the opponent's.
var DefaultWeights = []float64{1, 10}

// Evaluator scores open lines. Wins are worth game.ValueOfWin less the move
// number, so quicker wins rank higher.
type Evaluator struct {
	weights []float64
}

func NewEvaluator() *Evaluator {
	e := &Evaluator{}
	e.SetWeights(DefaultWeights)
	return e
}

func (e *Evaluator) SetWeights(w []float64) {
	e.weights = make([]float64, len(DefaultWeights))
	copy(e.weights, w)
}

func (e *Evaluator) Weights() []float64 {
	w := make([]float64, len(e.weights))
	copy(w, e.weights)
	return w
}

func (e *Evaluator) StaticEvaluate(gb game.Board, m game.Move) float64 {
	b := gb.(*Board)
	p := m.Player()
	switch w := b.winner(); {
	case w == p:
		return game.ValueOfWin - float64(b.moveNum)
	case w != Empty:
		return -game.ValueOfWin + float64(b.moveNum)
	case b.full():
		return 0
	}
	val := 0.0
	for _, l := range lines {
		mine, theirs := 0, 0
		for _, sq := range l {
			switch b.cells[sq] {
			case p:
				mine++
			case Empty:
			default:
				theirs++
			}
		}
		switch {
		case theirs == 0 && mine > 0:
			val += e.weights[mine-1]
		case mine == 0 && theirs > 0:
			val -= e.weights[theirs-1]
		}
	}
	return val
}
