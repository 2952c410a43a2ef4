package nim

import "github.com/domino14/boardbot/game"

// Evaluator uses the nim-sum rule, which is exact for two players and a
// rough guide for more.
type Evaluator struct {
	weights []float64
}

var DefaultWeights = []float64{100, 1}

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
	return append([]float64(nil), e.weights...)
}

func (e *Evaluator) StaticEvaluate(gb game.Board, m game.Move) float64 {
	b := gb.(*Board)
	p := m.Player()
	if b.GameOver() {
		if b.WinForPlayer(p) {
			return game.ValueOfWin - float64(b.moveNum)
		}
		return -game.ValueOfWin + float64(b.moveNum)
	}
	stones := 0
	for _, n := range b.heaps {
		stones += n
	}
	// leaving a zero nim-sum is winning for the mover
	val := -e.weights[0]
	if b.NimSum() == 0 {
		val = e.weights[0]
	}
	return val - e.weights[1]*float64(stones)/100
}
