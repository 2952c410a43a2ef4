package search

import (
	"fmt"
	"math"
	"slices"

	"github.com/domino14/boardbot/game"
)

// Stop records why a node quit searching its moves.
type Stop int

const (
	DontStop Stop = iota
	AlphaCutoff
	GoodEnough
)

func (s Stop) String() string {
	switch s {
	case DontStop:
		return "none"
	case AlphaCutoff:
		return "alpha-beta"
	case GoodEnough:
		return "good-enough"
	}
	return fmt.Sprintf("stop(%d)", int(s))
}

// Node is one level of the search stack: the moves available in one
// position and how far they have been searched.
type Node struct {
	d           *Driver
	predecessor *Node
	successor   *Node

	moves         []*Candidate
	prepared      bool
	nextMoveIndex int
	numberOfMoves int

	bestMove      *Candidate
	bestValue     float64
	bestMoveIndex int

	// iCanGet is the value the side to move here is already assured of;
	// heCanGet is the same for the other side.
	iCanGet  float64
	heCanGet float64

	principalVariation *Node
	currentMove        *Candidate
	rootMove           *Candidate
	stop               Stop

	allTerminals  bool
	someTerminals bool
	theNullMove   *Candidate

	ply    int
	clock  uint64
	digest uint64
}

func newNode(d *Driver, pred *Node, root *Candidate) *Node {
	d.nodeClock++
	n := &Node{
		d:             d,
		predecessor:   pred,
		rootMove:      root,
		bestMoveIndex: -1,
		bestValue:     math.Inf(-1),
		iCanGet:       math.Inf(-1),
		heCanGet:      math.Inf(-1),
		clock:         d.nodeClock,
	}
	if pred != nil {
		n.ply = pred.ply + 1
	}
	return n
}

// inheritBounds copies the window from the parent, swapping sides if the
// player on turn changed.
func (n *Node) inheritBounds(toMove int) {
	pred := n.predecessor
	if pred == nil {
		return
	}
	if toMove != n.rootMove.Player {
		n.iCanGet = pred.heCanGet
		n.heCanGet = pred.iCanGet
	} else {
		n.iCanGet = pred.iCanGet
		n.heCanGet = pred.heCanGet
	}
}

func (n *Node) Ply() int                { return n.ply }
func (n *Node) Stop() Stop              { return n.stop }
func (n *Node) BestMove() *Candidate    { return n.bestMove }
func (n *Node) BestValue() float64      { return n.bestValue }
func (n *Node) Predecessor() *Node      { return n.predecessor }
func (n *Node) RootMove() *Candidate    { return n.rootMove }
func (n *Node) AllTerminals() bool      { return n.allTerminals }
func (n *Node) CurrentMove() *Candidate { return n.currentMove }

// Moves generates, evaluates and sorts the moves of the position on the
// driver's board. It only does the work once.
func (n *Node) Moves() ([]*Candidate, error) {
	if n.prepared {
		return n.moves[:n.numberOfMoves], nil
	}
	n.prepared = true
	b := n.d.board
	n.digest = b.Digest()
	if !b.GameOver() {
		legal := b.LegalMoves()
		moves := make([]*Candidate, 0, len(legal)+1)
		if len(legal) > 0 && n.wantsNullMove(b) {
			c, err := NewCandidate(b.(game.NullMover).NullMove())
			if err != nil {
				return nil, err
			}
			c.Null = true
			moves = append(moves, c)
			n.theNullMove = c
		}
		for _, m := range legal {
			c, err := NewCandidate(m)
			if err != nil {
				return nil, err
			}
			moves = append(moves, c)
		}
		if len(legal) > 0 {
			count, err := n.d.orderer().EvaluateAndSortMoves(n, moves)
			if err != nil {
				return nil, err
			}
			n.moves = moves
			n.numberOfMoves = count
		}
	}
	if n.numberOfMoves == 0 && n.rootMove != nil {
		n.bestValue = -n.rootMove.Evaluation
	}
	for _, c := range n.moves[:n.numberOfMoves] {
		if !c.Null {
			n.bestMove = c
			n.bestValue = c.Evaluation
			break
		}
	}
	return n.moves[:n.numberOfMoves], nil
}

func (n *Node) wantsNullMove(b game.Board) bool {
	cfg := &n.d.cfg
	if !cfg.NullMove || n.ply >= cfg.NullMoveSearchLevel {
		return false
	}
	if _, ok := b.(game.NullMover); !ok {
		return false
	}
	if n.rootMove == nil {
		// paranoid rescoring makes a root pass meaningless past two players
		return b.NumPlayers() <= 2
	}
	return !n.rootMove.Null && n.rootMove.Player != b.WhoseTurn()
}

// NextCandidateMove returns the next move to search, or nil when the node
// is exhausted.
func (n *Node) NextCandidateMove() (*Candidate, error) {
	if _, err := n.Moves(); err != nil {
		return nil, err
	}
	if n.nextMoveIndex >= n.numberOfMoves {
		n.currentMove = nil
		return nil, nil
	}
	c := n.moves[n.nextMoveIndex]
	n.nextMoveIndex++
	n.currentMove = c
	return c, nil
}

// evaluatedMoves are the moves whose evaluations mean something: every
// move if they were all terminal, otherwise the ones already searched.
func (n *Node) evaluatedMoves() []*Candidate {
	if n.allTerminals {
		return n.moves[:n.numberOfMoves]
	}
	return n.moves[:n.nextMoveIndex]
}

func (n *Node) killer() *killerEntry {
	if n.predecessor == nil || n.predecessor.predecessor == nil {
		return nil
	}
	return n.d.killers.lookup(n.ply, n.predecessor.predecessor.clock)
}

// KillerBestMove is the best move of the cousin position searched under
// the same grandparent, if any.
func (n *Node) KillerBestMove() *Candidate {
	if e := n.killer(); e != nil {
		return e.best
	}
	return nil
}

// KillerEvaluateMove finds c among the moves of the cousin position.
func (n *Node) KillerEvaluateMove(c *Candidate) *Candidate {
	e := n.killer()
	if e == nil {
		return nil
	}
	for _, k := range e.moves {
		if k.Player == c.Player && k.Same(c) {
			return k
		}
	}
	return nil
}

// Presort reorders the moves to follow old, the same position searched in
// the previous pass: moves old had evaluated keep old's order ahead of the
// rest, and old's best move goes first.
func (n *Node) Presort(old *Node) {
	if old == nil || n.numberOfMoves == 0 {
		return
	}
	moves := n.moves[:n.numberOfMoves]
	if moves[0].Null {
		moves = moves[1:]
	}
	prev := old.evaluatedMoves()
	rank := make(map[*Candidate]int, len(moves))
	for _, c := range moves {
		rank[c] = len(prev)
		for i, o := range prev {
			if !o.Null && o.Same(c) {
				rank[c] = i
				break
			}
		}
	}
	slices.SortStableFunc(moves, func(a, b *Candidate) int {
		return rank[a] - rank[b]
	})
	if old.bestMove != nil {
		for i, c := range moves {
			if c.Same(old.bestMove) {
				copy(moves[1:i+1], moves[:i])
				moves[0] = c
				break
			}
		}
	}
	if len(moves) > 0 {
		n.bestMove = moves[0]
		n.bestValue = moves[0].Evaluation
	}
}

// PercentDone estimates how much of this node's subtree has been searched.
func (n *Node) PercentDone() float64 {
	if n.numberOfMoves == 0 {
		return 0
	}
	done := float64(max(n.nextMoveIndex-1, 0))
	if n.successor != nil {
		done += n.successor.PercentDone()
	}
	return done / float64(n.numberOfMoves)
}
