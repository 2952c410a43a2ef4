package mcts

import (
	"math"
	"sync"
	"sync/atomic"

	"lukechampine.com/frand"

	"github.com/domino14/boardbot/game"
)

type nodeIndex int32

const (
	nilNode   nodeIndex = -1
	chunkSize           = 4096
)

// node is one position in the tree. Everything but the counters and the
// children is fixed before the node is published.
type node struct {
	parent nodeIndex
	move   game.Move
	// player made move; wins are counted for them
	player int

	// visits is negative once the node has been killed.
	visits atomic.Int64
	wins   atomic.Uint64

	biasVisits float64
	biasWins   float64

	expand   sync.Mutex
	children atomic.Pointer[[]nodeIndex]
	terminal atomic.Bool
}

func (n *node) addWins(w float64) {
	for {
		old := n.wins.Load()
		nw := math.Float64bits(math.Float64frombits(old) + w)
		if n.wins.CompareAndSwap(old, nw) {
			return
		}
	}
}

func (n *node) winsTotal() float64 {
	return math.Float64frombits(n.wins.Load())
}

// visit adds a visit unless the node has been killed.
func (n *node) visit() bool {
	for {
		v := n.visits.Load()
		if v < 0 {
			return false
		}
		if n.visits.CompareAndSwap(v, v+1) {
			return true
		}
	}
}

// kill marks the node so it is never selected again.
func (n *node) kill() {
	for {
		v := n.visits.Load()
		if v < 0 {
			return
		}
		nv := -v
		if v == 0 {
			nv = -1
		}
		if n.visits.CompareAndSwap(v, nv) {
			return
		}
	}
}

// winRate is in [-1, 1] from the point of view of the node's player.
func (n *node) winRate() float64 {
	v := n.visits.Load()
	if v < 0 {
		v = -v
	}
	den := n.biasVisits + float64(v)
	if den == 0 {
		return 0
	}
	return (n.winsTotal() + n.biasWins) / den
}

// Tree is an arena of nodes addressed by index. Chunks never move once
// allocated, so a node can be used without holding any lock.
type Tree struct {
	mu     sync.Mutex
	chunks atomic.Pointer[[]*[chunkSize]node]
	next   atomic.Int32
}

func newTree(capacity int) *Tree {
	t := &Tree{}
	n := max(1, (capacity+chunkSize-1)/chunkSize)
	chunks := make([]*[chunkSize]node, n)
	for i := range chunks {
		chunks[i] = new([chunkSize]node)
	}
	t.chunks.Store(&chunks)
	return t
}

func (t *Tree) node(i nodeIndex) *node {
	chunks := *t.chunks.Load()
	return &chunks[int(i)/chunkSize][int(i)%chunkSize]
}

func (t *Tree) alloc(parent nodeIndex, m game.Move, player int) nodeIndex {
	i := t.next.Add(1) - 1
	c := int(i) / chunkSize
	if chunks := *t.chunks.Load(); c >= len(chunks) {
		t.mu.Lock()
		chunks = *t.chunks.Load()
		for len(chunks) <= c {
			chunks = append(chunks[:len(chunks):len(chunks)], new([chunkSize]node))
		}
		t.chunks.Store(&chunks)
		t.mu.Unlock()
	}
	n := t.node(nodeIndex(i))
	n.parent = parent
	n.move = m
	n.player = player
	return nodeIndex(i)
}

// Size is the number of nodes allocated.
func (t *Tree) Size() int {
	return int(t.next.Load())
}

func (t *Tree) children(i nodeIndex) []nodeIndex {
	if p := t.node(i).children.Load(); p != nil {
		return *p
	}
	return nil
}

// uct is the selection value of a visited child.
func uct(wr float64, visits int64, logParent, alpha float64) float64 {
	return wr/2 + 0.5 + alpha*math.Sqrt(logParent/float64(visits+1))
}

// selectChild picks an unvisited child at random if there is one, or else
// the live child with the highest uct. It returns nilNode if every child
// has been killed.
func (t *Tree) selectChild(i nodeIndex, alpha float64, rng *frand.RNG, scratch []nodeIndex) nodeIndex {
	n := t.node(i)
	logParent := math.Log(float64(max(n.visits.Load(), 1)))
	unvisited := scratch[:0]
	best, bestUct := nilNode, math.Inf(-1)
	for _, k := range t.children(i) {
		c := t.node(k)
		v := c.visits.Load()
		switch {
		case v < 0:
		case v == 0:
			unvisited = append(unvisited, k)
		default:
			if u := uct(c.winRate(), v, logParent, alpha); u > bestUct {
				best, bestUct = k, u
			}
		}
	}
	if len(unvisited) > 0 {
		return unvisited[rng.Intn(len(unvisited))]
	}
	return best
}
