package search

// MaxPly is the deepest ply the killer ring remembers.
const MaxPly = 64

// killerEntry is the principal variation a completed node left behind for
// its grandchildren, tagged with the clock of the node that owns it.
type killerEntry struct {
	anchor uint64
	best   *Candidate
	moves  []*Candidate
}

// killerRing holds one entry per ply. An entry for ply p is only visible to
// nodes at ply p whose grandparent is the entry's anchor.
type killerRing [MaxPly]killerEntry

// record is called when p has completed and become the principal variation
// of its parent g.
func (r *killerRing) record(g, p *Node) {
	k := p.principalVariation
	if k == nil || k.ply >= MaxPly || k.bestMove == nil {
		return
	}
	r[k.ply] = killerEntry{anchor: g.clock, best: k.bestMove, moves: k.evaluatedMoves()}
}

func (r *killerRing) lookup(ply int, anchor uint64) *killerEntry {
	if ply < 0 || ply >= MaxPly {
		return nil
	}
	e := &r[ply]
	if e.best == nil || e.anchor != anchor {
		return nil
	}
	return e
}

func (r *killerRing) reset() {
	*r = killerRing{}
}
