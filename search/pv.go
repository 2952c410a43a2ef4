package search

import (
	"fmt"
	"strings"
)

// PVLine is the principal variation: the best move and the best play
// after it.
type PVLine struct {
	Moves []*Candidate
	Value float64
}

// PVMove is the first move of the line, or nil.
func (pv *PVLine) PVMove() *Candidate {
	if len(pv.Moves) == 0 {
		return nil
	}
	return pv.Moves[0]
}

func newPVLine(best *Candidate, value float64) PVLine {
	pv := PVLine{Value: value}
	if best != nil {
		pv.Moves = best.Line()
	}
	return pv
}

func (pv PVLine) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PV; val %.2f\n", pv.Value)
	for i, m := range pv.Moves {
		fmt.Fprintf(&sb, "%d: %v (%.2f)\n", i+1, m.Move, m.Evaluation)
	}
	return sb.String()
}

// NLBString is String without line breaks.
func (pv PVLine) NLBString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PV; val %.2f; ", pv.Value)
	for i, m := range pv.Moves {
		fmt.Fprintf(&sb, "%d: %v (%.2f); ", i+1, m.Move, m.Evaluation)
	}
	return sb.String()
}
