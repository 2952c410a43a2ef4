package search

import (
	"math"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/domino14/boardbot/game"
)

const (
	hashEntrySize = 24
	minHashPow    = 10
	maxHashPow    = 20
)

type hashEntry struct {
	digest uint64
	move   game.Move
}

// hashMoves remembers the best move found in each position. It is only
// used for ordering, so collisions cost efficiency, not correctness.
type hashMoves struct {
	table []hashEntry
	mask  uint64
}

func newHashMoves(fractionOfMemory float64) *hashMoves {
	total := memory.TotalMemory()
	want := fractionOfMemory * float64(total) / hashEntrySize
	pow := minHashPow
	if want > 1 {
		pow = min(max(int(math.Log2(want)), minHashPow), maxHashPow)
	}
	log.Debug().Uint64("total-mem", total).Int("entries", 1<<pow).Msg("hash-move-table")
	return &hashMoves{table: make([]hashEntry, 1<<pow), mask: 1<<pow - 1}
}

func (h *hashMoves) store(digest uint64, m game.Move) {
	h.table[digest&h.mask] = hashEntry{digest: digest, move: m}
}

func (h *hashMoves) probe(digest uint64) game.Move {
	e := h.table[digest&h.mask]
	if e.move == nil || e.digest != digest {
		return nil
	}
	return e.move
}

