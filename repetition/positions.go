// Package repetition counts how often positions recur, for draw detection.
package repetition

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/domino14/boardbot/game"
)

// DefaultLimit is the number of occurrences that makes a repetition draw.
const DefaultLimit = 3

// Positions is a digest -> occurrence count table (RepeatedPositions).
// Readers may run concurrently with each other; writes are exclusive.
type Positions struct {
	mu     sync.RWMutex
	counts map[uint64]int
	limit  int
}

func New(limit int) *Positions {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Positions{counts: make(map[uint64]int), limit: limit}
}

func (p *Positions) Limit() int { return p.limit }

// Add records one more occurrence of digest, reached by m, and returns the
// new count.
func (p *Positions) Add(digest uint64, m game.Move) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[digest]++
	n := p.counts[digest]
	if n > 1 {
		log.Debug().Uint64("digest", digest).Int("count", n).Stringer("move", m).Msg("repeated-position")
	}
	return n
}

// Remove undoes one Add of digest.
func (p *Positions) Remove(digest uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch n := p.counts[digest]; {
	case n > 1:
		p.counts[digest] = n - 1
	case n == 1:
		delete(p.counts, digest)
	}
}

func (p *Positions) Count(digest uint64) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counts[digest]
}

// WouldRepeat is true if one more occurrence of digest reaches the limit.
func (p *Positions) WouldRepeat(digest uint64) bool {
	return p.Count(digest)+1 >= p.limit
}

// CheckForRepetition records the position b reached after m and reports
// whether it has now occurred limit times.
func (p *Positions) CheckForRepetition(b game.Board, m game.Move) bool {
	return p.Add(b.Digest(), m) >= p.limit
}

// Len is the number of distinct positions recorded.
func (p *Positions) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.counts)
}

// Clone copies the table, so a search can consult a snapshot while the game
// goes on.
func (p *Positions) Clone() *Positions {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c := &Positions{counts: make(map[uint64]int, len(p.counts)), limit: p.limit}
	for k, v := range p.counts {
		c.counts[k] = v
	}
	return c
}

// Reset forgets every position.
func (p *Positions) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.counts)
}
