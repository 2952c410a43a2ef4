package search

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/domino14/boardbot/stats"
)

// Report counts what one search did.
type Report struct {
	SearchClock        int
	EvalClock          int
	Evaluations        int
	AlphaBetaCutoffs   int
	AlphaBetaCost      int
	GoodEnoughCutoffs  int
	StaticEvalSkips    int
	Killers            int
	NullMovePromotions int
	HashMoveHits       int
	Elapsed            time.Duration
	Passes             int
	Aborted            bool
}

func (r Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d nodes, %d evals in %s (%d passes)", r.SearchClock, r.EvalClock, r.Elapsed.Round(time.Millisecond), r.Passes)
	if r.AlphaBetaCutoffs > 0 {
		fmt.Fprintf(&sb, ", cutoffs %d (cost %.1f)", r.AlphaBetaCutoffs, float64(r.AlphaBetaCost)/float64(r.AlphaBetaCutoffs))
	}
	if r.GoodEnoughCutoffs > 0 {
		fmt.Fprintf(&sb, ", good enough %d", r.GoodEnoughCutoffs)
	}
	if r.Killers > 0 {
		fmt.Fprintf(&sb, ", killers %d", r.Killers)
	}
	if r.NullMovePromotions > 0 {
		fmt.Fprintf(&sb, ", null promotions %d", r.NullMovePromotions)
	}
	if r.StaticEvalSkips > 0 {
		pc := r.StaticEvalSkips * 100 / (r.StaticEvalSkips + r.Evaluations + 1)
		fmt.Fprintf(&sb, ", skipped evals %d%%", pc)
	}
	if r.Aborted {
		sb.WriteString(", last pass aborted")
	}
	return sb.String()
}

// Summary accumulates the reports of many searches.
type Summary struct {
	mu       sync.Mutex
	total    Report
	searches int
	nodes    stats.Statistic
	elapsed  stats.Statistic
}

func (s *Summary) Add(r Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	t := &s.total
	t.SearchClock += r.SearchClock
	t.EvalClock += r.EvalClock
	t.Evaluations += r.Evaluations
	t.AlphaBetaCutoffs += r.AlphaBetaCutoffs
	t.AlphaBetaCost += r.AlphaBetaCost
	t.GoodEnoughCutoffs += r.GoodEnoughCutoffs
	t.StaticEvalSkips += r.StaticEvalSkips
	t.Killers += r.Killers
	t.NullMovePromotions += r.NullMovePromotions
	t.HashMoveHits += r.HashMoveHits
	t.Elapsed += r.Elapsed
	t.Passes += r.Passes
	t.Aborted = t.Aborted || r.Aborted
	s.nodes.Push(float64(r.SearchClock))
	s.elapsed.Push(r.Elapsed.Seconds())
}

func (s *Summary) Total() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *Summary) Searches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches
}

func (s *Summary) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searches == 0 {
		return "no searches"
	}
	return fmt.Sprintf("%d searches: %s\nnodes/search %.1f ± %.1f, seconds/search %.3f ± %.3f",
		s.searches, s.total, s.nodes.Mean(), s.nodes.Stdev(), s.elapsed.Mean(), s.elapsed.Stdev())
}
