package selfplay

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"sync"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
	"lukechampine.com/frand"

	"github.com/domino14/boardbot/stats"
)

var ErrEmptyPool = errors.New("mutant pool is empty")

// Mutant is one set of evaluator weights and its record against the
// baseline players.
type Mutant struct {
	Name    string    `yaml:"name"`
	Weights []float64 `yaml:"weights"`
	Wins    int       `yaml:"wins"`
	Losses  int       `yaml:"losses"`
	Draws   int       `yaml:"draws"`
}

func (m *Mutant) Games() int { return m.Wins + m.Losses + m.Draws }

// Score is the fraction of points taken, counting a draw as half.
func (m *Mutant) Score() float64 {
	if m.Games() == 0 {
		return 0.5
	}
	return (float64(m.Wins) + float64(m.Draws)/2) / float64(m.Games())
}

// Confidence is the interval around Score at the given confidence, in
// percent.
func (m *Mutant) Confidence(confidence float64) (float64, float64) {
	var st stats.Statistic
	for range m.Wins {
		st.Push(1)
	}
	for range m.Draws {
		st.Push(0.5)
	}
	for range m.Losses {
		st.Push(0)
	}
	if st.Iterations() < 2 {
		return 0, 1
	}
	low, high := st.ConfidenceInterval(confidence)
	return math.Max(low, 0), math.Min(high, 1)
}

func (m *Mutant) String() string {
	return fmt.Sprintf("%s %v +%d -%d =%d (%.3f)", m.Name, m.Weights, m.Wins, m.Losses, m.Draws, m.Score())
}

// Pool holds the mutants being tried. It is safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	Mutants []*Mutant `yaml:"mutants"`
}

// NewPool makes n mutants by jittering base: each weight is scaled by a
// random factor in [1-spread, 1+spread].
func NewPool(base []float64, n int, spread float64, rng *frand.RNG) *Pool {
	p := &Pool{}
	for i := range n {
		w := lo.Map(base, func(v float64, _ int) float64 {
			return v * (1 + spread*(2*rng.Float64()-1))
		})
		p.Mutants = append(p.Mutants, &Mutant{Name: fmt.Sprintf("m%03d", i), Weights: w})
	}
	return p
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Mutants)
}

// LeastUsed is the mutant with the fewest games, the earliest one on ties.
func (p *Pool) LeastUsed() (*Mutant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Mutants) == 0 {
		return nil, ErrEmptyPool
	}
	return lo.MinBy(p.Mutants, func(a, b *Mutant) bool { return a.Games() < b.Games() }), nil
}

func (p *Pool) Random(rng *frand.RNG) (*Mutant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Mutants) == 0 {
		return nil, ErrEmptyPool
	}
	return p.Mutants[rng.Intn(len(p.Mutants))], nil
}

// Update records the result of one game for the named mutant.
func (p *Pool) Update(name string, res Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := lo.Find(p.Mutants, func(m *Mutant) bool { return m.Name == name })
	if !ok {
		return fmt.Errorf("no mutant %q", name)
	}
	switch res {
	case Win:
		m.Wins++
	case Loss:
		m.Losses++
	case Draw:
		m.Draws++
	}
	return nil
}

// RemoveLowest drops the mutant with the worst score among those with at
// least minGames games, and returns it.
func (p *Pool) RemoveLowest(minGames int) (*Mutant, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	played := lo.Filter(p.Mutants, func(m *Mutant, _ int) bool { return m.Games() >= minGames })
	if len(played) == 0 {
		return nil, false
	}
	worst := lo.MinBy(played, func(a, b *Mutant) bool { return a.Score() < b.Score() })
	p.Mutants = slices.DeleteFunc(p.Mutants, func(m *Mutant) bool { return m == worst })
	return worst, true
}

// Ranked returns the mutants best first.
func (p *Pool) Ranked() []*Mutant {
	p.mu.Lock()
	defer p.mu.Unlock()
	ranked := slices.Clone(p.Mutants)
	slices.SortStableFunc(ranked, func(a, b *Mutant) int {
		switch {
		case a.Score() > b.Score():
			return -1
		case a.Score() < b.Score():
			return 1
		}
		return 0
	})
	return ranked
}

func (p *Pool) Save(path string) error {
	p.mu.Lock()
	out, err := yaml.Marshal(p)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func LoadPool(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := &Pool{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
