package selfplay

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"lukechampine.com/frand"
)

type Seed [32]byte

// GenerateSeeds makes n random seeds for reproducible games.
func GenerateSeeds(n int) []Seed {
	seeds := make([]Seed, n)
	for i := range seeds {
		frand.Read(seeds[i][:])
	}
	return seeds
}

func (s Seed) String() string { return base64.RawURLEncoding.EncodeToString(s[:]) }

// ParseSeed reads the base64 form written by String.
func ParseSeed(str string) (Seed, error) {
	var s Seed
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(str))
	if err != nil {
		return s, fmt.Errorf("bad seed: %w", err)
	}
	if len(b) != len(s) {
		return s, fmt.Errorf("bad seed: %d bytes, want %d", len(b), len(s))
	}
	copy(s[:], b)
	return s, nil
}

// RNG is a deterministic generator for one game.
func (s Seed) RNG() *frand.RNG {
	return frand.NewCustom(s[:], 1024, 12)
}

// Derive makes the i'th sub-seed, so every game of a tournament can be
// replayed on its own.
func (s Seed) Derive(i int) Seed {
	var d Seed
	copy(d[:], s[:])
	binary.LittleEndian.PutUint64(d[24:], binary.LittleEndian.Uint64(s[24:])+uint64(i))
	return d
}

// SaveSeeds writes one seed per line.
func SaveSeeds(seeds []Seed, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# game seeds, base64 url encoding")
	for _, s := range seeds {
		fmt.Fprintln(w, s)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSeeds reads a file written by SaveSeeds. Blank lines and lines
// starting with # are skipped.
func LoadSeeds(path string) ([]Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var seeds []Seed
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		s, err := ParseSeed(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		seeds = append(seeds, s)
	}
	return seeds, sc.Err()
}
