package zobrist

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash"
	"lukechampine.com/frand"

	"github.com/domino14/boardbot/cache"
)

const bignum = 1<<63 - 2

// MaxPlayers bounds the side-to-move keys.
const MaxPlayers = 8

// Table is a zobrist hash table for a game position.
// https://en.wikipedia.org/wiki/Zobrist_hashing
// A position is described as a set of (feature, value) pairs, for example
// (square, piece); its digest is the XOR of the keys of its pairs and the
// key of the side to move. Tables built from the same seed are identical.
type Table struct {
	seed     uint64
	features int
	values   int
	posTable [][]uint64
	side     [MaxPlayers]uint64
}

// https://stackoverflow.com/a/12996028/1737333
func hashUint64(x uint64) uint64 {
	x = (x ^ (x >> 30)) * uint64(0xbf58476d1ce4e5b9)
	x = (x ^ (x >> 27)) * uint64(0x94d049bb133111eb)
	x = x ^ (x >> 31)
	return x
}

func seedBytes(seed uint64) []byte {
	b := make([]byte, 32)
	x := seed
	for i := 0; i < 4; i++ {
		x = hashUint64(x + uint64(i) + 1)
		binary.LittleEndian.PutUint64(b[i*8:], x)
	}
	return b
}

// New builds a table with the given seed for features x values pairs.
func New(seed uint64, features, values int) *Table {
	rng := frand.NewCustom(seedBytes(seed), 1024, 12)
	z := &Table{seed: seed, features: features, values: values}
	z.posTable = make([][]uint64, features)
	for i := 0; i < features; i++ {
		z.posTable[i] = make([]uint64, values)
		for j := 0; j < values; j++ {
			z.posTable[i][j] = rng.Uint64n(bignum) + 1
		}
	}
	for i := range z.side {
		z.side[i] = rng.Uint64n(bignum) + 1
	}
	return z
}

// SeedFor derives a fixed seed from a game name.
func SeedFor(name string) uint64 {
	return xxhash.Sum64String(name)
}

// Get returns the shared table for a named game shape, building it on
// first use.
func Get(name string, features, values int) *Table {
	key := fmt.Sprintf("zobrist:%s:%d:%d", name, features, values)
	obj, err := cache.Load(key, func(string) (any, error) {
		return New(SeedFor(name), features, values), nil
	})
	if err != nil {
		// the loader never fails
		panic(err)
	}
	return obj.(*Table)
}

// Key is the key for value placed at feature.
func (z *Table) Key(feature, value int) uint64 {
	return z.posTable[feature][value]
}

// Side is the key for player being on turn.
func (z *Table) Side(player int) uint64 {
	return z.side[player%MaxPlayers]
}

// Toggle XORs a pair in or out of key. Applying the same Toggle twice
// restores key.
func (z *Table) Toggle(key uint64, feature, value int) uint64 {
	return key ^ z.posTable[feature][value]
}

// Turn moves the side-to-move component of key from one player to another.
func (z *Table) Turn(key uint64, from, to int) uint64 {
	return key ^ z.Side(from) ^ z.Side(to)
}

// Hash computes a digest from scratch. values[i] is the value at feature
// i; a negative value means the feature is empty.
func (z *Table) Hash(values []int, onTurn int) uint64 {
	key := uint64(0)
	for i, v := range values {
		if v < 0 {
			continue
		}
		key ^= z.posTable[i][v]
	}
	return key ^ z.Side(onTurn)
}

func (z *Table) Features() int { return z.features }
func (z *Table) Values() int   { return z.values }
func (z *Table) Seed() uint64  { return z.seed }
