package seed_test

import (
	"math/rand"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/pemap/packedread"
	"github.com/grailbio/pemap/seed"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	masks, err := seed.Generate(12, 3, 2)
	assert.NoError(t, err)
	var got []string
	for _, m := range masks {
		got = append(got, m.Pattern(12))
	}
	expect.EQ(t, got, []string{"110000000000", "000011000000", "000000001100"})

	masks, err = seed.Generate(10, 3, 3)
	assert.NoError(t, err)
	expect.EQ(t, masks[0].Pattern(10), "1110000000")
	expect.EQ(t, masks[1].Pattern(10), "0001110000")
	expect.EQ(t, masks[2].Pattern(10), "0000001110")

	// Width is clamped to the key size.
	masks, err = seed.Generate(100, 2, 16)
	assert.NoError(t, err)
	expect.EQ(t, uint64(masks[0]), uint64(0xffffffff00000000))
	expect.EQ(t, uint64(masks[1]), uint64(0x00000000ffffffff))
}

func TestGenerateErrors(t *testing.T) {
	for _, tt := range []struct{ width, count, weight int }{
		{10, 0, 1},
		{10, 2, 0},
		{10, 3, 4},
		{4, 5, 1},
	} {
		_, err := seed.Generate(tt.width, tt.count, tt.weight)
		expect.True(t, errors.Is(errors.Invalid, err), "%+v", tt)
	}
	expect.NoError(t, seed.CheckCoverage(3, 2))
	expect.True(t, errors.Is(errors.Invalid, seed.CheckCoverage(2, 2)))
}

func TestKeys(t *testing.T) {
	expect.EQ(t, seed.Key([]byte("ACGT")), uint64(0x1b))
	expect.EQ(t, seed.Key([]byte("acgt")), uint64(0x1b))
	expect.EQ(t, seed.BadBases([]byte("ANGT")), uint64(0x30))
	expect.True(t, seed.ValidSeed(seed.Mask(0xc3), []byte("ANGT")))
	expect.False(t, seed.ValidSeed(seed.Mask(0x30), []byte("ANGT")))

	// Only the first MaxSeedPart bases take part in the key.
	long := []byte("ACGTACGTACGTACGTACGTACGTACGTACGTNNNN")
	expect.EQ(t, seed.Key(long), seed.Key(long[:seed.MaxSeedPart]))
	expect.EQ(t, seed.BadBases(long), uint64(0))
	expect.EQ(t, seed.KeyWidth(36), seed.MaxSeedPart)
	expect.EQ(t, seed.KeyWidth(20), 20)

	// Incremental updates agree with Key.
	var key uint64
	for _, ch := range []byte("GATTACA") {
		key = seed.UpdateKey(key, packedread.BaseCode(ch))
	}
	expect.EQ(t, key, seed.Key([]byte("GATTACA")))
}

// applyMismatches returns a copy of s with a different base at every position
// in pos.
func applyMismatches(r *rand.Rand, s []byte, pos []int) []byte {
	out := append([]byte{}, s...)
	for _, p := range pos {
		for out[p] == s[p] {
			out[p] = "ACGT"[r.Intn(4)]
		}
	}
	return out
}

// subsets calls fn with every subset of [0,n) with at most k elements.
func subsets(n, k int, fn func([]int)) {
	var rec func(start int, cur []int)
	rec = func(start int, cur []int) {
		fn(cur)
		if len(cur) == k {
			return
		}
		for i := start; i < n; i++ {
			rec(i+1, append(cur, i))
		}
	}
	rec(0, nil)
}

func TestSeedCoverage(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for _, tt := range []struct{ width, maxMismatches, weight int }{
		{8, 1, 4},
		{10, 2, 3},
		{12, 3, 3},
		{20, 2, 6},
		{32, 3, 8},
	} {
		count := tt.maxMismatches + 1
		require.NoError(t, seed.CheckCoverage(count, tt.maxMismatches))
		masks, err := seed.Generate(tt.width, count, tt.weight)
		require.NoError(t, err)
		s := make([]byte, tt.width)
		for i := range s {
			s[i] = "ACGT"[r.Intn(4)]
		}
		subsets(tt.width, tt.maxMismatches, func(pos []int) {
			other := applyMismatches(r, s, pos)
			found := false
			for _, m := range masks {
				if seed.Key(s)&uint64(m) == seed.Key(other)&uint64(m) {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("width %d: mismatches at %v escape every seed", tt.width, pos)
			}
		})
	}
}

func TestHash(t *testing.T) {
	masks, err := seed.Generate(8, 2, 4)
	assert.NoError(t, err)
	reads := [][]byte{
		[]byte("ACGTACGT"),
		[]byte("ACGTTTTT"),
		[]byte("NCGTACGT"), // N in the first seed
		[]byte("GGGGACGT"),
		[]byte("ACGTACGT"),
	}
	ids := []int{4, 3, 2, 1, 0}
	h := seed.Build(masks[0], reads, ids, 2)
	expect.EQ(t, h.Mask(), masks[0])
	expect.EQ(t, h.Len(), 4)
	key := seed.Key([]byte("ACGTGGGG")) & uint64(masks[0])
	expect.EQ(t, h.Lookup(key), []int32{4, 1, 0})
	expect.EQ(t, len(h.Lookup(seed.Key([]byte("TTTTTTTT"))&uint64(masks[0]))), 0)

	h = seed.Build(masks[1], reads, []int{0, 1, 2, 3}, 0)
	expect.EQ(t, h.Len(), 4)
	key = seed.Key([]byte("TTTTACGT")) & uint64(masks[1])
	expect.EQ(t, h.Lookup(key), []int32{0, 2, 3})

	// Only active reads are indexed.
	h = seed.Build(masks[1], reads, []int{1}, 1)
	expect.EQ(t, len(h.Lookup(key)), 0)
}
