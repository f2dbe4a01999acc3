package besthit_test

import (
	"math/rand"
	"testing"

	"github.com/grailbio/pemap/besthit"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func site(chrom, left, right int) besthit.Site {
	return besthit.Site{Chrom: chrom, Left: left, Right: right}
}

func TestAdd(t *testing.T) {
	r := besthit.NewRecord()
	expect.EQ(t, r.Status(), besthit.Unmapped)
	expect.EQ(t, r.Score, besthit.Unscored)

	r, changed := r.Add(3, site(0, 10, 50), 2)
	expect.True(t, changed)
	expect.EQ(t, r.Status(), besthit.Unique)

	// Worse.
	r2, changed := r.Add(4, site(0, 20, 60), 2)
	expect.False(t, changed)
	expect.EQ(t, r2, r)

	// Same location on the other strand.
	rev := site(0, 10, 50)
	rev.Strand = besthit.Reverse
	_, changed = r.Add(3, rev, 2)
	expect.False(t, changed)

	// Tie.
	tied, changed := r.Add(3, site(1, 0, 40), 2)
	expect.True(t, changed)
	expect.EQ(t, tied.Sites, []besthit.Site{site(0, 10, 50), site(1, 0, 40)})
	expect.EQ(t, tied.Status(), besthit.Ambiguous)
	// Add does not modify its receiver.
	expect.EQ(t, len(r.Sites), 1)

	// Over the cap.
	full, changed := tied.Add(3, site(2, 5, 45), 2)
	expect.True(t, changed)
	expect.True(t, full.Overflow)
	expect.EQ(t, len(full.Sites), 2)
	_, changed = full.Add(3, site(3, 5, 45), 2)
	expect.False(t, changed)

	// Strictly better resets everything.
	better, changed := full.Add(1, site(4, 1, 2), 2)
	expect.True(t, changed)
	expect.EQ(t, better, besthit.Record{Score: 1, Sites: []besthit.Site{site(4, 1, 2)}})
	expect.EQ(t, better.Status(), besthit.Unique)
}

func TestMaxMappingsOneThreeTies(t *testing.T) {
	r := besthit.NewRecord()
	for i := 0; i < 3; i++ {
		r, _ = r.Add(0, site(0, i*10, i*10+5), 1)
	}
	expect.EQ(t, r.Sites, []besthit.Site{site(0, 0, 5)})
	expect.True(t, r.Overflow)
	expect.EQ(t, r.Status(), besthit.Ambiguous)
}

func TestMergeEqualsSequentialAdds(t *testing.T) {
	rnd := rand.New(rand.NewSource(0))
	for iter := 0; iter < 200; iter++ {
		maxMappings := 1 + rnd.Intn(3)
		type offer struct {
			score int
			s     besthit.Site
		}
		offers := make([]offer, rnd.Intn(12))
		for i := range offers {
			offers[i] = offer{rnd.Intn(3), site(rnd.Intn(2), rnd.Intn(3), 10)}
		}
		split := 0
		if len(offers) > 0 {
			split = rnd.Intn(len(offers) + 1)
		}
		seq, a, b := besthit.NewRecord(), besthit.NewRecord(), besthit.NewRecord()
		for i, o := range offers {
			seq, _ = seq.Add(o.score, o.s, maxMappings)
			if i < split {
				a, _ = a.Add(o.score, o.s, maxMappings)
			} else {
				b, _ = b.Add(o.score, o.s, maxMappings)
			}
		}
		merged := a.Merge(b, maxMappings)
		assert.Equal(t, seq.Score, merged.Score)
		assert.Equal(t, seq.Status(), merged.Status(), "offers %+v split %d", offers, split)
		if !seq.Overflow {
			assert.Equal(t, seq.Sites, merged.Sites)
		}
	}
}

func TestAmbiguityMonotone(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for iter := 0; iter < 500; iter++ {
		r := besthit.NewRecord()
		ambigAt := -1
		for i := 0; i < 10; i++ {
			r, _ = r.Add(rnd.Intn(4), site(rnd.Intn(2), rnd.Intn(4), 20), 1+rnd.Intn(2))
			if r.Status() == besthit.Ambiguous && ambigAt < 0 {
				ambigAt = r.Score
			}
			if ambigAt >= 0 && r.Status() == besthit.Unique {
				assert.True(t, r.Score < ambigAt, "score %d after ambiguous at %d", r.Score, ambigAt)
			}
		}
	}
}

func TestCollapse(t *testing.T) {
	rev := site(0, 1, 9)
	rev.Strand = besthit.Reverse
	r := besthit.Record{Score: 0, Sites: []besthit.Site{site(0, 1, 9), site(1, 1, 9), rev}}
	c := r.Collapse()
	expect.EQ(t, c.Sites, []besthit.Site{site(0, 1, 9), site(1, 1, 9)})
	expect.EQ(t, len(r.Sites), 3)
	r.Sites = r.Sites[1:]
	expect.EQ(t, r.Status(), besthit.Ambiguous)
	expect.EQ(t, r.Collapse().Status(), besthit.Ambiguous)
	r.Sites[0].Chrom = 0
	expect.EQ(t, r.Collapse().Status(), besthit.Unique)
}

func TestStrings(t *testing.T) {
	expect.EQ(t, besthit.Forward.String(), "+")
	expect.EQ(t, besthit.Reverse.String(), "-")
	expect.EQ(t, besthit.Ambiguous.String(), "ambiguous")
	expect.EQ(t, besthit.Unmapped.String(), "unmapped")
}
