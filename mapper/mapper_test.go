package mapper_test

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/pemap/besthit"
	"github.com/grailbio/pemap/biosimd"
	"github.com/grailbio/pemap/encoding/fasta"
	"github.com/grailbio/pemap/mapper"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

const mateWidth = 20

func randomSeq(r *rand.Rand, n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = "ACGT"[r.Intn(4)]
	}
	return s
}

func revComp(s []byte) []byte {
	out := make([]byte, len(s))
	biosimd.ReverseComp8(out, s)
	return out
}

// pairAt returns the concatenated pair whose left mate starts at start and
// whose right mate starts at start+sep.
func pairAt(chrom []byte, start, sep int) []byte {
	var pair []byte
	pair = append(pair, chrom[start:start+mateWidth]...)
	return append(pair, chrom[start+sep:start+sep+mateWidth]...)
}

type testGenome struct {
	chroms []fasta.Record
	names  []string
	reads  [][]byte
}

// newTestGenome builds two random chromosomes and a set of pairs:
//   u1, u1dup: identical pairs at chr1:300-370
//   rev:       the reverse complement of chr1:800-870
//   mm:        chr2:200-270 with one mismatch in the right mate
//   amb:       chr1:100-170, which is repeated at chr2:500-570
//   far:       mates 300 bases apart on chr2
//   none:      random
func newTestGenome() testGenome {
	r := rand.New(rand.NewSource(42))
	chr1, chr2 := randomSeq(r, 1000), randomSeq(r, 1000)
	copy(chr2[500:570], chr1[100:170])

	g := testGenome{chroms: []fasta.Record{{Name: "chr1", Seq: chr1}, {Name: "chr2", Seq: chr2}}}
	add := func(name string, read []byte) {
		g.names = append(g.names, name)
		g.reads = append(g.reads, read)
	}
	add("u1", pairAt(chr1, 300, 50))
	add("amb", pairAt(chr1, 100, 50))
	add("u1dup", pairAt(chr1, 300, 50))
	rc := revComp(chr1[800:870])
	add("rev", pairAt(rc, 0, 50))
	mm := pairAt(chr2, 200, 50)
	mm[mateWidth+10] = "CGTA"[strings.IndexByte("ACGT", mm[mateWidth+10])]
	add("mm", mm)
	add("far", pairAt(chr2, 600, 300))
	add("none", randomSeq(r, 2*mateWidth))
	return g
}

func (g testGenome) input(t *testing.T) *mapper.Input {
	reads := make([][]byte, len(g.reads))
	for i, r := range g.reads {
		reads[i] = append([]byte(nil), r...)
	}
	in, err := mapper.NewInput(g.names, reads, nil, 0, 0)
	assert.NoError(t, err)
	return in
}

func testOpts() mapper.Opts {
	opts := mapper.DefaultOpts
	opts.MaxMismatches = 2
	opts.Parallelism = 1
	return opts
}

func region(chrom string, start, end int, name string, score float64, strand besthit.Strand) besthit.Region {
	return besthit.Region{Chrom: chrom, Start: start, End: end, Name: name, Score: score, Strand: strand}
}

func TestMap(t *testing.T) {
	ctx := context.Background()
	g := newTestGenome()
	res, err := mapper.Map(ctx, g.input(t), fasta.NewSourceFromRecords(g.chroms), testOpts())
	assert.NoError(t, err)
	expect.EQ(t, res.Regions, []besthit.Region{
		region("chr1", 300, 370, "u1", 0, besthit.Forward),
		region("chr1", 300, 370, "u1dup", 0, besthit.Forward),
		region("chr1", 800, 870, "rev", 0, besthit.Reverse),
		region("chr2", 200, 270, "mm", 1, besthit.Forward),
	})
	expect.EQ(t, res.Ambiguous, []mapper.AmbiguousRead{{Name: "amb", Score: 0}})
	expect.EQ(t, res.Stats.TotalPairs, 7)
	expect.EQ(t, res.Stats.PairsAfterQC, 6)
	expect.EQ(t, res.Stats.Unique, 3)
	expect.EQ(t, res.Stats.Ambiguous, 1)
	expect.EQ(t, res.Stats.Unmapped, 2)
	expect.EQ(t, res.Stats.Stages, 3)
	expect.True(t, res.Stats.Scan.Offers > 0)
	expect.EQ(t, res.Checksum, mapper.Checksum(res.Regions))
}

func TestMapIsDeterministic(t *testing.T) {
	ctx := context.Background()
	g := newTestGenome()
	var want *mapper.Result
	for _, parallelism := range []int{1, 2, 4, 0} {
		opts := testOpts()
		opts.Parallelism = parallelism
		res, err := mapper.Map(ctx, g.input(t), fasta.NewSourceFromRecords(g.chroms), opts)
		assert.NoError(t, err)
		if want == nil {
			want = res
			continue
		}
		expect.EQ(t, res.Regions, want.Regions, "parallelism %d", parallelism)
		expect.EQ(t, res.Ambiguous, want.Ambiguous, "parallelism %d", parallelism)
		expect.EQ(t, res.Checksum, want.Checksum, "parallelism %d", parallelism)
	}
}

func TestMapSeparationWindow(t *testing.T) {
	ctx := context.Background()
	g := newTestGenome()
	mapped := func(opts mapper.Opts) map[string]bool {
		res, err := mapper.Map(ctx, g.input(t), fasta.NewSourceFromRecords(g.chroms), opts)
		assert.NoError(t, err)
		names := map[string]bool{}
		for _, r := range res.Regions {
			names[r.Name] = true
		}
		return names
	}
	opts := testOpts()
	opts.MaxSep = 400
	names := mapped(opts)
	expect.True(t, names["far"])
	expect.True(t, names["u1"])

	opts = testOpts()
	opts.MinSep = 50
	names = mapped(opts)
	expect.False(t, names["u1"])
	expect.False(t, names["rev"])

	opts = testOpts()
	opts.MinSep = 49
	opts.MaxSep = 50
	names = mapped(opts)
	expect.True(t, names["u1"])
	expect.True(t, names["rev"])
	expect.False(t, names["far"])
}

func TestMapMaxMismatches(t *testing.T) {
	ctx := context.Background()
	g := newTestGenome()
	opts := testOpts()
	opts.MaxMismatches = 0
	res, err := mapper.Map(ctx, g.input(t), fasta.NewSourceFromRecords(g.chroms), opts)
	assert.NoError(t, err)
	for _, r := range res.Regions {
		expect.True(t, r.Name != "mm", "%+v", r)
	}
	expect.EQ(t, len(res.Regions), 3)
	expect.EQ(t, res.Stats.Stages, 1)
}

func TestMapQuality(t *testing.T) {
	ctx := context.Background()
	g := newTestGenome()
	var (
		names  []string
		reads  [][]byte
		scores [][][4]float64
	)
	for i, name := range g.names {
		if name != "u1" && name != "mm" && name != "amb" {
			continue
		}
		names = append(names, name)
		reads = append(reads, g.reads[i])
		// The called base scores 30 and the other letters 0.  The mm read keeps
		// the reference base at its mismatch position.
		s := make([][4]float64, len(g.reads[i]))
		for j, ch := range g.reads[i] {
			s[j][strings.IndexByte("ACGT", ch)] = 30
		}
		scores = append(scores, s)
	}
	in, err := mapper.NewInput(names, reads, scores, 0, 0)
	assert.NoError(t, err)
	res, err := mapper.Map(ctx, in, fasta.NewSourceFromRecords(g.chroms), testOpts())
	assert.NoError(t, err)
	expect.EQ(t, res.Regions, []besthit.Region{
		region("chr1", 300, 370, "u1", 0, besthit.Forward),
		region("chr2", 200, 270, "mm", 30, besthit.Forward),
	})
	expect.EQ(t, res.Ambiguous, []mapper.AmbiguousRead{{Name: "amb", Score: 0}})
}

func TestMapErrors(t *testing.T) {
	ctx := context.Background()
	g := newTestGenome()
	short := fasta.NewSourceFromRecords([]fasta.Record{{Name: "tiny", Seq: []byte("ACGTACGT")}})
	_, err := mapper.Map(ctx, g.input(t), short, testOpts())
	expect.True(t, errors.Is(errors.Invalid, err), "%v", err)

	_, err = mapper.Map(ctx, g.input(t), fasta.NewSourceFromRecords(nil), testOpts())
	expect.True(t, errors.Is(errors.Invalid, err), "%v", err)

	opts := testOpts()
	opts.SeedCount = 2
	_, err = mapper.Map(ctx, g.input(t), fasta.NewSourceFromRecords(g.chroms), opts)
	expect.True(t, errors.Is(errors.Invalid, err), "%v", err)

	opts = testOpts()
	opts.SeedWeight = 10
	_, err = mapper.Map(ctx, g.input(t), fasta.NewSourceFromRecords(g.chroms), opts)
	expect.True(t, errors.Is(errors.Invalid, err), "%v", err)

	allN := []byte(strings.Repeat("N", mateWidth))
	junk := &mapper.Input{MateWidth: mateWidth, Pairs: []mapper.Pair{{Names: []string{"n"}, Left: allN, Right: allN}}}
	_, err = mapper.Map(ctx, junk, fasta.NewSourceFromRecords(g.chroms), testOpts())
	expect.True(t, errors.Is(errors.Integrity, err), "%v", err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = mapper.Map(cctx, g.input(t), fasta.NewSourceFromRecords(g.chroms), testOpts())
	expect.NotNil(t, err)
}

func TestOptsValidate(t *testing.T) {
	for _, mod := range []func(*mapper.Opts){
		func(o *mapper.Opts) { o.MaxMismatches = -1 },
		func(o *mapper.Opts) { o.SeedCount = -1 },
		func(o *mapper.Opts) { o.MateWidth = -1 },
		func(o *mapper.Opts) { o.MaxSep = 0 },
		func(o *mapper.Opts) { o.MaxSep = mapper.MaxSepLimit + 1 },
		func(o *mapper.Opts) { o.MinSep = 200 },
		func(o *mapper.Opts) { o.MaxMappings = 0 },
		func(o *mapper.Opts) { o.BedPath, o.Region = "x.bed", "chr1" },
		func(o *mapper.Opts) { o.BedOneBased = true },
		func(o *mapper.Opts) { o.ExcludeTargets = true },
		func(o *mapper.Opts) { o.SeedCount = 2 },
	} {
		opts := mapper.DefaultOpts
		mod(&opts)
		expect.True(t, errors.Is(errors.Invalid, opts.Validate()), "%+v", opts)
	}
	opts := mapper.DefaultOpts
	expect.NoError(t, opts.Validate())
	opts.MaxSep = mapper.MaxSepLimit
	expect.NoError(t, opts.Validate())
}

func TestWriters(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, mapper.WriteRegions(&buf, []besthit.Region{
		region("chr1", 10, 50, "r1", 0, besthit.Forward),
		region("chr2", 5, 45, "r2", 12.5, besthit.Reverse),
	}))
	expect.EQ(t, buf.String(), "chr1\t10\t50\tr1\t0\t+\nchr2\t5\t45\tr2\t12.5\t-\n")

	buf.Reset()
	assert.NoError(t, mapper.WriteAmbiguous(&buf, []mapper.AmbiguousRead{{Name: "a", Score: 0}, {Name: "b", Score: 2}}))
	expect.EQ(t, buf.String(), "a\t0\nb\t2\n")

	expect.EQ(t, mapper.Checksum(nil), mapper.Checksum([]besthit.Region{}))
	expect.True(t, mapper.Checksum([]besthit.Region{region("chr1", 10, 50, "r1", 0, besthit.Forward)}) !=
		mapper.Checksum([]besthit.Region{region("chr1", 10, 50, "r1", 1, besthit.Forward)}))
}
