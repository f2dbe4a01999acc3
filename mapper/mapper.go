// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package mapper

import (
	"context"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/pemap/besthit"
	"github.com/grailbio/pemap/encoding/fasta"
	"github.com/grailbio/pemap/packedread"
	"github.com/grailbio/pemap/scan"
	"github.com/grailbio/pemap/seed"
)

// AmbiguousRead names a read that maps equally well to several sites.
type AmbiguousRead struct {
	Name  string
	Score float64
}

// Stats summarizes a run.  Pair counts after TotalPairs refer to the pairs
// left after cleaning.
type Stats struct {
	TotalPairs   int
	PairsAfterQC int
	Unique       int
	Ambiguous    int
	Unmapped     int
	// Stages is the number of seed stages that ran.
	Stages int
	Scan   scan.Stats
}

// Result is the outcome of Map.
type Result struct {
	// Regions holds one hit region per name of every uniquely mapped pair,
	// sorted by chromosome and position.
	Regions []besthit.Region
	// Ambiguous lists the names of the ambiguously mapped pairs, in the order
	// they were found.
	Ambiguous []AmbiguousRead
	Stats     Stats
	// Checksum is a hash of the regions as they are written.
	Checksum uint64
}

// mapper holds the state of one run.
type mapper struct {
	opts      Opts
	codec     *packedread.Codec
	scanOpts  scan.Opts
	src       *fasta.Source
	left      []packedread.Read
	right     []packedread.Read
	rightSeqs [][]byte
	tracker   *besthit.Tracker
	ambiguous []besthit.AmbiguousPair
	chromLen  []int
	stats     scan.Stats
}

// Map cleans the pairs of in and maps them onto the chromosomes of src.
// in.Pairs is modified.
func Map(ctx context.Context, in *Input, src *fasta.Source, opts Opts) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if src.Len() == 0 {
		return nil, invalidf("no chromosomes")
	}
	res := &Result{}
	res.Stats.TotalPairs = len(in.Pairs)
	log.Printf("TOTAL READS:    %d", len(in.Pairs))
	log.Printf("MATE WIDTH:     %d", in.MateWidth)
	res.Stats.PairsAfterQC = CleanReads(in, opts.MaxMismatches)
	log.Printf("READS AFTER QC: %d", res.Stats.PairsAfterQC)
	if res.Stats.TotalPairs > 0 && res.Stats.PairsAfterQC == 0 {
		return nil, errors.E(errors.Integrity, "no read pair survived cleaning")
	}

	m := &mapper{opts: opts, src: src}
	maxScore := opts.MaxMismatches
	var err error
	if in.Quality {
		if len(in.Pairs) > 0 {
			if m.codec, maxScore, err = PrepareQuality(in, opts.MaxMismatches); err != nil {
				return nil, err
			}
			log.Printf("MAX MATCH SCORE: %d", maxScore)
		}
	} else {
		m.codec, err = packedread.NewCodec(packedread.Opts{ReadWidth: in.MateWidth})
		if err != nil {
			return nil, err
		}
	}
	m.scanOpts = scan.Opts{MinSep: opts.MinSep, MaxSep: opts.MaxSep, MaxScore: maxScore}
	if err := m.scanOpts.Validate(); err != nil {
		return nil, err
	}

	keyWidth := seed.KeyWidth(in.MateWidth)
	masks, err := seed.Generate(keyWidth, opts.seedCount(), opts.seedWeight(in.MateWidth))
	if err != nil {
		return nil, err
	}
	log.Debug.Printf("seed structures:")
	for _, mask := range masks {
		log.Debug.Printf("  %s", mask.Pattern(keyWidth))
	}

	m.tracker = besthit.NewTracker(len(in.Pairs), opts.MaxMappings)
	m.chromLen = make([]int, src.Len())
	m.encode(in)
	for stage, mask := range masks {
		if len(m.tracker.Active()) == 0 {
			break
		}
		if err := m.runStage(ctx, stage, len(masks), mask); err != nil {
			return nil, err
		}
		res.Stats.Stages++
		if stage == 0 {
			if err := m.checkChromLengths(in.MateWidth); err != nil {
				return nil, err
			}
		}
	}
	m.ambiguous = append(m.ambiguous, m.tracker.Finalize(maxScore)...)

	score := func(s int) float64 { return float64(s) }
	if in.Quality {
		score = m.codec.ScoreToQuality
	}
	names := make([][]string, len(in.Pairs))
	for i, p := range in.Pairs {
		names[i] = p.Names
	}
	res.Regions = m.tracker.Regions(src.Names(), in.MateWidth, names, score)
	besthit.SortRegions(res.Regions)
	for _, a := range m.ambiguous {
		for _, name := range names[a.Read] {
			res.Ambiguous = append(res.Ambiguous, AmbiguousRead{Name: name, Score: score(a.Score)})
		}
	}
	for _, i := range m.tracker.Active() {
		if m.tracker.Record(i).Status() == besthit.Unique {
			res.Stats.Unique++
		}
	}
	res.Stats.Ambiguous = len(m.ambiguous)
	res.Stats.Unmapped = len(in.Pairs) - res.Stats.Unique - res.Stats.Ambiguous
	res.Stats.Scan = m.stats
	res.Checksum = Checksum(res.Regions)
	return res, nil
}

// encode packs the mates of every pair.
func (m *mapper) encode(in *Input) {
	n := len(in.Pairs)
	m.left = make([]packedread.Read, n)
	m.right = make([]packedread.Read, n)
	m.rightSeqs = make([][]byte, n)
	for i, p := range in.Pairs {
		if in.Quality {
			m.left[i] = m.codec.EncodeQuality(p.LeftScores)
			m.right[i] = m.codec.EncodeQuality(p.RightScores)
		} else {
			m.left[i] = m.codec.Encode(p.Left)
			m.right[i] = m.codec.Encode(p.Right)
		}
		m.rightSeqs[i] = p.Right
	}
}

func (m *mapper) parallelism(nUnit int) int {
	parallelism := m.opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > nUnit {
		parallelism = nUnit
	}
	return parallelism
}

// runStage indexes the active pairs under mask and scans every chromosome.
// Chromosomes are split into contiguous ranges, one per job, and each
// chromosome collects its sites in its own Local.  The locals are merged in
// chromosome order once all jobs are done, so the outcome does not depend on
// scheduling.
func (m *mapper) runStage(ctx context.Context, stage, nStage int, mask seed.Mask) error {
	hash := seed.Build(mask, m.rightSeqs, m.tracker.Active(), m.opts.Parallelism)
	nChrom := m.src.Len()
	parallelism := m.parallelism(nChrom)
	locals := make([]*besthit.Local, nChrom)
	jobStats := make([]scan.Stats, parallelism)
	err := traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * nChrom) / parallelism
		endIdx := ((jobIdx + 1) * nChrom) / parallelism
		scanner, err := scan.New(m.codec, m.scanOpts)
		if err != nil {
			return err
		}
		for chrom := startIdx; chrom < endIdx; chrom++ {
			seq, err := m.src.Load(ctx, chrom)
			if err != nil {
				return err
			}
			m.chromLen[chrom] = len(seq)
			local := m.tracker.NewLocal()
			unit := scan.Unit{
				ChromID: chrom,
				Seq:     seq,
				Mask:    mask,
				Hash:    hash,
				Left:    m.left,
				Right:   m.right,
			}
			if err := scanner.ScanBoth(ctx, unit, local); err != nil {
				return err
			}
			locals[chrom] = local
		}
		jobStats[jobIdx] = scanner.Stats()
		return nil
	})
	if err != nil {
		return err
	}
	for _, s := range jobStats {
		m.stats.Add(s)
	}
	for _, l := range locals {
		m.tracker.Merge(l)
	}
	removed := m.tracker.Eliminate(0)
	m.ambiguous = append(m.ambiguous, removed...)
	log.Printf("[SEED:%d/%d] %d pairs seeded, %d chromosomes scanned [AMBIG=%d]",
		stage+1, nStage, hash.Len(), nChrom, len(m.ambiguous))
	return nil
}

// checkChromLengths fails when no chromosome is long enough to hold a mate.
func (m *mapper) checkChromLengths(mateWidth int) error {
	for _, n := range m.chromLen {
		if n >= mateWidth {
			return nil
		}
	}
	return invalidf("mate width %d exceeds the length of every chromosome", mateWidth)
}
