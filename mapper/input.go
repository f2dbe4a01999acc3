package mapper

import (
	"context"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/pemap/encoding/fasta"
	"github.com/grailbio/pemap/encoding/fastq"
	"github.com/grailbio/pemap/encoding/prb"
)

// Pair is one read pair.  After cleaning, a pair stands for every input pair
// with the same mate sequences, and Names lists all of them.
type Pair struct {
	Names       []string
	Left, Right []byte
	// LeftScores and RightScores hold per-position letter scores, in A, C, G,
	// T order, larger meaning more confident.  They are nil unless the input
	// carries qualities.
	LeftScores, RightScores [][4]float64
}

// Input is the set of read pairs of a run.
type Input struct {
	Pairs []Pair
	// MateWidth is the width of every mate.
	MateWidth int
	// Quality is set when every pair carries scores.
	Quality bool
}

// NewInput splits concatenated reads into pairs, the way reads from a single
// FASTA file are interpreted.  Reads are truncated to readWidth, 0 meaning
// the shortest read; the left mate is the first mateWidth bases and the right
// mate the next mateWidth, 0 meaning readWidth/2.  scores is nil or holds one
// score matrix per read.
func NewInput(names []string, reads [][]byte, scores [][][4]float64, readWidth, mateWidth int) (*Input, error) {
	if len(names) != len(reads) {
		return nil, invalidf("%d read names for %d reads", len(names), len(reads))
	}
	if scores != nil && len(scores) != len(reads) {
		return nil, invalidf("different number of reads (%d) and quality records (%d)", len(reads), len(scores))
	}
	if len(reads) == 0 {
		return nil, invalidf("no reads")
	}
	if readWidth == 0 {
		readWidth = len(reads[0])
		for _, r := range reads[1:] {
			if len(r) < readWidth {
				readWidth = len(r)
			}
		}
	}
	if mateWidth > readWidth/2 {
		return nil, invalidf("mate width %d exceeds half the read width %d", mateWidth, readWidth)
	}
	if mateWidth == 0 {
		mateWidth = readWidth / 2
	}
	if mateWidth == 0 {
		return nil, invalidf("reads of width %d are too short to split", readWidth)
	}
	in := &Input{MateWidth: mateWidth, Quality: scores != nil, Pairs: make([]Pair, len(reads))}
	for i, r := range reads {
		if len(r) < 2*mateWidth {
			return nil, invalidf("read %s: length %d is shorter than two mates of %d", names[i], len(r), mateWidth)
		}
		p := Pair{
			Names: []string{names[i]},
			Left:  r[:mateWidth:mateWidth],
			Right: r[mateWidth : 2*mateWidth : 2*mateWidth],
		}
		if scores != nil {
			s := scores[i]
			if len(s) < 2*mateWidth {
				return nil, invalidf("read %s: %d quality positions for two mates of %d", names[i], len(s), mateWidth)
			}
			p.LeftScores = s[:mateWidth:mateWidth]
			p.RightScores = s[mateWidth : 2*mateWidth : 2*mateWidth]
		}
		in.Pairs[i] = p
	}
	return in, nil
}

// LoadFASTA reads concatenated pairs from a FASTA file, with optional .prb
// qualities.  See NewInput.
func LoadFASTA(ctx context.Context, readsPath, prbPath string, readWidth, mateWidth int) (*Input, error) {
	records, err := fasta.ReadFile(ctx, readsPath)
	if err != nil {
		return nil, err
	}
	var scores [][][4]float64
	if prbPath != "" {
		if scores, err = prb.ReadFile(ctx, prbPath); err != nil {
			return nil, err
		}
	}
	names := make([]string, len(records))
	reads := make([][]byte, len(records))
	for i, r := range records {
		names[i], reads[i] = r.Name, r.Seq
	}
	return NewInput(names, reads, scores, readWidth, mateWidth)
}

func openReader(ctx context.Context, path string) (io.Reader, file.File, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "open", path)
	}
	var r io.Reader = f.Reader(ctx)
	if u := compress.NewReaderPath(r, f.Name()); u != nil {
		r = u
	}
	return r, f, nil
}

// LoadFASTQ reads pairs from R1 and R2 FASTQ files.  Mates are truncated to
// mateWidth, 0 meaning the shortest mate.  When quality is set, each mate
// carries the scores derived from its quality string.
func LoadFASTQ(ctx context.Context, r1Path, r2Path string, quality bool, mateWidth int) (*Input, error) {
	r1, f1, err := openReader(ctx, r1Path)
	if err != nil {
		return nil, err
	}
	defer f1.Close(ctx) // nolint: errcheck
	r2, f2, err := openReader(ctx, r2Path)
	if err != nil {
		return nil, err
	}
	defer f2.Close(ctx) // nolint: errcheck

	var (
		in       = &Input{Quality: quality}
		scanner  = fastq.NewPairScanner(r1, r2)
		minWidth = -1
		read1    fastq.Read
		read2    fastq.Read
	)
	for scanner.Scan(&read1, &read2) {
		p := Pair{
			Names: []string{read1.Name},
			Left:  append([]byte{}, read1.Seq...),
			Right: append([]byte{}, read2.Seq...),
		}
		if quality {
			if p.LeftScores, err = read1.BaseScores(); err != nil {
				return nil, errors.E(err, r1Path)
			}
			if p.RightScores, err = read2.BaseScores(); err != nil {
				return nil, errors.E(err, r2Path)
			}
		}
		for _, n := range []int{len(p.Left), len(p.Right)} {
			if minWidth < 0 || n < minWidth {
				minWidth = n
			}
		}
		in.Pairs = append(in.Pairs, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(err, r1Path, r2Path)
	}
	if len(in.Pairs) == 0 {
		return nil, invalidf("%s: no reads", r1Path)
	}
	if mateWidth == 0 {
		mateWidth = minWidth
	}
	if mateWidth <= 0 || mateWidth > minWidth {
		return nil, invalidf("mate width %d must be in [1, %d]", mateWidth, minWidth)
	}
	in.MateWidth = mateWidth
	for i := range in.Pairs {
		p := &in.Pairs[i]
		p.Left, p.Right = p.Left[:mateWidth], p.Right[:mateWidth]
		if quality {
			p.LeftScores, p.RightScores = p.LeftScores[:mateWidth], p.RightScores[:mateWidth]
		}
	}
	return in, nil
}
