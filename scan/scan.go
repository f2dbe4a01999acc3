// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package scan streams a chromosome through a rolling packed window, probes a
// seed hash at every position, and verifies candidate read pairs against the
// current window (right mate) and the windows remembered for earlier
// positions (left mate).
package scan

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/pemap/besthit"
	"github.com/grailbio/pemap/biosimd"
	"github.com/grailbio/pemap/circular"
	"github.com/grailbio/pemap/packedread"
	"github.com/grailbio/pemap/seed"
)

// The context is polled once per this many chromosome positions.
const cancelCheckInterval = 1 << 20

// Opts configures a Scanner.
type Opts struct {
	// Mate separation, measured between the last positions of the left and
	// right mate windows.  A pair is reported only if
	// MinSep < separation <= MaxSep.
	MinSep, MaxSep int
	// MaxScore is the largest accepted score, for the right mate alone and for
	// the pair.
	MaxScore int
}

// Validate checks that opts define a non-empty separation window.
func (o Opts) Validate() error {
	if o.MaxSep <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("scan: max separation must be positive, got %d", o.MaxSep))
	}
	if o.MinSep < 0 || o.MinSep >= o.MaxSep {
		return errors.E(errors.Invalid,
			fmt.Sprintf("scan: min separation %d must be in [0, %d)", o.MinSep, o.MaxSep))
	}
	if o.MaxScore < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("scan: negative max score %d", o.MaxScore))
	}
	return nil
}

// Sink receives verified candidates.
type Sink interface {
	// Best returns the best score known for read.
	Best(read int) int
	// Offer reports a site whose combined score is no worse than Best(read).
	Offer(read, score int, site besthit.Site)
}

// Unit is one chromosome scanned under one seed mask.
type Unit struct {
	ChromID int
	// Seq is the forward strand.  It is not modified.
	Seq    []byte
	Strand besthit.Strand
	Mask   seed.Mask
	Hash   *seed.Hash
	// Left and Right hold the packed mates of every read, indexed by read id.
	Left, Right []packedread.Read
}

// Stats counts the work done by a Scanner.
type Stats struct {
	// Positions is the number of scanned window positions.
	Positions int64
	// Lookups is the number of seed-hash probes.
	Lookups int64
	// Candidates is the number of reads returned by the probes.
	Candidates int64
	// RightHits is the number of candidates whose right mate scored within
	// MaxScore.
	RightHits int64
	// Offers is the number of sites passed to the sink.
	Offers int64
}

// Add adds the counters of o to s.
func (s *Stats) Add(o Stats) {
	s.Positions += o.Positions
	s.Lookups += o.Lookups
	s.Candidates += o.Candidates
	s.RightHits += o.RightHits
	s.Offers += o.Offers
}

// Scanner holds the buffers for scanning.  A Scanner is not safe for
// concurrent use; create one per goroutine.
type Scanner struct {
	codec  *packedread.Codec
	opts   Opts
	window packedread.Read
	ring   *circular.WindowRing
	rc     []byte
	stats  Stats
}

// New creates a scanner for reads packed by codec.
func New(codec *packedread.Codec, opts Opts) (*Scanner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Scanner{
		codec:  codec,
		opts:   opts,
		window: codec.NewWindow(),
		ring:   circular.NewWindowRing(codec, opts.MaxSep),
	}, nil
}

// Stats returns the counters accumulated over every Scan call.
func (s *Scanner) Stats() Stats { return s.stats }

// ScanBoth scans u.Seq, then its reverse complement.  Sites found on the
// reverse complement are reported in forward coordinates.
func (s *Scanner) ScanBoth(ctx context.Context, u Unit, sink Sink) error {
	u.Strand = besthit.Forward
	if err := s.Scan(ctx, u, sink); err != nil {
		return err
	}
	if cap(s.rc) < len(u.Seq) {
		s.rc = make([]byte, len(u.Seq))
	}
	s.rc = s.rc[:len(u.Seq)]
	biosimd.ReverseComp8(s.rc, u.Seq)
	u.Seq = s.rc
	u.Strand = besthit.Reverse
	return s.Scan(ctx, u, sink)
}

// Scan streams u.Seq, which is taken to be the given strand of the
// chromosome, and reports every verified pair to sink.  Sequences shorter
// than the read width produce nothing.
func (s *Scanner) Scan(ctx context.Context, u Unit, sink Sink) error {
	var (
		c       = s.codec
		seq     = u.Seq
		n       = len(seq)
		w       = c.ReadWidth()
		keyDiff = w - seed.KeyWidth(w)
		mask    = uint64(u.Mask)
		bad     = ^uint64(0)
		key     uint64
	)
	if err := ctx.Err(); err != nil {
		return err
	}
	if n < w {
		return nil
	}
	c.Reset(&s.window)
	s.ring.Reset()

	offset := 0
	// Priming: the key covers the first KeyWidth bases of the window, so it
	// trails the window by keyDiff positions.
	for ; offset < keyDiff; offset++ {
		c.Shift(&s.window, seq[offset])
	}
	for ; offset < w-1; offset++ {
		keyBase := packedread.BaseCode(seq[offset-keyDiff])
		c.Shift(&s.window, seq[offset])
		bad = seed.UpdateBadBases(bad, keyBase)
		key = seed.UpdateKey(key, keyBase)
	}
	for ; offset < n; offset++ {
		if offset%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		keyBase := packedread.BaseCode(seq[offset-keyDiff])
		c.Shift(&s.window, seq[offset])
		bad = seed.UpdateBadBases(bad, keyBase)
		key = seed.UpdateKey(key, keyBase)
		s.stats.Positions++
		if bad&mask == 0 {
			s.probe(&u, sink, offset, key&mask)
		}
		s.ring.Put(offset, &s.window)
	}
	return nil
}

// probe verifies every read whose seed matches the window ending at offset.
func (s *Scanner) probe(u *Unit, sink Sink, offset int, key uint64) {
	s.stats.Lookups++
	ids := u.Hash.Lookup(key)
	if len(ids) == 0 {
		return
	}
	s.stats.Candidates += int64(len(ids))
	w := s.codec.ReadWidth()
	lo := offset - s.opts.MaxSep
	if lo < w-1 {
		lo = w - 1
	}
	hi := offset - s.opts.MinSep
	for _, id32 := range ids {
		id := int(id32)
		rightScore := s.codec.Score(&u.Right[id], &s.window)
		if rightScore > s.opts.MaxScore {
			continue
		}
		s.stats.RightHits++
		for i := lo; i < hi; i++ {
			left, ok := s.ring.Get(i)
			if !ok {
				continue
			}
			score := rightScore + s.codec.Score(&u.Left[id], left)
			if score > s.opts.MaxScore || score > sink.Best(id) {
				continue
			}
			s.stats.Offers++
			sink.Offer(id, score, s.site(u, i, offset))
		}
	}
}

// site converts the window end positions of a pair into forward-strand
// mate start coordinates.
func (s *Scanner) site(u *Unit, leftEnd, rightEnd int) besthit.Site {
	w := s.codec.ReadWidth()
	leftStart, rightStart := leftEnd-w+1, rightEnd-w+1
	if u.Strand == besthit.Reverse {
		n := len(u.Seq)
		leftStart, rightStart = n-rightStart-w, n-leftStart-w
	}
	return besthit.Site{
		Chrom:  u.ChromID,
		Left:   leftStart,
		Right:  rightStart,
		Strand: u.Strand,
	}
}
