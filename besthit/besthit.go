// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package besthit keeps, for every read pair, the lowest-scoring alignment
// sites found so far, and classifies pairs as unique, ambiguous or unmapped.
package besthit

import (
	"math"
	"sort"
)

// Strand is the chromosome strand a site was found on.
type Strand uint8

const (
	// Forward means the left mate aligns to the forward strand.
	Forward Strand = iota
	// Reverse means the pair aligns to the reverse complement.
	Reverse
)

// String returns "+" or "-".
func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// Site is one candidate placement of a read pair.  Left and Right are the
// forward-strand start coordinates of the leftmost and rightmost mates, so the
// covered region is [Left, Right+readWidth) on either strand.
type Site struct {
	Chrom  int
	Left   int
	Right  int
	Strand Strand
}

// SameLocation reports whether s and o cover the same region, regardless of
// strand.
func (s Site) SameLocation(o Site) bool {
	return s.Chrom == o.Chrom && s.Left == o.Left && s.Right == o.Right
}

func (s Site) less(o Site) bool {
	if s.Chrom != o.Chrom {
		return s.Chrom < o.Chrom
	}
	if s.Left != o.Left {
		return s.Left < o.Left
	}
	if s.Right != o.Right {
		return s.Right < o.Right
	}
	return s.Strand < o.Strand
}

// Unscored is the score of a record that has not seen any site.
const Unscored = math.MaxInt32

// Status classifies a Record.
type Status int

const (
	// Unmapped records have no site.
	Unmapped Status = iota
	// Unique records have exactly one best site.
	Unique
	// Ambiguous records have two or more distinct best sites, whether or not
	// all of them were kept.
	Ambiguous
)

var statusNames = [...]string{"unmapped", "unique", "ambiguous"}

func (s Status) String() string { return statusNames[s] }

// Record holds the best score of a read pair and the sites achieving it.
// Records are values; Add and Merge return updated copies and never modify
// the receiver's Sites.
type Record struct {
	Score int
	// Sites lists the distinct tied best sites in discovery order.
	Sites []Site
	// Overflow is set when more tied sites were seen than could be kept.
	Overflow bool
}

// NewRecord returns an empty record.
func NewRecord() Record {
	return Record{Score: Unscored}
}

// Add offers one site.  A strictly better score replaces the record.  A tie
// is ignored if the record already holds the same location, appended if
// fewer than maxMappings sites are held, and otherwise only sets Overflow.  A
// worse score is ignored.  The second result reports whether the record
// changed.
func (r Record) Add(score int, s Site, maxMappings int) (Record, bool) {
	if maxMappings < 1 {
		maxMappings = 1
	}
	switch {
	case score < r.Score:
		return Record{Score: score, Sites: []Site{s}}, true
	case score > r.Score:
		return r, false
	}
	for _, t := range r.Sites {
		if t.SameLocation(s) {
			return r, false
		}
	}
	if len(r.Sites) < maxMappings {
		n := len(r.Sites)
		r.Sites = append(r.Sites[:n:n], s)
		return r, true
	}
	if r.Overflow {
		return r, false
	}
	r.Overflow = true
	return r, true
}

// Merge folds o into r as if every site of o had been offered to r in
// order.
func (r Record) Merge(o Record, maxMappings int) Record {
	for _, s := range o.Sites {
		r, _ = r.Add(o.Score, s, maxMappings)
	}
	if o.Overflow && o.Score == r.Score {
		r.Overflow = true
	}
	return r
}

// Collapse returns r with sites that refer to the same location removed.  The
// first occurrence is kept.
func (r Record) Collapse() Record {
	if len(r.Sites) < 2 {
		return r
	}
	out := make([]Site, 0, len(r.Sites))
	for _, s := range r.Sites {
		dup := false
		for _, t := range out {
			if t.SameLocation(s) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	r.Sites = out
	return r
}

// Status classifies the record.
func (r Record) Status() Status {
	switch {
	case len(r.Sites) == 0:
		return Unmapped
	case len(r.Sites) == 1 && !r.Overflow:
		return Unique
	}
	return Ambiguous
}

// SortedSites returns a sorted copy of the sites of r.
func (r Record) SortedSites() []Site {
	sites := append([]Site(nil), r.Sites...)
	sort.Slice(sites, func(i, j int) bool { return sites[i].less(sites[j]) })
	return sites
}
