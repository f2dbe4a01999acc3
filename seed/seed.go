// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package seed generates spaced-seed masks and indexes reads by their masked
// seed keys.
//
// A key packs the first MaxSeedPart bases of a read, 2 bits per base, with the
// first base in the highest-order occupied bits.  A Mask selects the 2-bit
// groups that must match exactly for a read to be considered at a reference
// position.  Generate splits the key positions into contiguous blocks and
// places one seed at the start of each block, so that any two sequences with
// fewer mismatches than there are seeds agree on at least one seed.
package seed

import (
	"bytes"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/pemap/packedread"
)

// MaxSeedPart is the number of leading read positions covered by a key.
const MaxSeedPart = 32

// Mask selects key positions, 2 bits per position.
type Mask uint64

// KeyWidth returns the number of key positions for reads of the given width.
func KeyWidth(readWidth int) int {
	if readWidth < MaxSeedPart {
		return readWidth
	}
	return MaxSeedPart
}

// UpdateKey appends the base code to a key.
func UpdateKey(key uint64, code uint8) uint64 {
	return key<<2 | uint64(code&3)
}

// UpdateBadBases appends one position to a bad-base mask.  The 2-bit group is
// set iff the base is not ACGT.
func UpdateBadBases(bad uint64, code uint8) uint64 {
	if code > packedread.BaseT {
		return bad<<2 | 3
	}
	return bad << 2
}

func keyPart(seq []byte) []byte {
	if len(seq) > MaxSeedPart {
		return seq[:MaxSeedPart]
	}
	return seq
}

// Key returns the unmasked key of the first MaxSeedPart bases of seq.
func Key(seq []byte) uint64 {
	var key uint64
	for _, ch := range keyPart(seq) {
		key = UpdateKey(key, packedread.BaseCode(ch))
	}
	return key
}

// BadBases returns the bad-base mask of the first MaxSeedPart bases of seq.
func BadBases(seq []byte) uint64 {
	var bad uint64
	for _, ch := range keyPart(seq) {
		bad = UpdateBadBases(bad, packedread.BaseCode(ch))
	}
	return bad
}

// ValidSeed reports whether no position selected by m holds an N in seq.
func ValidSeed(m Mask, seq []byte) bool {
	return BadBases(seq)&uint64(m) == 0
}

// Generate returns count masks over width key positions, each selecting
// weight contiguous positions.  Mask i starts at the first position of block
// i, where the positions are split into count near-equal contiguous blocks.
// Width is clamped to MaxSeedPart.
func Generate(width, count, weight int) ([]Mask, error) {
	if width > MaxSeedPart {
		width = MaxSeedPart
	}
	if count < 1 || weight < 1 {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("seed: seed count (%d) and weight (%d) must be positive", count, weight))
	}
	if weight > width/count {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("seed: %d seeds of weight %d do not fit in %d positions", count, weight, width))
	}
	masks := make([]Mask, count)
	for i := range masks {
		start := i * width / count
		var m Mask
		for j := start; j < start+weight; j++ {
			m |= 3 << uint(2*(width-1-j))
		}
		masks[i] = m
	}
	return masks, nil
}

// CheckCoverage returns an error unless count blocks guarantee that every
// alignment with at most maxMismatches mismatches in the key is found by some
// seed.
func CheckCoverage(count, maxMismatches int) error {
	if count <= maxMismatches {
		return errors.E(errors.Invalid,
			fmt.Sprintf("seed: %d seeds cannot cover %d mismatches; use at least %d seeds",
				count, maxMismatches, maxMismatches+1))
	}
	return nil
}

// Pattern renders the first width positions of m as 0/1 characters.
func (m Mask) Pattern(width int) string {
	buf := bytes.Buffer{}
	for j := 0; j < width; j++ {
		if uint64(m)>>uint(2*(width-1-j))&3 != 0 {
			buf.WriteByte('1')
		} else {
			buf.WriteByte('0')
		}
	}
	return buf.String()
}
