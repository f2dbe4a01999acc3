// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package packedread implements the bit-plane encoding of fixed-width reads
// used by the mapper.  A Read is a short array of 64-bit words; each word
// stores a group of positions across parallel bit-planes, so that comparing
// two reads costs a few word operations per 64 (exact) or 16 (quality)
// positions instead of one comparison per base.
//
// Two layouts exist, selected by Opts.Quality:
//
//   - exact: one bit per position in each of three planes.  Planes hi and lo
//     hold the 2-bit base code (A=00, C=01, G=10, T=11), plane bad marks N.
//     Score is the number of positions where the codes differ or either side
//     is N.
//
//   - quality: NValBits bits per position in each of four planes, one plane per
//     nucleotide.  A read built by EncodeQuality stores, for each position and
//     letter, the quantized penalty of observing that letter.  A reference
//     window built by Encode/Shift stores an all-ones field in the plane of the
//     observed letter (all four planes for N).  Score sums the read penalties
//     selected by the window, i.e. it is the field-sum of a&b over all planes.
//
// Positions are ordered oldest-first: words[0] holds the first positions of the
// read, and within a word the oldest position sits in the highest-order field.
// The last word holds the remaining tail positions in its low-order fields;
// everything above them is kept zero (see Codec.ScoreMask).  Shift appends at
// the low end of the last word and carries the oldest position of each word
// into the previous one, so a rolling window and a read encoded from the same
// bases are bit-identical.
//
// All Reads compared with each other must come from the same Codec.
package packedread
