// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package biosimd

var (
	cleanASCIISeqTable [256]byte
	revComp8Table      [256]byte
	isNotACGTTable     [256]bool
)

func init() {
	for i := range cleanASCIISeqTable {
		cleanASCIISeqTable[i] = 'N'
		revComp8Table[i] = 'N'
		isNotACGTTable[i] = true
	}
	const bases, comps = "ACGT", "TGCA"
	for i := 0; i < len(bases); i++ {
		upper, lower := bases[i], bases[i]+'a'-'A'
		cleanASCIISeqTable[upper] = upper
		cleanASCIISeqTable[lower] = upper
		revComp8Table[upper] = comps[i]
		revComp8Table[lower] = comps[i]
		isNotACGTTable[upper] = false
	}
}

// CleanASCIISeqInplace capitalizes 'a'/'c'/'g'/'t', and replaces everything
// non-ACGT with 'N'.
func CleanASCIISeqInplace(ascii8 []byte) {
	for pos, ascii8Byte := range ascii8 {
		ascii8[pos] = cleanASCIISeqTable[ascii8Byte]
	}
}

// IsNonACGTPresent returns true iff there is a non-capital-ACGT character in
// the slice.
func IsNonACGTPresent(ascii8 []byte) bool {
	for _, ascii8Byte := range ascii8 {
		if isNotACGTTable[ascii8Byte] {
			return true
		}
	}
	return false
}

// CountNonACGT returns the number of non-capital-ACGT characters in the
// slice.
func CountNonACGT(ascii8 []byte) int {
	cnt := 0
	for _, ascii8Byte := range ascii8 {
		if isNotACGTTable[ascii8Byte] {
			cnt++
		}
	}
	return cnt
}

// ReverseComp8Inplace reverse-complements ascii8[], assuming that it's using
// ASCII encoding.  More precisely, it maps 'A'/'a' to 'T', 'C'/'c' to 'G',
// 'G'/'g' to 'C', 'T'/'t' to 'A', and everything else to 'N'.
func ReverseComp8Inplace(ascii8 []byte) {
	nByte := len(ascii8)
	nByteDiv2 := nByte >> 1
	for idx, invIdx := 0, nByte-1; idx != nByteDiv2; idx, invIdx = idx+1, invIdx-1 {
		ascii8[idx], ascii8[invIdx] = revComp8Table[ascii8[invIdx]], revComp8Table[ascii8[idx]]
	}
	if nByte&1 == 1 {
		ascii8[nByteDiv2] = revComp8Table[ascii8[nByteDiv2]]
	}
}

// ReverseComp8 writes the reverse-complement of src[] to dst[], with the same
// mapping as ReverseComp8Inplace.  It panics if len(dst) != len(src).
func ReverseComp8(dst, src []byte) {
	nByte := len(src)
	if len(dst) != nByte {
		panic("ReverseComp8 requires len(dst) == len(src).")
	}
	for idx, invIdx := 0, nByte-1; idx != nByte; idx, invIdx = idx+1, invIdx-1 {
		dst[idx] = revComp8Table[src[invIdx]]
	}
}
