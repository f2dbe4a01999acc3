package mapper

import (
	"bytes"
	"sort"

	"github.com/grailbio/pemap/biosimd"
)

// maxBadPositions is the number of positions without a positive letter score
// a mate may have and still be mapped in quality mode.
const maxBadPositions = 2

// CleanReads prepares in.Pairs for mapping and returns the number of pairs
// kept.  Bases are capitalized and every non-ACGT letter becomes N.  Without
// qualities, pairs with more than maxMismatches Ns in either mate are
// dropped, and pairs with identical mates are merged into one pair carrying
// all of their names, in sequence order.  With qualities, pairs in which a
// mate has more than two positions whose best letter score is <= 0 are
// dropped, and input order is kept.
func CleanReads(in *Input, maxMismatches int) int {
	kept := in.Pairs[:0]
	for _, p := range in.Pairs {
		p.Left = cleanSeq(p.Left)
		p.Right = cleanSeq(p.Right)
		if in.Quality {
			if goodScores(p.LeftScores) && goodScores(p.RightScores) {
				kept = append(kept, p)
			}
			continue
		}
		if biosimd.CountNonACGT(p.Left) <= maxMismatches && biosimd.CountNonACGT(p.Right) <= maxMismatches {
			kept = append(kept, p)
		}
	}
	in.Pairs = kept
	if in.Quality {
		return len(in.Pairs)
	}
	sort.SliceStable(in.Pairs, func(i, j int) bool {
		a, b := &in.Pairs[i], &in.Pairs[j]
		if c := bytes.Compare(a.Left, b.Left); c != 0 {
			return c < 0
		}
		if c := bytes.Compare(a.Right, b.Right); c != 0 {
			return c < 0
		}
		return a.Names[0] < b.Names[0]
	})
	merged := in.Pairs[:0]
	for _, p := range in.Pairs {
		if n := len(merged); n > 0 && bytes.Equal(merged[n-1].Left, p.Left) && bytes.Equal(merged[n-1].Right, p.Right) {
			merged[n-1].Names = append(merged[n-1].Names, p.Names...)
			continue
		}
		merged = append(merged, p)
	}
	in.Pairs = merged
	return len(in.Pairs)
}

// cleanSeq returns a cleaned copy of seq.  Input slices may share storage
// with the loaded reads, so they are not modified.
func cleanSeq(seq []byte) []byte {
	out := append([]byte(nil), seq...)
	biosimd.CleanASCIISeqInplace(out)
	return out
}

func goodScores(scores [][4]float64) bool {
	bad := 0
	for _, row := range scores {
		if maxScore(row) <= 0 {
			bad++
		}
	}
	return bad <= maxBadPositions
}

func maxScore(row [4]float64) float64 {
	m := row[0]
	for _, v := range row[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minScore(row [4]float64) float64 {
	m := row[0]
	for _, v := range row[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
