package mapper

import (
	"math"

	"github.com/grailbio/pemap/packedread"
)

// PrepareQuality turns the letter scores of every pair into penalties and
// returns the codec that quantizes them, along with the largest accepted
// pair score.
//
// The score range is taken over all letters of all mates.  The penalty of a
// letter is the best score at its position minus its own score, so the
// called letter costs nothing and every penalty lies in [0, max-min].  A
// pair may accumulate the cost of maxMismatches fully confident mismatches.
func PrepareQuality(in *Input, maxMismatches int) (*packedread.Codec, int, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range in.Pairs {
		for _, scores := range [][][4]float64{p.LeftScores, p.RightScores} {
			for _, row := range scores {
				lo = math.Min(lo, minScore(row))
				hi = math.Max(hi, maxScore(row))
			}
		}
	}
	if !(hi > lo) {
		return nil, 0, invalidf("quality scores span the empty range [%v, %v]", lo, hi)
	}
	codec, err := packedread.NewCodec(packedread.Opts{
		ReadWidth:  in.MateWidth,
		Quality:    true,
		MinQuality: 0,
		MaxQuality: hi - lo,
	})
	if err != nil {
		return nil, 0, err
	}
	for i := range in.Pairs {
		p := &in.Pairs[i]
		p.LeftScores = penalties(p.LeftScores)
		p.RightScores = penalties(p.RightScores)
	}
	maxMatchScore := maxMismatches * int(codec.QualityToValue(hi-lo))
	return codec, maxMatchScore, nil
}

// penalties returns the penalty matrix of scores.
func penalties(scores [][4]float64) [][4]float64 {
	out := make([][4]float64, len(scores))
	for i, row := range scores {
		best := maxScore(row)
		for k, v := range row {
			out[i][k] = best - v
		}
	}
	return out
}
