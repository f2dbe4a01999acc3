package fastq

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// PhredOffset is the ASCII offset of Sanger / Illumina 1.8+ quality strings.
const PhredOffset = 33

var baseIndex = [256]int8{}

func init() {
	for i := range baseIndex {
		baseIndex[i] = -1
	}
	for i, ch := range "ACGT" {
		baseIndex[ch] = int8(i)
		baseIndex[ch+'a'-'A'] = int8(i)
	}
}

// BaseScores converts the quality string of r into per-position letter
// scores, in A, C, G, T order: the Phred quality of the called base, and zero
// for the three other letters.  Positions called N score zero everywhere.
// Larger is more confident.
func (r *Read) BaseScores() ([][4]float64, error) {
	if len(r.Seq) != len(r.Qual) {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("fastq: read %s: %d bases but %d qualities", r.Name, len(r.Seq), len(r.Qual)))
	}
	scores := make([][4]float64, len(r.Seq))
	for i, ch := range r.Seq {
		q := int(r.Qual[i]) - PhredOffset
		if q < 0 {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("fastq: read %s: quality %q below the Phred offset", r.Name, r.Qual[i]))
		}
		if k := baseIndex[ch]; k >= 0 {
			scores[i][k] = float64(q)
		}
	}
	return scores, nil
}
