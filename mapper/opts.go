package mapper

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/pemap/seed"
)

// Opts defines a mapping run.
type Opts struct {
	// ReadsPath is a FASTA file of concatenated pairs, or the R1 FASTQ file
	// when Reads2Path is set.
	ReadsPath string
	// Reads2Path is the R2 FASTQ file.
	Reads2Path string
	// PrbPath is an optional .prb quality file matching the records of a FASTA
	// ReadsPath.
	PrbPath string
	// FASTQQuality weighs mismatches by the FASTQ quality strings.
	FASTQQuality bool

	// ChromPath is a FASTA file or a directory of FASTA files.
	ChromPath string
	// ChromSuffix filters the files of a ChromPath directory.
	ChromSuffix string
	// ChromList names a file listing chromosome FASTA files, one per line.  It
	// overrides ChromPath.
	ChromList string

	// OutputPath receives the hit regions.  Empty means stdout.  A ".gz"
	// suffix selects gzip compression.
	OutputPath string
	// AmbiguousPath, if set, receives the names of ambiguously mapped reads.
	AmbiguousPath string
	// BedPath and Region restrict the reported hits to those overlapping the
	// given targets.  At most one of them may be set.
	BedPath string
	Region  string
	// BedOneBased reads BedPath as one-based, closed intervals.
	BedOneBased bool
	// ExcludeTargets reports the hits that do not overlap the targets instead.
	ExcludeTargets bool

	// ReadWidth is the width of a concatenated FASTA pair.  0 means the
	// shortest read.
	ReadWidth int
	// MateWidth is the width of one mate.  0 means ReadWidth/2 for FASTA input
	// and the shortest mate for FASTQ input.
	MateWidth int
	// MaxMismatches bounds the summed mismatches of both mates.
	MaxMismatches int
	// SeedCount is the number of seed masks.  0 means MaxMismatches+1.
	SeedCount int
	// SeedWeight is the number of positions per seed.  0 means the largest
	// weight that fits.
	SeedWeight int
	// MinSep and MaxSep bound the distance between the starts of the left and
	// right mates: MinSep < separation <= MaxSep.
	MinSep, MaxSep int
	// MaxMappings is the number of tied sites stored per pair.
	MaxMappings int
	// Parallelism is the number of concurrent chromosome scans.  0 means
	// runtime.NumCPU().
	Parallelism int
}

// MaxSepLimit bounds MaxSep.  Each concurrent scan keeps a window per offset
// of the separation range.
const MaxSepLimit = 1 << 20

// DefaultOpts holds the default settings.
var DefaultOpts = Opts{
	ChromSuffix:   "fa",
	MaxMismatches: 2,
	MinSep:        0,
	MaxSep:        200,
	MaxMappings:   1,
}

func invalidf(format string, args ...interface{}) error {
	return errors.E(errors.Invalid, fmt.Sprintf("mapper: "+format, args...))
}

// Validate checks the numeric settings that do not depend on the input.
func (o *Opts) Validate() error {
	if o.MaxMismatches < 0 {
		return invalidf("negative mismatch count %d", o.MaxMismatches)
	}
	if o.SeedCount < 0 || o.SeedWeight < 0 {
		return invalidf("negative seed count (%d) or weight (%d)", o.SeedCount, o.SeedWeight)
	}
	if o.ReadWidth < 0 || o.MateWidth < 0 {
		return invalidf("negative read width (%d) or mate width (%d)", o.ReadWidth, o.MateWidth)
	}
	if o.MaxSep <= 0 || o.MaxSep > MaxSepLimit {
		return invalidf("max separation must be in [1, %d], got %d", MaxSepLimit, o.MaxSep)
	}
	if o.MinSep < 0 || o.MinSep >= o.MaxSep {
		return invalidf("min separation %d must be in [0, %d)", o.MinSep, o.MaxSep)
	}
	if o.MaxMappings < 1 {
		return invalidf("max mappings must be at least 1, got %d", o.MaxMappings)
	}
	if o.BedPath != "" && o.Region != "" {
		return invalidf("bed and region targets can't be used together")
	}
	if o.BedOneBased && o.BedPath == "" {
		return invalidf("one-based BED input needs a BED file")
	}
	if o.ExcludeTargets && o.BedPath == "" && o.Region == "" {
		return invalidf("target exclusion needs a BED file or regions")
	}
	if o.SeedCount > 0 {
		if err := seed.CheckCoverage(o.SeedCount, o.MaxMismatches); err != nil {
			return err
		}
	}
	return nil
}

// seedCount returns the effective number of seeds.
func (o *Opts) seedCount() int {
	if o.SeedCount > 0 {
		return o.SeedCount
	}
	return o.MaxMismatches + 1
}

// seedWeight returns the effective seed weight for mates of the given width.
func (o *Opts) seedWeight(mateWidth int) int {
	if o.SeedWeight > 0 {
		return o.SeedWeight
	}
	return seed.KeyWidth(mateWidth) / o.seedCount()
}
