package mapper

import (
	"context"
	"io"

	"github.com/grailbio/base/log"
	"github.com/grailbio/pemap/encoding/fasta"
	"github.com/grailbio/pemap/interval"
)

// Run loads the reads and chromosomes named by opts, maps them, and writes
// the hit regions and the ambiguous reads.
func Run(ctx context.Context, opts Opts) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.ReadsPath == "" {
		return nil, invalidf("no reads file")
	}
	if opts.Reads2Path != "" && opts.PrbPath != "" {
		return nil, invalidf("prb qualities apply to FASTA input only")
	}
	if opts.Reads2Path == "" && opts.FASTQQuality {
		return nil, invalidf("FASTQ qualities require paired FASTQ input")
	}
	var targets *interval.BEDUnion
	switch {
	case opts.BedPath != "":
		u, err := interval.NewBEDUnionFromPath(ctx, opts.BedPath, interval.NewBEDOpts{OneBasedInput: opts.BedOneBased})
		if err != nil {
			return nil, err
		}
		targets = &u
	case opts.Region != "":
		u, err := interval.ParseRegions(opts.Region)
		if err != nil {
			return nil, invalidf("region %q: %v", opts.Region, err)
		}
		targets = &u
	}

	var (
		in  *Input
		err error
	)
	if opts.Reads2Path != "" {
		in, err = LoadFASTQ(ctx, opts.ReadsPath, opts.Reads2Path, opts.FASTQQuality, opts.MateWidth)
	} else {
		in, err = LoadFASTA(ctx, opts.ReadsPath, opts.PrbPath, opts.ReadWidth, opts.MateWidth)
	}
	if err != nil {
		return nil, err
	}
	src, err := fasta.NewSource(ctx, fasta.SourceOpts{
		Path:     opts.ChromPath,
		Suffix:   opts.ChromSuffix,
		ListFile: opts.ChromList,
	})
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, src.Len())
	for i, name := range src.Names() {
		log.Debug.Printf("chromosome %s: %s", name, src.Path(i))
		known[name] = true
	}
	if targets != nil {
		for _, name := range targets.Chroms() {
			if !known[name] {
				log.Printf("target chromosome %s is not among the chromosomes", name)
			}
		}
	}

	res, err := Map(ctx, in, src, opts)
	if err != nil {
		return nil, err
	}
	if targets != nil {
		n := len(res.Regions)
		res.Regions = FilterRegions(res.Regions, targets, opts.ExcludeTargets)
		res.Checksum = Checksum(res.Regions)
		log.Printf("%d of %d hit regions overlap the targets", len(res.Regions), n)
	}
	if err := writePath(ctx, opts.OutputPath, func(w io.Writer) error {
		return WriteRegions(w, res.Regions)
	}); err != nil {
		return nil, err
	}
	if opts.AmbiguousPath != "" {
		if err := writePath(ctx, opts.AmbiguousPath, func(w io.Writer) error {
			return WriteAmbiguous(w, res.Ambiguous)
		}); err != nil {
			return nil, err
		}
	}
	s := res.Stats
	log.Printf("%d pairs (%d after QC): %d unique, %d ambiguous, %d unmapped; %d hit regions, checksum %016x",
		s.TotalPairs, s.PairsAfterQC, s.Unique, s.Ambiguous, s.Unmapped, len(res.Regions), res.Checksum)
	return res, nil
}
