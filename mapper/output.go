package mapper

import (
	"context"
	"io"
	"os"
	"strconv"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/pemap/besthit"
	"github.com/grailbio/pemap/interval"
	"github.com/klauspost/compress/gzip"
)

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'g', -1, 64)
}

// WriteRegions writes one line per region:
//   chrom  start  end  name  score  strand
// Coordinates are 0-based and half-open.
func WriteRegions(w io.Writer, regions []besthit.Region) error {
	tw := tsv.NewWriter(w)
	for i := range regions {
		r := &regions[i]
		tw.WriteString(r.Chrom)
		tw.WriteUint32(uint32(r.Start))
		tw.WriteUint32(uint32(r.End))
		tw.WriteString(r.Name)
		tw.WriteString(formatScore(r.Score))
		tw.WriteString(r.Strand.String())
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteAmbiguous writes one "name<TAB>score" line per read.
func WriteAmbiguous(w io.Writer, reads []AmbiguousRead) error {
	tw := tsv.NewWriter(w)
	for _, r := range reads {
		tw.WriteString(r.Name)
		tw.WriteString(formatScore(r.Score))
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Checksum hashes regions in their written form.
func Checksum(regions []besthit.Region) uint64 {
	h := seahash.New()
	// Writes to a hash never fail.
	_ = WriteRegions(h, regions)
	return h.Sum64()
}

// FilterRegions returns the regions that overlap targets, or with exclude
// set, the regions that don't.  The result shares storage with regions.
func FilterRegions(regions []besthit.Region, targets *interval.BEDUnion, exclude bool) []besthit.Region {
	kept := regions[:0]
	for _, r := range regions {
		if targets.IntersectsByName(r.Chrom, interval.PosType(r.Start), interval.PosType(r.End)) != exclude {
			kept = append(kept, r)
		}
	}
	return kept
}

// writePath creates path and passes its writer to write.  An empty path
// means stdout, and a ".gz" path is gzip-compressed.
func writePath(ctx context.Context, path string, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(os.Stdout)
	}
	var out file.File
	if out, err = file.Create(ctx, path); err != nil {
		return errors.E(err, "create", path)
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = errors.E(cerr, "close", path)
		}
	}()
	w := out.Writer(ctx)
	if fileio.DetermineType(path) != fileio.Gzip {
		return write(w)
	}
	gz := gzip.NewWriter(w)
	if err = write(gz); err != nil {
		return err
	}
	return gz.Close()
}
