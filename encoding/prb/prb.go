// Package prb reads Illumina .prb quality files.  Every line holds the
// scores of one read: four whitespace-separated numbers per position, in A,
// C, G, T order, larger meaning more confident.
package prb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Read parses one score matrix per non-empty line of r.
func Read(r io.Reader) ([][][4]float64, error) {
	var reads [][][4]float64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 16<<20)
	lineno := 0
	for scanner.Scan() {
		lineno++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields)%4 != 0 {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("prb: line %d: %d values is not a multiple of 4", lineno, len(fields)))
		}
		scores := make([][4]float64, len(fields)/4)
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.E(errors.Invalid, err, fmt.Sprintf("prb: line %d", lineno))
			}
			scores[i/4][i%4] = v
		}
		reads = append(reads, scores)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(err, "prb: read")
	}
	return reads, nil
}

// ReadFile reads a possibly compressed .prb file.
func ReadFile(ctx context.Context, path string) ([][][4]float64, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer f.Close(ctx) // nolint: errcheck
	var r io.Reader = f.Reader(ctx)
	if u := compress.NewReaderPath(r, f.Name()); u != nil {
		r = u
	}
	reads, err := Read(r)
	if err != nil {
		return nil, errors.E(err, path)
	}
	return reads, nil
}
