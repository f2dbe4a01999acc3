// Package fasta contains code for parsing FASTA files.  Briefly, FASTA files
// consist of a number of named sequences that may be interrupted by newlines.
// For example:
//
// >chr7
// ACGTAC
// GAGGAC
// GCG
// >chr8
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'.  Any text appear after a space are ignored.
// For example, '>chr1 A viral sequence' becomes 'chr1'.
package fasta

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	bufferInitSize = 1024 * 1024 * 300 // 300 MB
)

// Record is one named sequence.  Seq holds the raw letters with the line
// breaks removed.
type Record struct {
	Name string
	Seq  []byte
}

// Read parses every record of r, in order of appearance.
func Read(r io.Reader) ([]Record, error) {
	var (
		records []Record
		seq     bytes.Buffer
		name    string
		inSeq   bool
	)
	flush := func() {
		records = append(records, Record{Name: name, Seq: append([]byte(nil), seq.Bytes()...)})
		seq.Reset()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, bufferInitSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new sequence.
			if inSeq {
				flush()
			}
			name = strings.Split(string(line[1:]), " ")[0]
			inSeq = true
			continue
		}
		if !inSeq {
			return nil, errors.Errorf("malformed FASTA file: sequence data before the first header")
		}
		seq.Write(bytes.TrimRight(line, "\r"))
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	if inSeq {
		flush()
	}
	return records, nil
}
