package fasta

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/tsv"
)

// IndexEntry is one line of a samtools faidx (.fai) index.
type IndexEntry struct {
	Name string
	// Length is the number of bases of the sequence.
	Length int64
	// Offset is the byte offset of the first base.
	Offset int64
	// LineBases and LineWidth are the bases per line and the bytes per line,
	// line terminator included.
	LineBases int64
	LineWidth int64
}

// GenerateIndex writes the .fai index of the FASTA data of in.  Every
// sequence line but the last of a record must have the same length.
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w       = tsv.NewWriter(out)
		r       = bufio.NewReader(in)
		cur     IndexEntry
		inSeq   bool
		lastLen int64 // bases on the previous line of the record
		off     int64
		nBytes  int64
	)
	flush := func() error {
		w.WriteString(cur.Name)
		w.WriteInt64(cur.Length)
		w.WriteInt64(cur.Offset)
		w.WriteInt64(cur.LineBases)
		w.WriteInt64(cur.LineWidth)
		return w.EndLine()
	}
	for {
		line, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return err
		}
		eof := err == io.EOF
		off += int64(len(line))
		nBytes += int64(len(line))
		seq := bytes.TrimRight(line, "\r\n")
		switch {
		case len(seq) == 0:
		case seq[0] == '>':
			if inSeq {
				if err := flush(); err != nil {
					return err
				}
			}
			cur = IndexEntry{Name: strings.Split(string(seq[1:]), " ")[0], Offset: off}
			inSeq, lastLen = true, 0
		case !inSeq:
			return errors.E(errors.Invalid, "fasta: sequence data before the first header")
		default:
			if cur.LineBases == 0 {
				cur.LineBases, cur.LineWidth = int64(len(seq)), int64(len(line))
			} else if lastLen != cur.LineBases || int64(len(seq)) > cur.LineBases {
				return errors.E(errors.Invalid, fmt.Sprintf("fasta: %s: uneven line lengths", cur.Name))
			}
			lastLen = int64(len(seq))
			cur.Length += lastLen
		}
		if eof {
			break
		}
	}
	if nBytes == 0 {
		return errors.E(errors.Invalid, "fasta: empty file")
	}
	if inSeq {
		if err := flush(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadIndex parses a .fai index.
func ReadIndex(in io.Reader) ([]IndexEntry, error) {
	r := tsv.NewReader(in)
	r.FieldsPerRecord = 5
	var entries []IndexEntry
	for {
		var e IndexEntry
		err := r.Read(&e)
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, errors.E(errors.Invalid, err, "fasta index")
		}
		if e.Length < 0 || e.Offset < 0 || (e.LineBases <= 0 && e.Length > 0) || e.LineWidth < e.LineBases {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("fasta index: bad entry %+v", e))
		}
		entries = append(entries, e)
	}
}

// readIndexFile returns the index at path+".fai", or nil if there is none.
// Compressed FASTA files are never indexed.
func readIndexFile(ctx context.Context, path string) ([]IndexEntry, error) {
	if fileio.DetermineType(path) != fileio.Other {
		return nil, nil
	}
	f, err := file.Open(ctx, path+".fai")
	if err != nil {
		if errors.Is(errors.NotExist, err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close(ctx) // nolint: errcheck
	entries, err := ReadIndex(f.Reader(ctx))
	if err != nil {
		return nil, errors.E(err, path+".fai")
	}
	return entries, nil
}

// loadIndexed reads the sequence described by e from r.
func loadIndexed(r io.ReadSeeker, e IndexEntry) ([]byte, error) {
	if e.Length == 0 {
		return []byte{}, nil
	}
	if _, err := r.Seek(e.Offset, io.SeekStart); err != nil {
		return nil, err
	}
	lines := (e.Length + e.LineBases - 1) / e.LineBases
	raw := make([]byte, e.Length+lines*(e.LineWidth-e.LineBases))
	n, err := io.ReadFull(r, raw)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	seq := make([]byte, 0, e.Length)
	for _, line := range bytes.Split(raw[:n], []byte{'\n'}) {
		seq = append(seq, bytes.TrimRight(line, "\r")...)
	}
	if int64(len(seq)) < e.Length {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("fasta: %s: %d bases, but the index says %d", e.Name, len(seq), e.Length))
	}
	return seq[:e.Length], nil
}
