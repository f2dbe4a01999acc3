// Package fastq scans paired FASTQ files for the mapper.  Records are
// validated as they are read: the header must start with '@', the separator
// with '+', and the quality string must be as long as the sequence.
package fastq

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
)

// Read is one FASTQ record.  Seq and Qual are owned by the Read and stay
// valid after the next Scan.
type Read struct {
	// Name is the header without the leading '@', cut at the first space.
	Name string
	Seq  []byte
	Qual []byte
}

// Scanner reads FASTQ records from a stream.  It is not safe for concurrent
// use.
type Scanner struct {
	b      *bufio.Scanner
	line   int
	err    error
	closed bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(nil, 1<<20)
	return &Scanner{b: b}
}

func (s *Scanner) invalid(format string, args ...interface{}) bool {
	s.err = errors.E(errors.Invalid, fmt.Sprintf("fastq: line %d: ", s.line)+fmt.Sprintf(format, args...))
	return false
}

func (s *Scanner) next() ([]byte, bool) {
	if !s.b.Scan() {
		if s.err = s.b.Err(); s.err == nil {
			s.err = errors.E(errors.Invalid, fmt.Sprintf("fastq: truncated record after line %d", s.line))
		}
		return nil, false
	}
	s.line++
	return s.b.Bytes(), true
}

// Scan reads the next record into r.  It returns false at the end of the
// stream or on the first error; Err tells the two apart.
func (s *Scanner) Scan(r *Read) bool {
	if s.closed || s.err != nil {
		return false
	}
	if !s.b.Scan() {
		s.closed = true
		s.err = s.b.Err()
		return false
	}
	s.line++
	header := s.b.Bytes()
	if len(header) == 0 || header[0] != '@' {
		return s.invalid("header %q does not start with '@'", header)
	}
	name := header[1:]
	if i := bytes.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	r.Name = string(name)
	seq, ok := s.next()
	if !ok {
		return false
	}
	r.Seq = append(r.Seq[:0], seq...)
	sep, ok := s.next()
	if !ok {
		return false
	}
	if len(sep) == 0 || sep[0] != '+' {
		return s.invalid("separator %q does not start with '+'", sep)
	}
	qual, ok := s.next()
	if !ok {
		return false
	}
	if len(qual) != len(r.Seq) {
		return s.invalid("read %s: %d bases but %d qualities", r.Name, len(r.Seq), len(qual))
	}
	r.Qual = append(r.Qual[:0], qual...)
	return true
}

// Err returns the first error met by Scan, or nil at a clean end of stream.
func (s *Scanner) Err() error { return s.err }

// PairScanner reads R1 and R2 streams in lockstep.
type PairScanner struct {
	r1, r2 *Scanner
	err    error
}

// NewPairScanner returns a scanner of the R1 and R2 streams.
func NewPairScanner(r1, r2 io.Reader) *PairScanner {
	return &PairScanner{r1: NewScanner(r1), r2: NewScanner(r2)}
}

// mateName strips a trailing "/1" or "/2".
func mateName(name string) string {
	if n := len(name); n > 2 && name[n-2] == '/' && (name[n-1] == '1' || name[n-1] == '2') {
		return name[:n-2]
	}
	return name
}

// Scan reads the next pair.  The streams must hold the same number of
// records, and the records of a pair must share a name once any "/1" or
// "/2" suffix is removed.  On success both reads carry the shared name.
func (p *PairScanner) Scan(r1, r2 *Read) bool {
	if p.err != nil {
		return false
	}
	ok1 := p.r1.Scan(r1)
	ok2 := p.r2.Scan(r2)
	if ok1 != ok2 && p.r1.Err() == nil && p.r2.Err() == nil {
		p.err = errors.E(errors.Invalid, "fastq: R1 and R2 hold different numbers of reads")
	}
	if !ok1 || !ok2 {
		return false
	}
	n1, n2 := mateName(r1.Name), mateName(r2.Name)
	if n1 != n2 {
		p.err = errors.E(errors.Invalid, fmt.Sprintf("fastq: mates %s and %s do not match", r1.Name, r2.Name))
		return false
	}
	r1.Name, r2.Name = n1, n2
	return true
}

// Err returns the first error of either stream or of their pairing.
func (p *PairScanner) Err() error {
	if err := p.r1.Err(); err != nil {
		return err
	}
	if err := p.r2.Err(); err != nil {
		return err
	}
	return p.err
}
