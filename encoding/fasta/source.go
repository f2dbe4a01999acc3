package fasta

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// SourceOpts selects the chromosomes of a run.
type SourceOpts struct {
	// Path is a FASTA file, every record of which is a chromosome, or a
	// directory of per-chromosome FASTA files.
	Path string
	// Suffix filters the files of a directory.  Empty means "fa".
	Suffix string
	// ListFile, if set, names a file listing one chromosome FASTA file per
	// line.  Path is then ignored.
	ListFile string
}

type chromRef struct {
	name string
	path string
	// index is set when the chromosome is read through a .fai index.
	index *IndexEntry
}

// Source enumerates chromosomes and loads their sequences on demand.  A
// single FASTA file with a .fai index next to it is read one record at a
// time; without an index it is kept in memory.  Otherwise each Load reads
// the chromosome's file, whose first record is the chromosome.  A Source is
// safe for concurrent use.
type Source struct {
	refs []chromRef
	// records is set for single-file sources.
	records []Record
}

// NewSource discovers the chromosomes described by opts.
func NewSource(ctx context.Context, opts SourceOpts) (*Source, error) {
	var paths []string
	switch {
	case opts.ListFile != "":
		var err error
		if paths, err = readList(ctx, opts.ListFile); err != nil {
			return nil, err
		}
	case isDir(opts.Path):
		suffix := opts.Suffix
		if suffix == "" {
			suffix = "fa"
		}
		lister := file.List(ctx, opts.Path, false)
		for lister.Scan() {
			if strings.HasSuffix(lister.Path(), "."+suffix) {
				paths = append(paths, lister.Path())
			}
		}
		if err := lister.Err(); err != nil {
			return nil, errors.Wrapf(err, "list %s", opts.Path)
		}
		sort.Strings(paths)
	default:
		index, err := readIndexFile(ctx, opts.Path)
		if err != nil {
			return nil, err
		}
		if len(index) > 0 {
			s := &Source{}
			for i := range index {
				s.refs = append(s.refs, chromRef{name: index[i].Name, path: opts.Path, index: &index[i]})
			}
			return s, nil
		}
		records, err := ReadFile(ctx, opts.Path)
		if err != nil {
			return nil, err
		}
		s := &Source{records: records}
		for _, r := range records {
			s.refs = append(s.refs, chromRef{name: r.Name, path: opts.Path})
		}
		if len(s.refs) == 0 {
			return nil, errors.Errorf("%s: no chromosomes", opts.Path)
		}
		return s, nil
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("%s: no chromosome files", opts.Path+opts.ListFile)
	}
	s := &Source{}
	for _, path := range paths {
		s.refs = append(s.refs, chromRef{name: chromName(path), path: path})
	}
	return s, nil
}

// NewSourceFromRecords returns a source over in-memory chromosomes.
func NewSourceFromRecords(records []Record) *Source {
	s := &Source{records: records}
	for _, r := range records {
		s.refs = append(s.refs, chromRef{name: r.Name})
	}
	return s
}

// Len returns the number of chromosomes.
func (s *Source) Len() int { return len(s.refs) }

// Names returns the chromosome names, indexed by chromosome id.
func (s *Source) Names() []string {
	names := make([]string, len(s.refs))
	for i, r := range s.refs {
		names[i] = r.name
	}
	return names
}

// Path returns the file chromosome i is read from.
func (s *Source) Path(i int) string { return s.refs[i].path }

// Load returns the sequence of chromosome i.  The result must not be
// modified.
func (s *Source) Load(ctx context.Context, i int) ([]byte, error) {
	if s.records != nil {
		return s.records[i].Seq, nil
	}
	if e := s.refs[i].index; e != nil {
		return loadIndexedFile(ctx, s.refs[i].path, *e)
	}
	records, err := ReadFile(ctx, s.refs[i].path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.Errorf("%s: empty FASTA file", s.refs[i].path)
	}
	return records[0].Seq, nil
}

// ReadFile reads all records of a FASTA file.  Compressed files are
// decompressed transparently.
func ReadFile(ctx context.Context, path string) ([]Record, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close(ctx) // nolint: errcheck
	var r io.Reader = f.Reader(ctx)
	if u := compress.NewReaderPath(r, f.Name()); u != nil {
		r = u
	}
	records, err := Read(r)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return records, nil
}

func loadIndexedFile(ctx context.Context, path string, e IndexEntry) ([]byte, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close(ctx) // nolint: errcheck
	seq, err := loadIndexed(f.Reader(ctx), e)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return seq, nil
}

func readList(ctx context.Context, path string) ([]string, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close(ctx) // nolint: errcheck
	var paths []string
	scanner := bufio.NewScanner(f.Reader(ctx))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return paths, nil
}

// chromName strips the directory and the last extension of path.
func chromName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isDir(path string) bool {
	if strings.HasSuffix(path, "/") {
		return true
	}
	if strings.Contains(path, "://") {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
