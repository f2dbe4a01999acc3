package interval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/klauspost/compress/gzip"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// NewBEDOpts defines how BED files are read.
type NewBEDOpts struct {
	// OneBasedInput reads the interval boundaries as one-based [start, end]
	// instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// PosType is BEDUnion's coordinate type.
type PosType int32

const posTypeMax = math.MaxInt32

// BEDUnion holds, per chromosome, the sorted boundaries of disjoint
// intervals: interval k covers [b[2k], b[2k+1]).  A BEDUnion is immutable
// and safe for concurrent use.
type BEDUnion struct {
	// nameMap is never nil.  A chromosome mentioned only by empty intervals
	// maps to an empty slice.
	nameMap map[string][]PosType
}

// Chroms returns the sorted names of the chromosomes mentioned by the union.
func (u *BEDUnion) Chroms() []string {
	names := make([]string, 0, len(u.nameMap))
	for name := range u.nameMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IntersectsByName reports whether [start, end) on the named chromosome
// shares a position with the union.  It panics unless start < end.
func (u *BEDUnion) IntersectsByName(chrName string, start, end PosType) bool {
	if end <= start {
		panic(fmt.Sprintf("interval.IntersectsByName: empty interval [%d, %d)", start, end))
	}
	b := u.nameMap[chrName]
	// Index of the first boundary past start; odd means start is covered.
	idx := sort.Search(len(b), func(i int) bool { return b[i] > start })
	if idx&1 == 1 {
		return true
	}
	return idx != len(b) && end > b[idx]
}

// unionBuilder merges sorted intervals into a BEDUnion, one chromosome at a
// time.
type unionBuilder struct {
	u            BEDUnion
	prevChr      string
	prevStart    PosType
	prevEnd      PosType
	chrIntervals []PosType
	totBases     int
}

func newUnionBuilder() *unionBuilder {
	return &unionBuilder{u: BEDUnion{nameMap: make(map[string][]PosType)}}
}

// flush saves the intervals of the current chromosome.
func (b *unionBuilder) flush() {
	if b.prevChr == "" {
		return
	}
	if b.prevEnd != -1 {
		b.chrIntervals = append(b.chrIntervals, b.prevStart, b.prevEnd)
	}
	b.u.nameMap[b.prevChr] = b.chrIntervals
}

// add appends [start, end) on chr.  Empty intervals only register the
// chromosome.  chr must be a string the caller won't mutate.
func (b *unionBuilder) add(chr string, start, end PosType) error {
	if start < 0 {
		return fmt.Errorf("negative start coordinate %d", start)
	}
	if end < start || end >= posTypeMax {
		return fmt.Errorf("invalid coordinate pair [%d, %d)", start, end)
	}
	if chr != b.prevChr {
		b.flush()
		if _, found := b.u.nameMap[chr]; found {
			return fmt.Errorf("unsorted input (split chromosome %v)", chr)
		}
		b.prevChr = chr
		b.chrIntervals = []PosType{}
		if end == start {
			// Distinguish between 'mentioned' chromosomes without any overlapping
			// bases and unmentioned chromosomes.
			b.prevStart, b.prevEnd = -1, -1
			return nil
		}
		b.prevStart, b.prevEnd = start, end
		b.totBases += int(end - start)
		return nil
	}
	if end == start {
		return nil
	}
	if b.prevEnd == -1 {
		b.prevStart, b.prevEnd = start, end
		b.totBases += int(end - start)
		return nil
	}
	if start > b.prevEnd {
		b.chrIntervals = append(b.chrIntervals, b.prevStart, b.prevEnd)
		b.prevStart, b.prevEnd = start, end
		b.totBases += int(end - start)
		return nil
	}
	if start < b.prevStart {
		return fmt.Errorf("unsorted input")
	}
	// Intervals overlap, merge them.
	if end > b.prevEnd {
		b.totBases += int(end - b.prevEnd)
		b.prevEnd = end
	}
	return nil
}

func (b *unionBuilder) finish() BEDUnion {
	b.flush()
	return b.u
}

func scanBEDUnion(scanner *bufio.Scanner, opts NewBEDOpts) (BEDUnion, error) {
	var startSubtract int
	if opts.OneBasedInput {
		startSubtract++
	}
	b := newUnionBuilder()
	var tokens [3][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 || tokens[0][0] == '#' || isHeaderLine(tokens[0]) {
			continue
		}
		if nToken != 3 {
			return BEDUnion{}, fmt.Errorf("interval.scanBEDUnion: line %d has fewer tokens than expected", lineIdx)
		}
		parsedStart, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return BEDUnion{}, fmt.Errorf("interval.scanBEDUnion: line %d: %v", lineIdx, err)
		}
		parsedEnd, err := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if err != nil {
			return BEDUnion{}, fmt.Errorf("interval.scanBEDUnion: line %d: %v", lineIdx, err)
		}
		parsedStart -= startSubtract
		if parsedEnd >= posTypeMax {
			return BEDUnion{}, fmt.Errorf("interval.scanBEDUnion: invalid coordinate pair on line %d", lineIdx)
		}
		// The chromosome name persists as a map key, so it must not alias the
		// scanner's buffer.
		chr := tokens[0]
		chrName := b.prevChr
		if gunsafe.BytesToString(chr) != chrName {
			chrName = string(chr)
		}
		if err := b.add(chrName, PosType(parsedStart), PosType(parsedEnd)); err != nil {
			return BEDUnion{}, fmt.Errorf("interval.scanBEDUnion: line %d: %v", lineIdx, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return BEDUnion{}, err
	}
	log.Printf("BED loaded, %d base(s) covered.", b.totBases)
	return b.finish(), nil
}

// isHeaderLine reports whether the first token marks a UCSC "track" or
// "browser" line.
func isHeaderLine(tok []byte) bool {
	s := gunsafe.BytesToString(tok)
	return s == "track" || s == "browser"
}

// NewBEDUnion loads just the intervals from a sorted (by first coordinate)
// interval-BED, merging touching/overlapping intervals and eliminating empty
// ones in the process.
func NewBEDUnion(reader io.Reader, opts NewBEDOpts) (BEDUnion, error) {
	return scanBEDUnion(bufio.NewScanner(reader), opts)
}

// NewBEDUnionFromPath is a wrapper for NewBEDUnion that takes a path instead
// of an io.Reader.  Gzipped files are recognized by their extension.
func NewBEDUnionFromPath(ctx context.Context, path string, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return NewBEDUnion(reader, opts)
}

// Entry represents a single interval, with 0-based coordinates.
type Entry struct {
	ChrName string
	Start0  PosType
	End     PosType
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a contig ID and 0-based interval boundaries.  The interval
// [0, posTypeMax - 1] is returned if there is no positional restriction.
func ParseRegionString(region string) (result Entry, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.IndexByte(region, ':')
	if colonPos == -1 {
		result.ChrName = region
		result.End = posTypeMax - 1
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty contig ID")
		return
	}
	result.ChrName = region[0:colonPos]
	rangeStr := region[colonPos+1:]
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int64
		if pos1, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			return
		}
		if pos1 <= 0 {
			err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", rangeStr)
			return
		}
		result.Start0 = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	start1Str := rangeStr[:dashPos]
	endStr := rangeStr[dashPos+1:]
	var start1 int
	if start1, err = strconv.Atoi(start1Str); err != nil {
		return
	}
	if start1 <= 0 {
		err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", start1Str)
		return
	}
	var end0 int
	if end0, err = strconv.Atoi(endStr); err != nil {
		return
	}
	if end0 < start1 || end0 >= posTypeMax {
		err = fmt.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
		return
	}
	result.Start0 = PosType(start1 - 1)
	result.End = PosType(end0)
	return
}

// NewBEDUnionFromEntries builds a BEDUnion from entries sorted by chromosome
// and start.
func NewBEDUnionFromEntries(entries []Entry) (BEDUnion, error) {
	b := newUnionBuilder()
	for _, entry := range entries {
		if err := b.add(entry.ChrName, entry.Start0, entry.End); err != nil {
			return BEDUnion{}, fmt.Errorf("interval.NewBEDUnionFromEntries: %v", err)
		}
	}
	return b.finish(), nil
}

// ParseRegions parses comma-separated region strings, sorts them, and
// returns their union.
func ParseRegions(regions string) (BEDUnion, error) {
	var entries []Entry
	for _, r := range strings.Split(regions, ",") {
		if r = strings.TrimSpace(r); r == "" {
			continue
		}
		e, err := ParseRegionString(r)
		if err != nil {
			return BEDUnion{}, err
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ChrName != entries[j].ChrName {
			return entries[i].ChrName < entries[j].ChrName
		}
		return entries[i].Start0 < entries[j].Start0
	})
	return NewBEDUnionFromEntries(entries)
}
