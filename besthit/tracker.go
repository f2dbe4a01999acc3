package besthit

import "sort"

// AmbiguousPair identifies a read pair that was removed from the working set
// because it has several equally good sites.
type AmbiguousPair struct {
	Read  int
	Score int
}

// Tracker owns the records of every read pair of a run, plus the set of pairs
// that still take part in scanning.
//
// A Tracker is not safe for concurrent mutation.  While scanners run, it is
// only read, through the Local sinks it hands out; their results are folded
// in with Merge once the scanners are done.
type Tracker struct {
	maxMappings int
	records     []Record
	active      []int
}

// NewTracker returns a tracker for n read pairs, all active and unscored.
// At most maxMappings tied sites are stored per pair.
func NewTracker(n, maxMappings int) *Tracker {
	t := &Tracker{
		maxMappings: maxMappings,
		records:     make([]Record, n),
		active:      make([]int, n),
	}
	for i := range t.records {
		t.records[i] = NewRecord()
		t.active[i] = i
	}
	return t
}

// Len returns the number of read pairs.
func (t *Tracker) Len() int { return len(t.records) }

// MaxMappings returns the per-pair site cap.
func (t *Tracker) MaxMappings() int { return t.maxMappings }

// Active returns the ids of the read pairs still in the working set, in
// increasing order.  The result must not be modified.
func (t *Tracker) Active() []int { return t.active }

// Record returns the current record of read pair i.
func (t *Tracker) Record(i int) Record { return t.records[i] }

// Best returns the best score seen so far for read pair i.
func (t *Tracker) Best(i int) int { return t.records[i].Score }

// NewLocal returns an empty sink whose updates can later be merged into t.
func (t *Tracker) NewLocal() *Local {
	return &Local{t: t, records: map[int]Record{}}
}

// Merge folds the updates collected by l into the tracker.  Merging the
// locals of a stage in a fixed order yields the same records as offering all
// of their sites sequentially in that order.
func (t *Tracker) Merge(l *Local) {
	for read, r := range l.records {
		t.records[read] = t.records[read].Merge(r, t.maxMappings)
	}
}

// Eliminate collapses the records of all active pairs and removes from the
// working set every ambiguous pair whose score is <= threshold.  The removed
// pairs are returned in increasing id order.  Unique pairs stay active, since
// a later seed or chromosome may still reveal a tie.
func (t *Tracker) Eliminate(threshold int) []AmbiguousPair {
	var removed []AmbiguousPair
	kept := t.active[:0]
	for _, i := range t.active {
		r := t.records[i].Collapse()
		t.records[i] = r
		if r.Status() == Ambiguous && r.Score <= threshold {
			removed = append(removed, AmbiguousPair{Read: i, Score: r.Score})
			continue
		}
		kept = append(kept, i)
	}
	t.active = kept
	return removed
}

// Finalize runs the last elimination with the full acceptance threshold.
// Every site reaching the tracker scores at most threshold, so afterwards
// every active pair is either unique or unmapped.
func (t *Tracker) Finalize(threshold int) []AmbiguousPair {
	return t.Eliminate(threshold)
}

// Local collects the sites found by one scan unit.  Its Best method consults
// both the local updates and the tracker's records as of when the unit
// started.  A Local is not safe for concurrent use.
type Local struct {
	t       *Tracker
	records map[int]Record
}

// Best returns the best score known for read, locally or globally.
func (l *Local) Best(read int) int {
	best := l.t.records[read].Score
	if r, ok := l.records[read]; ok && r.Score < best {
		best = r.Score
	}
	return best
}

// Offer records a candidate site for read.
func (l *Local) Offer(read, score int, site Site) {
	if score > l.t.records[read].Score {
		return
	}
	r, ok := l.records[read]
	if !ok {
		r = NewRecord()
	}
	if r, changed := r.Add(score, site, l.t.maxMappings); changed {
		l.records[read] = r
	}
}

// Len returns the number of read pairs with local updates.
func (l *Local) Len() int { return len(l.records) }

// Region is one reported hit of a named read.
type Region struct {
	Chrom  string
	Start  int
	End    int
	Name   string
	Score  float64
	Strand Strand
}

// Regions translates the site of every active unique read pair into hit
// regions.
// chroms maps chromosome ids to names, names maps read ids to the names of
// the reads collapsed into them, and score converts a record score into the
// reported unit.  The region of a pair is repeated once per name.
func (t *Tracker) Regions(chroms []string, readWidth int, names [][]string, score func(int) float64) []Region {
	var out []Region
	for _, i := range t.active {
		r := t.records[i]
		if r.Status() != Unique {
			continue
		}
		for _, s := range r.SortedSites() {
			for _, name := range names[i] {
				out = append(out, Region{
					Chrom:  chroms[s.Chrom],
					Start:  s.Left,
					End:    s.Right + readWidth,
					Name:   name,
					Score:  score(r.Score),
					Strand: s.Strand,
				})
			}
		}
	}
	return out
}

// SortRegions orders regions by chromosome name, start, end, then name.
func SortRegions(regions []Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		a, b := &regions[i], &regions[j]
		if a.Chrom != b.Chrom {
			return a.Chrom < b.Chrom
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Name < b.Name
	})
}
