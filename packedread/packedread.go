package packedread

import (
	"bytes"
	"fmt"
	"math"
	"math/bits"

	"github.com/grailbio/base/errors"
)

const (
	// NValBits is the width of one quantized quality field.
	NValBits = 4
	// MaxValue is the largest quantized quality value, 2^NValBits - 1.
	MaxValue = 1<<NValBits - 1

	wordBits = 64
	// Number of bit-planes per word.  The exact layout uses the first three.
	nPlanes = 4

	planeHi  = 0
	planeLo  = 1
	planeBad = 2
)

// Base codes.  Every byte outside of ACGTacgt maps to BaseN.
const (
	BaseA uint8 = iota
	BaseC
	BaseG
	BaseT
	BaseN
)

var (
	baseCodeTable [256]uint8
	codeToBase    = [...]byte{'A', 'C', 'G', 'T', 'N'}
)

func init() {
	for i := range baseCodeTable {
		baseCodeTable[i] = BaseN
	}
	for code, ch := range []byte("ACGT") {
		baseCodeTable[ch] = uint8(code)
		baseCodeTable[ch+'a'-'A'] = uint8(code)
	}
}

// BaseCode returns the 2-bit code of an ASCII base, or BaseN.
func BaseCode(b byte) uint8 { return baseCodeTable[b] }

// Opts defines a Codec.  It is fixed for the duration of a run.
type Opts struct {
	// ReadWidth is the number of positions in every Read.
	ReadWidth int
	// Quality selects the quality-weighted layout.
	Quality bool
	// MinQuality and MaxQuality define the linear quantization range used by
	// QualityToValue.  They are ignored unless Quality is set.
	MinQuality, MaxQuality float64
}

// Codec encodes, shifts and scores Reads of one fixed width.  A Codec is
// immutable after NewCodec and safe for concurrent use.
type Codec struct {
	opts       Opts
	bitsPerPos uint
	fieldMask  uint64
	posPerWord int
	segments   int
	// tailPos is the number of positions stored in the last word.
	tailPos   int
	scoreMask uint64
	scaler    float64
}

// NewCodec validates opts and derives the word layout.
func NewCodec(opts Opts) (*Codec, error) {
	if opts.ReadWidth <= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("packedread: read width must be positive, got %d", opts.ReadWidth))
	}
	c := &Codec{opts: opts, bitsPerPos: 1}
	if opts.Quality {
		if !(opts.MaxQuality > opts.MinQuality) {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("packedread: empty quality range [%v, %v]", opts.MinQuality, opts.MaxQuality))
		}
		c.bitsPerPos = NValBits
		c.scaler = MaxValue
	}
	c.fieldMask = 1<<c.bitsPerPos - 1
	c.posPerWord = wordBits / int(c.bitsPerPos)
	c.segments = (opts.ReadWidth + c.posPerWord - 1) / c.posPerWord
	c.tailPos = opts.ReadWidth - (c.segments-1)*c.posPerWord
	c.scoreMask = lowBits(uint(c.tailPos) * c.bitsPerPos)
	return c, nil
}

func lowBits(n uint) uint64 {
	if n >= wordBits {
		return math.MaxUint64
	}
	return 1<<n - 1
}

// Opts returns the options the codec was built with.
func (c *Codec) Opts() Opts { return c.opts }

// ReadWidth returns the number of positions per Read.
func (c *Codec) ReadWidth() int { return c.opts.ReadWidth }

// Quality reports whether the codec uses the quality-weighted layout.
func (c *Codec) Quality() bool { return c.opts.Quality }

// Segments returns the number of words per Read.
func (c *Codec) Segments() int { return c.segments }

// PositionsPerWord returns the number of read positions stored per word.
func (c *Codec) PositionsPerWord() int { return c.posPerWord }

// ScoreMask returns the mask of the meaningful bits in the last word of a
// Read.  Bits above it are always zero.
func (c *Codec) ScoreMask() uint64 { return c.scoreMask }

// word holds one group of positions across all bit-planes.
type word [nPlanes]uint64

// Read is a packed fixed-width sequence.  The zero value is not usable; create
// Reads with Codec.NewWindow, Codec.Encode or Codec.EncodeQuality.
type Read struct {
	words []word
}

// CopyFrom overwrites r with src.  Both must come from the same codec.
func (r *Read) CopyFrom(src *Read) {
	if len(r.words) != len(src.words) {
		r.words = make([]word, len(src.words))
	}
	copy(r.words, src.words)
}

// Clone returns a deep copy of r.
func (r *Read) Clone() Read {
	n := Read{}
	n.CopyFrom(r)
	return n
}

// Equal reports whether two reads are bit-identical.
func (r *Read) Equal(o *Read) bool {
	if len(r.words) != len(o.words) {
		return false
	}
	for i := range r.words {
		if r.words[i] != o.words[i] {
			return false
		}
	}
	return true
}

// NewWindow returns an all-zero Read.  It is meant to be filled by Shift.
func (c *Codec) NewWindow() Read {
	return Read{words: make([]word, c.segments)}
}

// Reset zeroes r.
func (c *Codec) Reset(r *Read) {
	for i := range r.words {
		r.words[i] = word{}
	}
}

// posInWord returns the number of positions stored in word i.
func (c *Codec) posInWord(i int) int {
	if i == c.segments-1 {
		return c.tailPos
	}
	return c.posPerWord
}

// shiftFields appends one position whose per-plane field values are "in".
func (c *Codec) shiftFields(r *Read, in *word) {
	b := c.bitsPerPos
	last := len(r.words) - 1
	for i := 0; i < last; i++ {
		carryShift := uint(c.posInWord(i+1)-1) * b
		cur, next := &r.words[i], &r.words[i+1]
		for p := 0; p < nPlanes; p++ {
			cur[p] = cur[p]<<b | (next[p]>>carryShift)&c.fieldMask
		}
	}
	tail := &r.words[last]
	for p := 0; p < nPlanes; p++ {
		tail[p] = (tail[p]<<b | in[p]) & c.scoreMask
	}
}

// baseFields returns the per-plane field values representing an observed
// base.
func (c *Codec) baseFields(code uint8) (in word) {
	if !c.opts.Quality {
		if code == BaseN {
			in[planeBad] = 1
		} else {
			in[planeHi] = uint64(code>>1) & 1
			in[planeLo] = uint64(code) & 1
		}
		return
	}
	if code == BaseN {
		for p := range in {
			in[p] = c.fieldMask
		}
		return
	}
	in[code] = c.fieldMask
	return
}

// Shift appends base to the low end of r and drops the oldest position.
func (c *Codec) Shift(r *Read, base byte) {
	in := c.baseFields(baseCodeTable[base])
	c.shiftFields(r, &in)
}

// Encode packs the first ReadWidth bases of seq.  The result is the same as
// shifting every base into a fresh window.  The behavior is undefined when
// len(seq) < ReadWidth; callers must validate lengths first.
func (c *Codec) Encode(seq []byte) Read {
	r := c.NewWindow()
	for _, ch := range seq[:c.opts.ReadWidth] {
		c.Shift(&r, ch)
	}
	return r
}

// QualityToValue quantizes a quality score linearly onto [0, MaxValue].
// Scores outside of [MinQuality, MaxQuality] are clamped.
func (c *Codec) QualityToValue(q float64) uint64 {
	f := (q - c.opts.MinQuality) / (c.opts.MaxQuality - c.opts.MinQuality)
	if f > 1 {
		f = 1
	}
	if !(f > 0) {
		return 0
	}
	return uint64(c.scaler * f)
}

// ValueToQuality maps a single quantized value back onto the quality range.
func (c *Codec) ValueToQuality(v uint64) float64 {
	return c.opts.MinQuality + float64(v)/c.scaler*(c.opts.MaxQuality-c.opts.MinQuality)
}

// ScoreToQuality maps a summed Score back onto quality units.  Unlike
// ValueToQuality, a zero score maps to zero.
func (c *Codec) ScoreToQuality(score int) float64 {
	if !c.opts.Quality {
		return float64(score)
	}
	return float64(score) / c.scaler * (c.opts.MaxQuality - c.opts.MinQuality)
}

// EncodeQuality packs a quality-weighted read.  q[i][k] is the penalty of
// observing nucleotide k (A, C, G, T order) at position i.  Only the first
// ReadWidth rows are used.  It panics unless the codec uses the quality
// layout.
func (c *Codec) EncodeQuality(q [][4]float64) Read {
	if !c.opts.Quality {
		panic("packedread: EncodeQuality on an exact codec")
	}
	r := c.NewWindow()
	var in word
	for _, row := range q[:c.opts.ReadWidth] {
		for k := range row {
			in[k] = c.QualityToValue(row[k])
		}
		c.shiftFields(&r, &in)
	}
	return r
}

// Score measures disagreement between a and b; lower is better.  In the exact
// layout it is the number of mismatching positions, counting every N as a
// mismatch.  In the quality layout one operand is expected to come from
// EncodeQuality and the other from Encode/Shift, and the result is the sum of
// the quality read's penalties for the letters observed in the window.  Score
// is symmetric in both layouts.
func (c *Codec) Score(a, b *Read) int {
	n := 0
	last := len(a.words) - 1
	if !c.opts.Quality {
		for i := range a.words {
			x, y := &a.words[i], &b.words[i]
			diff := (x[planeHi] ^ y[planeHi]) | (x[planeLo] ^ y[planeLo]) | x[planeBad] | y[planeBad]
			if i == last {
				diff &= c.scoreMask
			}
			n += bits.OnesCount64(diff)
		}
		return n
	}
	for i := range a.words {
		x, y := &a.words[i], &b.words[i]
		for p := 0; p < nPlanes; p++ {
			n += fieldSum(x[p] & y[p])
		}
	}
	return n
}

// fieldSum adds up the sixteen 4-bit fields of x.
func fieldSum(x uint64) int {
	const nibbles = 0x0f0f0f0f0f0f0f0f
	x = (x & nibbles) + ((x >> 4) & nibbles)
	return int((x * 0x0101010101010101) >> 56)
}

// field returns the value stored for position pos in plane p.
func (c *Codec) field(r *Read, pos, p int) uint64 {
	wi := pos / c.posPerWord
	k := pos - wi*c.posPerWord
	shift := uint(c.posInWord(wi)-1-k) * c.bitsPerPos
	return (r.words[wi][p] >> shift) & c.fieldMask
}

// Decode returns the bases stored in a read made by Encode or Shift.  Quality
// reads built by EncodeQuality decode to the letter with the lowest penalty.
func (c *Codec) Decode(r *Read) []byte {
	out := make([]byte, c.opts.ReadWidth)
	for pos := range out {
		if !c.opts.Quality {
			if c.field(r, pos, planeBad) != 0 {
				out[pos] = 'N'
				continue
			}
			out[pos] = codeToBase[c.field(r, pos, planeHi)<<1|c.field(r, pos, planeLo)]
			continue
		}
		var vals [nPlanes]uint64
		for p := range vals {
			vals[p] = c.field(r, pos, p)
		}
		out[pos] = decodePlanes(vals, c.fieldMask)
	}
	return out
}

func decodePlanes(vals [nPlanes]uint64, full uint64) byte {
	nFull, fullIdx := 0, 0
	var sum uint64
	for p, v := range vals {
		sum += v
		if v == full {
			nFull++
			fullIdx = p
		}
	}
	switch {
	case nFull == 1 && sum == full:
		// Presence layout.
		return codeToBase[fullIdx]
	case nFull == nPlanes:
		return 'N'
	}
	best := 0
	for p, v := range vals {
		if v < vals[best] {
			best = p
		}
	}
	return codeToBase[best]
}

// String renders the planes of r, oldest position first, for debugging.
func (c *Codec) String(r *Read) string {
	buf := bytes.Buffer{}
	names := []string{"hi ", "lo ", "bad"}
	if c.opts.Quality {
		names = []string{"A", "C", "G", "T"}
	}
	for p, name := range names {
		buf.WriteString(name)
		for pos := 0; pos < c.opts.ReadWidth; pos++ {
			fmt.Fprintf(&buf, " %x", c.field(r, pos, p))
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}
