package seed

import (
	"runtime"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/traverse"
)

// The hash is physically sharded nHashShard ways using the lower bits of
// farmhash(key), so that shards can be filled in parallel.  Within a shard it is
// a plain map from masked key to read indices.
const nHashShard = 256

// Hash maps masked seed keys to the indices of the reads carrying them.  It is
// logically a multimap[uint64]int.  A Hash is immutable after Build and safe
// for concurrent lookups.
type Hash struct {
	mask   Mask
	shards [nHashShard]map[uint64][]int32
	n      int
}

type keyedRead struct {
	key uint64
	id  int32
}

func hashKey(key uint64) uint64 {
	return farm.Hash64WithSeed(nil, key)
}

// Build indexes reads[id] for every id in ids, in that order, under mask m.
// Reads are truncated to MaxSeedPart bases before keying, and reads with an N
// in a seed position are skipped.  Indices stored in the hash are the ids.
// Parallelism <= 0 means one shard builder per CPU.
func Build(m Mask, reads [][]byte, ids []int, parallelism int) *Hash {
	var input [nHashShard][]keyedRead
	h := &Hash{mask: m}
	for _, id := range ids {
		seq := reads[id]
		if !ValidSeed(m, seq) {
			continue
		}
		key := Key(seq) & uint64(m)
		shard := hashKey(key) & (nHashShard - 1)
		input[shard] = append(input[shard], keyedRead{key: key, id: int32(id)})
		h.n++
	}
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > nHashShard {
		parallelism = nHashShard
	}
	// The callback cannot fail.
	_ = traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * nHashShard) / parallelism
		endIdx := ((jobIdx + 1) * nHashShard) / parallelism
		for shard := startIdx; shard < endIdx; shard++ {
			if len(input[shard]) == 0 {
				continue
			}
			table := make(map[uint64][]int32, len(input[shard]))
			for _, e := range input[shard] {
				table[e.key] = append(table[e.key], e.id)
			}
			h.shards[shard] = table
		}
		return nil
	})
	return h
}

// Mask returns the mask the hash was built with.
func (h *Hash) Mask() Mask { return h.mask }

// Len returns the number of reads indexed.
func (h *Hash) Len() int { return h.n }

// Lookup returns the ids of the reads whose masked key equals key, in
// insertion order.  The key must already be masked.  The result must not be
// modified.
func (h *Hash) Lookup(key uint64) []int32 {
	shard := h.shards[hashKey(key)&(nHashShard-1)]
	if shard == nil {
		return nil
	}
	return shard[key]
}
