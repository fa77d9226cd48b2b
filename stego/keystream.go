package stego

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// MaxSampleCount bounds the cover length so index tables stay addressable
// with int32 and allocation stays predictable.
const MaxSampleCount = 1 << 28

// EmbeddingPlan describes where, and how deep, bits are written. It is a pure
// function of the key, the sample count and the random-start flag, so encoder
// and decoder rebuild it independently.
type EmbeddingPlan struct {
	StartOffset        int
	BitDepth           int
	UseRandomPositions bool
	SampleCount        int

	// generator state after drawing StartOffset
	state uint64
}

// Derive builds the plan for a cover of sampleCount samples. BitDepth is left
// at zero; callers set it from the options or from the decoded header.
func Derive(key string, sampleCount int, useRandomStart bool) (EmbeddingPlan, error) {
	if sampleCount <= 0 {
		return EmbeddingPlan{}, fmt.Errorf("%w: empty sample buffer", ErrInsufficientCapacity)
	}
	if sampleCount > MaxSampleCount {
		return EmbeddingPlan{}, fmt.Errorf("%w: %d samples, limit %d", ErrInputTooLarge, sampleCount, MaxSampleCount)
	}

	plan := EmbeddingPlan{
		SampleCount:        sampleCount,
		UseRandomPositions: useRandomStart,
	}
	if useRandomStart {
		rng := splitMix64{state: seedFromKey(key)}
		plan.StartOffset = int(rng.next() % uint64(sampleCount))
		plan.state = rng.state
	}
	return plan, nil
}

func seedFromKey(key string) uint64 {
	return xxhash.Sum64String(key)
}

// Indices returns the first count sample indices of the plan.
func (p EmbeddingPlan) Indices(count int) ([]int, error) {
	return p.Positions().Take(count)
}

// Positions returns a fresh cursor over the plan's index sequence.
func (p EmbeddingPlan) Positions() *Positions {
	return &Positions{
		plan: p,
		rng:  splitMix64{state: p.state},
		ring: ring{n: p.SampleCount, start: p.StartOffset},
	}
}

// Positions walks the index sequence of a plan. Sequential plans visit the
// ring from StartOffset; randomized plans run a forward Fisher-Yates shuffle
// over the same ring, so every prefix of the sequence is stable no matter how
// many indices are drawn later.
type Positions struct {
	plan EmbeddingPlan
	rng  splitMix64
	ring ring
	used int
}

// Taken reports how many indices have been handed out.
func (c *Positions) Taken() int {
	return c.used
}

// Take returns the next count indices.
func (c *Positions) Take(count int) ([]int, error) {
	if count < 0 {
		return nil, fmt.Errorf("negative index count %d", count)
	}
	if c.used+count > c.plan.SampleCount {
		return nil, fmt.Errorf("%w: need %d samples, have %d",
			ErrInsufficientCapacity, c.used+count, c.plan.SampleCount)
	}

	out := make([]int, count)
	n := c.plan.SampleCount
	for k := range out {
		i := c.used
		if c.plan.UseRandomPositions {
			j := i + int(c.rng.intn(uint64(n-i)))
			vi, vj := c.ring.at(i), c.ring.at(j)
			c.ring.put(j, vi)
			c.ring.put(i, vj)
		}
		out[k] = c.ring.at(i)
		c.used++
	}
	return out, nil
}

// ring is the virtual array a[x] = (start + x) mod n with swapped slots
// recorded sparsely until that stops paying off.
type ring struct {
	n, start int
	sparse   map[int]int
	dense    []int32
}

func (r *ring) at(i int) int {
	if r.dense != nil {
		return int(r.dense[i])
	}
	if v, ok := r.sparse[i]; ok {
		return v
	}
	return (r.start + i) % r.n
}

func (r *ring) put(i, v int) {
	if r.dense != nil {
		r.dense[i] = int32(v)
		return
	}
	if r.sparse == nil {
		r.sparse = make(map[int]int)
	}
	r.sparse[i] = v
	if len(r.sparse) > r.n/8 {
		r.promote()
	}
}

func (r *ring) promote() {
	dense := make([]int32, r.n)
	for x := range dense {
		dense[x] = int32((r.start + x) % r.n)
	}
	for x, v := range r.sparse {
		dense[x] = int32(v)
	}
	r.dense = dense
	r.sparse = nil
}

// splitMix64 is the SplitMix64 generator. It is tiny, has no hidden global
// state and produces the same stream on every platform.
type splitMix64 struct {
	state uint64
}

func (s *splitMix64) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// intn returns a uniform value in [0, n) using rejection sampling.
func (s *splitMix64) intn(n uint64) uint64 {
	threshold := -n % n
	for {
		if x := s.next(); x >= threshold {
			return x % n
		}
	}
}
