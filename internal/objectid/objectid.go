// Package objectid assigns request-scoped integer identifiers that fit a
// signed 32-bit object id field.
//
// A batch of n items draws one random numeric prefix and forms each id by
// appending the item index in decimal. The prefix is bounded so that every
// concatenation stays at or below MaxID. Ids are unique within a batch and
// are not stable across batches.
package objectid

import (
	"math"
	"math/rand/v2"
	"strconv"
)

// MaxID is the largest object id accepted by downstream feature services.
const MaxID int64 = math.MaxInt32

var maxIDDigits = strconv.FormatInt(MaxID, 10)

// Source draws uniform integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	Int64N(n int64) int64
}

type globalSource struct{}

func (globalSource) Int64N(n int64) int64 { return rand.Int64N(n) }

// DefaultSource returns a Source backed by the package-level math/rand/v2
// generator, which is safe for concurrent use.
func DefaultSource() Source {
	return globalSource{}
}

// Batch maps indices in [0, Size()) to unique ids in [0, MaxID].
type Batch struct {
	size       int64
	prefix     int64
	sequential bool
}

// NewBatch computes the id strategy for n items. When n exceeds the id space
// the batch is truncated to MaxID+1 items and ids equal indices. Otherwise a
// single prefix is drawn from src. Negative n is treated as zero.
func NewBatch(n int64, src Source) Batch {
	if n < 0 {
		n = 0
	}
	if n > MaxID+1 {
		return Batch{size: MaxID + 1, sequential: true}
	}

	maxPrefix := MaxPrefix(n)
	if maxPrefix < 0 {
		// No digits left for a prefix; indices alone fit under MaxID.
		return Batch{size: n, sequential: true}
	}
	return Batch{size: n, prefix: src.Int64N(maxPrefix + 1)}
}

// MaxPrefix returns the largest prefix that keeps every prefix+index
// concatenation for n items at or below MaxID, or -1 when there is none.
func MaxPrefix(n int64) int64 {
	digits := len(strconv.FormatInt(n, 10))
	if digits >= len(maxIDDigits) {
		return -1
	}
	head, err := strconv.ParseInt(maxIDDigits[:len(maxIDDigits)-digits], 10, 64)
	if err != nil {
		return -1
	}
	return head - 1
}

// Size is the number of items the batch covers.
func (b Batch) Size() int64 { return b.size }

// Truncated reports whether the batch covers fewer items than requested.
func (b Batch) Truncated(n int64) bool { return n > b.size }

// Sequential reports whether ids are the bare indices.
func (b Batch) Sequential() bool { return b.sequential }

// Prefix returns the drawn prefix. ok is false for sequential batches.
func (b Batch) Prefix() (prefix int64, ok bool) {
	return b.prefix, !b.sequential
}

// ID returns the id for index i, which must be in [0, Size()).
func (b Batch) ID(i int64) int32 {
	if b.sequential || b.prefix == 0 {
		return int32(i)
	}
	return int32(b.prefix*pow10(digitCount(i)) + i)
}

// Assign returns the ids for every index of the batch, in order.
func (b Batch) Assign() []int32 {
	ids := make([]int32, b.size)
	for i := range b.size {
		ids[i] = b.ID(i)
	}
	return ids
}

func digitCount(i int64) int {
	n := 1
	for i >= 10 {
		i /= 10
		n++
	}
	return n
}

func pow10(n int) int64 {
	p := int64(1)
	for range n {
		p *= 10
	}
	return p
}
