package words

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// Random builds lowercase words of random length within [minLen, maxLen].
type Random struct {
	minLen int
	maxLen int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom validates the bounds. Both must be positive and minLen <= maxLen.
func NewRandom(minLen, maxLen int) (*Random, error) {
	if minLen < 1 || maxLen < minLen {
		return nil, ErrInvalidBounds
	}
	return &Random{
		minLen: minLen,
		maxLen: maxLen,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}, nil
}

func (r *Random) Generate(ctx context.Context, n int) ([]string, error) {
	if n < 0 {
		return nil, ErrInvalidCount
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, n)
	var b strings.Builder
	for i := range out {
		b.Reset()
		size := r.minLen + r.rng.IntN(r.maxLen-r.minLen+1)
		for j := 0; j < size; j++ {
			b.WriteByte(alphabet[r.rng.IntN(len(alphabet))])
		}
		out[i] = b.String()
	}
	return out, nil
}
