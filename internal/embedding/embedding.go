// Package embedding maps chunk and query text to fixed-length vectors.
// All implementations return L2-normalized vectors so that inner product
// equals cosine similarity.
package embedding

import (
	"math"
	"sync"

	"github.com/Avishkar74/AskTube/internal/domain"
)

// Normalize scales v to unit length in place and returns it. Zero vectors
// are returned unchanged.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}

var (
	sharedMu sync.RWMutex
	shared   domain.Embedder
)

// Shared returns the process-wide embedder, constructing it on first use.
// The model is expensive to initialize and cheap to invoke, so exactly one
// instance is built per process; construct is only called once even under
// concurrent first use.
func Shared(construct func() (domain.Embedder, error)) (domain.Embedder, error) {
	sharedMu.RLock()
	e := shared
	sharedMu.RUnlock()
	if e != nil {
		return e, nil
	}

	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		e, err := construct()
		if err != nil {
			return nil, err
		}
		shared = e
	}
	return shared, nil
}

// ResetShared discards the process-wide embedder. Only used by tests.
func ResetShared() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = nil
}
