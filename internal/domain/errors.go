package domain

import "errors"

// Domain errors. Build-time failures are fatal to the caller; query-time
// failures degrade (missing or corrupt indexes read as empty, generation
// faults turn into fallback answers at the synthesizer boundary).
var (
	// ErrEmptyContent indicates a transcript produced zero chunks.
	ErrEmptyContent = errors.New("no transcript content to index")

	// ErrIndexNotFound indicates no index exists for a document.
	// Read operations return empty results instead of surfacing this.
	ErrIndexNotFound = errors.New("index not found")

	// ErrCorruptIndex indicates an index or metadata file could not be
	// decoded. Treated identically to ErrIndexNotFound on read.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrEmbeddingUnavailable indicates the embedding service cannot be
	// reached. Fatal for builds; queries fall back to the transcript.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrUnknownBackend indicates an unrecognized generation backend kind.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrRateLimitExceeded indicates the hosted backend exhausted its
	// rate-limit retry budget.
	ErrRateLimitExceeded = errors.New("rate limit retries exhausted")

	// ErrNoBackendAvailable indicates neither the preferred nor the
	// fallback backend responded to an availability probe.
	ErrNoBackendAvailable = errors.New("no generation backend available")

	// ErrGeneration indicates a provider fault during text generation.
	ErrGeneration = errors.New("generation failed")
)
