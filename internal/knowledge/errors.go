package knowledge

import "errors"

// Pipeline failure classes.
//
// Every adapter wraps its failures with the matching sentinel using
// fmt.Errorf("...: %w", ...) so callers can classify with errors.Is
// without depending on provider-specific error types. A stage failure
// aborts the rest of that pipeline run; nothing is retried and no
// partial result is returned.
var (
	// ErrEmbedding indicates the embedding provider was unreachable or
	// returned invalid data (including a batch size mismatch).
	ErrEmbedding = errors.New("embedding failed")

	// ErrRetrieval indicates a vector search provider error.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrPermission indicates the policy service was unreachable or
	// returned invalid data. The pipeline fails closed rather than
	// defaulting to allow-all or deny-all.
	ErrPermission = errors.New("permission filtering failed")

	// ErrGeneration indicates a language-model provider error.
	ErrGeneration = errors.New("answer generation failed")

	// ErrNotFound indicates a lookup found nothing.
	ErrNotFound = errors.New("not found")
)
