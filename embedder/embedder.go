// Package embedder declares the external embedding-provider contract
// consumed by the collection engine. Production implementations (a local
// model, a remote API) live outside this module; the core only depends on
// this interface (spec §1, §6: the embedding provider is an external
// collaborator).
package embedder

import "context"

// Embedder turns text into fixed-length float vectors. Implementations may
// be asynchronous or fail; a failure is surfaced to the caller unchanged.
type Embedder interface {
	// Encode embeds a single string.
	Encode(ctx context.Context, text string) ([]float32, error)

	// EncodeBatch embeds a batch of strings with the same per-element
	// semantics as Encode.
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dispose releases any resources held by the embedder. Called by the
	// host when finished; safe to call even if never used.
	Dispose(ctx context.Context) error
}
