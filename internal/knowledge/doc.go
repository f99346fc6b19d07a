// Package knowledge implements the RAG ingestion and query pipelines.
//
// The package holds the domain core: document/chunk types, the fixed-width
// chunker, deterministic context assembly, the pipeline error taxonomy, and
// the two orchestrators that sequence calls across external providers.
//
// # Architecture
//
// Ingestion pipeline (Ingestor):
//
//	content
//	     |
//	     v
//	Split (fixed-width, order-preserving)
//	     |
//	     v
//	ChunkStore.CreateDocument + SaveChunks (order 0..n-1)
//	     |
//	     v
//	Embedder.EmbedBatch (one suspension point for the whole batch)
//	     |
//	     v
//	ChunkStore.AttachEmbedding per chunk
//
// Query pipeline (Querier):
//
//	query embedding
//	     |
//	     v
//	Searcher.Search (provider-ranked candidates)
//	     |
//	     v
//	PermissionService (user attributes + ABAC filter, fail-closed)
//	     |
//	     v
//	AssembleContext
//	     |
//	     v
//	Generator.Generate
//
// # Contracts
//
// All collaborator ports are consumer-defined interfaces declared in this
// package, one production adapter each (internal/embedding, internal/store,
// internal/permission, internal/generation). Every blocking operation takes
// a context.Context; the caller's timeout and cancellation apply uniformly
// to all external calls.
//
// Both orchestrators are stateless: a request proceeds through its stages
// strictly in sequence, and concurrent requests share the same collaborator
// clients without any shared mutable state in this package.
//
// # Failure model
//
// Each stage failure aborts the rest of the run and surfaces wrapped in its
// class sentinel (ErrEmbedding, ErrRetrieval, ErrPermission, ErrGeneration).
// Nothing is retried and no partial result is returned; in particular a
// batch embedding failure never yields a partially-embedded chunk set, and
// an unreachable policy service never degrades to allow-all.
package knowledge
