// Package memory stores and retrieves per-user memories by semantic
// similarity.
//
// A Service embeds memory text with an Embedder and persists the vector in a
// Store. Every operation is scoped to a non-empty user ID; one user's
// memories are never visible to another.
package memory
