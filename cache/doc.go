// Package cache provides the small caches the server keeps in process: a
// single typed value with a freshness window, and a keyed byte cache with
// read-through loading used for embedding vectors.
package cache
