// Package pgstore is a memory.Store on PostgreSQL with the pgvector
// extension. Every statement runs on a connection borrowed through
// database.Manager.WithConn, so it shares the pool, the acquisition retries
// and the connection health tracking of the rest of the server.
package pgstore
