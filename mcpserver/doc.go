// Package mcpserver exposes the memory service as an MCP server.
//
// Start provisions the application context (database lifecycle, embedder,
// memory store, health service). New registers the memory tools on an
// mcp-go server, and the Server can then be served over stdio or over SSE
// with the health endpoints, optional authentication and /metrics.
//
// Every tool requires a non-empty userId and only ever touches that user's
// memories. Tool failures are reported to the client as result text
// starting with "Error".
package mcpserver
