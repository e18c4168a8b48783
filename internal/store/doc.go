// Package store provides SQLite-backed persistence for the query audit log.
//
// # Overview
//
// The gateway itself is stateless: sessions live on the engine and are
// never persisted here. What the store keeps is an append-only record of
// query outcomes (question, status bucket, answer excerpt, latency) for
// operations and debugging.
//
// # Schema
//
// A single query_log table, created automatically on open. WAL mode is
// enabled for concurrent readers.
package store
