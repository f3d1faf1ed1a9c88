// Package store persists fixture documents in named containers.
//
// A Client exposes databases, a Database exposes containers, and a Container
// is a collection of JSON documents addressed by (id, partition key). Two
// backends implement it:
//   - SQLite: a single documents table, queried with json_extract
//   - Mongo: one collection per container, for Cosmos DB's Mongo API
//
// # Errors
//
// Every failure is a *Error carrying a Kind. Create of an existing key is
// KindConflict; Read or Delete of a missing key is KindNotFound. Callers that
// treat absence as success check IsNotFound.
//
// # SQLite configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
