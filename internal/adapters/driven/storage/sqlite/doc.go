// Package sqlite provides the embedded, persistent graph and vector stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single Store owns the database and
// hands out two views over it:
//
//   - GraphStore: entities, relations and relation provenance
//   - VectorStore: chunk embeddings with denormalised chunk metadata
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Vectors are stored as text in the pgvector format so the same codec serves
// this store and the Postgres one.
//
// # Data Location
//
// By default, the database is stored at ~/.fusionqa/data/fusionqa.db
//
// # Thread Safety
//
// All operations are thread-safe. The database runs in WAL mode over a single
// connection, and graph merges are additionally serialised per canonical key.
package sqlite
