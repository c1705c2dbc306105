// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - NoteStore: note persistence at the CRUD boundary
//   - ChunkStore: embedded chunk persistence and similarity search
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Chunks reference notes with ON DELETE CASCADE so
// deleting a note removes its index entries.
//
// # Data Location
//
// By default, the database is stored at ~/.keepstack/data/keepstack.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
