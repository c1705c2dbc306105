package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/keepstack/keepstack/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/keepstack/keepstack/internal/core/domain"
	"github.com/keepstack/keepstack/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// note and chunk store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.keepstack/data/keepstack.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".keepstack", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "keepstack.db")

	// Open database with WAL mode for better concurrency. Pragmas go in
	// the DSN so every pooled connection gets them.
	db, err := sql.Open("sqlite",
		dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// NoteStore returns a NoteStore interface backed by this store.
func (s *Store) NoteStore() driven.NoteStore {
	return &noteStore{store: s}
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Note Store ====================

// noteStore implements driven.NoteStore.
type noteStore struct {
	store *Store
}

var _ driven.NoteStore = (*noteStore)(nil)

// SaveNote stores or updates a note.
func (s *noteStore) SaveNote(ctx context.Context, note *domain.Note) error {
	content := note.Content
	if len(content) == 0 {
		content = json.RawMessage("null")
	}

	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO notes (id, workspace_id, owner_id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			owner_id = excluded.owner_id,
			title = excluded.title,
			content = excluded.content,
			updated_at = excluded.updated_at
	`, note.ID, note.WorkspaceID, note.OwnerID, note.Title, string(content),
		note.CreatedAt, note.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving note: %w", err)
	}
	return nil
}

// GetNote retrieves a note by ID.
func (s *noteStore) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, owner_id, title, content, created_at, updated_at
		FROM notes WHERE id = ?
	`, id)

	var note domain.Note
	var content string
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&note.ID, &note.WorkspaceID, &note.OwnerID, &note.Title,
		&content, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning note: %w", err)
	}

	note.Content = json.RawMessage(content)
	if createdAt.Valid {
		note.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		note.UpdatedAt = updatedAt.Time
	}

	return &note, nil
}

// DeleteNote removes a note; chunks cascade through the foreign key.
func (s *noteStore) DeleteNote(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	return nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// SaveChunks stores a batch of chunks in a single transaction.
func (s *chunkStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO note_chunks (id, note_id, chunk_index, content, embedding, source_type, source_file, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			note_id = excluded.note_id,
			chunk_index = excluded.chunk_index,
			content = excluded.content,
			embedding = excluded.embedding,
			source_type = excluded.source_type,
			source_file = excluded.source_file,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, chunk := range chunks {
		createdAt := chunk.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.NoteID, chunk.Index,
			chunk.Content, embeddingBlob, string(chunk.Source),
			nullString(chunk.SourceFile), createdAt, now); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteBySource removes all chunks of one source type for a note.
func (s *chunkStore) DeleteBySource(ctx context.Context, noteID string, source domain.SourceType) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM note_chunks WHERE note_id = ? AND source_type = ?",
		noteID, string(source))
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// GetChunks retrieves a note's chunks ordered by source and index.
func (s *chunkStore) GetChunks(ctx context.Context, noteID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, note_id, chunk_index, content, embedding, source_type, source_file, created_at, updated_at
		FROM note_chunks WHERE note_id = ?
		ORDER BY source_type, chunk_index
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// SearchSimilar ranks chunks of the given notes by cosine similarity to
// the query embedding. Vectors are decoded and compared in Go; the
// candidate set is bounded by the owner-visible note ids.
func (s *chunkStore) SearchSimilar(
	ctx context.Context, embedding []float32, noteIDs []string, limit int,
) ([]domain.SimilarChunk, error) {
	if len(embedding) == 0 || len(noteIDs) == 0 || limit <= 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(noteIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(noteIDs))
	for i, id := range noteIDs {
		args[i] = id
	}

	//nolint:gosec // placeholders is built from "?" only
	query := fmt.Sprintf(`
		SELECT c.content, c.embedding, n.id, n.title
		FROM note_chunks c
		JOIN notes n ON n.id = c.note_id
		WHERE c.note_id IN (%s)
	`, placeholders)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.SimilarChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit domain.SimilarChunk
		var blob []byte
		if err := rows.Scan(&hit.Content, &blob, &hit.NoteID, &hit.NoteTitle); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		vector := bytesToFloat32Slice(blob)
		if len(vector) != len(embedding) {
			continue // Dimension mismatch, likely a model change; skip.
		}
		hit.Similarity = cosineSimilarity(embedding, vector)
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// ==================== Helpers ====================

// cosineSimilarity computes the cosine of the angle between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanChunk scans a chunk from a rows cursor.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var blob []byte
	var source string
	var sourceFile sql.NullString
	var createdAt, updatedAt sql.NullTime

	if err := rows.Scan(&chunk.ID, &chunk.NoteID, &chunk.Index, &chunk.Content,
		&blob, &source, &sourceFile, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(blob)
	chunk.Source = domain.SourceType(source)
	chunk.SourceFile = sourceFile.String
	if createdAt.Valid {
		chunk.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		chunk.UpdatedAt = updatedAt.Time
	}

	return &chunk, nil
}

// nullString converts an empty string to a NULL-able value.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
