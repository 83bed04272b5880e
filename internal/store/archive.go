package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/resolve"
)

// ErrNotFound reports a lookup for a content id the archive does not hold.
var ErrNotFound = errors.New("store: not found")

// Entry is one archived program in a listing.
type Entry struct {
	ContentID string `json:"content_id"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
}

// PutProgram archives a program under its content id and returns the id.
// Archiving an equivalent program again is a no-op: the canonical form
// hashes to the same key, and the insert backs off on conflict.
func (s *Store) PutProgram(ctx context.Context, p ir.Program) (string, error) {
	contentID, err := ir.ProgramID(p)
	if err != nil {
		return "", fmt.Errorf("put program: %w", err)
	}
	body, err := ir.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("put program: %w", err)
	}

	kind := ir.ProgramSequence
	if p.Schedule != nil {
		kind = ir.ProgramSchedule
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO programs (id, content_id, kind, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(content_id) DO NOTHING
	`, uuid.NewString(), contentID, kind, string(body))
	if err != nil {
		return "", fmt.Errorf("put program: %w", err)
	}

	return contentID, nil
}

// GetProgram retrieves a program by content id.
func (s *Store) GetProgram(ctx context.Context, contentID string) (ir.Program, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM programs WHERE content_id = ?
	`, contentID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Program{}, fmt.Errorf("get program %s: %w", contentID, ErrNotFound)
	}
	if err != nil {
		return ir.Program{}, fmt.Errorf("get program %s: %w", contentID, err)
	}

	var p ir.Program
	if err := p.UnmarshalJSON([]byte(body)); err != nil {
		return ir.Program{}, fmt.Errorf("get program %s: decode body: %w", contentID, err)
	}
	return p, nil
}

// ListPrograms returns the most recently archived programs, newest first.
// Ties on created_at break deterministically by content id.
func (s *Store) ListPrograms(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_id, kind, created_at
		FROM programs
		ORDER BY created_at DESC, content_id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ContentID, &e.Kind, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("list programs: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return entries, nil
}

// PutResolved archives a resolved document for an archived program.
// One resolved document per program: resolution is deterministic, so a
// second write is redundant and backs off on conflict.
func (s *Store) PutResolved(ctx context.Context, programID string, doc *resolve.Document) (string, error) {
	contentID, err := doc.ContentID()
	if err != nil {
		return "", fmt.Errorf("put resolved: %w", err)
	}
	body, err := ir.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("put resolved: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resolved (id, program_id, content_id, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(program_id) DO NOTHING
	`, uuid.NewString(), programID, contentID, string(body))
	if err != nil {
		return "", fmt.Errorf("put resolved: %w", err)
	}

	return contentID, nil
}

// GetResolved retrieves the resolved document archived for a program.
func (s *Store) GetResolved(ctx context.Context, programID string) (*resolve.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM resolved WHERE program_id = ?
	`, programID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get resolved for %s: %w", programID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get resolved for %s: %w", programID, err)
	}

	var doc resolve.Document
	if err := doc.UnmarshalJSON([]byte(body)); err != nil {
		return nil, fmt.Errorf("get resolved for %s: decode body: %w", programID, err)
	}
	return &doc, nil
}
