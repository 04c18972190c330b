package content

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Filter selects documents of a section by top-level fields.
type Filter struct {
	// Match holds field values that must all be equal.
	Match map[string]any
	// Since, if set, only keeps documents created after it.
	Since time.Time
	Limit int
}

// Find returns the documents of a section matching f, oldest first.
func (s *Store) Find(ctx context.Context, section Section, f Filter) ([]Document, error) {
	var (
		where = []string{"section = ?"}
		args  = []any{string(section)}
	)
	for field, value := range f.Match {
		path, err := jsonPath(field)
		if err != nil {
			return nil, err
		}
		where = append(where, "json_extract(data, ?) = ?")
		args = append(args, path, value)
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at > ?")
		args = append(args, f.Since.UnixNano())
	}
	query := `SELECT id, data, created_at, updated_at FROM documents WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", section, err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(section, rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Increment adds delta to a numeric counter field of a document in one statement.
// Missing counters start at zero and the result never drops below zero.
// UpdatedAt is left alone; counters are not edits.
func (s *Store) Increment(ctx context.Context, section Section, id, field string, delta int) (*Document, error) {
	path, err := jsonPath(field)
	if err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	UPDATE documents
	SET data = json_set(data, ?, MAX(COALESCE(CAST(json_extract(data, ?) AS INTEGER), 0) + ?, 0))
	WHERE section = ? AND id = ?`,
		path, path, delta, string(section), id)
	if err != nil {
		return nil, fmt.Errorf("incrementing %s: %w", field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	doc, err := s.get(ctx, tx, section, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing counter: %w", err)
	}
	return doc, nil
}

func jsonPath(field string) (string, error) {
	if !fieldName.MatchString(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return "$." + field, nil
}
