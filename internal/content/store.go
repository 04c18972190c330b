package content

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store keeps documents in a SQLite table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the document database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening content database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s, err := NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrating documents table: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		section TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (section, id)
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// List returns all documents of a section, oldest first.
func (s *Store) List(ctx context.Context, section Section) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, data, created_at, updated_at FROM documents
	WHERE section = ? ORDER BY created_at, id`, string(section))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", section, err)
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

func (s *Store) Get(ctx context.Context, section Section, id string) (*Document, error) {
	return s.get(ctx, s.db, section, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) get(ctx context.Context, q queryer, section Section, id string) (*Document, error) {
	row := q.QueryRowContext(ctx, `
	SELECT id, data, created_at, updated_at FROM documents
	WHERE section = ? AND id = ?`, string(section), id)
	doc, err := scanDocument(section, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

func scanDocument(section Section, sc scanner) (*Document, error) {
	var (
		doc                  = Document{Section: section}
		raw                  string
		createdAt, updatedAt int64
	)
	if err := sc.Scan(&doc.ID, &raw, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &doc.Data); err != nil {
		return nil, fmt.Errorf("decoding document %s/%s: %w", section, doc.ID, err)
	}
	doc.CreatedAt = time.Unix(0, createdAt).UTC()
	doc.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &doc, nil
}

// Create adds a document with a new random id. For singleton sections it merges
// into the single document instead.
func (s *Store) Create(ctx context.Context, section Section, data map[string]any) (*Document, error) {
	if section.Singleton() {
		return s.Merge(ctx, section, PersonalDocID, data)
	}

	now := s.now()
	doc := Document{
		ID:        uuid.NewString(),
		Section:   section,
		Data:      merge(nil, data),
		CreatedAt: now,
		UpdatedAt: now,
	}
	raw, err := json.Marshal(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO documents (section, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(section), doc.ID, string(raw), now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	return &doc, nil
}

// Merge writes the fields of data into the document, creating it if it does not exist.
func (s *Store) Merge(ctx context.Context, section Section, id string, data map[string]any) (*Document, error) {
	if id == "" {
		return nil, fmt.Errorf("document id is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	doc, err := s.get(ctx, tx, section, id)
	switch {
	case errors.Is(err, ErrNotFound):
		doc = &Document{ID: id, Section: section, CreatedAt: now}
	case err != nil:
		return nil, err
	}
	doc.Data = merge(doc.Data, data)
	doc.UpdatedAt = now

	raw, err := json.Marshal(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
	INSERT INTO documents (section, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (section, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(section), id, string(raw), doc.CreatedAt.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("writing document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing document: %w", err)
	}
	return doc, nil
}

func (s *Store) Delete(ctx context.Context, section Section, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE section = ? AND id = ?`, string(section), id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Portfolio collects everything the public site renders. Experience is ordered by
// period, latest first.
func (s *Store) Portfolio(ctx context.Context) (*Portfolio, error) {
	p := &Portfolio{Personal: map[string]any{}}

	personal, err := s.Get(ctx, SectionPersonal, PersonalDocID)
	switch {
	case err == nil:
		p.Personal = personal.Data
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	lists := []struct {
		section Section
		dest    *[]Document
	}{
		{SectionSkills, &p.Skills},
		{SectionExperience, &p.Experience},
		{SectionProjects, &p.Projects},
		{SectionEducation, &p.Education},
		{SectionPapers, &p.Papers},
	}
	for _, l := range lists {
		docs, err := s.List(ctx, l.section)
		if err != nil {
			return nil, err
		}
		*l.dest = docs
	}

	slices.SortStableFunc(p.Experience, func(a, b Document) int {
		return cmp.Compare(stringField(b.Data, "period"), stringField(a.Data, "period"))
	})
	return p, nil
}

func stringField(data map[string]any, key string) string {
	v, _ := data[key].(string)
	return v
}

func (s *Store) Close() error {
	return s.db.Close()
}
