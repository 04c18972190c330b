package content

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.Create(ctx, SectionSkills, map[string]any{"name": "Go", "level": 5.0, "id": "ignored"})
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)
	assert.NotEqual(t, "ignored", doc.ID)
	assert.NotContains(t, doc.Data, "id")

	got, err := s.Get(ctx, SectionSkills, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", got.Data["name"])

	merged, err := s.Merge(ctx, SectionSkills, doc.ID, map[string]any{"level": 4.0})
	require.NoError(t, err)
	assert.Equal(t, "Go", merged.Data["name"], "untouched fields are kept")
	assert.Equal(t, 4.0, merged.Data["level"])
	assert.Equal(t, doc.CreatedAt.UnixNano(), merged.CreatedAt.UnixNano())

	list, err := s.List(ctx, SectionSkills)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// sections are separate
	_, err = s.Get(ctx, SectionProjects, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, SectionSkills, doc.ID))
	assert.ErrorIs(t, s.Delete(ctx, SectionSkills, doc.ID), ErrNotFound)

	list, err = s.List(ctx, SectionSkills)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_PersonalIsSingleton(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, SectionPersonal, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	_, err = s.Create(ctx, SectionPersonal, map[string]any{"title": "Engineer"})
	require.NoError(t, err)

	list, err := s.List(ctx, SectionPersonal)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, PersonalDocID, list[0].ID)
	assert.Equal(t, "Ada", list[0].Data["name"])
	assert.Equal(t, "Engineer", list[0].Data["title"])
}

func TestStore_Portfolio(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.Portfolio(ctx)
	require.NoError(t, err)
	assert.Empty(t, p.Personal)
	assert.Empty(t, p.Experience)

	for _, period := range []string{"2019 - 2021", "2023 - Present", "2021 - 2023"} {
		_, err := s.Create(ctx, SectionExperience, map[string]any{"period": period})
		require.NoError(t, err)
	}
	_, err = s.Create(ctx, SectionPersonal, map[string]any{"name": "Ada"})
	require.NoError(t, err)

	p, err = s.Portfolio(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Personal["name"])
	require.Len(t, p.Experience, 3)
	assert.Equal(t, "2023 - Present", p.Experience[0].Data["period"])
	assert.Equal(t, "2019 - 2021", p.Experience[2].Data["period"])
}

func TestDocument_MarshalJSON(t *testing.T) {
	doc := Document{ID: "abc", Data: map[string]any{"name": "Go"}}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","name":"Go"}`, string(raw))
}

func TestParseEditable(t *testing.T) {
	for _, s := range []string{"personal", "skills", "experience", "projects", "education", "papers", "blog"} {
		_, err := ParseEditable(s)
		assert.NoError(t, err, s)
	}
	for _, s := range []string{"messages", "", "Skills", "../x"} {
		_, err := ParseEditable(s)
		assert.ErrorIs(t, err, ErrUnknownSection, s)
	}
}
