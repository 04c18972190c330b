package content

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Find(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	posts := []map[string]any{
		{"slug": "first", "published": true},
		{"slug": "draft", "published": false},
		{"slug": "second", "published": true},
	}
	for _, p := range posts {
		_, err := s.Create(ctx, SectionBlog, p)
		require.NoError(t, err)
		now = now.Add(time.Minute)
	}

	published, err := s.Find(ctx, SectionBlog, Filter{Match: map[string]any{"published": true}})
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, "first", published[0].Data["slug"])
	assert.Equal(t, "second", published[1].Data["slug"])

	bySlug, err := s.Find(ctx, SectionBlog, Filter{Match: map[string]any{"slug": "draft"}})
	require.NoError(t, err)
	require.Len(t, bySlug, 1)
	assert.Equal(t, false, bySlug[0].Data["published"])

	recent, err := s.Find(ctx, SectionBlog, Filter{Since: now.Add(-90 * time.Second)})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "second", recent[0].Data["slug"])

	limited, err := s.Find(ctx, SectionBlog, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// other sections are not searched
	none, err := s.Find(ctx, SectionProjects, Filter{Match: map[string]any{"slug": "first"}})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.Find(ctx, SectionBlog, Filter{Match: map[string]any{"slug') OR 1=1 --": "x"}})
	assert.Error(t, err)
}

func TestStore_Increment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.Create(ctx, SectionBlog, map[string]any{"slug": "post", "likes": 1})
	require.NoError(t, err)

	got, err := s.Increment(ctx, SectionBlog, doc.ID, "views", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Data["views"])
	assert.Equal(t, "post", got.Data["slug"])
	assert.Equal(t, doc.UpdatedAt.UnixNano(), got.UpdatedAt.UnixNano())

	got, err = s.Increment(ctx, SectionBlog, doc.ID, "likes", -1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.Data["likes"])

	// never negative
	got, err = s.Increment(ctx, SectionBlog, doc.ID, "likes", -1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.Data["likes"])

	_, err = s.Increment(ctx, SectionBlog, "missing", "views", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Increment(ctx, SectionBlog, doc.ID, "$.views", 1)
	assert.Error(t, err)
}

func TestStore_IncrementConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.Create(ctx, SectionBlog, map[string]any{"slug": "post"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Increment(ctx, SectionBlog, doc.ID, "views", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, SectionBlog, doc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 20, got.Data["views"])
}
