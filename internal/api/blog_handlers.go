package api

import (
	"net/http"

	"github.com/kmkrofficial/signature/internal/api/presenter"
	"github.com/kmkrofficial/signature/internal/content"
)

// counterRatePerMinute caps view and like requests per client.
const counterRatePerMinute = 120

// PostCounters is returned after a view or like was counted.
type PostCounters struct {
	Slug  string `json:"slug"`
	Views int    `json:"views"`
	Likes int    `json:"likes"`
}

// handleListPosts serves published posts to visitors. With ?drafts the request is
// handed to the guarded section listing, which includes unpublished posts.
func (s *Server) handleListPosts(drafts http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("drafts") {
			r.SetPathValue("section", string(content.SectionBlog))
			drafts.ServeHTTP(w, r)
			return
		}
		posts, err := s.content.PublishedPosts(r.Context())
		if err != nil {
			presenter.Err(w, r, err, "failed to list posts")
			return
		}
		presenter.JSON(w, r, posts, http.StatusOK)
	}
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.content.Post(r.Context(), r.PathValue("slug"))
	if err != nil {
		presenter.Err(w, r, err, "failed to load post")
		return
	}
	presenter.JSON(w, r, post, http.StatusOK)
}

func (s *Server) handleViewPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.content.CountView(r.Context(), r.PathValue("slug"))
	if err != nil {
		presenter.Err(w, r, err, "failed to count view")
		return
	}
	presenter.JSON(w, r, countersOf(post), http.StatusOK)
}

// handleLikePost likes a post on POST and takes the like back on DELETE.
func (s *Server) handleLikePost(w http.ResponseWriter, r *http.Request) {
	post, err := s.content.Like(r.Context(), r.PathValue("slug"), r.Method == http.MethodDelete)
	if err != nil {
		presenter.Err(w, r, err, "failed to count like")
		return
	}
	presenter.JSON(w, r, countersOf(post), http.StatusOK)
}

func countersOf(post *content.Document) PostCounters {
	return PostCounters{
		Slug:  stringOf(post.Data["slug"]),
		Views: intOf(post.Data["views"]),
		Likes: intOf(post.Data["likes"]),
	}
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func intOf(v any) int {
	f, _ := v.(float64)
	return int(f)
}
