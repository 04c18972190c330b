package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/api/presenter"
	"github.com/kmkrofficial/signature/internal/service"
)

type DeleteResponse struct {
	Deleted string `json:"deleted"`
}

func (s *Server) handleListSection(w http.ResponseWriter, r *http.Request) {
	docs, err := s.content.List(r.Context(), r.PathValue("section"))
	if err != nil {
		presenter.Err(w, r, err, "failed to list documents")
		return
	}
	presenter.JSON(w, r, docs, http.StatusOK)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := DecodePayload(r, &data, false); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("failed to decode document payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	doc, err := s.content.Create(r.Context(), r.PathValue("section"), data)
	if err != nil {
		presenter.Err(w, r, err, "failed to create document")
		return
	}
	presenter.JSON(w, r, doc, http.StatusCreated)
}

// handleUpdateDocument merges the payload into an existing document.
func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := DecodePayload(r, &data, false); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("failed to decode document payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	doc, err := s.content.Update(r.Context(), r.PathValue("section"), r.PathValue("id"), data)
	if err != nil {
		presenter.Err(w, r, err, "failed to update document")
		return
	}
	presenter.JSON(w, r, doc, http.StatusOK)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.content.Delete(r.Context(), r.PathValue("section"), id); err != nil {
		presenter.Err(w, r, err, "failed to delete document")
		return
	}
	presenter.JSON(w, r, DeleteResponse{Deleted: id}, http.StatusOK)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.content.Messages(r.Context())
	if err != nil {
		presenter.Err(w, r, err, "failed to list messages")
		return
	}
	presenter.JSON(w, r, msgs, http.StatusOK)
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.content.Images(r.Context())
	if err != nil {
		presenter.Err(w, r, err, "failed to list images")
		return
	}
	presenter.JSON(w, r, images, http.StatusOK)
}

// handleUploadImage accepts a multipart form with a single "file" part.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxImageSize+(1<<20))
	if err := r.ParseMultipartForm(service.MaxImageSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			presenter.Error(w, r, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		logger.Warn().Err(err).Msg("failed to parse upload")
		presenter.Error(w, r, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		presenter.Error(w, r, "missing file", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxImageSize+1))
	if err != nil {
		logger.Error().Err(err).Msg("failed to read upload")
		presenter.Error(w, r, "failed to read file", http.StatusBadRequest)
		return
	}
	if len(data) > service.MaxImageSize {
		presenter.Error(w, r, "file too large", http.StatusRequestEntityTooLarge)
		return
	}

	img, err := s.content.UploadImage(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		presenter.Err(w, r, err, "upload failed")
		return
	}
	presenter.JSON(w, r, img, http.StatusCreated)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := s.content.DeleteImage(r.Context(), key); err != nil {
		presenter.Err(w, r, err, "delete failed")
		return
	}
	presenter.JSON(w, r, DeleteResponse{Deleted: key}, http.StatusOK)
}
