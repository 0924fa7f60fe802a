package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lightlink-network/ll-whale-tracker/database/models"
)

var (
	errNoStore         = errors.New("outcome store is not configured")
	errOutcomeNotFound = errors.New("outcome not found")
)

func (s *Server) handleOutcomeGet(w http.ResponseWriter, r *http.Request) {
	if s.opts.Outcomes == nil {
		ERROR(w, http.StatusServiceUnavailable, errNoStore)
		return
	}

	hash := chi.URLParam(r, "hash")
	outcome, err := s.opts.Outcomes.GetOutcomeByHash(r.Context(), hash)
	if err != nil {
		s.log.Error("failed to get outcome", "hash", hash, "error", err)
		ERROR(w, http.StatusInternalServerError, err)
		return
	}
	if outcome == nil {
		ERROR(w, http.StatusNotFound, errOutcomeNotFound)
		return
	}

	JSON(w, http.StatusOK, outcome)
}

func (s *Server) handleOutcomesGet(w http.ResponseWriter, r *http.Request) {
	if s.opts.Outcomes == nil {
		ERROR(w, http.StatusServiceUnavailable, errNoStore)
		return
	}

	page, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.ParseInt(r.URL.Query().Get("pageSize"), 10, 64)
	if err != nil || pageSize < 1 {
		pageSize = 20
	}

	filter := models.Filter{
		Status: r.URL.Query().Get("status"),
		Tag:    r.URL.Query().Get("tag"),
		Hash:   r.URL.Query().Get("hash"),
		To:     r.URL.Query().Get("to"),
	}

	result, err := s.opts.Outcomes.GetOutcomes(r.Context(), filter, page, pageSize)
	if err != nil {
		s.log.Error("failed to get outcomes", "error", err)
		ERROR(w, http.StatusInternalServerError, err)
		return
	}

	JSON(w, http.StatusOK, result)
}
