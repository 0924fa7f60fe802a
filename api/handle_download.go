package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

var (
	errNotAllowed   = errors.New("not allowed")
	errFileNotFound = errors.New("file not found")
)

// handleDownload serves the CSV output file, and nothing else.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	if s.opts.CSVPath == "" || name != filepath.Base(s.opts.CSVPath) {
		ERROR(w, http.StatusNotFound, errNotAllowed)
		return
	}

	if _, err := os.Stat(s.opts.CSVPath); err != nil {
		ERROR(w, http.StatusNotFound, errFileNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, s.opts.CSVPath)
}
