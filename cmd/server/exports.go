package main

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/export"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/render"
)

type exportFormat string

const (
	formatXLSX exportFormat = "xlsx"
	formatPDF  exportFormat = "pdf"
	formatHTML exportFormat = "html"
	formatText exportFormat = "txt"
)

var contentTypes = map[exportFormat]string{
	formatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	formatPDF:  "application/pdf",
	formatHTML: "text/html; charset=utf-8",
	formatText: "text/plain; charset=utf-8",
}

// handleExport freezes the estimate, or returns the snapshot frozen earlier.
// ?recompute=1 replaces the stored snapshot with fresh numbers.
func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	recompute, _ := strconv.ParseBool(r.URL.Query().Get("recompute"))

	res, err := s.exports.Export(r.Context(), chi.URLParam(r, "id"), export.Options{Recompute: recompute})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEstimateResponse(res))
}

// handleExportFile renders the frozen snapshot, creating it on first download.
func (s *server) handleExportFile(format exportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.exports.Export(r.Context(), chi.URLParam(r, "id"), export.Options{})
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		doc := render.Document{
			Title:       res.Estimate.Title,
			Client:      res.Estimate.ClientName,
			Category:    res.Estimate.Category,
			CreatedDate: res.Snapshot.CreatedAt.Format("02.01.2006"),
			Currency:    s.currency,
			Snapshot:    res.Snapshot,
		}

		var body []byte
		switch format {
		case formatXLSX:
			body, err = render.XLSX(doc)
		case formatPDF:
			body, err = render.PDF(doc)
		case formatHTML:
			var buf bytes.Buffer
			err = render.HTML(&buf, doc)
			body = buf.Bytes()
		case formatText:
			var buf bytes.Buffer
			err = render.Text(&buf, doc)
			body = buf.Bytes()
		}
		if err != nil {
			s.writeError(w, r, fmt.Errorf("render %s: %w", format, err))
			return
		}

		w.Header().Set("Content-Type", contentTypes[format])
		if format == formatXLSX || format == formatPDF {
			filename := fmt.Sprintf("estimate_%s.%s", sanitizeFilename(doc.Title), format)
			w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

// sanitizeFilename removes characters that are unsafe for filenames.
func sanitizeFilename(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "untitled"
	}
	return strings.NewReplacer(" ", "-", "/", "-", "\\", "-", ":", "-", "\"", "").Replace(s)
}
