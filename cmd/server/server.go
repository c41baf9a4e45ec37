package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/export"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/logger"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/store"
)

type server struct {
	store    *store.Store
	exports  *export.Service
	log      *logger.Logger
	currency string
}

func newServer(st *store.Store, exports *export.Service, log *logger.Logger, currency string) *server {
	return &server{store: st, exports: exports, log: log, currency: currency}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/estimates", func(r chi.Router) {
		r.Get("/", s.handleEstimatesList)
		r.Post("/", s.handleEstimateCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleEstimateLive)
			r.Post("/export", s.handleExport)
			r.Get("/export.xlsx", s.handleExportFile(formatXLSX))
			r.Get("/export.pdf", s.handleExportFile(formatPDF))
			r.Get("/export.html", s.handleExportFile(formatHTML))
			r.Get("/export.txt", s.handleExportFile(formatText))
			r.Put("/coefficients", s.handleSelectCoefficients)
			r.Put("/lines/{lineID}/price", s.handleManualPrice)
			r.Post("/blocks", s.handleBlockCreate)
		})
	})
	r.Post("/blocks/{id}/move", s.handleBlockMove)
	r.Delete("/blocks/{id}", s.handleBlockDelete)

	r.Route("/admin/coefficients", func(r chi.Router) {
		r.Get("/", s.handleCoefficientsList)
		r.Post("/", s.handleCoefficientCreate)
		r.Put("/{id}", s.handleCoefficientUpdate)
		r.Delete("/{id}", s.handleCoefficientDelete)
	})

	return r
}

// requestLogger logs one line per request with its status and duration.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
