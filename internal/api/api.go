// Package api exposes a session over local HTTP, for an in-page button to call.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alanbriolat/nowplaying-dl"
	"github.com/alanbriolat/nowplaying-dl/internal/session"
)

type Server struct {
	session *session.Session
	router  chi.Router
	log     *zap.SugaredLogger
}

type outcomeResponse struct {
	Outcome  session.OutcomeKind           `json:"outcome"`
	Message  string                        `json:"message"`
	FileName string                        `json:"fileName,omitempty"`
	Path     string                        `json:"path,omitempty"`
	Strategy string                        `json:"strategy,omitempty"`
	Track    *nowplaying_dl.TrackDescriptor `json:"track,omitempty"`
	Error    string                        `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds the router. gatherer may be nil, in which case /metrics is not served.
func New(s *session.Session, gatherer prometheus.Gatherer) *Server {
	srv := &Server{
		session: s,
		log:     zap.S().Named("api"),
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(srv.logRequests)
	r.Use(allowCrossOrigin)

	r.Post("/download", srv.postDownload)
	r.Post("/cancel", srv.postCancel)
	r.Get("/track", srv.getTrack)
	r.Get("/filename", srv.getFileName)
	r.Route("/history", func(r chi.Router) {
		r.Get("/", srv.getHistory)
		r.Delete("/", srv.deleteHistory)
		r.Get("/{n}", srv.getHistoryEntry)
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	srv.router = r
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) postDownload(w http.ResponseWriter, r *http.Request) {
	// Page unload cancels the request, which must not abort the download
	o := s.session.Download(context.WithoutCancel(r.Context()))
	resp := outcomeResponse{
		Outcome:  o.Kind,
		Message:  o.Message,
		FileName: o.FileName,
		Path:     o.Path,
		Strategy: o.Strategy,
		Track:    o.Track,
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	s.writeJSON(w, outcomeStatus(o), resp)
}

func outcomeStatus(o session.Outcome) int {
	switch {
	case o.OK():
		return http.StatusOK
	case o.Kind == session.OutcomeAlreadyInProgress:
		return http.StatusConflict
	case errors.Is(o.Err, nowplaying_dl.ErrNoTrack), errors.Is(o.Err, nowplaying_dl.ErrNoSource):
		return http.StatusUnprocessableEntity
	case errors.Is(o.Err, nowplaying_dl.ErrCancelled):
		return http.StatusServiceUnavailable
	case errors.Is(o.Err, nowplaying_dl.ErrAllMethodsFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) postCancel(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.session.Cancel()})
}

func (s *Server) getTrack(w http.ResponseWriter, r *http.Request) {
	d, err := s.session.Track(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) getFileName(w http.ResponseWriter, r *http.Request) {
	name, err := s.session.FileName(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"fileName": name})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.session.History()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []nowplaying_dl.DownloadRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) getHistoryEntry(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	record, err := s.session.HistoryEntry(n)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ClearHistory(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warnf("failed to write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debugw("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start))
	})
}

// allowCrossOrigin lets scripts on the player's page call the API.
func allowCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
