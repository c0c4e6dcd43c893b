package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
	"github.com/DevRickLin/chatrecall/internal/metrics"
)

// Recaller runs the summarize and answer pipelines without sending a reply
type Recaller interface {
	Summarize(ctx context.Context, conversationID string, count int) (string, domain.Outcome)
	Answer(ctx context.Context, conversationID, query string) (string, domain.Outcome)
}

// HTTPDeps holds the optional collaborators of the HTTP server
type HTTPDeps struct {
	Metrics  *metrics.Metrics
	Telegram *TelegramServer // webhook route is mounted when set
	Recaller Recaller        // /api routes are mounted when set
}

// HTTPServer exposes health, metrics, the Telegram webhook and a small
// API for running recalls by hand
type HTTPServer struct {
	addr   string
	router *chi.Mux
	deps   HTTPDeps
	log    zerolog.Logger
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(addr string, deps HTTPDeps, log zerolog.Logger) *HTTPServer {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	s := &HTTPServer{
		addr:   addr,
		router: router,
		deps:   deps,
		log:    log,
	}

	router.Get("/health", s.health)
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	if deps.Telegram != nil {
		router.Post("/telegram/webhook", deps.Telegram.ServeWebhook)
	}
	if deps.Recaller != nil {
		router.Route("/api/conversations/{conversationID}", func(r chi.Router) {
			r.Post("/summary", s.summary)
			r.Post("/ask", s.ask)
		})
	}

	return s
}

// Handler returns the router
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("http server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if s.deps.Telegram != nil {
			s.log.Info().Msg("waiting for webhook updates in flight")
			s.deps.Telegram.Wait()
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// RecallResponse is the body returned by the /api routes
type RecallResponse struct {
	ConversationID string `json:"conversation_id"`
	Outcome        string `json:"outcome"`
	Reply          string `json:"reply"`
}

type summaryRequest struct {
	Count int `json:"count"`
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) summary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	// empty body means the default count
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	convID := chi.URLParam(r, "conversationID")
	reply, outcome := s.deps.Recaller.Summarize(r.Context(), convID, req.Count)
	writeJSON(w, http.StatusOK, RecallResponse{ConversationID: convID, Outcome: string(outcome), Reply: reply})
}

func (s *HTTPServer) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	convID := chi.URLParam(r, "conversationID")
	reply, outcome := s.deps.Recaller.Answer(r.Context(), convID, req.Question)
	writeJSON(w, http.StatusOK, RecallResponse{ConversationID: convID, Outcome: string(outcome), Reply: reply})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
