package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"finchat/internal/chat"
	"finchat/internal/logger"
	"finchat/internal/macro"
	"finchat/internal/trace"
	"finchat/internal/types"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps chat sessions in memory for the lifetime of the process.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*chat.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*chat.Session)}
}

func (st *SessionStore) Put(s *chat.Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
}

func (st *SessionStore) Get(id string) (*chat.Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

type Server struct {
	assistant   *chat.Assistant
	sessions    *SessionStore
	corsOrigins []string
	httpServer  *http.Server
}

func New(assistant *chat.Assistant, corsOrigins []string) *Server {
	return &Server{
		assistant:   assistant,
		sessions:    NewSessionStore(),
		corsOrigins: corsOrigins,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	allowedOrigins := s.corsOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tickers", s.handleTickers)
		r.Get("/context/{ticker}", s.handleContext)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/messages", s.handleMessages)
			r.Post("/messages", s.handleAsk)
			r.Post("/download", s.handleDownload)
			r.Post("/snapshot/{ticker}", s.tickerAction(s.assistant.Snapshot))
			r.Post("/news/{ticker}", s.tickerAction(s.assistant.LoadNews))
			r.Post("/news/{ticker}/summary", s.tickerAction(s.assistant.SummarizeNews))
			r.Post("/macro/{ticker}", s.tickerAction(s.assistant.Macro))
		})
	})
	return r
}

// ListenAndServe blocks until the server stops. http.ErrServerClosed is not an error.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info(context.Background(), "HTTP server listening", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tickers": s.assistant.Tickers()})
}

type contextResponse struct {
	Context types.MacroContext `json:"context"`
	Human   string             `json:"human"`
	Prompt  string             `json:"prompt"`
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	mc, err := s.assistant.Analyze(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contextResponse{
		Context: mc,
		Human:   macro.RenderHuman(mc),
		Prompt:  macro.RenderForPrompt(mc),
	})
}

type sessionResponse struct {
	ID       string          `json:"id"`
	Messages []types.Message `json:"messages"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.assistant.NewSession()
	s.sessions.Put(sess)
	logger.Info(r.Context(), "Session created", "session", sess.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, Messages: sess.Messages()})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Messages: sess.Messages()})
}

type askRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	Message types.Message `json:"message"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	msg, err := s.assistant.Ask(r.Context(), sess, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: s.assistant.Download(r.Context(), sess)})
}

type tickerActionFunc func(ctx context.Context, s *chat.Session, ticker string) (types.Message, error)

func (s *Server) tickerAction(action tickerActionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		msg, err := action(r.Context(), sess, chi.URLParam(r, "ticker"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, chat.ErrUnknownTicker), errors.Is(err, chat.ErrEmptyMessage):
		status = http.StatusBadRequest
	default:
		logger.ErrorWithErr(r.Context(), "Request failed", err, "path", r.URL.Path)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := trace.StartSpan(r.Context(), "http "+r.Method)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		logger.Debug(ctx, "HTTP request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
