package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/presentation/graph"
	"github.com/aretw0/parley/pkg/domain"
)

// SessionService runs persistent conversations. *parley.Sessions implements it.
type SessionService interface {
	Start(ctx context.Context, dialogueID, sessionID string) (*parley.Turn, error)
	View(ctx context.Context, sessionID string) (*parley.Turn, error)
	Choose(ctx context.Context, sessionID string, index int) (*parley.Turn, error)
	ChooseFromAll(ctx context.Context, sessionID string, index int) (*parley.Turn, error)
	Reevaluate(ctx context.Context, sessionID string) (*parley.Turn, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

// Catalog exposes the dialogues known to the engine. *parley.Engine implements it.
type Catalog interface {
	Dialogues(ctx context.Context) ([]string, error)
	Inspect(ctx context.Context, dialogueID string) (*parley.Inspection, error)
	Watch(ctx context.Context) (<-chan string, error)
}

// Server serves the dialogue API over HTTP.
type Server struct {
	Sessions SessionService
	Catalog  Catalog
	Streams  *StreamManager
	Logger   *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the logger used for request errors and stream events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithStreams shares a StreamManager, e.g. with lifecycle hooks publishing into it.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// NewHandler creates the HTTP handler for the dialogue API.
func NewHandler(sessions SessionService, catalog Catalog, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		Catalog:  catalog,
		Logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.Logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/dialogues", func(r chi.Router) {
		r.Get("/", s.ListDialogues)
		r.Get("/{dialogueID}", s.GetDialogue)
		r.Get("/{dialogueID}/graph", s.GetGraph)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.StartSession)
		r.Get("/{sessionID}", s.GetSession)
		r.Delete("/{sessionID}", s.DeleteSession)
		r.Post("/{sessionID}/choose", s.Choose)
		r.Post("/{sessionID}/reevaluate", s.Reevaluate)
		r.Get("/{sessionID}/ws", s.Stream)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartRequest is the body of POST /sessions.
type StartRequest struct {
	DialogueID string `json:"dialogue_id"`
	SessionID  string `json:"session_id,omitempty"`
}

// ChooseRequest is the body of POST /sessions/{id}/choose.
// All selects from the full option list, unsatisfied entries included.
type ChooseRequest struct {
	Index int  `json:"index"`
	All   bool `json:"all,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrDialogueNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidChoice):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConversationEnded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrMalformedGraph):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.Logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "parley-http",
		"version": strings.TrimSpace(parley.Version),
	})
}

// ListDialogues handles GET /dialogues.
func (s *Server) ListDialogues(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Catalog.Dialogues(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetDialogue handles GET /dialogues/{dialogueID}.
func (s *Server) GetDialogue(w http.ResponseWriter, r *http.Request) {
	in, err := s.Catalog.Inspect(r.Context(), chi.URLParam(r, "dialogueID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, in)
}

// GetGraph handles GET /dialogues/{dialogueID}/graph and answers a Mermaid diagram.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	in, err := s.Catalog.Inspect(r.Context(), chi.URLParam(r, "dialogueID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(in.Dialogue, nil)))
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// StartSession handles POST /sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DialogueID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must carry a dialogue_id"})
		return
	}

	turn, err := s.Sessions.Start(r.Context(), body.DialogueID, body.SessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if turn.Created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, turn)
}

// GetSession handles GET /sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	turn, err := s.Sessions.View(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, turn)
}

// DeleteSession handles DELETE /sessions/{sessionID}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Choose handles POST /sessions/{sessionID}/choose.
func (s *Server) Choose(w http.ResponseWriter, r *http.Request) {
	var body ChooseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	turn, err := s.choose(r.Context(), chi.URLParam(r, "sessionID"), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, turn)
}

func (s *Server) choose(ctx context.Context, sessionID string, body ChooseRequest) (*parley.Turn, error) {
	var (
		turn *parley.Turn
		err  error
	)
	if body.All {
		turn, err = s.Sessions.ChooseFromAll(ctx, sessionID, body.Index)
	} else {
		turn, err = s.Sessions.Choose(ctx, sessionID, body.Index)
	}
	if err != nil {
		return nil, err
	}
	s.Streams.PublishDiff(sessionID, turn.Diff)
	return turn, nil
}

// Reevaluate handles POST /sessions/{sessionID}/reevaluate.
func (s *Server) Reevaluate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	turn, err := s.Sessions.Reevaluate(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Streams.PublishDiff(sessionID, turn.Diff)
	s.writeJSON(w, http.StatusOK, turn)
}
