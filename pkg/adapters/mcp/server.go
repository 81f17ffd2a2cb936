package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/presentation/graph"
)

const dialogueURIPrefix = "parley://dialogues/"

// SessionService runs persistent conversations. *parley.Sessions implements it.
type SessionService interface {
	Start(ctx context.Context, dialogueID, sessionID string) (*parley.Turn, error)
	View(ctx context.Context, sessionID string) (*parley.Turn, error)
	Choose(ctx context.Context, sessionID string, index int) (*parley.Turn, error)
	ChooseFromAll(ctx context.Context, sessionID string, index int) (*parley.Turn, error)
	Reevaluate(ctx context.Context, sessionID string) (*parley.Turn, error)
}

// Catalog exposes the dialogues known to the engine. *parley.Engine implements it.
type Catalog interface {
	Dialogues(ctx context.Context) ([]string, error)
	Inspect(ctx context.Context, dialogueID string) (*parley.Inspection, error)
}

// TurnResponse is the structured result of every session tool.
type TurnResponse struct {
	SessionID string       `json:"session_id" jsonschema_description:"The session the turn belongs to"`
	Turn      *parley.Turn `json:"turn" jsonschema_description:"The current line, its options and what changed"`
}

// DialogueList is the structured result of list_dialogues.
type DialogueList struct {
	Dialogues []string `json:"dialogues" jsonschema_description:"Ids of the dialogues that can be started"`
}

// StartArgs are the arguments of start_session.
type StartArgs struct {
	DialogueID string `json:"dialogue_id"`
	SessionID  string `json:"session_id,omitempty"`
}

// SessionArgs are the arguments of view_session and reevaluate_session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// ChooseArgs are the arguments of choose_option.
type ChooseArgs struct {
	SessionID string `json:"session_id"`
	Index     int    `json:"index"`
	All       bool   `json:"all,omitempty"`
}

// DialogueArgs are the arguments of inspect_dialogue.
type DialogueArgs struct {
	DialogueID string `json:"dialogue_id"`
}

// Server exposes the dialogue runtime as an MCP server.
type Server struct {
	sessions  SessionService
	catalog   Catalog
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger for the transports.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions SessionService, catalog Catalog, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		catalog:   catalog,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("parley-mcp", strings.TrimSpace(parley.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down mcp server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_dialogues",
		mcp.WithDescription("List the ids of the dialogues that can be started."),
		mcp.WithOutputSchema[DialogueList](),
	), mcp.NewStructuredToolHandler(s.handleListDialogues))

	s.mcpServer.AddTool(mcp.NewTool("inspect_dialogue",
		mcp.WithDescription("Get a dialogue definition and the nodes no start node can reach."),
		mcp.WithString("dialogue_id", mcp.Required(), mcp.Description("The dialogue to inspect")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args DialogueArgs
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		in, err := s.catalog.Inspect(ctx, args.DialogueID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
		}
		data, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a conversation, or return the current turn if the session already exists."),
		mcp.WithString("dialogue_id", mcp.Required(), mcp.Description("The dialogue to play")),
		mcp.WithString("session_id", mcp.Description("Session id to use (optional, generated when omitted)")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("view_session",
		mcp.WithDescription("Get the current line and options of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to view")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleView))

	s.mcpServer.AddTool(mcp.NewTool("choose_option",
		mcp.WithDescription("Pick an option of the current line by its zero-based index."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to advance")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based option index")),
		mcp.WithBoolean("all", mcp.Description("Index into the full option list, unsatisfied entries included")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleChoose))

	s.mcpServer.AddTool(mcp.NewTool("reevaluate_session",
		mcp.WithDescription("Recompute the options of a session after the world changed."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to reevaluate")),
		mcp.WithOutputSchema[TurnResponse](),
	), mcp.NewStructuredToolHandler(s.handleReevaluate))
}

func (s *Server) handleListDialogues(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (DialogueList, error) {
	ids, err := s.catalog.Dialogues(ctx)
	if err != nil {
		return DialogueList{}, fmt.Errorf("list failed: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return DialogueList{Dialogues: ids}, nil
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args StartArgs) (TurnResponse, error) {
	if args.DialogueID == "" {
		return TurnResponse{}, errors.New("dialogue_id is required")
	}
	turn, err := s.sessions.Start(ctx, args.DialogueID, args.SessionID)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return TurnResponse{SessionID: turn.View.SessionID, Turn: turn}, nil
}

func (s *Server) handleView(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (TurnResponse, error) {
	turn, err := s.sessions.View(ctx, args.SessionID)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("view failed: %w", err)
	}
	return TurnResponse{SessionID: args.SessionID, Turn: turn}, nil
}

func (s *Server) handleChoose(ctx context.Context, _ mcp.CallToolRequest, args ChooseArgs) (TurnResponse, error) {
	var (
		turn *parley.Turn
		err  error
	)
	if args.All {
		turn, err = s.sessions.ChooseFromAll(ctx, args.SessionID, args.Index)
	} else {
		turn, err = s.sessions.Choose(ctx, args.SessionID, args.Index)
	}
	if err != nil {
		return TurnResponse{}, fmt.Errorf("choose failed: %w", err)
	}
	return TurnResponse{SessionID: args.SessionID, Turn: turn}, nil
}

func (s *Server) handleReevaluate(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (TurnResponse, error) {
	turn, err := s.sessions.Reevaluate(ctx, args.SessionID)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("reevaluate failed: %w", err)
	}
	return TurnResponse{SessionID: args.SessionID, Turn: turn}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("parley://dialogues", "Available dialogues",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := s.handleListDialogues(ctx, mcp.CallToolRequest{}, struct{}{})
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(list.Dialogues)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "parley://dialogues",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(dialogueURIPrefix+"{id}/graph", "Dialogue graph",
		mcp.WithTemplateDescription("Mermaid flowchart of a dialogue"),
		mcp.WithTemplateMIMEType("text/vnd.mermaid"),
	), s.readGraph)
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimSuffix(strings.TrimPrefix(uri, dialogueURIPrefix), "/graph")
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid dialogue uri %q", uri)
	}
	in, err := s.catalog.Inspect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect dialogue: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/vnd.mermaid",
			Text:     graph.GenerateMermaid(in.Dialogue, nil),
		},
	}, nil
}
