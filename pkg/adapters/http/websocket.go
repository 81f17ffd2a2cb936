package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/aretw0/parley"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamCommand is a message sent by a websocket client.
// Action is "choose" or "reevaluate".
type StreamCommand struct {
	Action string `json:"action"`
	Index  int    `json:"index,omitempty"`
	All    bool   `json:"all,omitempty"`
}

// StreamMessage is a message sent to a websocket client.
// Type is "turn", "diff" or "error".
type StreamMessage struct {
	Type  string          `json:"type"`
	Turn  *parley.Turn    `json:"turn,omitempty"`
	Diff  json.RawMessage `json:"diff,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Stream handles GET /sessions/{sessionID}/ws.
// The client first receives the current turn, then every diff of the session, and
// may drive the conversation with StreamCommand messages; each command is answered
// with a turn or an error.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	turn, err := s.Sessions.View(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("websocket upgrade failed", "session_id", sessionID, "err", err)
		return
	}
	defer conn.Close()

	diffs, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	replies := make(chan StreamMessage, 1)
	go s.readCommands(ctx, conn, sessionID, replies, stop)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeMessage(conn, StreamMessage{Type: "turn", Turn: turn}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-diffs:
			if !ok {
				return
			}
			if err := writeMessage(conn, StreamMessage{Type: "diff", Diff: json.RawMessage(msg)}); err != nil {
				s.Logger.Debug("websocket write failed", "session_id", sessionID, "err", err)
				return
			}
		case reply := <-replies:
			if err := writeMessage(conn, reply); err != nil {
				s.Logger.Debug("websocket write failed", "session_id", sessionID, "err", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) readCommands(ctx context.Context, conn *websocket.Conn, sessionID string, replies chan<- StreamMessage, stop func()) {
	defer stop()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd StreamCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.Logger.Debug("websocket closed", "session_id", sessionID, "err", err)
			}
			return
		}

		reply := s.handleCommand(ctx, sessionID, cmd)
		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handleCommand(ctx context.Context, sessionID string, cmd StreamCommand) StreamMessage {
	var (
		turn *parley.Turn
		err  error
	)
	switch cmd.Action {
	case "choose":
		turn, err = s.choose(ctx, sessionID, ChooseRequest{Index: cmd.Index, All: cmd.All})
	case "reevaluate":
		turn, err = s.Sessions.Reevaluate(ctx, sessionID)
		if err == nil {
			s.Streams.PublishDiff(sessionID, turn.Diff)
		}
	default:
		err = fmt.Errorf("unknown action %q", cmd.Action)
	}
	if err != nil {
		return StreamMessage{Type: "error", Error: err.Error()}
	}
	return StreamMessage{Type: "turn", Turn: turn}
}

func writeMessage(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
