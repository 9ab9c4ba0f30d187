package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	"cicerone/internal/orchestrator"
)

const wsWriteTimeout = 10 * time.Second

// ChatSocket streams a conversation over a websocket: each text frame from
// the client is one user message, each reply frame is the turn result. One
// connection is one session, so turns are naturally sequential.
type ChatSocket struct {
	orch   *orchestrator.Orchestrator
	logger *log.Logger
}

// NewChatSocket creates the websocket chat handler.
func NewChatSocket(orch *orchestrator.Orchestrator, logger *log.Logger) *ChatSocket {
	if logger == nil {
		logger = log.Default()
	}
	return &ChatSocket{orch: orch, logger: logger}
}

type wsMessage struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type wsReply struct {
	orchestrator.Result
	Error string `json:"error,omitempty"`
}

// ServeHTTP handles websocket upgrade requests on /ws/chat.
func (s *ChatSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	if err != nil {
		s.logger.Printf("server: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	// Connection-scoped default session; the client may override per message.
	defaultSession := r.URL.Query().Get("session_id")
	if defaultSession == "" {
		defaultSession = defaultSessionID
	}

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}

		var msg wsMessage
		reply := wsReply{}
		if err := json.Unmarshal(data, &msg); err != nil || msg.Message == "" {
			reply.Error = "expected {\"session_id\", \"message\"} with a non-empty message"
		} else {
			if msg.SessionID == "" {
				msg.SessionID = defaultSession
			}
			reply.Result = s.orch.ProcessMessage(r.Context(), msg.SessionID, msg.Message)
		}

		if err := s.write(r.Context(), conn, reply); err != nil {
			s.logger.Printf("server: websocket write failed: %v", err)
			return
		}
	}
}

func (s *ChatSocket) write(ctx context.Context, conn *websocket.Conn, reply wsReply) error { //nolint:staticcheck
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
}
