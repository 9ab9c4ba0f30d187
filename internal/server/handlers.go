package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"cicerone/internal/orchestrator"
)

const (
	defaultSessionID   = "default"
	chatMaxAttempts    = 3
	chatRetryBaseDelay = 500 * time.Millisecond
)

// Handlers holds the HTTP handlers for the chat API.
type Handlers struct {
	orch   *orchestrator.Orchestrator
	logger *log.Logger

	// retryBaseDelay is overridable in tests.
	retryBaseDelay time.Duration
}

// NewHandlers creates the API handlers over an orchestrator.
func NewHandlers(orch *orchestrator.Orchestrator, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{orch: orch, logger: logger, retryBaseDelay: chatRetryBaseDelay}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Chat handles POST /api/chat: one dialogue turn. Turns that fail to record
// are retried a bounded number of times with linear backoff before the
// failure is surfaced.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = defaultSessionID
	}

	var result orchestrator.Result
	for attempt := 1; attempt <= chatMaxAttempts; attempt++ {
		result = h.orch.ProcessMessage(r.Context(), req.SessionID, req.Message)
		if result.Success {
			break
		}
		if attempt < chatMaxAttempts {
			h.logger.Printf("server: turn failed for session %s (attempt %d/%d), retrying", req.SessionID, attempt, chatMaxAttempts)
			select {
			case <-time.After(time.Duration(attempt) * h.retryBaseDelay):
			case <-r.Context().Done():
				writeError(w, http.StatusRequestTimeout, "request cancelled")
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// History handles GET /api/history: the session's turn log, oldest first.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = defaultSessionID
	}

	turns := h.orch.History(sessionID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"turns":      turns,
	})
}

// Clear handles POST /api/clear: wipe the session's memory and slot state.
func (h *Handlers) Clear(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = defaultSessionID
	}

	if err := h.orch.Clear(r.Context(), sessionID); err != nil {
		// Session-local state is already reset; report the storage residue.
		h.logger.Printf("server: clear incomplete for session %s: %v", sessionID, err)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"cleared": true,
			"warning": "storage cleanup incomplete, will be retried",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

// Trace handles GET /api/trace: the stage log for a session (or all sessions).
func (h *Handlers) Trace(w http.ResponseWriter, r *http.Request) {
	events := h.orch.Trace().Events(r.URL.Query().Get("session_id"))
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
