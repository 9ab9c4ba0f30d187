// Package server provides the HTTP front end for the dialogue engine:
// the chat API, session history and clear operations, the turn trace, and a
// websocket chat stream.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"cicerone/internal/config"
	"cicerone/internal/orchestrator"
)

// Start initializes and starts the HTTP server. It returns the actual address
// being listened on (useful for testing with port 0). The server shuts down
// gracefully when ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator, logger *log.Logger) (string, error) {
	if logger == nil {
		logger = log.Default()
	}

	handler := Routes(cfg, orch, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Printf("server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("server shutdown error: %v", err)
		}
	}()

	return actualAddr, nil
}

// Routes builds the full handler chain: routing, auth on the API prefix,
// rate limiting and security headers on everything.
func Routes(cfg *config.Config, orch *orchestrator.Orchestrator, logger *log.Logger) http.Handler {
	handlers := NewHandlers(orch, logger)
	chatSocket := NewChatSocket(orch, logger)
	rateLimiter := NewRateLimiter(10.0, 20)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handlers.Chat(w, r)
	})
	apiMux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handlers.History(w, r)
	})
	apiMux.HandleFunc("/api/clear", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handlers.Clear(w, r)
	})
	apiMux.HandleFunc("/api/trace", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handlers.Trace(w, r)
	})

	mux := http.NewServeMux()

	// Health endpoint — no auth required, used by monitoring.
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
	})

	mux.Handle("/api/", RequireAuth(apiMux, cfg))
	mux.Handle("/ws/chat", chatSocket)

	handler := RateLimitMiddleware(mux, rateLimiter)
	return securityHeadersMiddleware(handler)
}
