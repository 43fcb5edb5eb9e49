package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"voice-assistant/internal/domain"
)

// HTTP exposes the two commands as endpoints for remote buttons and home
// automation hooks:
//
//	POST /turn   start a turn (409 while one is running)
//	POST /exit   stop the assistant, aborting any running turn
//	GET  /health liveness
type HTTP struct {
	addr      string
	authToken string
	logger    *slog.Logger

	mux         *http.ServeMux
	server      *http.Server
	rateLimiter *RateLimiter

	events   chan domain.Command
	exited   chan struct{}
	exitOnce sync.Once

	mu      sync.Mutex
	running bool
	waiting bool
}

func NewHTTP(addr, authToken string, logger *slog.Logger) *HTTP {
	h := &HTTP{
		addr:        addr,
		authToken:   authToken,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(10, time.Minute),
		events:      make(chan domain.Command),
		exited:      make(chan struct{}),
	}
	h.mux.HandleFunc("POST /turn", h.rateLimiter.Middleware(h.authorized(h.handleTurn)))
	h.mux.HandleFunc("POST /exit", h.authorized(h.handleExit))
	h.mux.HandleFunc("GET /health", h.handleHealth)
	return h
}

func (h *HTTP) Name() string {
	return "http"
}

// Handle mounts an extra handler, e.g. metrics, on the trigger server.
func (h *HTTP) Handle(pattern string, handler http.Handler) {
	h.mux.Handle(pattern, handler)
}

func (h *HTTP) Handler() http.Handler {
	return h.mux
}

func (h *HTTP) Start(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil
	}

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		h.logger.Info("HTTP trigger server starting", "addr", h.addr)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", "error", err)
		}
	}()

	h.running = true
	return nil
}

func (h *HTTP) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := h.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	h.running = false
	return nil
}

func (h *HTTP) Next(ctx context.Context) (domain.Command, error) {
	h.setWaiting(true)
	defer h.setWaiting(false)

	select {
	case <-ctx.Done():
		return domain.CommandNone, ctx.Err()
	case <-h.exited:
		return domain.CommandExit, nil
	case cmd := <-h.events:
		return cmd, nil
	}
}

func (h *HTTP) Interrupts() <-chan struct{} {
	return h.exited
}

func (h *HTTP) setWaiting(v bool) {
	h.mu.Lock()
	h.waiting = v
	h.mu.Unlock()
}

func (h *HTTP) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.authToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != h.authToken {
				h.logger.Warn("unauthorized trigger request", "remote_addr", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (h *HTTP) handleTurn(w http.ResponseWriter, _ *http.Request) {
	select {
	case h.events <- domain.CommandRun:
		h.logger.Info("turn requested via HTTP")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"status":"started"}`)
	default:
		http.Error(w, "turn in progress, try again", http.StatusConflict)
	}
}

func (h *HTTP) handleExit(w http.ResponseWriter, _ *http.Request) {
	h.exitOnce.Do(func() {
		close(h.exited)
	})
	h.logger.Info("exit requested via HTTP")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprint(w, `{"status":"exiting"}`)
}

func (h *HTTP) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	running := h.running
	idle := h.waiting
	h.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK
	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"status":"%s","running":%t,"idle":%t}`, status, running, idle)
}
