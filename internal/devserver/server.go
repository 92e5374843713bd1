package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/torahstudy/limud/core/cachedb"
	"github.com/torahstudy/limud/core/loader"
	"github.com/torahstudy/limud/core/sqlite"
	"github.com/torahstudy/limud/internal/logging"
)

// Version is stamped by the build and reported by /api/version.
var Version = "dev"

// Server is the local diagnostics HTTP server.
type Server struct {
	loader *loader.Loader
	db     *cachedb.SeferCache
	hub    *Hub
	http   *http.Server
}

// New creates a diagnostics server over the given loader and cache.
func New(l *loader.Loader, db *cachedb.SeferCache, port int) *Server {
	s := &Server{
		loader: l,
		db:     db,
		hub:    NewHub(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/cache/stats", s.handleStats)
	mux.HandleFunc("/api/cache/clear", s.handleClear)
	mux.HandleFunc("/ws", s.hub.handleWS)

	s.http = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           logging.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Hub returns the progress hub so schedulers can broadcast into it.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.hub.Run(hubCtx)

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		s.http.Shutdown(shutdownCtx)
	}()

	logging.ServerStartup("devserver", "http", portOf(s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func portOf(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(portStr)
	return port
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"version": Version,
		"sqlite":  sqlite.GetInfo(),
	})
}

// handleStats reports both cache tiers.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	dbStats, err := s.db.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"memory":     s.loader.MemStats(),
		"persistent": dbStats,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.db.Clear(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.hub.Broadcast(ProgressMessage{Type: "complete", Operation: "clear", Message: "persistent cache cleared"})
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}
