// Package admin implements the localhost-only HTTP/WebSocket introspection
// surface (spec §4.10): liveness, aggregate stats, and a live event tail.
// It is read-only and is not part of the client wire protocol.
package admin

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"lunio/internal/index"
	"lunio/internal/jobs"
	"lunio/internal/logger"
	"lunio/internal/wire"
)

// Stats is the JSON body served from GET /stats.
type Stats struct {
	IndexedFiles int `json:"indexed_files"`
	ActiveJobs   int `json:"active_jobs"`
	Clients      int `json:"clients"`
}

// Server is the admin HTTP server. It is only started when config's
// admin.enabled is true.
type Server struct {
	log       *logger.Logger
	indexSvc  *index.Service
	scheduler *jobs.Scheduler
	clients   func() int

	mu        sync.Mutex
	tailConns map[*websocket.Conn]struct{}

	httpServer *http.Server
}

// New builds an admin Server bound to addr (e.g. "127.0.0.1:7777").
func New(log *logger.Logger, addr string, indexSvc *index.Service, scheduler *jobs.Scheduler, clientCount func() int) *Server {
	s := &Server{
		log:       log,
		indexSvc:  indexSvc,
		scheduler: scheduler,
		clients:   clientCount,
		tailConns: make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/events", s.handleEvents)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Serve starts listening on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()
	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	active := 0
	for _, summary := range s.scheduler.ListAll() {
		switch summary.State.Status {
		case jobs.StatusQueued, jobs.StatusRunning, jobs.StatusWaitingDependencies:
			active++
		}
	}
	stats := Stats{
		IndexedFiles: s.indexSvc.Store().Len(),
		ActiveJobs:   active,
		Clients:      s.clients(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleEvents upgrades to a websocket connection and tails every event
// published to it via Broadcast (see Server.Tail) as JSON lines. Read-only:
// the daemon never acts on anything the admin client sends.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	s.mu.Lock()
	s.tailConns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.tailConns, conn)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// Tail fans event out to every connected /events websocket client.
func (s *Server) Tail(event wire.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.tailConns))
	for c := range s.tailConns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		c.Write(ctx, websocket.MessageText, data)
		cancel()
	}
}
