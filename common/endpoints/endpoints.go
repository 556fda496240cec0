// Package endpoints serves the admin HTTP surface: health, rendered stats
// and whatever extra handlers the binary registers.
package endpoints

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"

	"github.com/dataspaces/hsched/common/stats"
)

// NewTwitterServer creates a server for addr. handlers maps extra paths to
// their handlers, e.g. "/admin/scheduler.json". maxConns <= 0 is unlimited.
func NewTwitterServer(addr string, maxConns int, stats stats.StatsReceiver, handlers map[string]http.Handler) *TwitterServer {
	s := &TwitterServer{
		Addr:     addr,
		MaxConns: maxConns,
		Stats:    stats,
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", helpHandler)
	r.Get("/health", healthHandler)
	r.Get("/admin/metrics.json", s.statsHandler)
	for path, h := range handlers {
		r.Method(http.MethodGet, path, h)
	}
	s.router = r
	return s
}

type TwitterServer struct {
	Addr     string
	MaxConns int
	Stats    stats.StatsReceiver

	router   chi.Router
	listener net.Listener
	server   *http.Server
}

func (s *TwitterServer) Handler() http.Handler {
	return s.router
}

// Listen binds Addr. Serve calls it if needed; calling it first makes the
// bound address available through ListenAddr.
func (s *TwitterServer) Listen() error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	if s.MaxConns > 0 {
		log.Infof("Creating LimitListener with max: %d", s.MaxConns)
		listener = netutil.LimitListener(listener, s.MaxConns)
	}
	s.listener = listener
	s.server = &http.Server{Handler: s.router}
	return nil
}

func (s *TwitterServer) ListenAddr() string {
	if s.listener == nil {
		return s.Addr
	}
	return s.listener.Addr().String()
}

// Serve blocks until the server fails or is shut down.
func (s *TwitterServer) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	log.Infof("Serving http & stats on %s", s.ListenAddr())
	err := s.server.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *TwitterServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Common paths: '/health', '/admin/metrics.json', '/admin/scheduler.json'", http.StatusNotImplemented)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "ok")
}

func (s *TwitterServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	const contentTypeHdr = "Content-Type"
	const contentTypeVal = "application/json; charset=utf-8"
	w.Header().Set(contentTypeHdr, contentTypeVal)

	pretty := r.URL.Query().Get("pretty") == "true"
	if _, err := w.Write(s.Stats.Render(pretty)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type StatScope string

func MakeStatsReceiver(scope StatScope) stats.StatsReceiver {
	return stats.DefaultStatsReceiver().Scope(string(scope))
}
