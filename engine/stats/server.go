package stats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Server exposes a Stats over HTTP.
//
//	GET /stats          all values as a JSON object
//	GET /stats/{name}   one value, 404 if never set
//	GET /stats/ws       websocket pushing the JSON object whenever it changes
type Server struct {
	stats    *Stats
	log      *slog.Logger
	interval time.Duration
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// NewServer builds the handler. interval is the websocket poll period.
func NewServer(s *Stats, log *slog.Logger, interval time.Duration) *Server {
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	srv := &Server{
		stats:    s,
		log:      log,
		interval: interval,
		mux:      http.NewServeMux(),
	}
	srv.mux.HandleFunc("GET /stats", srv.handleAll)
	srv.mux.HandleFunc("GET /stats/ws", srv.handleStream)
	srv.mux.HandleFunc("GET /stats/{name}", srv.handleOne)
	return srv
}

func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv.mux.ServeHTTP(w, r)
}

func (srv *Server) handleAll(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, srv.stats.Snapshot())
}

func (srv *Server) handleOne(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	v, ok := srv.stats.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown stat " + name})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{name: v})
}

func (srv *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.log.Warn("stats: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	t := time.NewTicker(srv.interval)
	defer t.Stop()

	var last uint64
	first := true
	for {
		if seq := srv.stats.Seq(); first || seq != last {
			first = false
			last = seq
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(srv.stats.Snapshot()); err != nil {
				srv.log.Debug("stats: websocket write failed", "error", err)
				return
			}
		}
		select {
		case <-r.Context().Done():
			return
		case <-gone:
			return
		case <-t.C:
		}
	}
}

// ListenAndServe serves until ctx is cancelled.
func (srv *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		srv.log.Info("stats: listening", "addr", addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
