package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunStatus is the snapshot served on /status.
type RunStatus struct {
	Running    bool      `json:"running"`
	LastRunAt  time.Time `json:"last_run_at,omitempty"`
	LastStatus string    `json:"last_status,omitempty"`
}

type Server struct {
	db     Pinger
	port   int
	logger *zerolog.Logger
	status atomic.Pointer[RunStatus]
}

func NewServer(db Pinger, port int, logger *zerolog.Logger) *Server {
	s := &Server{
		db:     db,
		port:   port,
		logger: logger,
	}
	s.status.Store(&RunStatus{})

	return s
}

// SetStatus replaces the run snapshot served on /status.
func (s *Server) SetStatus(st RunStatus) {
	s.status.Store(&st)
}

// Status returns the current run snapshot.
func (s *Server) Status() RunStatus {
	return *s.status.Load()
}

// Handler builds the mux served by Start.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK")
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "DB error: %v", err)

			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK")
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		st := s.Status()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		last := ""
		if !st.LastRunAt.IsZero() {
			last = st.LastRunAt.UTC().Format(time.RFC3339)
		}

		_, _ = fmt.Fprintf(w, `{"running":%t,"last_run_at":%q,"last_status":%q}`, st.Running, last, st.LastStatus)
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)

		defer cancel()

		//nolint:errcheck,contextcheck // shutdown in signal handler is best-effort, non-inherited context intentional
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Int("port", s.port).Msg("Health check server starting")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}
