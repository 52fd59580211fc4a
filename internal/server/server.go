// Package server serves a directory over HTTP with optional live reload.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"text/template"
	"time"

	"github.com/igormichalak/devserve/internal/config"
	"github.com/igormichalak/devserve/internal/reload"
	"github.com/igormichalak/devserve/internal/units"
)

// Route paths served next to the files.
const (
	EventsPath = "/sse"
	StatusPath = "/_status"
)

const injectionTmplString = `<script>
    const sse = new EventSource('{{.Path}}');
    sse.onerror = e => console.error('EventSource failed:', e);
    sse.addEventListener('{{.Event}}', () => {
        sse.close();
        if (document.hidden) {
            document.addEventListener('visibilitychange', () => {
                if (!document.hidden) window.location.reload();
            });
        } else {
            window.location.reload();
        }
    });
</script>`

var injectionTmpl = template.Must(template.New("sse").Parse(injectionTmplString))

type injectionParams struct {
	Path  string
	Event string
}

// Injection returns the script added to HTML pages when reload is enabled.
func Injection() string {
	var sb strings.Builder
	if err := injectionTmpl.Execute(&sb, injectionParams{Path: EventsPath, Event: reload.EventName}); err != nil {
		panic(err)
	}
	return sb.String()
}

func serverError(w http.ResponseWriter, log *slog.Logger, err error) {
	log.Error("server error", "err", err)
	var body string

	if os.Getenv("DEBUG") == "1" || os.Getenv("DEBUG") == "true" {
		trace := string(debug.Stack())
		body = fmt.Sprintf("%s\n%s", err, trace)
	} else {
		body = http.StatusText(http.StatusInternalServerError)
	}

	http.Error(w, body, http.StatusInternalServerError)
}

// Server is the devserve HTTP server.
type Server struct {
	cfg         *config.Config
	broadcaster *reload.Broadcaster
	log         *slog.Logger
	now         func() time.Time
	started     time.Time

	srv    *http.Server
	ctx    context.Context
	cancel context.CancelFunc
}

// Option customizes a Server.
type Option func(*Server)

// WithClock replaces time.Now for status reports.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New builds a Server for cfg. Changes notified on b are streamed to browsers
// when cfg.Reload is set.
func New(cfg *config.Config, b *reload.Broadcaster, log *slog.Logger, opts ...Option) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:         cfg,
		broadcaster: b,
		log:         log,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()

	s.srv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadTimeout:       6 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       time.Minute,
		MaxHeaderBytes:    8_192,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}
	if !cfg.Reload {
		// Event streams stay open, so only plain file serving gets a write timeout.
		s.srv.WriteTimeout = 12 * time.Second
	}
	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	fileServer := http.FileServerFS(os.DirFS(s.cfg.Root))

	mux.HandleFunc("GET "+StatusPath, s.handleStatus)

	var handler http.Handler = mux
	if s.cfg.Reload {
		mux.Handle("GET /", withInjectReload(fileServer, Injection(), s.log))
		mux.Handle("GET "+EventsPath, s.broadcaster)
		handler = withNoCache(handler)
	} else {
		mux.Handle("GET /", fileServer)
	}

	handler = withRequestLog(handler, s.log)
	handler = withRequestCancel(s.ctx, handler)
	return withRecoverPanic(handler, s.log)
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown ends open event streams and stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.srv.Shutdown(ctx)
}

type sinceResponse struct {
	Unit  units.Unit `json:"unit"`
	Label string     `json:"label"`
	Count int64      `json:"count"`
	Text  string     `json:"text"`
}

type statusResponse struct {
	Root        string         `json:"root"`
	Reload      bool           `json:"reload"`
	Subscribers int            `json:"subscribers"`
	Started     time.Time      `json:"started"`
	Uptime      sinceResponse  `json:"uptime"`
	LastChange  *reload.Change `json:"last_change,omitempty"`
	SinceChange *sinceResponse `json:"since_change,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleStatus reports server state. The unit query parameter selects the
// unit durations are expressed in; without it the configured default or the
// largest fitting unit is used.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	unit := s.cfg.Unit
	if q := r.URL.Query().Get("unit"); q != "" {
		if !units.IsUnit(q) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown unit %q", q)}, s.log)
			return
		}
		unit = units.Unit(q)
	}

	now := s.now()
	resp := statusResponse{
		Root:        s.cfg.Root,
		Reload:      s.cfg.Reload,
		Subscribers: s.broadcaster.Subscribers(),
		Started:     s.started,
		Uptime:      since(now.Sub(s.started), unit),
	}
	if c, ok := s.broadcaster.Last(); ok {
		sc := since(now.Sub(c.At), unit)
		resp.LastChange = &c
		resp.SinceChange = &sc
	}

	writeJSON(w, http.StatusOK, resp, s.log)
}

func since(d time.Duration, unit units.Unit) sinceResponse {
	var n int64
	if unit == "" {
		unit, n = units.Largest(d)
	} else {
		n = units.In(d, unit)
	}
	return sinceResponse{
		Unit:  unit,
		Label: unit.Label(),
		Count: n,
		Text:  units.Format(n, unit) + " ago",
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("encode response", "err", err)
	}
}
