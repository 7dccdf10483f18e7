package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"barsign/internal/config"
	"barsign/internal/feed"
	appLog "barsign/internal/log"
	"barsign/internal/model"
	"barsign/internal/playlist"
	"barsign/internal/recur"
)

// Server provides the board API: the slide playlist, raw occurrences for
// the back-office UI, and the rendered preview image.
type Server struct {
	cfg    *config.Config
	debug  bool
	mux    *http.ServeMux
	engine *recur.Engine
	loader *feed.Loader

	// In-memory snapshot cache so every display refresh does not re-fetch
	// the feed. The cron loop in cmd/barsign refreshes it proactively;
	// handlers refresh lazily when the cache has gone stale.
	snapMu      sync.RWMutex
	snap        *model.Snapshot
	snapLoaded  time.Time
	snapMaxAge  time.Duration
	previewPath string
}

const defaultSnapshotMaxAge = 60 * time.Second

// NewServer constructs a Server from the daemon config.
func NewServer(cfg *config.Config, debug bool) *Server {
	loc := resolveLocationOrLocal(cfg.Timezone)

	cacheDir := "/var/lib/barsign/feed-cache"
	previewPath := "/var/lib/barsign/preview.png"
	if debug {
		cacheDir = "./cache/feed-cache"
		previewPath = "./cache/preview.png"
	}

	sources := make([]feed.Source, 0, len(cfg.ICS))
	for _, src := range cfg.ICS {
		if src.URL == "" {
			continue
		}
		id := src.ID
		if id == "" {
			if src.Name != "" {
				id = src.Name
			} else {
				id = src.URL
			}
		}
		sources = append(sources, feed.Source{ID: id, URL: src.URL})
	}

	s := &Server{
		cfg:         cfg,
		debug:       debug,
		mux:         http.NewServeMux(),
		engine:      recur.New(loc, cfg.VenueUTCOffsetsHours),
		loader:      feed.NewLoader(cacheDir, cfg.SnapshotURL, sources, loc),
		snapMaxAge:  defaultSnapshotMaxAge,
		previewPath: previewPath,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// PreviewPath is where the capture loop writes and /preview.png reads.
func (s *Server) PreviewPath() string {
	return s.previewPath
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays unauthenticated for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="barsign", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer starts an HTTP server bound to cfg.Listen.
func StartServer(_ context.Context, s *Server) error {
	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "debug", s.debug)
	return http.ListenAndServe(s.cfg.Listen, s.Handler())
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/playlist", s.handlePlaylist)
	s.mux.HandleFunc("/api/occurrences", s.handleOccurrences)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Refresh reloads the content snapshot from the feed and caches it.
func (s *Server) Refresh(ctx context.Context) error {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}
	s.snapMu.Lock()
	s.snap = snap
	s.snapLoaded = time.Now()
	s.snapMu.Unlock()
	return nil
}

// currentSnapshot returns the cached snapshot, refreshing it when stale.
// A stale cache beats an error: when the refresh fails and any previous
// snapshot exists, that one is served.
func (s *Server) currentSnapshot(ctx context.Context) (*model.Snapshot, error) {
	s.snapMu.RLock()
	snap, loaded := s.snap, s.snapLoaded
	s.snapMu.RUnlock()

	if snap != nil && time.Since(loaded) < s.snapMaxAge {
		return snap, nil
	}

	if err := s.Refresh(ctx); err != nil {
		if snap != nil {
			appLog.Error("snapshot refresh failed, serving previous", err, "age", time.Since(loaded).String())
			return snap, nil
		}
		return nil, err
	}

	s.snapMu.RLock()
	snap = s.snap
	s.snapMu.RUnlock()
	return snap, nil
}

// playlistResponse is the JSON response shape for /api/playlist.
type playlistResponse struct {
	Revision    string        `json:"revision"`
	GeneratedAt time.Time     `json:"generated_at"`
	Timezone    string        `json:"timezone"`
	Slides      []model.Slide `json:"slides"`
}

// handlePlaylist builds and returns the current slide rotation.
//
// GET /api/playlist
//
// The display polls this once per loop; the snapshot cache keeps repeated
// polls cheap while the core build itself is pure and recomputed fresh.
func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	snap, err := s.currentSnapshot(r.Context())
	if err != nil {
		appLog.Error("api playlist: snapshot unavailable", err)
		writeError(w, http.StatusServiceUnavailable, "content snapshot unavailable")
		return
	}

	now := time.Now()
	in := composeInput(snap, s.engine, now, s.cfg.WindowDays, s.cfg.ItemsPerSlide)
	slides := playlist.Build(in)

	writeJSON(w, http.StatusOK, playlistResponse{
		Revision:    snap.Revision,
		GeneratedAt: now.UTC(),
		Timezone:    s.engine.Location().String(),
		Slides:      slides,
	})
}

// occurrencesResponse is the JSON response shape for /api/occurrences.
type occurrencesResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
	WindowStart time.Time       `json:"window_start"`
	WindowEnd   time.Time       `json:"window_end"`
	Timezone    string          `json:"timezone"`
}

// occurrenceDTO is a JSON-friendly view of occurrences for the admin UI.
type occurrenceDTO struct {
	SourceEventID string    `json:"source_event_id"`
	Title         string    `json:"title"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end,omitzero"`
	Recurring     bool      `json:"recurring"`
}

// handleOccurrences returns the raw expanded occurrences for the window.
//
// GET /api/occurrences?days=60
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	days := parseIntDefault(r.URL.Query().Get("days"), s.cfg.WindowDays)
	if days <= 0 {
		days = s.cfg.WindowDays
	}

	snap, err := s.currentSnapshot(r.Context())
	if err != nil {
		appLog.Error("api occurrences: snapshot unavailable", err)
		writeError(w, http.StatusServiceUnavailable, "content snapshot unavailable")
		return
	}

	loc := s.engine.Location()
	local := time.Now().In(loc)
	windowStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	windowEnd := windowStart.AddDate(0, 0, days)

	dtos := make([]occurrenceDTO, 0)
	for _, ev := range snap.Events {
		for _, occ := range s.engine.Expand(ev, windowStart, windowEnd) {
			dtos = append(dtos, occurrenceDTO{
				SourceEventID: occ.SourceEventID,
				Title:         ev.Title,
				Start:         occ.Start,
				End:           occ.End,
				Recurring:     occ.Recurring,
			})
		}
	}

	writeJSON(w, http.StatusOK, occurrencesResponse{
		Occurrences: dtos,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Timezone:    loc.String(),
	})
}

// handlePreview serves the last captured board preview from disk.
// http.ServeFile returns the right status for missing files (404).
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.previewPath)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
