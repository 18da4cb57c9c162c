// Package server exposes the polled ride state over HTTP and WebSocket: a
// JSON API for the configured shares and a live frame stream for dashboards.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Guiyomee/LibertyRider-Hacs/internal/config"
	"github.com/Guiyomee/LibertyRider-Hacs/internal/coordinator"
	"github.com/Guiyomee/LibertyRider-Hacs/internal/logger"
	"github.com/Guiyomee/LibertyRider-Hacs/internal/rider"
	"github.com/Guiyomee/LibertyRider-Hacs/internal/sensor"
	"github.com/Guiyomee/LibertyRider-Hacs/internal/store"
)

// Server ties the coordinator registry to HTTP/WebSocket clients and fans
// poll results out to the ride log and the last-seen store.
type Server struct {
	cfg      *config.Config
	registry *coordinator.Registry
	lastSeen *store.RedisStore
	recorder *logger.Logger
	webFS    fs.FS
	demo     bool

	ctx context.Context // Parent for coordinator run loops, set in Run

	langMu sync.RWMutex
	langs  map[string]string // shareID -> language preference

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex
	upgrader  websocket.Upgrader
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Frame is the JSON structure describing one share, sent to WebSocket
// clients after every poll and returned by the per-share API.
type Frame struct {
	ShareID     string         `json:"shareId"`
	ShareURL    string         `json:"shareUrl"`
	Language    string         `json:"language,omitempty"`
	Available   bool           `json:"available"`
	Restored    bool           `json:"restored,omitempty"` // Values came from the last-seen store
	Error       string         `json:"error,omitempty"`
	Device      *sensor.Device `json:"device,omitempty"`
	Sensors     []SensorView   `json:"sensors"`
	Tracker     *TrackerView   `json:"tracker,omitempty"`
	LastSuccess *time.Time     `json:"lastSuccess,omitempty"`
	Stamp       int64          `json:"stamp"` // Unix ms
}

// SensorView is one sensor's current reading.
type SensorView struct {
	Kind        string      `json:"kind"`
	Name        string      `json:"name"`
	Unit        string      `json:"unit,omitempty"`
	DeviceClass string      `json:"deviceClass,omitempty"`
	Icon        string      `json:"icon,omitempty"`
	Value       interface{} `json:"value"`
}

// TrackerView is the tracker entity's current reading.
type TrackerView struct {
	State      string                 `json:"state"`
	Latitude   *float64               `json:"latitude"`
	Longitude  *float64               `json:"longitude"`
	SourceType string                 `json:"sourceType"`
	Accuracy   int                    `json:"accuracy"`
	Attributes map[string]interface{} `json:"attributes"`
}

// New creates a server. The last-seen store may be nil.
func New(cfg *config.Config, lastSeen *store.RedisStore, webFS fs.FS, demo bool) *Server {
	return &Server{
		cfg:      cfg,
		registry: coordinator.NewRegistry(),
		lastSeen: lastSeen,
		recorder: logger.New(logger.Config{
			Enabled:    cfg.Logging.Enabled,
			Path:       cfg.Logging.Path,
			IntervalMs: cfg.Logging.IntervalMs,
		}),
		webFS:   webFS,
		demo:    demo,
		langs:   make(map[string]string),
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Registry exposes the coordinator registry.
func (s *Server) Registry() *coordinator.Registry { return s.registry }

// Run starts the coordinators for every configured share, then serves HTTP
// until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.ctx = ctx

	for _, share := range s.cfg.Shares {
		if _, err := s.AddShare(share); err != nil {
			// Setup failure for one share never takes the daemon down; the
			// entry is skipped until reconfigured.
			log.Printf("[server] share %q not ready: %v", share.ShareURL, err)
		}
	}

	srv := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.registry.Close()
		s.recorder.Close()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[server] listening on %s", s.cfg.Server.ListenAddr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.webFS != nil {
		mux.Handle("/", http.FileServer(http.FS(s.webFS)))
	}
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/shares", s.handleShares)
	mux.HandleFunc("/api/shares/", s.handleShare)
	return mux
}

// AddShare validates the entry, builds its coordinator and starts polling.
func (s *Server) AddShare(share config.ShareConfig) (*coordinator.Coordinator, error) {
	var source rider.Source
	if s.demo {
		source = rider.NewDemoSource()
	}

	coord, err := coordinator.New(share.ShareURL, coordinator.Config{
		Interval: time.Duration(share.ScanIntervalMinutes) * time.Minute,
		Source:   source,
		Notify:   s.onUpdate,
	})
	if err != nil {
		return nil, err
	}

	s.langMu.Lock()
	s.langs[coord.ShareID()] = share.Language
	s.langMu.Unlock()

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	s.registry.Add(ctx, coord)
	log.Printf("[server] tracking share %s every %s", coord.ShareID(), coord.Interval())
	return coord, nil
}

// onUpdate runs after every completed poll: successful snapshots go to the
// ride log and the last-seen store, and every outcome is broadcast.
func (s *Server) onUpdate(c *coordinator.Coordinator, out coordinator.Outcome) {
	if out.Err == nil {
		s.recorder.Record(c.ShareID(), out.Ride)
		if s.lastSeen != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.lastSeen.SaveLastSeen(ctx, c.ShareID(), out.Ride); err != nil {
				log.Printf("[server] last-seen save failed: %v", err)
			}
			cancel()
		}
	}
	s.broadcast(s.buildFrame(c))
}

func (s *Server) language(shareID string) string {
	s.langMu.RLock()
	defer s.langMu.RUnlock()
	return s.langs[shareID]
}

// buildFrame assembles the full reader view of one share. When the
// coordinator has no snapshot yet, the last-seen store (if any) fills in the
// values, marked as restored.
func (s *Server) buildFrame(c *coordinator.Coordinator) Frame {
	frame := Frame{
		ShareID:  c.ShareID(),
		ShareURL: c.ShareURL(),
		Language: s.language(c.ShareID()),
		Stamp:    time.Now().UnixMilli(),
	}

	frame.Available = c.Available()
	if err := c.LastError(); err != nil {
		frame.Error = err.Error()
	}
	if ts := c.LastSuccess(); !ts.IsZero() {
		frame.LastSuccess = &ts
	}

	frame.Device = sensor.DeviceInfo(c)
	for _, sn := range sensor.ForCoordinator(c) {
		desc := sn.Descriptor()
		view := SensorView{
			Kind:        string(desc.Kind),
			Name:        desc.Name,
			Unit:        desc.Unit,
			DeviceClass: desc.DeviceClass,
			Icon:        desc.Icon,
		}
		if v, ok := sn.Value(); ok {
			view.Value = v
		}
		frame.Sensors = append(frame.Sensors, view)
	}

	tracker := sensor.NewTracker(c)
	view := &TrackerView{
		State:      tracker.State(),
		SourceType: tracker.SourceType(),
		Accuracy:   tracker.Accuracy(),
		Attributes: tracker.Attributes(),
	}
	if lat, lon, ok := tracker.Position(); ok {
		view.Latitude, view.Longitude = &lat, &lon
	} else if s.lastSeen != nil && c.Snapshot() == nil {
		// Bridge restarted and no poll has succeeded yet: fall back to the
		// persisted position so the map entity is not blanked.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		entry, err := s.lastSeen.LastSeen(ctx, c.ShareID())
		cancel()
		if err == nil && entry != nil {
			if lat, lon, ok := rider.Position(entry.Ride); ok {
				view.Latitude, view.Longitude = &lat, &lon
				frame.Restored = true
			}
		}
	}
	frame.Tracker = view

	return frame
}

// handleShares serves GET (list) and POST (add) on /api/shares.
func (s *Server) handleShares(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		frames := make([]Frame, 0)
		for _, c := range s.registry.All() {
			frames = append(frames, s.buildFrame(c))
		}
		writeJSON(w, http.StatusOK, frames)

	case http.MethodPost:
		var share config.ShareConfig
		if err := json.NewDecoder(r.Body).Decode(&share); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request")
			return
		}
		cfg := &config.Config{Shares: []config.ShareConfig{share}}
		cfg.Normalize()

		coord, err := s.AddShare(cfg.Shares[0])
		if err != nil {
			writeError(w, http.StatusBadRequest, errorCode(err))
			return
		}
		writeJSON(w, http.StatusCreated, s.buildFrame(coord))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	}
}

// handleShare serves /api/shares/{id} and /api/shares/{id}/refresh.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/shares/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	coord := s.registry.Get(id)
	if coord == nil {
		writeError(w, http.StatusNotFound, "unknown_share")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, s.buildFrame(coord))

	case action == "" && r.Method == http.MethodDelete:
		s.registry.Remove(id)
		s.langMu.Lock()
		delete(s.langs, id)
		s.langMu.Unlock()
		if s.lastSeen != nil {
			if err := s.lastSeen.Forget(r.Context(), id); err != nil {
				log.Printf("[server] last-seen forget failed: %v", err)
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})

	case action == "refresh" && r.Method == http.MethodPost:
		// Eager refresh; concurrent requests collapse into the in-flight
		// poll inside the coordinator.
		coord.Refresh(r.Context())
		writeJSON(w, http.StatusOK, s.buildFrame(coord))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	total := len(s.clients)
	s.clientsMu.Unlock()

	log.Printf("[ws] client connected (%d total)", total)

	// Seed the new client with a frame per share.
	for _, c := range s.registry.All() {
		if data, err := json.Marshal(s.buildFrame(c)); err == nil {
			client.send <- data
		}
	}

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (keep-alive and cleanup)
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			total := len(s.clients)
			s.clientsMu.Unlock()
			close(client.send)
			log.Printf("[ws] client disconnected (%d total)", total)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (s *Server) broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Client too slow, skip
		}
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, rider.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, rider.ErrInvalidURLFormat):
		return "invalid_url_format"
	}
	return "setup_failed"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
