package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	qrSize                  = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Server bundles what the HTTP handlers need
type Server struct {
	hub       *Hub
	relay     *Relay
	cfg       Config
	db        *DB
	auth      *Auth
	analytics *Analytics
	log       zerolog.Logger
}

// SetupRoutes configures HTTP routes. db and analytics may be nil.
func SetupRoutes(hub *Hub, relay *Relay, cfg Config, db *DB, auth *Auth, analytics *Analytics, log zerolog.Logger) *http.ServeMux {
	s := &Server{
		hub:       hub,
		relay:     relay,
		cfg:       cfg,
		db:        db,
		auth:      auth,
		analytics: analytics,
		log:       log.With().Str("component", "http").Logger(),
	}
	mux := http.NewServeMux()

	if cfg.ClientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(cfg.ClientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			if r.URL.Path == "/" {
				http.ServeFile(w, r, filepath.Join(cfg.ClientDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		}))
	}

	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("/api/admin/kick", s.requireAdmin(s.handleKick))
	mux.HandleFunc("/api/admin/events", s.requireAdmin(s.handleEvents))
	mux.HandleFunc("/qr", s.handleQR)

	return mux
}

// WebSocket endpoint
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r)
	if !s.hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("upgrade error")
		return
	}

	s.hub.TrackConnect(ip)

	client := NewClient(s.hub, conn, ip)
	s.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusInfo{
		Players:     s.relay.ActivePlayers(),
		Connections: s.hub.TotalConns(),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	limit := defaultLeaderboardLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxLeaderboardLimit)
	}
	entries, err := s.db.GetLeaderboard(r.URL.Query().Get("sort"), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("leaderboard query")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// requireAdmin guards h with HTTP basic auth checked against the admin hash
func (s *Server) requireAdmin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !s.auth.CheckAdmin(user, pass, extractIP(r)) {
			w.Header().Set("WWW-Authenticate", `Basic realm="arena"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h(w, r)
	}
}

func (s *Server) handleKick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	ok, err := s.relay.KickByName(r.Context(), name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.Error(w, "no such player", http.StatusNotFound)
		return
	}
	s.log.Info().Str("name", name).Str("ip", extractIP(r)).Msg("admin kick")
	writeJSON(w, http.StatusOK, map[string]string{"kicked": name})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.analytics == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	days := 7
	if v, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && v > 0 {
		days = v
	}
	counts, err := s.analytics.EventCounts(days)
	if err != nil {
		s.log.Error().Err(err).Msg("event counts")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleQR serves a PNG QR code of the join URL
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	target := s.cfg.PublicURL
	if target == "" {
		target = "http://" + r.Host + "/"
	}
	png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
