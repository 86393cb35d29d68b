package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/app/service"
	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

const maxLeaderboard = 100

type Ratings interface {
	Leaderboard(n int) []service.LeaderboardEntry
	Lookup(userID string) (domain.PlayerRecord, bool)
}

type Lobbies interface {
	List(guildID string) []domain.Lobby
	Get(guildID, name string) (domain.Lobby, error)
}

type Deps struct {
	Ratings  Ratings
	Lobbies  Lobbies
	Registry *prometheus.Registry
	// Ping chequea la base para /healthz; nil = siempre ok
	Ping func(ctx context.Context) error
	Log  *logrus.Entry
}

// Server expone health, metricas y una API de lectura.
type Server struct {
	d   Deps
	log *logrus.Entry
	r   chi.Router
}

func New(d Deps) *Server {
	s := &Server{d: d, log: d.Log.WithField("component", "http")}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.r }

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.healthz)
	if s.d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.d.Registry, promhttp.HandlerOpts{}))
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/leaderboard", s.leaderboard)
		r.Get("/players/{id}", s.player)
		r.Get("/guilds/{guild}/lobbies", s.lobbies)
		r.Get("/guilds/{guild}/lobbies/{name}", s.lobby)
	})
	s.r = r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.d.Ping != nil {
		if err := s.d.Ping(r.Context()); err != nil {
			s.log.WithError(err).Warn("health check failed")
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type leaderboardRow struct {
	Position int     `json:"position"`
	UserID   string  `json:"user_id"`
	Rating   int     `json:"rating"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	WinRate  float64 `json:"win_rate"`
	Tier     string  `json:"tier"`
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	n := 10
	if q := r.URL.Query().Get("limit"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		n = min(v, maxLeaderboard)
	}
	entries := s.d.Ratings.Leaderboard(n)
	out := make([]leaderboardRow, 0, len(entries))
	for _, e := range entries {
		out = append(out, leaderboardRow{
			Position: e.Position,
			UserID:   e.Record.UserID,
			Rating:   e.Record.Rating,
			Wins:     e.Record.Wins,
			Losses:   e.Record.Losses,
			WinRate:  e.Record.WinRate(),
			Tier:     e.Tier.Label,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type playerView struct {
	domain.PlayerRecord
	Tier       string `json:"tier"`
	NextTier   string `json:"next_tier,omitempty"`
	PointsToGo int    `json:"points_to_go,omitempty"`
}

func (s *Server) player(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.d.Ratings.Lookup(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}
	v := playerView{PlayerRecord: rec, Tier: domain.TierFor(rec.Rating).Label}
	if next, ok := domain.NextTier(rec.Rating); ok {
		v.NextTier = next.Label
		v.PointsToGo = next.MinRating - rec.Rating
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) lobbies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.d.Lobbies.List(chi.URLParam(r, "guild")))
}

func (s *Server) lobby(w http.ResponseWriter, r *http.Request) {
	l, err := s.d.Lobbies.Get(chi.URLParam(r, "guild"), chi.URLParam(r, "name"))
	if errors.Is(err, domain.ErrLobbyNotFound) {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
