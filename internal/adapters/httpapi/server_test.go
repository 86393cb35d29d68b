package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/cbac-queue-bot/internal/app/service"
	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/metrics"
	"github.com/jose-valero/cbac-queue-bot/internal/testsetup"
)

type stubRatings struct {
	board   []service.LeaderboardEntry
	players map[string]domain.PlayerRecord
	asked   int
}

func (s *stubRatings) Leaderboard(n int) []service.LeaderboardEntry {
	s.asked = n
	if len(s.board) > n {
		return s.board[:n]
	}
	return s.board
}

func (s *stubRatings) Lookup(id string) (domain.PlayerRecord, bool) {
	p, ok := s.players[id]
	return p, ok
}

type stubLobbies map[string]domain.Lobby

func (s stubLobbies) List(string) []domain.Lobby {
	out := make([]domain.Lobby, 0, len(s))
	for _, l := range s {
		out = append(out, l)
	}
	return out
}

func (s stubLobbies) Get(_, name string) (domain.Lobby, error) {
	l, ok := s[name]
	if !ok {
		return domain.Lobby{}, domain.ErrLobbyNotFound
	}
	return l, nil
}

func newTestServer(ping func(context.Context) error) (*httptest.Server, *stubRatings, *metrics.Prom) {
	ratings := &stubRatings{
		board: []service.LeaderboardEntry{
			{Position: 1, Record: domain.PlayerRecord{UserID: "a", Rating: 1400, Wins: 3, Losses: 1}, Tier: domain.TierFor(1400)},
			{Position: 2, Record: domain.PlayerRecord{UserID: "b", Rating: 100}, Tier: domain.TierFor(100)},
		},
		players: map[string]domain.PlayerRecord{"b": {UserID: "b", Rating: 100}},
	}
	prom := metrics.New(prometheus.NewRegistry())
	log, _ := testsetup.NewLogger()
	s := New(Deps{
		Ratings:  ratings,
		Lobbies:  stubLobbies{"main": {GuildID: "g", Name: "main", Players: []string{"a"}, IsOpen: true}},
		Registry: prom.Registry(),
		Ping:     ping,
		Log:      log,
	})
	return httptest.NewServer(s.Handler()), ratings, prom
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(b)
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(nil)
	defer srv.Close()
	res, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", body)

	down, _, _ := newTestServer(func(context.Context) error { return errors.New("down") })
	defer down.Close()
	res, _ = get(t, down.URL+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestLeaderboard(t *testing.T) {
	srv, ratings, _ := newTestServer(nil)
	defer srv.Close()

	res, body := get(t, srv.URL+"/api/leaderboard?limit=1")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var rows []leaderboardRow
	require.NoError(t, json.Unmarshal([]byte(body), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].UserID)
	assert.Equal(t, "Tier 1", rows[0].Tier)
	assert.InDelta(t, 75.0, rows[0].WinRate, 0.001)

	get(t, srv.URL+"/api/leaderboard?limit=5000")
	assert.Equal(t, maxLeaderboard, ratings.asked)

	res, _ = get(t, srv.URL+"/api/leaderboard?limit=zero")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestPlayer(t *testing.T) {
	srv, _, _ := newTestServer(nil)
	defer srv.Close()

	res, body := get(t, srv.URL+"/api/players/b")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var v playerView
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	assert.Equal(t, "Tier 10", v.Tier)
	assert.Equal(t, "Tier 9", v.NextTier)
	assert.Equal(t, 50, v.PointsToGo)

	res, _ = get(t, srv.URL+"/api/players/nobody")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestLobbies(t *testing.T) {
	srv, _, _ := newTestServer(nil)
	defer srv.Close()

	res, body := get(t, srv.URL+"/api/guilds/g/lobbies")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var ls []domain.Lobby
	require.NoError(t, json.Unmarshal([]byte(body), &ls))
	require.Len(t, ls, 1)
	assert.Equal(t, "main", ls[0].Name)

	res, _ = get(t, srv.URL+"/api/guilds/g/lobbies/nope")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, prom := newTestServer(nil)
	defer srv.Close()
	prom.LobbyCreated("g")

	res, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `cbac_lobbies_created_total{guild="g"} 1`)
}
