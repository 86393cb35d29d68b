package service

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/clock"
)

// MatchInfo se guarda en el historial de cada jugador.
type MatchInfo struct {
	MatchID     string
	Map         domain.MapName
	OpponentAvg int
}

type RatingUpdate struct {
	UserID string
	Delta  int
	Info   MatchInfo
}

type UpdateResult struct {
	UserID    string
	OldRating int
	NewRating int
	Applied   int
	Outcome   domain.Outcome
}

type Profile struct {
	Record     domain.PlayerRecord
	Tier       domain.RankTier
	Next       domain.RankTier
	HasNext    bool
	PointsToGo int
}

type LeaderboardEntry struct {
	Position int
	Record   domain.PlayerRecord
	Tier     domain.RankTier
}

type RatingEngine struct {
	mu      sync.Mutex
	players map[string]domain.PlayerRecord

	store   PlayerStore
	clock   clock.Clock
	log     *logrus.Entry
	metrics Metrics
}

// NewRatingEngine carga los registros; si el store falla arranca vacio y avisa.
func NewRatingEngine(ctx context.Context, store PlayerStore, clk clock.Clock, log *logrus.Entry, m Metrics) *RatingEngine {
	e := &RatingEngine{
		players: map[string]domain.PlayerRecord{},
		store:   store,
		clock:   clk,
		log:     log.WithField("component", "rating"),
		metrics: orNoop(m),
	}
	loaded, err := store.LoadPlayers(ctx)
	if err != nil {
		e.log.WithError(err).Warn("load players failed, starting empty")
		e.metrics.CollaboratorFailure("player_store")
		return e
	}
	for id, p := range loaded {
		p.UserID = id
		e.players[id] = p
	}
	return e
}

// Update aplica un delta. Devuelve el rating previo en OldRating.
func (e *RatingEngine) Update(ctx context.Context, userID string, delta int, info MatchInfo) UpdateResult {
	return e.UpdateMany(ctx, []RatingUpdate{{UserID: userID, Delta: delta, Info: info}})[0]
}

// UpdateMany aplica todos los deltas de una partida y persiste una sola vez.
func (e *RatingEngine) UpdateMany(ctx context.Context, updates []RatingUpdate) []UpdateResult {
	now := e.clock.Now()
	out := make([]UpdateResult, 0, len(updates))
	changed := make(map[string]domain.PlayerRecord, len(updates))

	e.mu.Lock()
	for _, u := range updates {
		rec := e.recordLocked(u.UserID)
		res := apply(&rec, u.Delta)
		rec.RecentMatches = append(rec.RecentMatches, domain.MatchEntry{
			At:          now,
			MatchID:     u.Info.MatchID,
			Delta:       res.Applied,
			Rating:      rec.Rating,
			Map:         u.Info.Map,
			OpponentAvg: u.Info.OpponentAvg,
			Outcome:     res.Outcome,
		})
		if n := len(rec.RecentMatches); n > domain.HistoryLimit {
			rec.RecentMatches = append([]domain.MatchEntry(nil), rec.RecentMatches[n-domain.HistoryLimit:]...)
		}
		e.players[u.UserID] = rec
		changed[u.UserID] = cloneRecord(rec)
		res.UserID = u.UserID
		out = append(out, res)
	}
	e.persistLocked(ctx, changed)
	e.mu.Unlock()

	for _, r := range out {
		e.metrics.RatingApplied(r.Outcome)
	}
	return out
}

// apply cuida el piso en 0: quien ya esta en 0 no pierde y la partida cuenta como empate.
// Una derrota mayor al rating actual lo deja en 0 y cuenta como derrota.
func apply(rec *domain.PlayerRecord, delta int) UpdateResult {
	res := UpdateResult{OldRating: rec.Rating, Applied: delta}
	switch {
	case delta < 0 && rec.Rating == 0:
		res.Applied = 0
	case rec.Rating+delta < 0:
		res.Applied = -rec.Rating
	}
	rec.Rating += res.Applied

	switch {
	case res.Applied > 0:
		res.Outcome = domain.OutcomeWin
		rec.Wins++
		rec.TotalGained += res.Applied
	case res.Applied < 0:
		res.Outcome = domain.OutcomeLoss
		rec.Losses++
		rec.TotalLost += -res.Applied
	default:
		res.Outcome = domain.OutcomeDraw
	}
	res.NewRating = rec.Rating
	return res
}

// Get crea el registro en 0 si no existia, igual que el resto de lecturas.
func (e *RatingEngine) Get(ctx context.Context, userID string) domain.PlayerRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, existed := e.players[userID]
	if !existed {
		rec = domain.PlayerRecord{UserID: userID}
		e.players[userID] = rec
		e.persistLocked(ctx, map[string]domain.PlayerRecord{userID: rec})
	}
	return cloneRecord(rec)
}

// Lookup no crea el registro; lo usa la API de solo lectura.
func (e *RatingEngine) Lookup(userID string) (domain.PlayerRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.players[userID]
	return cloneRecord(rec), ok
}

// Rating no crea registros; sirve para promedios de rivales.
func (e *RatingEngine) Rating(userID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.players[userID].Rating
}

// AverageRating de un equipo, 0 si esta vacio.
func (e *RatingEngine) AverageRating(userIDs []string) int {
	if len(userIDs) == 0 {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	sum := 0
	for _, id := range userIDs {
		sum += e.players[id].Rating
	}
	return sum / len(userIDs)
}

func (e *RatingEngine) Profile(ctx context.Context, userID string) Profile {
	rec := e.Get(ctx, userID)
	p := Profile{Record: rec, Tier: domain.TierFor(rec.Rating)}
	p.Next, p.HasNext = domain.NextTier(rec.Rating)
	if p.HasNext {
		p.PointsToGo = p.Next.MinRating - rec.Rating
	}
	return p
}

// Leaderboard ordena por rating, despues victorias, despues id.
func (e *RatingEngine) Leaderboard(n int) []LeaderboardEntry {
	e.mu.Lock()
	recs := make([]domain.PlayerRecord, 0, len(e.players))
	for _, p := range e.players {
		recs = append(recs, p)
	}
	e.mu.Unlock()

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Rating != recs[j].Rating {
			return recs[i].Rating > recs[j].Rating
		}
		if recs[i].Wins != recs[j].Wins {
			return recs[i].Wins > recs[j].Wins
		}
		return recs[i].UserID < recs[j].UserID
	})
	if n > 0 && len(recs) > n {
		recs = recs[:n]
	}
	out := make([]LeaderboardEntry, len(recs))
	for i, r := range recs {
		out[i] = LeaderboardEntry{Position: i + 1, Record: cloneRecord(r), Tier: domain.TierFor(r.Rating)}
	}
	return out
}

// RankTransition decide que evento de rango corresponde al pasar de old a new.
func RankTransition(oldRating, newRating int) (domain.EventKind, bool) {
	if oldRating == 0 && newRating > 0 {
		return domain.EventRankEntered, true
	}
	oldIdx, newIdx := domain.TierIndex(oldRating), domain.TierIndex(newRating)
	switch {
	case newIdx < oldIdx:
		return domain.EventRankUp, true
	case newIdx > oldIdx:
		return domain.EventRankDown, true
	}
	return "", false
}

func (e *RatingEngine) recordLocked(userID string) domain.PlayerRecord {
	rec, ok := e.players[userID]
	if !ok {
		rec = domain.PlayerRecord{UserID: userID}
	}
	return rec
}

// persistLocked corre bajo e.mu asi dos escrituras del mismo jugador no se invierten.
func (e *RatingEngine) persistLocked(ctx context.Context, changed map[string]domain.PlayerRecord) {
	if err := e.store.SavePlayers(ctx, changed); err != nil {
		e.log.WithError(err).WithField("players", len(changed)).Warn("save players failed")
		e.metrics.CollaboratorFailure("player_store")
	}
}

func cloneRecord(r domain.PlayerRecord) domain.PlayerRecord {
	r.RecentMatches = append([]domain.MatchEntry(nil), r.RecentMatches...)
	return r
}
