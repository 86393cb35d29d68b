package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

type PlayerRepo struct{ db *sql.DB }

func NewPlayerRepo(db *sql.DB) *PlayerRepo { return &PlayerRepo{db: db} }

func (r *PlayerRepo) LoadPlayers(ctx context.Context) (map[string]domain.PlayerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT user_id, rating, wins, losses, total_gained, total_lost, recent_matches
  FROM players
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]domain.PlayerRecord{}
	for rows.Next() {
		var (
			p      domain.PlayerRecord
			recent []byte
		)
		if err := rows.Scan(&p.UserID, &p.Rating, &p.Wins, &p.Losses, &p.TotalGained, &p.TotalLost, &recent); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(recent, &p.RecentMatches); err != nil {
			return nil, fmt.Errorf("player %s recent_matches: %w", p.UserID, err)
		}
		out[p.UserID] = p
	}
	return out, rows.Err()
}

// SavePlayers hace upsert de cada registro recibido en una transaccion.
func (r *PlayerRepo) SavePlayers(ctx context.Context, players map[string]domain.PlayerRecord) error {
	if len(players) == 0 {
		return nil
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO players (user_id, rating, wins, losses, total_gained, total_lost, recent_matches, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (user_id) DO UPDATE SET
  rating         = EXCLUDED.rating,
  wins           = EXCLUDED.wins,
  losses         = EXCLUDED.losses,
  total_gained   = EXCLUDED.total_gained,
  total_lost     = EXCLUDED.total_lost,
  recent_matches = EXCLUDED.recent_matches,
  updated_at     = now()
`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for id, p := range players {
			recent := p.RecentMatches
			if recent == nil {
				recent = []domain.MatchEntry{}
			}
			b, err := json.Marshal(recent)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, id, p.Rating, p.Wins, p.Losses, p.TotalGained, p.TotalLost, b); err != nil {
				return fmt.Errorf("upsert player %s: %w", id, err)
			}
		}
		return nil
	})
}
