package storage

import (
	"context"
	"database/sql"
	"errors"
)

type PolicyRepo struct{ db *sql.DB }

func NewPolicyRepo(db *sql.DB) *PolicyRepo { return &PolicyRepo{db: db} }

// Get devuelve ErrNotFound si el servidor nunca guardo overrides.
func (r *PolicyRepo) Get(ctx context.Context, guildID string) (GuildPolicy, error) {
	var p GuildPolicy
	err := r.db.QueryRowContext(ctx, `
SELECT guild_id, win_min, win_max, loss_min, loss_max, vote_seconds, created_at, updated_at
  FROM guild_policies
 WHERE guild_id = $1
`, guildID).Scan(
		&p.GuildID, &p.WinMin, &p.WinMax, &p.LossMin, &p.LossMax, &p.VoteSeconds, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return GuildPolicy{}, ErrNotFound
	}
	return p, err
}

func (r *PolicyRepo) Upsert(ctx context.Context, p GuildPolicy) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO guild_policies
  (guild_id, win_min, win_max, loss_min, loss_max, vote_seconds, created_at, updated_at)
VALUES
  ($1, $2, $3, $4, $5, $6, NOW(), NOW())
ON CONFLICT (guild_id) DO UPDATE SET
  win_min      = EXCLUDED.win_min,
  win_max      = EXCLUDED.win_max,
  loss_min     = EXCLUDED.loss_min,
  loss_max     = EXCLUDED.loss_max,
  vote_seconds = EXCLUDED.vote_seconds,
  updated_at   = NOW()
`, p.GuildID, p.WinMin, p.WinMax, p.LossMin, p.LossMax, p.VoteSeconds)
	return err
}

// Delete vuelve el servidor a los defaults del env.
func (r *PolicyRepo) Delete(ctx context.Context, guildID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM guild_policies WHERE guild_id = $1`, guildID)
	return err
}
