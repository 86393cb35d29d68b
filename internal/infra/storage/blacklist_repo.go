package storage

import (
	"context"
	"database/sql"
	"time"

	pq "github.com/lib/pq"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

type BlacklistRepo struct{ db *sql.DB }

func NewBlacklistRepo(db *sql.DB) *BlacklistRepo { return &BlacklistRepo{db: db} }

func (r *BlacklistRepo) LoadBlacklist(ctx context.Context) (map[string]domain.BlacklistEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT user_id, reason, issued_by, created_at, expires_at
  FROM blacklist
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]domain.BlacklistEntry{}
	for rows.Next() {
		var (
			e   domain.BlacklistEntry
			exp sql.NullTime
		)
		if err := rows.Scan(&e.UserID, &e.Reason, &e.IssuedBy, &e.CreatedAt, &exp); err != nil {
			return nil, err
		}
		if exp.Valid {
			e.ExpiresAt = exp.Time
		} else {
			e.Permanent = true
		}
		out[e.UserID] = e
	}
	return out, rows.Err()
}

// SaveBlacklist deja la tabla igual al mapa: borra lo que no esta y upsertea el resto.
func (r *BlacklistRepo) SaveBlacklist(ctx context.Context, entries map[string]domain.BlacklistEntry) error {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM blacklist WHERE NOT (user_id = ANY($1))
`, pq.Array(ids)); err != nil {
			return err
		}
		for id, e := range entries {
			var exp *time.Time
			if !e.Permanent {
				t := e.ExpiresAt
				exp = &t
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO blacklist (user_id, reason, issued_by, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET
  reason     = EXCLUDED.reason,
  issued_by  = EXCLUDED.issued_by,
  created_at = EXCLUDED.created_at,
  expires_at = EXCLUDED.expires_at
`, id, e.Reason, e.IssuedBy, e.CreatedAt, exp); err != nil {
				return err
			}
		}
		return nil
	})
}
