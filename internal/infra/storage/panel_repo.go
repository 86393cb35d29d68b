package storage

import (
	"context"
	"database/sql"
	"errors"

	pq "github.com/lib/pq"
)

// PanelRepo recuerda en que mensaje vive el panel de cada lobby.
type PanelRepo struct{ db *sql.DB }

func NewPanelRepo(db *sql.DB) *PanelRepo { return &PanelRepo{db: db} }

func (r *PanelRepo) Get(ctx context.Context, guildID, lobby string) (LobbyPanel, error) {
	var p LobbyPanel
	err := r.db.QueryRowContext(ctx, `
SELECT guild_id, lobby, channel_id, message_id, created_at, updated_at
  FROM lobby_panels
 WHERE guild_id = $1 AND lobby = $2
`, guildID, lobby).Scan(&p.GuildID, &p.Lobby, &p.ChannelID, &p.MessageID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return LobbyPanel{}, ErrNotFound
	}
	return p, err
}

func (r *PanelRepo) Upsert(ctx context.Context, p LobbyPanel) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO lobby_panels (guild_id, lobby, channel_id, message_id)
VALUES ($1,$2,$3,$4)
ON CONFLICT (guild_id, lobby) DO UPDATE SET
  channel_id = EXCLUDED.channel_id,
  message_id = EXCLUDED.message_id,
  updated_at = now()
`, p.GuildID, p.Lobby, p.ChannelID, p.MessageID)
	return err
}

func (r *PanelRepo) Delete(ctx context.Context, guildID, lobby string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM lobby_panels WHERE guild_id = $1 AND lobby = $2`, guildID, lobby)
	return err
}

// PruneExcept borra los paneles de lobbies que ya no existen (p.ej. tras un reinicio).
func (r *PanelRepo) PruneExcept(ctx context.Context, guildID string, alive []string) ([]LobbyPanel, error) {
	if alive == nil {
		// pq.Array(nil) es NULL y NOT (x = ANY(NULL)) no borra nada
		alive = []string{}
	}
	rows, err := r.db.QueryContext(ctx, `
DELETE FROM lobby_panels
 WHERE guild_id = $1 AND NOT (lobby = ANY($2))
RETURNING guild_id, lobby, channel_id, message_id, created_at, updated_at
`, guildID, pq.Array(alive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LobbyPanel
	for rows.Next() {
		var p LobbyPanel
		if err := rows.Scan(&p.GuildID, &p.Lobby, &p.ChannelID, &p.MessageID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
