package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type MatchRoomsRepo struct{ db *sql.DB }

func NewMatchRoomsRepo(db *sql.DB) *MatchRoomsRepo { return &MatchRoomsRepo{db: db} }

const matchRoomCols = `match_id, guild_id, lobby, category_id, text_channel_id, team_a_channel_id, team_b_channel_id,
       last_status, created_at, updated_at, expires_at`

func scanRoom(sc interface{ Scan(...any) error }) (MatchRoom, error) {
	var m MatchRoom
	err := sc.Scan(
		&m.MatchID, &m.GuildID, &m.Lobby, &m.CategoryID, &m.TextChannelID, &m.TeamAChannelID, &m.TeamBChannelID,
		&m.LastStatus, &m.CreatedAt, &m.UpdatedAt, &m.ExpiresAt,
	)
	return m, err
}

func (r *MatchRoomsRepo) Get(ctx context.Context, matchID string) (MatchRoom, error) {
	m, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+matchRoomCols+` FROM match_rooms WHERE match_id = $1`, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return MatchRoom{}, ErrNotFound
	}
	return m, err
}

func (r *MatchRoomsRepo) Upsert(ctx context.Context, m MatchRoom) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO match_rooms
  (match_id, guild_id, lobby, category_id, text_channel_id, team_a_channel_id, team_b_channel_id, last_status, updated_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),$9)
ON CONFLICT (match_id) DO UPDATE SET
  guild_id=$2, lobby=$3, category_id=$4, text_channel_id=$5, team_a_channel_id=$6, team_b_channel_id=$7,
  last_status=$8, updated_at=now(), expires_at=$9
`,
		m.MatchID, m.GuildID, m.Lobby, m.CategoryID, m.TextChannelID, m.TeamAChannelID, m.TeamBChannelID,
		m.LastStatus, m.ExpiresAt,
	)
	return err
}

func (r *MatchRoomsRepo) UpdateStatus(ctx context.Context, matchID string, status string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE match_rooms SET last_status=$2, updated_at=now() WHERE match_id=$1
`, matchID, status)
	return err
}

// MarkExpiring programa la limpieza de las salas de un match terminado.
func (r *MatchRoomsRepo) MarkExpiring(ctx context.Context, matchID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE match_rooms SET expires_at=$2, updated_at=now() WHERE match_id=$1
`, matchID, at)
	return err
}

// ListExpired devuelve salas cuyo expires_at ya paso.
func (r *MatchRoomsRepo) ListExpired(ctx context.Context, now time.Time) ([]MatchRoom, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+matchRoomCols+` FROM match_rooms WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchRoom
	for rows.Next() {
		m, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MatchRoomsRepo) Delete(ctx context.Context, matchID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM match_rooms WHERE match_id=$1`, matchID)
	return err
}
