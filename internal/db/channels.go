package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const channelColumns = `id, channel_id, name, added_at`

func scanChannel(row pgx.Row) (*Channel, error) {
	var c Channel
	if err := row.Scan(&c.ID, &c.ChannelID, &c.Name, &c.AddedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

type InsertChannelParams struct {
	ChannelID string
	Name      string
}

// InsertChannel follows a channel. Re-following updates the stored name,
// which also lets the refresh sweep keep names current after a feed fetch.
func (q *Queries) InsertChannel(ctx context.Context, params *InsertChannelParams) (*Channel, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO channels (channel_id, name)
		VALUES ($1, $2)
		ON CONFLICT (channel_id) DO UPDATE SET name = excluded.name
		RETURNING `+channelColumns,
		params.ChannelID, params.Name,
	)
	return scanChannel(row)
}

func (q *Queries) GetChannelByExternalID(ctx context.Context, channelID string) (*Channel, error) {
	row := q.db.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE channel_id = $1`, channelID)
	return scanChannel(row)
}

func (q *Queries) ListChannels(ctx context.Context) ([]*Channel, error) {
	rows, err := q.db.Query(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY added_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}
