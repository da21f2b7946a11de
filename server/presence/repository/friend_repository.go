package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"fitgym_server/server/presence/domain"
)

type FriendRepository struct {
	pool *pgxpool.Pool
}

func NewFriendRepository(pool *pgxpool.Pool) *FriendRepository {
	return &FriendRepository{pool: pool}
}

// ListAccepted returns the accepted friends of a user, regardless of which
// side of the friendship row the user sits on. Pending, declined and blocked
// relations never reach the presence layer.
func (r *FriendRepository) ListAccepted(ctx context.Context, userID string) ([]domain.Friend, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.user_id AS id, u.username, u.avatar_url
		FROM friendships f
		JOIN users u ON u.user_id = CASE WHEN f.user_id = $1 THEN f.friend_id ELSE f.user_id END
		WHERE (f.user_id = $1 OR f.friend_id = $1)
		  AND f.status = 'ACCEPTED'
		ORDER BY u.username
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Friend, 0)
	for rows.Next() {
		var item domain.Friend
		var avatar *string
		if err := rows.Scan(&item.ID, &item.Username, &avatar); err != nil {
			return nil, err
		}
		if avatar != nil {
			item.Avatar = *avatar
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
