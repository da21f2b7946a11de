package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitgym_server/server/presence/domain"
)

var ErrAccountNotFound = errors.New("account not found")

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, account domain.Account) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users(username, email, password_hash)
		VALUES($1, $2, $3)
		RETURNING user_id
	`, account.Username, account.Email, account.PasswordHash).Scan(&id)
	return id, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	var account domain.Account
	var avatar *string
	err := r.pool.QueryRow(ctx, `
		SELECT user_id AS id, username, email, password_hash, avatar_url, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&avatar,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, err
	}
	if avatar != nil {
		account.AvatarURL = *avatar
	}
	return account, nil
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, userID, objectKey string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET avatar_url=$1, updated_at=NOW() WHERE user_id=$2`, objectKey, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
