package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"fitgym_server/server/presence/domain"
	"fitgym_server/server/presence/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AccountService struct {
	users *repository.UserRepository
}

func NewAccountService(users *repository.UserRepository) *AccountService {
	return &AccountService{users: users}
}

func (s *AccountService) Register(ctx context.Context, username, email, password string) (string, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || len(password) < 8 {
		return "", errors.New("username, email and a password of at least 8 characters are required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return s.users.Create(ctx, domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
	})
}

func (s *AccountService) Authenticate(ctx context.Context, email, password string) (domain.Account, error) {
	account, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return domain.Account{}, ErrInvalidCredentials
		}
		return domain.Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return domain.Account{}, ErrInvalidCredentials
	}
	return account, nil
}
