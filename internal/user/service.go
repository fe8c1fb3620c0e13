package user

import (
	"context"
	"fmt"
	"log/slog"

	"animetracker/internal/auth"
	"animetracker/pkg/models"
)

// Session is what register and login hand back to the client.
type Session struct {
	Token string
	User  models.User
}

// Service issues credentials on registration and login.
type Service struct {
	store  *Store
	signer *auth.Signer
	logger *slog.Logger
}

func NewService(store *Store, signer *auth.Signer, logger *slog.Logger) *Service {
	return &Service{store: store, signer: signer, logger: logger}
}

func (s *Service) Register(ctx context.Context, username, email, password string) (Session, error) {
	u, err := s.store.Create(ctx, username, email, password)
	if err != nil {
		return Session{}, err
	}
	s.logger.InfoContext(ctx, "user registered", slog.Int64("user_id", u.ID), slog.String("username", u.Username))
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := s.store.VerifyLogin(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	return s.issue(u)
}

func (s *Service) issue(u models.User) (Session, error) {
	token, err := s.signer.Sign(auth.Identity{ID: u.ID, Username: u.Username})
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{Token: token, User: u}, nil
}
