package services

import (
	"context"
	"errors"

	"garagehub/internal/domain"
	"garagehub/internal/repos"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadCreds = errors.New("invalid email or password")

type AuthService struct {
	Users    *repos.UserRepo
	Activity *ActivityService
}

func NewAuthService(users *repos.UserRepo, activity *ActivityService) *AuthService {
	return &AuthService{Users: users, Activity: activity}
}

func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	if err := s.Activity.Record(ctx, u.Actor(), domain.ActionLogin, domain.ResourceSession, u.ID, u.Name+" signed in"); err != nil {
		return nil, err
	}
	return u, nil
}

// Logout unbinds the session; u may be nil when the session had already lapsed.
func (s *AuthService) Logout(ctx context.Context, sid string, u *domain.User) error {
	if err := s.Users.UnbindSession(sid); err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	return s.Activity.Record(ctx, u.Actor(), domain.ActionLogout, domain.ResourceSession, u.ID, u.Name+" signed out")
}

func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}
