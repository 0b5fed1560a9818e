package auth

import (
	"context"
	"errors"
	"log/slog"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error)
	UpdateLastLogin(ctx context.Context, userID string) error
	HasPermission(ctx context.Context, roleID, permission string) (bool, error)
}

type Service struct {
	Store  StoreAPI
	Secret string
}

func NewService(store StoreAPI, secret string) *Service {
	return &Service{Store: store, Secret: secret}
}

// Login verifies the credentials and returns a signed bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, UserContext, error) {
	user, err := s.Store.FindActiveUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return "", UserContext{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", UserContext{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return "", UserContext{}, ErrInvalidCredentials
	}

	uc := UserContext{UserID: user.ID, TenantID: user.TenantID, RoleID: user.RoleID, RoleName: user.RoleName}
	token, err := GenerateToken(s.Secret, uc, TokenTTL)
	if err != nil {
		return "", UserContext{}, err
	}
	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("last login update failed", "userId", user.ID, "err", err)
	}
	return token, uc, nil
}

func (s *Service) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	return s.Store.HasPermission(ctx, roleID, permission)
}
