package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"traffichub/config"
	"traffichub/internal/auth"
	"traffichub/internal/domain"
	"traffichub/internal/models"
	"traffichub/internal/repository"
)

var (
	ErrEmailExists  = errors.New("email already registered")
	ErrInvalidCreds = errors.New("invalid email or password")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

type AuthService struct {
	cfg      *config.Config
	profiles *repository.ProfileRepository
}

func NewAuthService(cfg *config.Config, profiles *repository.ProfileRepository) *AuthService {
	return &AuthService{cfg: cfg, profiles: profiles}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.Profile, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, "", ErrWeakPassword
	}
	_, err := s.profiles.GetByEmail(ctx, email)
	if err == nil {
		return nil, "", ErrEmailExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	p := &models.Profile{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.ProfileOffline,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, "", err
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, p.ID, p.Email, p.Name)
	if err != nil {
		return p, "", err
	}
	return p, access, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Profile, string, error) {
	p, err := s.profiles.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCreds
		}
		return nil, "", err
	}
	if !auth.CheckPassword(p.PasswordHash, password) {
		return nil, "", ErrInvalidCreds
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, p.ID, p.Email, p.Name)
	if err != nil {
		return nil, "", err
	}
	return p, access, nil
}

// ChangePassword updates the profile's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, profileID, currentPassword, newPassword string) error {
	p, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return ErrInvalidCreds
	}
	if !auth.CheckPassword(p.PasswordHash, currentPassword) {
		return ErrInvalidCreds
	}
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.profiles.SetPasswordHash(ctx, p.ID, hash)
}
