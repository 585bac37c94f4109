package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yuno-ai/yuno-api/internal/models"
	"github.com/yuno-ai/yuno-api/internal/repository"
	"github.com/yuno-ai/yuno-api/internal/token"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// DashboardService handles admin dashboard accounts. Logins are rewarded
// with a token from the dashboard authority, which shares the signing
// secret with the widget authority but carries a different audience, so
// widget tokens can never reach dashboard routes.
type DashboardService struct {
	repo      *repository.DashboardUserRepository
	authority *token.Authority
}

func NewDashboardService(repo *repository.DashboardUserRepository, authority *token.Authority) *DashboardService {
	return &DashboardService{repo: repo, authority: authority}
}

func (s *DashboardService) Register(ctx context.Context, email, password, name string, siteID string) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New("user with this email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.DashboardUser{
		Email:        email,
		PasswordHash: string(hashed),
		Name:         name,
	}
	if siteID != "" {
		id, err := parseUUID(siteID)
		if err != nil {
			return err
		}
		user.SiteID = id
	}

	return s.repo.Create(ctx, user)
}

// Login authenticates a dashboard user and returns a dashboard-audience
// token plus the user record.
func (s *DashboardService) Login(ctx context.Context, email, password string) (string, *models.DashboardUser, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	// Dashboard claims reuse the session claim shape: subject is the user
	// id, the scoped "domain" is the account email.
	signed, err := s.authority.Issue(user.ID.String(), user.Email, "", "admin", 0)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	go s.repo.UpdateLastLogin(context.WithoutCancel(ctx), user.ID)

	return signed, user, nil
}

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid site id %q: %w", s, err)
	}
	return id, nil
}
