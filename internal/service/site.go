package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yuno-ai/yuno-api/internal/models"
	"github.com/yuno-ai/yuno-api/internal/repository"
)

// Authentication failures of the widget handshake. The handler maps each
// onto its own status code (404 unknown site, 403 for the rest).
var (
	ErrSiteNotFound   = errors.New("site not found")
	ErrDomainNotOwned = errors.New("widget not authorized for this domain")
	ErrPlanInactive   = errors.New("service subscription is not active")
	ErrWidgetDisabled = errors.New("widget has been temporarily disabled")
)

// SiteService is the tenant registry: it resolves site identities and
// decides whether a requesting domain may obtain a session token.
type SiteService struct {
	repo *repository.SiteRepository
}

func NewSiteService(repo *repository.SiteRepository) *SiteService {
	return &SiteService{repo: repo}
}

// Authenticate performs the pre-token checks: the site must exist, the
// requesting domain must be the registered one, the subscription must be
// active and the widget enabled. Returns the site on success so the
// caller can issue a token carrying its plan tier.
func (s *SiteService) Authenticate(ctx context.Context, siteID, domain string) (*models.Site, error) {
	site, err := s.repo.FindByID(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up site: %w", err)
	}
	if site == nil {
		return nil, ErrSiteNotFound
	}

	if !domainMatches(site.Domain, domain) {
		return nil, ErrDomainNotOwned
	}

	if !site.PlanActive {
		return nil, ErrPlanInactive
	}

	if !site.WidgetEnabled {
		return nil, ErrWidgetDisabled
	}

	return site, nil
}

func (s *SiteService) Get(ctx context.Context, siteID string) (*models.Site, error) {
	return s.repo.FindByID(ctx, siteID)
}

func (s *SiteService) Create(ctx context.Context, site *models.Site) error {
	return s.repo.Create(ctx, site)
}

func (s *SiteService) List(ctx context.Context) ([]models.Site, error) {
	return s.repo.List(ctx)
}

func (s *SiteService) Update(ctx context.Context, siteID string, updates map[string]interface{}) error {
	return s.repo.Update(ctx, siteID, updates)
}

// domainMatches compares the registered domain with the requesting one,
// case-insensitively and tolerating a www prefix on either side.
func domainMatches(registered, requesting string) bool {
	a := normalizeDomain(registered)
	b := normalizeDomain(requesting)
	return a != "" && a == b
}

func normalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	d = strings.TrimSuffix(d, "/")
	return d
}
