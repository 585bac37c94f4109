package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Fixed audience/issuer strings baked into every token. They bind a token
// to this system so a token signed elsewhere with the same secret still
// fails verification.
const (
	WidgetAudience    = "yuno-widget"
	DashboardAudience = "yuno-dashboard"
	Issuer            = "yuno-api"
)

const DefaultTTL = 3600 * time.Second

// Verification failures. Callers treat every one of them as a uniform
// "unauthorized"; the distinct values exist for logging and metrics.
var (
	ErrTokenMissing     = errors.New("token missing")
	ErrTokenMalformed   = errors.New("token malformed")
	ErrTokenExpired     = errors.New("token expired")
	ErrAudienceMismatch = errors.New("token audience mismatch")
	ErrIssuerMismatch   = errors.New("token issuer mismatch")
)

var ErrMissingSecret = errors.New("signing secret is required")

// Claims is the signed payload of a tenant session: site identity, the
// domain the session is scoped to, the plan tier quota enforcement keys
// off, and a client-supplied nonce kept for replay differentiation.
type Claims struct {
	SiteID   string `json:"site_id"`
	Domain   string `json:"domain"`
	Nonce    string `json:"nonce,omitempty"`
	PlanType string `json:"plan_type"`
	jwt.RegisteredClaims
}

// Authority issues and verifies session tokens. It is the sole
// tenant-identity assertion mechanism in the system and holds no state
// beyond the signing secret, so verification is fully stateless.
type Authority struct {
	secret   []byte
	audience string
	ttl      time.Duration
}

func NewAuthority(secret string, audience string, ttl time.Duration) (*Authority, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if audience == "" {
		audience = WidgetAudience
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Authority{
		secret:   []byte(secret),
		audience: audience,
		ttl:      ttl,
	}, nil
}

// Issue signs a session token for the given identity. ttl <= 0 falls back
// to the authority default.
func (a *Authority) Issue(siteID, domain, nonce, planType string, ttl time.Duration) (string, error) {
	if siteID == "" {
		return "", errors.New("site_id is required")
	}
	if domain == "" {
		return "", errors.New("domain is required")
	}
	if ttl <= 0 {
		ttl = a.ttl
	}

	now := time.Now()
	claims := &Claims{
		SiteID:   siteID,
		Domain:   domain,
		Nonce:    nonce,
		PlanType: planType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  jwt.ClaimStrings{a.audience},
			Issuer:    Issuer,
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify checks signature, audience, issuer and expiry and returns the
// decoded claims. All failures map onto the sentinel errors above.
func (a *Authority) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithAudience(a.audience),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		return nil, mapJWTError(err)
	}

	if !t.Valid {
		return nil, ErrTokenMalformed
	}

	// A signed token with no identity is useless; never issued by us.
	if claims.SiteID == "" || claims.Domain == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// Refresh extends a session by verifying the old token and issuing a new
// one with the same identity and fresh timestamps. An expired token cannot
// be refreshed; expiry is a hard cliff requiring full re-authentication.
func (a *Authority) Refresh(oldToken string) (string, error) {
	claims, err := a.Verify(oldToken)
	if err != nil {
		return "", err
	}

	return a.Issue(claims.SiteID, claims.Domain, claims.Nonce, claims.PlanType, 0)
}

// VerifyForDomain reports whether the token is valid and scoped to the
// given domain (case-insensitive).
func (a *Authority) VerifyForDomain(tokenString, domain string) bool {
	claims, err := a.Verify(tokenString)
	if err != nil {
		return false
	}

	return strings.EqualFold(claims.Domain, domain)
}

// TTL returns the authority's default token lifetime.
func (a *Authority) TTL() time.Duration {
	return a.ttl
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudienceMismatch
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuerMismatch
	default:
		// Bad signature, garbage input, wrong alg, missing exp - all
		// structurally invalid as far as callers care.
		return ErrTokenMalformed
	}
}

// Kind returns a short stable name for a verification failure, used for
// log lines and metric labels.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return "missing"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrAudienceMismatch):
		return "audience_mismatch"
	case errors.Is(err, ErrIssuerMismatch):
		return "issuer_mismatch"
	default:
		return "malformed"
	}
}
