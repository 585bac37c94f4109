package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-0123456789"

func newTestAuthority(t *testing.T) *Authority {
	t.Helper()

	a, err := NewAuthority(testSecret, WidgetAudience, time.Hour)
	if err != nil {
		t.Fatalf("NewAuthority failed: %v", err)
	}
	return a
}

// signRaw builds a token directly with the jwt library so tests can
// control every claim, including ones Issue would never produce.
func signRaw(t *testing.T, claims *Claims) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func TestNewAuthority_MissingSecret(t *testing.T) {
	if _, err := NewAuthority("", WidgetAudience, time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	a := newTestAuthority(t)

	signed, err := a.Issue("site-123", "shop.example.com", "nonce-1", "pro", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := a.Verify(signed)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if claims.SiteID != "site-123" {
		t.Errorf("SiteID = %q, want site-123", claims.SiteID)
	}
	if claims.Domain != "shop.example.com" {
		t.Errorf("Domain = %q, want shop.example.com", claims.Domain)
	}
	if claims.PlanType != "pro" {
		t.Errorf("PlanType = %q, want pro", claims.PlanType)
	}
	if claims.Nonce != "nonce-1" {
		t.Errorf("Nonce = %q, want nonce-1", claims.Nonce)
	}
	if !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		t.Error("expires_at must be after issued_at")
	}
}

func TestIssue_InputValidation(t *testing.T) {
	a := newTestAuthority(t)

	if _, err := a.Issue("", "example.com", "n", "free", 0); err == nil {
		t.Error("expected error for empty site_id")
	}
	if _, err := a.Issue("site-1", "", "n", "free", 0); err == nil {
		t.Error("expected error for empty domain")
	}
}

func TestVerify_Expired(t *testing.T) {
	a := newTestAuthority(t)

	tests := []struct {
		name string
		exp  time.Time
	}{
		{"long past", time.Now().Add(-time.Hour)},
		{"exactly now", time.Now()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed := signRaw(t, &Claims{
				SiteID:   "site-1",
				Domain:   "example.com",
				PlanType: "free",
				RegisteredClaims: jwt.RegisteredClaims{
					IssuedAt:  jwt.NewNumericDate(tt.exp.Add(-time.Hour)),
					ExpiresAt: jwt.NewNumericDate(tt.exp),
					Audience:  jwt.ClaimStrings{WidgetAudience},
					Issuer:    Issuer,
				},
			})

			if _, err := a.Verify(signed); !errors.Is(err, ErrTokenExpired) {
				t.Fatalf("expected ErrTokenExpired, got %v", err)
			}
		})
	}
}

func TestVerify_NotExpiredBeforeTTL(t *testing.T) {
	a := newTestAuthority(t)

	signed := signRaw(t, &Claims{
		SiteID:   "site-1",
		Domain:   "example.com",
		PlanType: "free",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Second)),
			Audience:  jwt.ClaimStrings{WidgetAudience},
			Issuer:    Issuer,
		},
	})

	if _, err := a.Verify(signed); err != nil {
		t.Fatalf("token should still be valid before expiry, got %v", err)
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	a := newTestAuthority(t)

	signed, err := a.Issue("site-1", "example.com", "n", "free", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three token segments, got %d", len(parts))
	}

	// Flip one bit in the signature segment.
	sig := []byte(parts[2])
	sig[0] ^= 0x01
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := a.Verify(tampered); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for tampered signature, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	a := newTestAuthority(t)

	for _, tok := range []string{"not-a-token", "a.b.c", "	"} {
		if _, err := a.Verify(tok); !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("Verify(%q): expected ErrTokenMalformed, got %v", tok, err)
		}
	}
}

func TestVerify_Missing(t *testing.T) {
	a := newTestAuthority(t)

	if _, err := a.Verify(""); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}

func TestVerify_AudienceMismatch(t *testing.T) {
	a := newTestAuthority(t)

	signed := signRaw(t, &Claims{
		SiteID:   "site-1",
		Domain:   "example.com",
		PlanType: "free",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Audience:  jwt.ClaimStrings{"some-other-system"},
			Issuer:    Issuer,
		},
	})

	if _, err := a.Verify(signed); !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}
}

func TestVerify_IssuerMismatch(t *testing.T) {
	a := newTestAuthority(t)

	signed := signRaw(t, &Claims{
		SiteID:   "site-1",
		Domain:   "example.com",
		PlanType: "free",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Audience:  jwt.ClaimStrings{WidgetAudience},
			Issuer:    "someone-else",
		},
	})

	if _, err := a.Verify(signed); !errors.Is(err, ErrIssuerMismatch) {
		t.Fatalf("expected ErrIssuerMismatch, got %v", err)
	}
}

func TestVerify_DashboardTokenRejectedByWidgetAuthority(t *testing.T) {
	widget := newTestAuthority(t)

	dashboard, err := NewAuthority(testSecret, DashboardAudience, time.Hour)
	if err != nil {
		t.Fatalf("NewAuthority failed: %v", err)
	}

	signed, err := dashboard.Issue("user-1", "admin@example.com", "", "admin", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := widget.Verify(signed); !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}
}

func TestVerify_EmptyIdentityRejected(t *testing.T) {
	a := newTestAuthority(t)

	signed := signRaw(t, &Claims{
		Domain: "example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Audience:  jwt.ClaimStrings{WidgetAudience},
			Issuer:    Issuer,
		},
	})

	if _, err := a.Verify(signed); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for empty site_id, got %v", err)
	}
}

func TestRefresh_PreservesIdentity(t *testing.T) {
	a := newTestAuthority(t)

	old, err := a.Issue("site-9", "store.example.com", "nonce-9", "enterprise", time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	oldClaims, err := a.Verify(old)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	fresh, err := a.Refresh(old)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	claims, err := a.Verify(fresh)
	if err != nil {
		t.Fatalf("Verify of refreshed token failed: %v", err)
	}

	if claims.SiteID != oldClaims.SiteID || claims.Domain != oldClaims.Domain || claims.PlanType != oldClaims.PlanType {
		t.Errorf("refreshed token changed identity: %+v vs %+v", claims, oldClaims)
	}
	if !claims.ExpiresAt.After(oldClaims.ExpiresAt.Time) {
		t.Errorf("refreshed expiry %v not after original %v", claims.ExpiresAt, oldClaims.ExpiresAt)
	}
}

func TestRefresh_ExpiredTokenRejected(t *testing.T) {
	a := newTestAuthority(t)

	signed := signRaw(t, &Claims{
		SiteID:   "site-1",
		Domain:   "example.com",
		PlanType: "free",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			Audience:  jwt.ClaimStrings{WidgetAudience},
			Issuer:    Issuer,
		},
	})

	if _, err := a.Refresh(signed); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyForDomain(t *testing.T) {
	a := newTestAuthority(t)

	signed, err := a.Issue("site-1", "Shop.Example.com", "n", "basic", 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if !a.VerifyForDomain(signed, "shop.example.com") {
		t.Error("domain match should be case-insensitive")
	}
	if a.VerifyForDomain(signed, "evil.example.com") {
		t.Error("mismatched domain must not validate")
	}
	if a.VerifyForDomain("garbage", "shop.example.com") {
		t.Error("invalid token must not validate")
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrTokenMissing, "missing"},
		{ErrTokenExpired, "expired"},
		{ErrAudienceMismatch, "audience_mismatch"},
		{ErrIssuerMismatch, "issuer_mismatch"},
		{ErrTokenMalformed, "malformed"},
		{errors.New("anything else"), "malformed"},
	}

	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
