package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testAccessSecret  = "access-secret-for-tests"
	testRefreshSecret = "refresh-secret-for-tests"
)

func newTestSigner(t *testing.T, opts ...SignerOption) *TokenSigner {
	t.Helper()
	s, err := NewTokenSigner(testAccessSecret, testRefreshSecret, opts...)
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	return s
}

func TestNewTokenSignerRequiresDistinctSecrets(t *testing.T) {
	if _, err := NewTokenSigner("", "x"); err == nil {
		t.Fatal("expected error for missing access secret")
	}
	if _, err := NewTokenSigner("same", "same"); err == nil {
		t.Fatal("expected error for identical secrets")
	}
}

func TestSignAccessCarriesRolesAndPermissions(t *testing.T) {
	s := newTestSigner(t)
	token, exp, err := s.SignAccess("user-1", BuiltinRoles()[:1])
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if d := time.Until(exp); d <= 14*time.Minute || d > DefaultAccessTTL {
		t.Fatalf("unexpected access expiry in %s", d)
	}
	claims, err := s.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != "user-1" || claims.TokenType != tokenTypeAccess {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != RoleUser {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
	if strings.Join(claims.Permissions, ",") != PermCreatePoetry+","+PermUpdatePoetry {
		t.Fatalf("unexpected permissions: %v", claims.Permissions)
	}
	if claims.ID == "" || claims.IssuedAt == nil {
		t.Fatal("expected jti and iat")
	}
}

func TestSecretsAreNotInterchangeable(t *testing.T) {
	s := newTestSigner(t)
	access, _, err := s.SignAccess("user-1", nil)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	refresh, _, err := s.SignRefresh("user-1")
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}
	if _, err := s.VerifyRefresh(access); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
	if _, err := s.VerifyAccess(refresh); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
}

func TestTokenTypeIsEnforcedEvenWithSharedKey(t *testing.T) {
	s := newTestSigner(t)
	claims := Claims{
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.VerifyAccess(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestExpiredRefreshTokenRejected(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSigner(t, WithClock(func() time.Time { return now }))

	token, exp, err := s.SignRefresh("user-1")
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}
	if !exp.Equal(now.Add(DefaultRefreshTTL)) {
		t.Fatalf("unexpected refresh expiry %s", exp)
	}

	now = now.Add(DefaultRefreshTTL + time.Second)
	if _, err := s.VerifyRefresh(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	s := newTestSigner(t)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := s.VerifyAccess(unsigned); err == nil {
		t.Fatal("expected alg=none token to be rejected")
	}
	if _, err := s.VerifyAccess("not-a-jwt"); err == nil {
		t.Fatal("expected garbage to be rejected")
	}
}

func TestSignRequiresSubject(t *testing.T) {
	s := newTestSigner(t)
	if _, _, err := s.SignRefresh("  "); err == nil {
		t.Fatal("expected error for empty subject")
	}
}
