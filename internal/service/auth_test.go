package service_test

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
	"github.com/alhassan/smart-sales-agent-go/internal/service"
)

func newAuthService(t *testing.T, password string, ttl time.Duration) *service.AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return service.NewAuthService(string(hash), "test-secret", ttl, zap.NewNop())
}

func TestLogin_Success(t *testing.T) {
	svc := newAuthService(t, "s3cret", time.Hour)

	token, expiresIn, err := svc.Login("s3cret")
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if expiresIn != 3600 {
		t.Errorf("expected expires_in 3600, got %d", expiresIn)
	}

	claims, err := svc.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("expected token to validate, got %v", err)
	}
	if claims.Sub != "admin" {
		t.Errorf("expected sub 'admin', got '%s'", claims.Sub)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newAuthService(t, "s3cret", time.Hour)

	_, _, err := svc.Login("wrong")
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	svc := newAuthService(t, "s3cret", time.Hour)

	_, err := svc.ValidateAccessToken("not.a.token")
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := newAuthService(t, "s3cret", -time.Minute)

	token, _, err := svc.Login("s3cret")
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}

	_, err = svc.ValidateAccessToken(token)
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	svc := newAuthService(t, "s3cret", time.Hour)
	other := service.NewAuthService("irrelevant", "other-secret", time.Hour, zap.NewNop())

	token, _, err := svc.Login("s3cret")
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}

	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}
