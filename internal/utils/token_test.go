package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func TestParseAccessToken(t *testing.T) {
	raw := sign(t, jwt.MapClaims{
		"sub":  "42",
		"role": "dept_admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	claims, err := ParseAccessToken(raw, testSecret)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != 42 || claims.Role != "dept_admin" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseAccessTokenNumericSubject(t *testing.T) {
	// Some issuers encode sub as a JSON number.
	raw := sign(t, jwt.MapClaims{"sub": 7, "role": "user"}, testSecret)
	claims, err := ParseAccessToken(raw, testSecret)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != 7 {
		t.Fatalf("user id = %d", claims.UserID)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	cases := map[string]string{
		"wrong secret": sign(t, jwt.MapClaims{"sub": "42", "role": "user"}, "other"),
		"missing role": sign(t, jwt.MapClaims{"sub": "42"}, testSecret),
		"zero subject": sign(t, jwt.MapClaims{"sub": "0", "role": "user"}, testSecret),
		"expired": sign(t, jwt.MapClaims{
			"sub": "42", "role": "user", "exp": time.Now().Add(-time.Hour).Unix(),
		}, testSecret),
		"garbage": "not-a-token",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseAccessToken(raw, testSecret); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseQRScanToken(t *testing.T) {
	raw := sign(t, jwt.MapClaims{
		"sub":      "3",
		"typ":      "qr_scan",
		"order_id": "ord-1",
		"exp":      time.Now().Add(5 * time.Minute).Unix(),
	}, testSecret)

	claims, err := ParseQRScanToken(raw, testSecret)
	if err != nil {
		t.Fatalf("ParseQRScanToken: %v", err)
	}
	if claims.UserID != 3 || claims.OrderID != "ord-1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseQRScanTokenRejectsAccessToken(t *testing.T) {
	// An ordinary access token must not pass the scan endpoint.
	raw := sign(t, jwt.MapClaims{"sub": "3", "role": "user"}, testSecret)
	_, err := ParseQRScanToken(raw, testSecret)
	if !errors.Is(err, ErrNotScanToken) {
		t.Fatalf("expected ErrNotScanToken, got %v", err)
	}
}
