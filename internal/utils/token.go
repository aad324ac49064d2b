// Package utils contains small helpers shared across the service.
// token.go validates the two token shapes the service accepts: the
// bearer access token issued by the company directory, and the
// short-lived QR scan token presented at the canteen turnstile.  The
// service never issues either token.
package utils

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNotScanToken = errors.New("token is not a qr scan token")
)

// AccessClaims are the claims the service reads from a bearer token.
type AccessClaims struct {
	UserID uint64
	Role   string
}

// QRScanClaims are the claims carried by a scanned QR code: the member
// the code was issued to and, when the code is order-bound, the order.
type QRScanClaims struct {
	UserID  uint64
	OrderID string
}

// parseHS256 parses and validates a token signed with HS256 and the
// given secret, rejecting any other signing method.
func parseHS256(raw, secret string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// subjectID reads the numeric user id from the sub claim.  Directory
// tokens encode it either as a JSON number or a decimal string.
func subjectID(claims jwt.MapClaims) (uint64, error) {
	switch v := claims["sub"].(type) {
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return 0, ErrInvalidToken
		}
		return id, nil
	case float64:
		if v <= 0 {
			return 0, ErrInvalidToken
		}
		return uint64(v), nil
	}
	return 0, ErrInvalidToken
}

// ParseAccessToken validates a directory-issued bearer token and
// extracts the subject and role claims.
func ParseAccessToken(raw, secret string) (*AccessClaims, error) {
	claims, err := parseHS256(raw, secret)
	if err != nil {
		return nil, err
	}
	id, err := subjectID(claims)
	if err != nil {
		return nil, err
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return nil, ErrInvalidToken
	}
	return &AccessClaims{UserID: id, Role: role}, nil
}

// ParseQRScanToken validates a QR scan token.  Scan tokens carry
// typ=qr_scan so an ordinary access token pasted into the scan
// endpoint is rejected, and optionally an order_id binding the code to
// one order.
func ParseQRScanToken(raw, secret string) (*QRScanClaims, error) {
	claims, err := parseHS256(raw, secret)
	if err != nil {
		return nil, err
	}
	if typ, _ := claims["typ"].(string); typ != "qr_scan" {
		return nil, ErrNotScanToken
	}
	id, err := subjectID(claims)
	if err != nil {
		return nil, err
	}
	orderID, _ := claims["order_id"].(string)
	return &QRScanClaims{UserID: id, OrderID: orderID}, nil
}
