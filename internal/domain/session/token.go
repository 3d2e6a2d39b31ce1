package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers malformed, expired and badly signed credentials.
var ErrInvalidToken = errors.New("invalid token")

type tokenClaims struct {
	SessionToken string `json:"sid"`
	LoginTimeMs  int64  `json:"lat"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 credentials that embed a Claim.
type TokenIssuer struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenIssuer builds an issuer. The secret must not be empty.
func NewTokenIssuer(secretKey string, ttl time.Duration) (*TokenIssuer, error) {
	if secretKey == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// Issue signs claim and returns the token with its expiry.
func (ti *TokenIssuer) Issue(claim Claim) (string, time.Time, error) {
	if claim.UserID == 0 || claim.SessionToken == "" {
		return "", time.Time{}, errors.New("claim requires user id and session token")
	}

	now := ti.now()
	expiresAt := now.Add(ti.ttl)
	claims := tokenClaims{
		SessionToken: claim.SessionToken,
		LoginTimeMs:  claim.LoginTime.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(claim.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature and expiry and returns the embedded claim.
func (ti *TokenIssuer) Parse(tokenString string) (Claim, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return ti.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return Claim{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Claim{}, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 || claims.SessionToken == "" {
		return Claim{}, fmt.Errorf("%w: missing session claims", ErrInvalidToken)
	}

	return Claim{
		UserID:       uint(userID),
		SessionToken: claims.SessionToken,
		LoginTime:    time.UnixMilli(claims.LoginTimeMs),
	}, nil
}
