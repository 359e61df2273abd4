// Package auth implements the token signer: short-lived stateless
// access tokens and refresh tokens that carry the jti of a persisted
// session record. Both are HS256 JWTs with separate secrets.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims extends the registered claim set with the subject user id.
// For refresh tokens the registered ID claim holds the jti of the
// backing database record; access tokens leave it empty.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// TokenService signs and verifies both token kinds.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// AccessTokenTTL returns the configured access-token lifetime.
func (ts *TokenService) AccessTokenTTL() time.Duration { return ts.accessTTL }

// SignAccessToken mints a stateless access token for the given subject.
func (ts *TokenService) SignAccessToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	})
	return token.SignedString(ts.accessSecret)
}

// SignRefreshToken mints a refresh token string bound to the session
// record identified by jti.
func (ts *TokenService) SignRefreshToken(userID, jti string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	})
	return token.SignedString(ts.refreshSecret)
}

// VerifyAccessToken parses an access token and returns the subject
// user id. Expired, malformed, or badly signed tokens yield
// common.ErrInvalidToken.
func (ts *TokenService) VerifyAccessToken(tokenString string) (string, error) {
	claims, err := ts.parse(tokenString, ts.accessSecret)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// VerifyRefreshToken parses a refresh token and returns the subject
// user id and the jti of the backing record.
func (ts *TokenService) VerifyRefreshToken(tokenString string) (userID, jti string, err error) {
	claims, err := ts.parse(tokenString, ts.refreshSecret)
	if err != nil {
		return "", "", err
	}
	return claims.UserID, claims.ID, nil
}

func (ts *TokenService) parse(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, errors.Join(common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
