package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token uses. A refresh token is never accepted where an access token is
// expected and vice versa.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// RoleAdmin is the only role that may use the admin API.
const RoleAdmin = "admin"

var ErrInvalidToken = errors.New("invalid token")

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
}

// Claims represents JWT payload.
type Claims struct {
	Role string `json:"role"`
	Use  string `json:"use"`
	jwt.RegisteredClaims
}

// Tokens issues and validates HS256 tokens for one issuer.
type Tokens struct {
	Issuer     string
	Key        []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// NewTokens creates a token issuer.
func NewTokens(issuer, key string, accessTTL, refreshTTL time.Duration) *Tokens {
	return &Tokens{Issuer: issuer, Key: []byte(key), AccessTTL: accessTTL, RefreshTTL: refreshTTL, Now: time.Now}
}

func (t *Tokens) sign(subject, role, use string, now, exp time.Time) (string, error) {
	claims := Claims{
		Role: role,
		Use:  use,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Key)
}

// Issue issues signed access and refresh tokens.
func (t *Tokens) Issue(subject, role string) (TokenPair, error) {
	now := t.Now()
	pair := TokenPair{AccessExp: now.Add(t.AccessTTL), RefreshExp: now.Add(t.RefreshTTL)}
	var err error
	if pair.AccessToken, err = t.sign(subject, role, UseAccess, now, pair.AccessExp); err != nil {
		return TokenPair{}, err
	}
	if pair.RefreshToken, err = t.sign(subject, role, UseRefresh, now, pair.RefreshExp); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Parse validates a token of the given use and returns its claims.
func (t *Tokens) Parse(tokenStr, use string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return t.Key, nil
	}, jwt.WithTimeFunc(t.Now), jwt.WithIssuer(t.Issuer))
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Use != use {
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (t *Tokens) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := t.Parse(refreshToken, UseRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return t.Issue(claims.Subject, claims.Role)
}
