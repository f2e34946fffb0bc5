package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidCredentials indicates the username/password pair was rejected.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrInvalidToken indicates a missing, malformed, or expired bearer token.
	ErrInvalidToken = errors.New("invalid bearer token")
)

const defaultTokenTTL = 30 * time.Minute

// Config holds the credential stub and signing settings. One hardcoded
// credential pair guards the whole API; this is intentionally not a user
// management system.
type Config struct {
	Username string
	Password string
	Secret   string
	TokenTTL time.Duration
}

// Authenticator issues and verifies bearer tokens.
type Authenticator struct {
	cfg    Config
	secret []byte
}

// New creates an Authenticator. The signing secret is required.
func New(cfg Config) (*Authenticator, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("jwt signing secret is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("api username and password are required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	return &Authenticator{cfg: cfg, secret: []byte(cfg.Secret)}, nil
}

// IssueToken checks the credential pair and returns a signed token with an
// expiry claim.
func (a *Authenticator) IssueToken(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.Password)) == 1
	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

// VerifyToken validates the signature and expiry and returns the subject.
func (a *Authenticator) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
