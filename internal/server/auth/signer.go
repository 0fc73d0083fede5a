// Package auth provides the credential primitives of the server: password
// hashing and signed token issuance/verification.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/credkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// TokenKind distinguishes the three token families. Each kind has its own
// secret and lifetime.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
	KindReset   TokenKind = "reset"
)

// Claims is the signed payload of every token. ID (jti) is random so two
// tokens issued for the same identity within one second still differ.
type Claims struct {
	IdentityID string    `json:"identityId"`
	Kind       TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// KeyConfig is the secret and lifetime of one token kind.
type KeyConfig struct {
	Secret []byte
	TTL    time.Duration
}

// SignerConfig carries one KeyConfig per TokenKind.
type SignerConfig struct {
	Access  KeyConfig
	Refresh KeyConfig
	Reset   KeyConfig
}

// Signer issues and verifies HS256 tokens.
type Signer struct {
	keys map[TokenKind]KeyConfig
	now  func() time.Time
}

// NewSigner validates cfg and builds a Signer. Secrets must be non-empty and
// pairwise distinct, lifetimes positive.
func NewSigner(cfg SignerConfig) (*Signer, error) {
	keys := map[TokenKind]KeyConfig{
		KindAccess:  cfg.Access,
		KindRefresh: cfg.Refresh,
		KindReset:   cfg.Reset,
	}
	seen := make(map[string]TokenKind, len(keys))
	for kind, key := range keys {
		if len(key.Secret) == 0 {
			return nil, fmt.Errorf("%s token secret is empty", kind)
		}
		if key.TTL <= 0 {
			return nil, fmt.Errorf("%s token ttl must be positive", kind)
		}
		if other, ok := seen[string(key.Secret)]; ok {
			return nil, fmt.Errorf("%s and %s tokens share a secret", other, kind)
		}
		seen[string(key.Secret)] = kind
	}
	return &Signer{keys: keys, now: time.Now}, nil
}

func (s *Signer) IssueAccessToken(identityID string) (string, error) {
	return s.Issue(KindAccess, identityID)
}

func (s *Signer) IssueRefreshToken(identityID string) (string, error) {
	return s.Issue(KindRefresh, identityID)
}

func (s *Signer) IssueResetToken(identityID string) (string, error) {
	return s.Issue(KindReset, identityID)
}

// Issue signs a token of the given kind for identityID.
func (s *Signer) Issue(kind TokenKind, identityID string) (string, error) {
	key, ok := s.keys[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}

	now := s.now()
	claims := Claims{
		IdentityID: identityID,
		Kind:       kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(key.Secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify checks signature, expiry and kind of tokenString. It fails with an
// EXPIRED_TOKEN error when the token is past its expiry and INVALID_TOKEN
// otherwise.
func (s *Signer) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	key, ok := s.keys[kind]
	if !ok {
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code(common.KindExpiredToken).With("kind", kind).Errorf("%s token expired", kind)
		}
		return nil, oops.Code(common.KindInvalidToken).With("kind", kind).Errorf("invalid %s token: %v", kind, err)
	}

	if !token.Valid || claims.Kind != kind || claims.IdentityID == "" {
		return nil, oops.Code(common.KindInvalidToken).With("kind", kind).Errorf("invalid %s token", kind)
	}

	return claims, nil
}

// TTL returns the lifetime configured for kind.
func (s *Signer) TTL(kind TokenKind) time.Duration {
	return s.keys[kind].TTL
}
