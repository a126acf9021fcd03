package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	errMissingKey   = errors.New("signing secret not configured")
)

// Claims is the identity carried by an access token.
type Claims struct {
	Email     string
	ExpiresAt time.Time
}

// Token is a signed access token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer signs and resolves access tokens.
type Issuer struct {
	secret  []byte
	method  jwt.SigningMethod
	ttl     time.Duration
	revoker Revoker
	now     func() time.Time
}

// IssuerOption customizes an Issuer.
type IssuerOption func(*Issuer)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithRevoker sets the revocation store. Defaults to an in-memory store.
func WithRevoker(r Revoker) IssuerOption {
	return func(i *Issuer) {
		if r != nil {
			i.revoker = r
		}
	}
}

// NewIssuer builds an Issuer for an HMAC algorithm name (HS256, HS384, HS512).
func NewIssuer(secret, algorithm string, ttl time.Duration, opts ...IssuerOption) (*Issuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errMissingKey
	}
	var method jwt.SigningMethod
	switch strings.ToUpper(strings.TrimSpace(algorithm)) {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	iss := &Issuer{
		secret:  []byte(secret),
		method:  method,
		ttl:     ttl,
		revoker: NewMemoryRevoker(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(iss)
	}
	return iss, nil
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token whose subject is the given email.
func (i *Issuer) Issue(email string) (Token, error) {
	if strings.TrimSpace(email) == "" {
		return Token{}, errors.New("subject is required")
	}
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	// A fresh ID keeps two tokens issued in the same second distinct, so
	// revoking one leaves the other valid.
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Resolve validates a token and returns the identity it carries.
// It does not check that the subject still exists.
func (i *Issuer) Resolve(ctx context.Context, token string) (Claims, error) {
	claims, err := i.parse(token)
	if err != nil {
		return Claims{}, err
	}
	revoked, err := i.revoker.IsRevoked(ctx, token)
	if err != nil {
		return Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Claims{}, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke invalidates a token until its natural expiry.
func (i *Issuer) Revoke(ctx context.Context, token string) error {
	claims, err := i.parse(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Sub(i.now())
	if ttl <= 0 {
		return nil
	}
	return i.revoker.Revoke(ctx, token, ttl)
}

func (i *Issuer) parse(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrInvalidToken
	}
	var rc jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &rc, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	if !parsed.Valid || rc.Subject == "" || rc.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}
	return Claims{Email: rc.Subject, ExpiresAt: rc.ExpiresAt.Time}, nil
}
