package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lms/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// Option tunes an Issuer or a Verifier.
type Option func(*options)

type options struct {
	now        func() time.Time
	leeway     time.Duration
	accessTTL  time.Duration
	refreshTTL time.Duration
	observer   Observer
}

func defaultOptions() options {
	return options{
		now:        time.Now,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		observer:   nopObserver{},
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLeeway tolerates clock skew between issuing and verifying hosts when
// checking expiry.
func WithLeeway(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.leeway = d
		}
	}
}

// WithTTLs sets the lifetimes IssuePair uses. Non-positive values keep the defaults.
func WithTTLs(access, refresh time.Duration) Option {
	return func(o *options) {
		if access > 0 {
			o.accessTTL = access
		}
		if refresh > 0 {
			o.refreshTTL = refresh
		}
	}
}

// WithObserver reports issue and verify outcomes, e.g. to metrics.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// Observer receives one call per token issued and per verification decision.
// reason is empty for accepted tokens.
type Observer interface {
	TokenIssued(tokenType TokenType)
	TokenVerified(expected TokenType, reason Reason)
}

type nopObserver struct{}

func (nopObserver) TokenIssued(TokenType)           {}
func (nopObserver) TokenVerified(TokenType, Reason) {}

// Issuer signs access and refresh tokens with the process-wide secret.
type Issuer struct {
	secret []byte
	logger logging.Logger
	opts   options
}

// NewIssuer builds an Issuer. An empty secret is refused with ErrMissingSecret.
func NewIssuer(secret []byte, logger logging.Logger, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Issuer{
		secret: append([]byte(nil), secret...),
		logger: logger.With("component", "token_issuer"),
		opts:   o,
	}, nil
}

// IssueAccess signs an access token for identity valid for ttl. A negative
// ttl yields an already expired token. An empty identity is refused with
// ErrEmptyIdentity.
func (i *Issuer) IssueAccess(ctx context.Context, identity string, ttl time.Duration) (string, error) {
	token, _, err := i.issue(ctx, identity, TokenTypeAccess, ttl)
	return token, err
}

// IssueRefresh signs a refresh token for identity valid for ttl.
func (i *Issuer) IssueRefresh(ctx context.Context, identity string, ttl time.Duration) (string, error) {
	token, _, err := i.issue(ctx, identity, TokenTypeRefresh, ttl)
	return token, err
}

// IssuePair signs an access and a refresh token using the configured TTLs.
func (i *Issuer) IssuePair(ctx context.Context, identity string) (*TokenPair, error) {
	access, exp, err := i.issue(ctx, identity, TokenTypeAccess, i.opts.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, _, err := i.issue(ctx, identity, TokenTypeRefresh, i.opts.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, AccessExpiresAt: exp}, nil
}

func (i *Issuer) issue(ctx context.Context, identity string, tokenType TokenType, ttl time.Duration) (string, time.Time, error) {
	if identity == "" {
		return "", time.Time{}, ErrEmptyIdentity
	}

	now := i.opts.now().UTC()
	expiresAt := now.Add(ttl)

	claims := Claims{
		Email:     identity,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			Issuer:    IssuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", tokenType, err)
	}

	i.opts.observer.TokenIssued(tokenType)
	i.logger.Info(ctx, "token issued",
		"subject", identity,
		"token_type", string(tokenType),
		"expires_at", expiresAt.Format(time.RFC3339),
	)

	return signed, expiresAt, nil
}
