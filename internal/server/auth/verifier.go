package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lms/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// Result is the outcome of a token verification: exactly one of Claims and
// Rejection is set.
type Result struct {
	Claims    *Claims
	Rejection *Rejection
}

func (r Result) OK() bool { return r.Rejection == nil && r.Claims != nil }

// Err returns the rejection as an error, or nil for an accepted token.
func (r Result) Err() error {
	if r.Rejection == nil {
		return nil
	}
	return r.Rejection
}

// Verifier checks tokens produced by an Issuer sharing the same secret.
type Verifier struct {
	secret []byte
	logger logging.Logger
	opts   options
	parser *jwt.Parser
}

// NewVerifier builds a Verifier. An empty secret is refused with ErrMissingSecret.
func NewVerifier(secret []byte, logger logging.Logger, opts ...Option) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Verifier{
		secret: append([]byte(nil), secret...),
		logger: logger.With("component", "token_verifier"),
		opts:   o,
		// Claims are checked by hand so the rejection order stays fixed.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// Verify accepts only valid access tokens.
func (v *Verifier) Verify(ctx context.Context, token string) Result {
	return v.verify(ctx, token, TokenTypeAccess)
}

// VerifyRefresh accepts only valid refresh tokens. It backs the token
// exchange endpoint and nothing else.
func (v *Verifier) VerifyRefresh(ctx context.Context, token string) Result {
	return v.verify(ctx, token, TokenTypeRefresh)
}

func (v *Verifier) verify(ctx context.Context, token string, expected TokenType) (res Result) {
	// claimed is the subject read before the signature was checked.
	var subject, claimed string

	defer func() {
		if p := recover(); p != nil {
			res = Result{Rejection: reject(ReasonMalformedToken, fmt.Errorf("panic: %v", p))}
		}
		v.record(ctx, expected, subject, claimed, res)
	}()

	// 1. structure
	unverified := &Claims{}
	if _, _, err := v.parser.ParseUnverified(token, unverified); err != nil {
		return Result{Rejection: reject(ReasonMalformedToken, err)}
	}
	if unverified.ExpiresAt == nil || unverified.Subject == "" {
		return Result{Rejection: reject(ReasonMalformedToken, errors.New("missing sub or exp claim"))}
	}
	claimed = unverified.Subject

	// 2. signature; once the header and claims decoded, any remaining
	// failure is in the signature segment.
	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(token, claims, v.keyFunc); err != nil {
		return Result{Rejection: reject(ReasonBadSignature, err)}
	}
	subject = claims.Subject

	// 3. issuer
	if claims.Issuer != IssuerName {
		return Result{Rejection: reject(ReasonBadIssuer, fmt.Errorf("got %q", claims.Issuer))}
	}

	// 4. expiry
	now := v.opts.now().UTC()
	if !claims.ExpiresAt.Time.After(now.Add(-v.opts.leeway)) {
		return Result{Rejection: reject(ReasonExpired, fmt.Errorf("expired at %s", claims.ExpiresAt.Time.UTC().Format(time.RFC3339)))}
	}

	// 5. token class
	if claims.TokenType != expected {
		return Result{Rejection: reject(ReasonWrongTokenType, fmt.Errorf("got %q, want %q", claims.TokenType, expected))}
	}

	return Result{Claims: claims}
}

func (v *Verifier) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return v.secret, nil
}

func (v *Verifier) record(ctx context.Context, expected TokenType, subject, claimed string, res Result) {
	if res.OK() {
		v.opts.observer.TokenVerified(expected, "")
		v.logger.Debug(ctx, "token accepted", "subject", subject, "token_type", string(expected))
		return
	}

	v.opts.observer.TokenVerified(expected, res.Rejection.Reason)
	args := []any{"reason", string(res.Rejection.Reason), "expected_type", string(expected)}
	if subject != "" {
		args = append(args, "subject", subject)
	} else if claimed != "" {
		args = append(args, "claimed_subject", claimed)
	}
	v.logger.Info(ctx, "token rejected", args...)
}
