package auth

import (
	"errors"
	"fmt"
)

// ErrMissingSecret is returned by constructors when no signing key is
// configured. It is a startup failure, never a per-request one.
var ErrMissingSecret = errors.New("auth: signing secret is not configured")

// ErrEmptyIdentity is returned by the Issuer for an empty subject.
var ErrEmptyIdentity = errors.New("auth: empty identity")

// ErrEmptyPassword is returned by Hasher.Hash for an empty plaintext.
var ErrEmptyPassword = errors.New("auth: empty password")

// Reason names why a token or credential was rejected. It is meant for logs
// and metrics; clients only ever see "unauthorized".
type Reason string

const (
	ReasonMalformedToken          Reason = "malformed_token"
	ReasonBadSignature            Reason = "bad_signature"
	ReasonBadIssuer               Reason = "bad_issuer"
	ReasonExpired                 Reason = "expired"
	ReasonWrongTokenType          Reason = "wrong_token_type"
	ReasonMalformedCredentialHash Reason = "malformed_credential_hash"
)

var (
	ErrMalformedToken          = errors.New("malformed token")
	ErrBadSignature            = errors.New("bad token signature")
	ErrBadIssuer               = errors.New("bad token issuer")
	ErrExpired                 = errors.New("token expired")
	ErrWrongTokenType          = errors.New("wrong token type")
	ErrMalformedCredentialHash = errors.New("malformed credential hash")
	ErrPasswordMismatch        = errors.New("password mismatch")
)

var reasonErrors = map[Reason]error{
	ReasonMalformedToken:          ErrMalformedToken,
	ReasonBadSignature:            ErrBadSignature,
	ReasonBadIssuer:               ErrBadIssuer,
	ReasonExpired:                 ErrExpired,
	ReasonWrongTokenType:          ErrWrongTokenType,
	ReasonMalformedCredentialHash: ErrMalformedCredentialHash,
}

// Rejection is the failure half of a verification Result. It matches its
// reason's sentinel through errors.Is.
type Rejection struct {
	Reason Reason
	cause  error
}

func reject(reason Reason, cause error) *Rejection {
	return &Rejection{Reason: reason, cause: cause}
}

func (r *Rejection) Error() string {
	if r.cause != nil {
		return fmt.Sprintf("%s: %v", reasonErrors[r.Reason], r.cause)
	}
	return reasonErrors[r.Reason].Error()
}

func (r *Rejection) Unwrap() []error {
	if r.cause != nil {
		return []error{reasonErrors[r.Reason], r.cause}
	}
	return []error{reasonErrors[r.Reason]}
}
