// Package services contains server-side business logic. This file implements
// UserService: credential login, the stateless refresh exchange and account
// management on top of the auth core.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/lms/internal/common"
	"github.com/dmitrijs2005/lms/internal/dbx"
	"github.com/dmitrijs2005/lms/internal/logging"
	"github.com/dmitrijs2005/lms/internal/server/auth"
	"github.com/dmitrijs2005/lms/internal/server/models"
	"github.com/dmitrijs2005/lms/internal/server/repositories/repomanager"
)

// dummyPassword is hashed once and compared against when the login email is
// unknown, so a missing account costs the same bcrypt work as a wrong password.
const dummyPassword = "lms-no-such-user"

// UserService provides authentication and account operations:
//   - Login: check credentials and mint a token pair
//   - Refresh: trade a refresh token for a new pair
//   - CreateUser, ChangePassword, ListUsers: account management
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	issuer      *auth.Issuer
	verifier    *auth.Verifier
	logger      logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService wires a UserService to its repositories and the auth core.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.Hasher,
	issuer *auth.Issuer, verifier *auth.Verifier, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		issuer:      issuer,
		verifier:    verifier,
		logger:      logger.With("component", "user_service"),
	}
}

// Login verifies email and password and returns a fresh TokenPair. Unknown
// emails and wrong passwords both yield common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	email = normalizeEmail(email)
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = s.hasher.Check(password, s.dummy())
			s.logger.Info(ctx, "login failed", "email", email, "reason", "unknown_user")
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "login lookup failed", "email", email, "error", err)
		return nil, common.ErrorInternal
	}

	if err := s.checkPassword(ctx, user, password); err != nil {
		return nil, err
	}

	pair, err := s.issuer.IssuePair(ctx, user.Email)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "email", email, "error", err)
		return nil, common.ErrorInternal
	}
	return pair, nil
}

// Refresh validates a refresh token and mints a new pair for its subject.
// Tokens are not stored, so the old refresh token stays valid until it expires.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	res := s.verifier.VerifyRefresh(ctx, refreshToken)
	if !res.OK() {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, res.Err())
	}

	identity := res.Claims.Identity()
	if _, err := s.repomanager.Users(s.db).GetByEmail(ctx, identity); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "refresh for removed account", "email", identity)
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	pair, err := s.issuer.IssuePair(ctx, identity)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return pair, nil
}

// CreateUser registers a new account. A taken email yields
// common.ErrorAlreadyExists; invalid input yields common.ErrorValidation.
func (s *UserService) CreateUser(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	s.logger.Info(ctx, "user created", "email", email, "id", u.ID)
	return u, nil
}

// ChangePassword replaces the password of email after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, email, current, next string) error {
	email = normalizeEmail(email)
	hash, err := s.hashPassword(next)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		user, err := repo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error loading user: %w", err)
		}
		if err := s.checkPassword(ctx, user, current); err != nil {
			return err
		}
		if err := repo.UpdatePassword(ctx, email, hash); err != nil {
			return fmt.Errorf("error storing password: %w", err)
		}
		s.logger.Info(ctx, "password changed", "email", email)
		return nil
	})
}

// ListUsers returns all accounts without their password hashes.
func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return users, nil
}

// --- helpers below ---

func (s *UserService) checkPassword(ctx context.Context, user *models.User, password string) error {
	err := s.hasher.Check(password, user.PasswordHash)
	if err == nil {
		return nil
	}
	var rej *auth.Rejection
	if errors.As(err, &rej) {
		s.logger.Error(ctx, "stored credential unusable", "email", user.Email, "reason", rej.Reason)
	} else {
		s.logger.Info(ctx, "login failed", "email", user.Email, "reason", "wrong_password")
	}
	return common.ErrorUnauthorized
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorValidation, err)
	}
	return hash, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(dummyPassword)
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.ContainsAny(email, " \t\r\n") {
		return fmt.Errorf("%w: invalid email %q", common.ErrorValidation, email)
	}
	return nil
}
