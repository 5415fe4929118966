// Package services contains server-side business logic. This file implements
// UserService, which registers users, checks credentials, issues bearer
// tokens and resolves them back to users.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest input bcrypt looks at.
const maxPasswordBytes = 72

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint an access token
// - CurrentUser: resolve a bearer token to its user
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	logger                      logging.Logger
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	hashCost                    int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	cost := cfg.PasswordHashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserService{
		db:                          db,
		repomanager:                 m,
		logger:                      logger,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		hashCost:                    cost,
	}
}

// Register hashes the password and creates the user. It fails with
// common.ErrDuplicateUser when the username or email is taken, including
// when a concurrent registration wins the insert.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{UserName: username, Email: email, PasswordHash: hash}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		exists, err := repo.ExistsByLoginOrEmail(ctx, username, email)
		if err != nil {
			return fmt.Errorf("error checking user: %w", err)
		}
		if exists {
			return common.ErrDuplicateUser
		}

		if user, err = repo.Create(ctx, user); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.ErrDuplicateUser
			}
			return fmt.Errorf("error creating user: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUser) {
			s.logger.Info(ctx, "registration rejected, user exists", "username", username)
		}
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "username", user.UserName, "user_id", user.ID)
	return user, nil
}

// Login verifies the credentials and returns a signed access token. Unknown
// users and wrong passwords both yield common.ErrInvalidCredentials after
// a bcrypt comparison of the same cost.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// result ignored; keeps unknown users as slow as wrong passwords
			_ = s.checkPassword(s.getDummyHash(), password)
			s.logger.Info(ctx, "login failed", "username", username, "reason", "unknown user")
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if !s.checkPassword(user.PasswordHash, password) {
		s.logger.Info(ctx, "login failed", "username", username, "reason", "password mismatch")
		return "", common.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.UserName, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "token issued", "username", user.UserName, "token", logging.TokenPrefix(token))
	return token, nil
}

// CurrentUser resolves a bearer token to the user it names. Bad signatures,
// expired tokens and subjects that no longer exist all yield
// common.ErrTokenExpiredOrInvalid.
func (s *UserService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	username, err := auth.GetSubjectFromToken(token, s.jwtSecret)
	if err != nil {
		s.logger.Debug(ctx, "token rejected", "token", logging.TokenPrefix(token), "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrTokenExpiredOrInvalid, err)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "token subject not found", "username", username)
			return nil, common.ErrTokenExpiredOrInvalid
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return user, nil
}

// --- helpers below ---

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

func (s *UserService) hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword(truncatePassword(password), s.hashCost)
}

func (s *UserService) checkPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, truncatePassword(password)) == nil
}

// getDummyHash returns a hash of the service's cost that no password matches.
func (s *UserService) getDummyHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword(common.GenerateRandByteArray(32), s.hashCost)
	})
	return s.dummyHash
}
