// Package chat implements the identity and conversation services on top of
// a database.Repository. Read operations log storage failures and degrade
// to empty results so polling clients simply retry; write operations
// return them.
package chat

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/npezzotti/go-dm/internal/database"
	"github.com/npezzotti/go-dm/internal/stats"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type IdentityService struct {
	log   *logrus.Logger
	db    database.Repository
	stats stats.StatsProvider
	cost  int
}

func NewIdentityService(logger *logrus.Logger, db database.Repository, su stats.StatsProvider) *IdentityService {
	return &IdentityService{
		log:   logger,
		db:    db,
		stats: su,
		cost:  bcrypt.DefaultCost,
	}
}

// passwordDigest reduces a password of any length to the 44 bytes bcrypt
// is given, so input past bcrypt's 72 byte limit is neither rejected nor
// silently ignored.
func passwordDigest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	dst := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(dst, sum[:])
	return dst
}

// HashPassword returns the stored form of password.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(passwordDigest(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CreateUser registers a user. It reports false without an error when the
// username or email is already taken.
func (s *IdentityService) CreateUser(ctx context.Context, username, email, password string) (bool, error) {
	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return false, err
	}

	err = s.db.CreateUser(ctx, database.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if errors.Is(err, database.ErrDuplicateUser) {
		return false, nil
	}
	if err != nil {
		s.log.WithError(err).WithField("username", username).Error("create user")
		return false, fmt.Errorf("create user: %w", err)
	}

	s.stats.Incr(stats.UsersRegistered)
	s.log.WithField("username", username).Info("user registered")
	return true, nil
}

// VerifyLogin returns the username owning email if password matches. An
// unknown email, a wrong password and a storage failure are reported the
// same way.
func (s *IdentityService) VerifyLogin(ctx context.Context, email, password string) (string, bool) {
	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, database.ErrUserNotFound) {
			s.log.WithError(err).Error("get user by email")
		}
		s.stats.Incr(stats.LoginsFailed)
		return "", false
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), passwordDigest(password)); err != nil {
		s.stats.Incr(stats.LoginsFailed)
		return "", false
	}

	return user.Username, true
}

func (s *IdentityService) UserExists(ctx context.Context, username string) bool {
	exists, err := s.db.UserExists(ctx, username)
	if err != nil {
		s.log.WithError(err).WithField("username", username).Error("user exists")
		return false
	}
	return exists
}
