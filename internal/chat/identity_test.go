package chat

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/npezzotti/go-dm/internal/database"
	"github.com/npezzotti/go-dm/internal/stats"
	"github.com/npezzotti/go-dm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestIdentityService(t *testing.T, db database.Repository) (*IdentityService, *stats.MockStatsUpdater) {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", mock.Anything).Maybe()

	s := NewIdentityService(testutil.TestLogger(t), db, su)
	s.cost = bcrypt.MinCost
	return s, su
}

func TestIdentityService_CreateUser(t *testing.T) {
	ctx := context.Background()
	repo := database.NewMemRepository()
	s, su := newTestIdentityService(t, repo)

	ok, err := s.CreateUser(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)
	assert.True(t, ok, "expected registration to succeed")
	su.AssertCalled(t, "Incr", stats.UsersRegistered)

	stored, err := repo.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", stored.PasswordHash, "expected password to be hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), passwordDigest("pw1")))

	tcases := []struct {
		name     string
		username string
		email    string
	}{
		{name: "duplicate username", username: "alice", email: "new@x.com"},
		{name: "duplicate email", username: "alice2", email: "a@x.com"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := s.CreateUser(ctx, tc.username, tc.email, "other")
			assert.NoError(t, err, "expected duplicates not to be reported as errors")
			assert.False(t, ok)

			user, ok := s.VerifyLogin(ctx, "a@x.com", "pw1")
			assert.True(t, ok, "expected original credentials to still work")
			assert.Equal(t, "alice", user)
		})
	}
}

func TestIdentityService_LongPassword(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestIdentityService(t, database.NewMemRepository())

	long := strings.Repeat("p", 80)
	ok, err := s.CreateUser(ctx, "alice", "a@x.com", long)
	require.NoError(t, err, "expected passwords over 72 bytes to be accepted")
	require.True(t, ok)

	tcases := []struct {
		name     string
		password string
		ok       bool
	}{
		{name: "exact password", password: long, ok: true},
		{name: "same first 72 bytes", password: strings.Repeat("p", 72) + "qqqqqqqq"},
		{name: "truncated to 72 bytes", password: strings.Repeat("p", 72)},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := s.VerifyLogin(ctx, "a@x.com", tc.password)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestIdentityService_CreateUser_StorageError(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("CreateUser", mock.MatchedBy(func(u database.User) bool {
		return u.Username == "alice" && u.Email == "a@x.com"
	})).Return(errors.New("connection refused")).Once()

	s, su := newTestIdentityService(t, mockRepo)
	ok, err := s.CreateUser(context.Background(), "alice", "a@x.com", "pw1")
	assert.Error(t, err)
	assert.False(t, ok)
	su.AssertNotCalled(t, "Incr", stats.UsersRegistered)
}

func TestIdentityService_VerifyLogin(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestIdentityService(t, database.NewMemRepository())

	ok, err := s.CreateUser(ctx, "bob", "b@x.com", "pw2")
	require.NoError(t, err)
	require.True(t, ok)

	tcases := []struct {
		name     string
		email    string
		password string
		expected string
		ok       bool
	}{
		{name: "valid credentials", email: "b@x.com", password: "pw2", expected: "bob", ok: true},
		{name: "wrong password", email: "b@x.com", password: "pw1"},
		{name: "unknown email", email: "nobody@x.com", password: "pw2"},
		{name: "empty password", email: "b@x.com", password: ""},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			user, ok := s.VerifyLogin(ctx, tc.email, tc.password)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, user)
		})
	}
}

func TestIdentityService_VerifyLogin_StorageError(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("GetUserByEmail", "b@x.com").Return(database.User{}, errors.New("connection refused")).Once()

	s, su := newTestIdentityService(t, mockRepo)
	buf := &bytes.Buffer{}
	s.log.SetOutput(buf)

	user, ok := s.VerifyLogin(context.Background(), "b@x.com", "pw2")
	assert.False(t, ok)
	assert.Empty(t, user)
	assert.Contains(t, buf.String(), "connection refused")
	su.AssertCalled(t, "Incr", stats.LoginsFailed)
}

func TestIdentityService_UserExists(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("UserExists", "alice").Return(true, nil).Once()
	mockRepo.On("UserExists", "bob").Return(false, nil).Once()
	mockRepo.On("UserExists", "carol").Return(true, errors.New("timeout")).Once()

	s, _ := newTestIdentityService(t, mockRepo)
	ctx := context.Background()

	assert.True(t, s.UserExists(ctx, "alice"))
	assert.False(t, s.UserExists(ctx, "bob"))
	assert.False(t, s.UserExists(ctx, "carol"), "expected storage errors to degrade to false")
}
