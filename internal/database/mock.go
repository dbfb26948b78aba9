package database

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) CreateUser(ctx context.Context, user User) error {
	args := m.Called(user)
	return args.Error(0)
}
func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) UserExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(username)
	return args.Bool(0), args.Error(1)
}
func (m *MockRepository) CreateMessage(ctx context.Context, sender, receiver, body string, sentAt time.Time) (Message, error) {
	args := m.Called(sender, receiver, body, sentAt)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockRepository) MessagesBetween(ctx context.Context, user, other string) ([]Message, error) {
	args := m.Called(user, other)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) UnreadCount(ctx context.Context, user, other string) (int, error) {
	args := m.Called(user, other)
	return args.Int(0), args.Error(1)
}
func (m *MockRepository) Conversations(ctx context.Context, user string) ([]string, error) {
	args := m.Called(user)
	if users, ok := args.Get(0).([]string); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) LastMessage(ctx context.Context, user, other string) (*LastMessage, error) {
	args := m.Called(user, other)
	if last, ok := args.Get(0).(*LastMessage); ok {
		return last, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) DeleteConversation(ctx context.Context, user, chatWith string) error {
	args := m.Called(user, chatWith)
	return args.Error(0)
}
func (m *MockRepository) CreateBlock(ctx context.Context, blocker, blocked string) error {
	args := m.Called(blocker, blocked)
	return args.Error(0)
}
func (m *MockRepository) IsBlocked(ctx context.Context, blocker, blocked string) (bool, error) {
	args := m.Called(blocker, blocked)
	return args.Bool(0), args.Error(1)
}
