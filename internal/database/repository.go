package database

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDuplicateUser = errors.New("username or email already exists")
	ErrUserNotFound  = errors.New("user not found")
)

// Repository is the persistent store shared by the identity and
// conversation services. Implementations must apply DeleteConversation's
// flag updates and purge as one atomic unit.
type Repository interface {
	Ping(ctx context.Context) error
	Close() error

	CreateUser(ctx context.Context, user User) error
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UserExists(ctx context.Context, username string) (bool, error)

	CreateMessage(ctx context.Context, sender, receiver, body string, sentAt time.Time) (Message, error)
	MessagesBetween(ctx context.Context, user, other string) ([]Message, error)
	UnreadCount(ctx context.Context, user, other string) (int, error)
	Conversations(ctx context.Context, user string) ([]string, error)
	LastMessage(ctx context.Context, user, other string) (*LastMessage, error)
	DeleteConversation(ctx context.Context, user, chatWith string) error

	CreateBlock(ctx context.Context, blocker, blocked string) error
	IsBlocked(ctx context.Context, blocker, blocked string) (bool, error)
}
