package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/npezzotti/go-dm/internal/database"
	"github.com/npezzotti/go-dm/internal/stats"
	"github.com/sirupsen/logrus"
)

type ConversationService struct {
	log   *logrus.Logger
	db    database.Repository
	stats stats.StatsProvider
	now   func() time.Time
}

// Summary is one entry of a user's conversation list.
type Summary struct {
	User   string
	Unread int
	Last   *database.LastMessage
}

func NewConversationService(logger *logrus.Logger, db database.Repository, su stats.StatsProvider) *ConversationService {
	return &ConversationService{
		log:   logger,
		db:    db,
		stats: su,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *ConversationService) StoreMessage(ctx context.Context, sender, receiver, body string) error {
	msg, err := s.db.CreateMessage(ctx, sender, receiver, body, s.now())
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"sender":   sender,
			"receiver": receiver,
		}).Error("store message")
		return fmt.Errorf("store message: %w", err)
	}

	s.stats.Incr(stats.MessagesSent)
	s.log.WithFields(logrus.Fields{
		"id":       msg.Id,
		"sender":   sender,
		"receiver": receiver,
	}).Debug("message stored")
	return nil
}

// MessagesBetween returns the thread between user and other as user sees
// it, oldest first, and marks everything other sent to user as read.
func (s *ConversationService) MessagesBetween(ctx context.Context, user, other string) []database.Message {
	msgs, err := s.db.MessagesBetween(ctx, user, other)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user":  user,
			"other": other,
		}).Error("messages between")
		return []database.Message{}
	}
	return msgs
}

// UnreadCount does not acknowledge anything; previews must not consume
// unread state.
func (s *ConversationService) UnreadCount(ctx context.Context, user, other string) int {
	count, err := s.db.UnreadCount(ctx, user, other)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user":  user,
			"other": other,
		}).Error("unread count")
		return 0
	}
	return count
}

func (s *ConversationService) Conversations(ctx context.Context, user string) []string {
	users, err := s.db.Conversations(ctx, user)
	if err != nil {
		s.log.WithError(err).WithField("user", user).Error("conversations")
		return []string{}
	}
	return users
}

func (s *ConversationService) LastMessage(ctx context.Context, user, other string) *database.LastMessage {
	last, err := s.db.LastMessage(ctx, user, other)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user":  user,
			"other": other,
		}).Error("last message")
		return nil
	}
	return last
}

// Summaries lists every counterparty of user with its unread count and
// latest message.
func (s *ConversationService) Summaries(ctx context.Context, user string) []Summary {
	users := s.Conversations(ctx, user)
	summaries := make([]Summary, 0, len(users))
	for _, other := range users {
		summaries = append(summaries, Summary{
			User:   other,
			Unread: s.UnreadCount(ctx, user, other),
			Last:   s.LastMessage(ctx, user, other),
		})
	}
	return summaries
}

func (s *ConversationService) DeleteConversation(ctx context.Context, user, chatWith string) error {
	if err := s.db.DeleteConversation(ctx, user, chatWith); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user":      user,
			"chat_with": chatWith,
		}).Error("delete conversation")
		return fmt.Errorf("delete conversation: %w", err)
	}

	s.stats.Incr(stats.ConversationsDeleted)
	return nil
}

func (s *ConversationService) BlockUser(ctx context.Context, blocker, blocked string) error {
	if err := s.db.CreateBlock(ctx, blocker, blocked); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"blocker": blocker,
			"blocked": blocked,
		}).Error("block user")
		return fmt.Errorf("block user: %w", err)
	}

	s.stats.Incr(stats.BlocksCreated)
	s.log.WithFields(logrus.Fields{
		"blocker": blocker,
		"blocked": blocked,
	}).Info("user blocked")
	return nil
}

func (s *ConversationService) IsBlocked(ctx context.Context, blocker, blocked string) bool {
	blockedBy, err := s.db.IsBlocked(ctx, blocker, blocked)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"blocker": blocker,
			"blocked": blocked,
		}).Error("is blocked")
		return false
	}
	return blockedBy
}
