package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const messageColumns = `id, sender, receiver, msg, "timestamp", ` +
	`(is_read <> 0) AS is_read, ` +
	`(deleted_by_sender <> 0) AS deleted_by_sender, ` +
	`(deleted_by_receiver <> 0) AS deleted_by_receiver`

func (db *PgRepository) CreateUser(ctx context.Context, user User) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (username, email, password) VALUES ($1, $2, $3)",
		user.Username,
		user.Email,
		user.PasswordHash,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateUser
	}

	return err
}

func (db *PgRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := db.conn.GetContext(ctx, &user,
		"SELECT username, email, password FROM users WHERE email = $1 LIMIT 1",
		email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}

	return user, err
}

func (db *PgRepository) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := db.conn.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)",
		username,
	)

	return exists, err
}

func (db *PgRepository) CreateMessage(ctx context.Context, sender, receiver, body string, sentAt time.Time) (Message, error) {
	msg := Message{
		Sender:   sender,
		Receiver: receiver,
		Body:     body,
		SentAt:   sentAt,
	}

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO messages (sender, receiver, msg, "timestamp") `+
			"VALUES ($1, $2, $3, $4) RETURNING id",
		sender,
		receiver,
		body,
		sentAt,
	).Scan(&msg.Id)
	if err != nil {
		return Message{}, err
	}

	return msg, nil
}

// MessagesBetween acknowledges every unread message other sent to user and
// returns the thread as user sees it, oldest first.
func (db *PgRepository) MessagesBetween(ctx context.Context, user, other string) ([]Message, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"UPDATE messages SET is_read = 1 WHERE sender = $1 AND receiver = $2 AND is_read = 0",
		other,
		user,
	)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}

	messages := make([]Message, 0)
	err = tx.SelectContext(ctx, &messages,
		"SELECT "+messageColumns+" FROM messages "+
			"WHERE (sender = $1 AND receiver = $2 AND deleted_by_sender = 0) "+
			"OR (sender = $2 AND receiver = $1 AND deleted_by_receiver = 0) "+
			`ORDER BY "timestamp" ASC, id ASC`,
		user,
		other,
	)
	if err != nil {
		return nil, fmt.Errorf("select thread: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (db *PgRepository) UnreadCount(ctx context.Context, user, other string) (int, error) {
	var count int
	err := db.conn.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM messages WHERE sender = $1 AND receiver = $2 AND is_read = 0",
		other,
		user,
	)

	return count, err
}

func (db *PgRepository) Conversations(ctx context.Context, user string) ([]string, error) {
	users := make([]string, 0)
	err := db.conn.SelectContext(ctx, &users,
		"SELECT DISTINCT uid FROM ("+
			"SELECT receiver AS uid FROM messages WHERE sender = $1 "+
			"UNION "+
			"SELECT sender AS uid FROM messages WHERE receiver = $1"+
			") AS counterparties ORDER BY uid",
		user,
	)

	return users, err
}

func (db *PgRepository) LastMessage(ctx context.Context, user, other string) (*LastMessage, error) {
	var last LastMessage
	err := db.conn.GetContext(ctx, &last,
		`SELECT msg, "timestamp" FROM messages `+
			"WHERE (sender = $1 AND receiver = $2) OR (sender = $2 AND receiver = $1) "+
			`ORDER BY "timestamp" DESC, id DESC LIMIT 1`,
		user,
		other,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &last, nil
}

func (db *PgRepository) DeleteConversation(ctx context.Context, user, chatWith string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"UPDATE messages SET deleted_by_sender = 1 WHERE sender = $1 AND receiver = $2",
		user,
		chatWith,
	)
	if err != nil {
		return fmt.Errorf("mark sent deleted: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE messages SET deleted_by_receiver = 1 WHERE sender = $1 AND receiver = $2",
		chatWith,
		user,
	)
	if err != nil {
		return fmt.Errorf("mark received deleted: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"DELETE FROM messages WHERE deleted_by_sender = 1 AND deleted_by_receiver = 1 "+
			"AND ((sender = $1 AND receiver = $2) OR (sender = $2 AND receiver = $1))",
		user,
		chatWith,
	)
	if err != nil {
		return fmt.Errorf("purge deleted: %w", err)
	}

	return tx.Commit()
}

func (db *PgRepository) CreateBlock(ctx context.Context, blocker, blocked string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO blocks (blocker, blocked) VALUES ($1, $2)",
		blocker,
		blocked,
	)

	return err
}

func (db *PgRepository) IsBlocked(ctx context.Context, blocker, blocked string) (bool, error) {
	var exists bool
	err := db.conn.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM blocks WHERE blocker = $1 AND blocked = $2)",
		blocker,
		blocked,
	)

	return exists, err
}
