package database

import "time"

type User struct {
	Username     string `db:"username" json:"username"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password" json:"password"`
}

type Message struct {
	Id                int64     `db:"id" json:"id"`
	Sender            string    `db:"sender" json:"sender"`
	Receiver          string    `db:"receiver" json:"receiver"`
	Body              string    `db:"msg" json:"msg"`
	SentAt            time.Time `db:"timestamp" json:"timestamp"`
	IsRead            bool      `db:"is_read" json:"is_read"`
	DeletedBySender   bool      `db:"deleted_by_sender" json:"deleted_by_sender"`
	DeletedByReceiver bool      `db:"deleted_by_receiver" json:"deleted_by_receiver"`
}

// Purgeable reports whether both parties have deleted the message.
func (m Message) Purgeable() bool {
	return m.DeletedBySender && m.DeletedByReceiver
}

type Block struct {
	Blocker string `db:"blocker" json:"blocker"`
	Blocked string `db:"blocked" json:"blocked"`
}

type LastMessage struct {
	Body   string    `db:"msg"`
	SentAt time.Time `db:"timestamp"`
}
