package types

import (
	"time"
)

type User struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type Message struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Msg    string    `json:"msg"`
	Time   time.Time `json:"time"`
	IsRead bool      `json:"is_read"`
}

type LastMessage struct {
	Msg  string    `json:"msg"`
	Time time.Time `json:"time"`
}

type Conversation struct {
	User   string       `json:"user"`
	Unread int          `json:"unread"`
	Last   *LastMessage `json:"last"`
}

type UserExists struct {
	Exists bool `json:"exists"`
}
