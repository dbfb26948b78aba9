package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// MemRepository keeps all relations in process memory. When created with
// a path, every mutation is written through to a JSON snapshot before it
// becomes visible, so a failed write leaves the previous state in place.
type MemRepository struct {
	mu    sync.RWMutex
	path  string
	state memState
}

type memState struct {
	Users    []User    `json:"users"`
	Messages []Message `json:"messages"`
	Blocks   []Block   `json:"blocks"`
	Seq      int64     `json:"seq"`
}

func (s memState) clone() memState {
	return memState{
		Users:    slices.Clone(s.Users),
		Messages: slices.Clone(s.Messages),
		Blocks:   slices.Clone(s.Blocks),
		Seq:      s.Seq,
	}
}

func NewMemRepository() *MemRepository {
	return &MemRepository{}
}

// NewFileRepository opens the snapshot at path, starting empty if the file
// does not exist yet.
func NewFileRepository(path string) (*MemRepository, error) {
	r := &MemRepository{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.state); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
	}

	return r, nil
}

// commit persists next and installs it as the current state. Callers must
// hold the write lock.
func (r *MemRepository) commit(next memState) error {
	if r.path != "" {
		if err := r.save(next); err != nil {
			return err
		}
	}
	r.state = next
	return nil
}

func (r *MemRepository) save(s memState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	return os.Rename(tmp.Name(), r.path)
}

func (r *MemRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *MemRepository) Close() error {
	return nil
}

func (r *MemRepository) CreateUser(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.state.Users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrDuplicateUser
		}
	}

	next := r.state.clone()
	next.Users = append(next.Users, user)
	return r.commit(next)
}

func (r *MemRepository) GetUserByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.state.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *MemRepository) UserExists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.ContainsFunc(r.state.Users, func(u User) bool {
		return u.Username == username
	}), nil
}

func (r *MemRepository) CreateMessage(_ context.Context, sender, receiver, body string, sentAt time.Time) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// sent_at must follow insertion order even if the clock does not.
	if n := len(r.state.Messages); n > 0 {
		if last := r.state.Messages[n-1].SentAt; !sentAt.After(last) {
			sentAt = last.Add(time.Nanosecond)
		}
	}

	next := r.state.clone()
	next.Seq++
	msg := Message{
		Id:       next.Seq,
		Sender:   sender,
		Receiver: receiver,
		Body:     body,
		SentAt:   sentAt,
	}
	next.Messages = append(next.Messages, msg)

	if err := r.commit(next); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (r *MemRepository) MessagesBetween(_ context.Context, user, other string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.clone()
	changed := false
	for i, m := range next.Messages {
		if m.Sender == other && m.Receiver == user && !m.IsRead {
			next.Messages[i].IsRead = true
			changed = true
		}
	}
	if changed {
		if err := r.commit(next); err != nil {
			return nil, err
		}
	}

	// Messages are kept in insertion order, which is sent_at order.
	thread := make([]Message, 0)
	for _, m := range r.state.Messages {
		switch {
		case m.Sender == user && m.Receiver == other && !m.DeletedBySender:
			thread = append(thread, m)
		case m.Sender == other && m.Receiver == user && !m.DeletedByReceiver:
			thread = append(thread, m)
		}
	}
	return thread, nil
}

func (r *MemRepository) UnreadCount(_ context.Context, user, other string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, m := range r.state.Messages {
		if m.Sender == other && m.Receiver == user && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *MemRepository) Conversations(_ context.Context, user string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	users := make([]string, 0)
	for _, m := range r.state.Messages {
		var other string
		switch user {
		case m.Sender:
			other = m.Receiver
		case m.Receiver:
			other = m.Sender
		default:
			continue
		}
		if _, ok := seen[other]; !ok {
			seen[other] = struct{}{}
			users = append(users, other)
		}
	}

	slices.Sort(users)
	return users, nil
}

func (r *MemRepository) LastMessage(_ context.Context, user, other string) (*LastMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.state.Messages) - 1; i >= 0; i-- {
		m := r.state.Messages[i]
		if (m.Sender == user && m.Receiver == other) || (m.Sender == other && m.Receiver == user) {
			return &LastMessage{Body: m.Body, SentAt: m.SentAt}, nil
		}
	}
	return nil, nil
}

func (r *MemRepository) DeleteConversation(_ context.Context, user, chatWith string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.clone()
	kept := next.Messages[:0]
	for _, m := range next.Messages {
		if m.Sender == user && m.Receiver == chatWith {
			m.DeletedBySender = true
		}
		if m.Sender == chatWith && m.Receiver == user {
			m.DeletedByReceiver = true
		}
		if !m.Purgeable() {
			kept = append(kept, m)
		}
	}
	next.Messages = kept

	return r.commit(next)
}

func (r *MemRepository) CreateBlock(_ context.Context, blocker, blocked string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.clone()
	next.Blocks = append(next.Blocks, Block{Blocker: blocker, Blocked: blocked})
	return r.commit(next)
}

func (r *MemRepository) IsBlocked(_ context.Context, blocker, blocked string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Contains(r.state.Blocks, Block{Blocker: blocker, Blocked: blocked}), nil
}
