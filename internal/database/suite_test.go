package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func bodies(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}

// sendAll stores each body from sender to receiver one second apart,
// starting at the offset-th second after baseTime.
func sendAll(t *testing.T, repo Repository, offset int, sender, receiver string, msgs ...string) {
	t.Helper()
	for i, body := range msgs {
		_, err := repo.CreateMessage(context.Background(), sender, receiver, body, baseTime.Add(time.Duration(offset+i)*time.Second))
		require.NoError(t, err, "failed to store message %q", body)
	}
}

// runRepositorySuite exercises the behavior every Repository backend must
// share. newRepo must return an empty store.
func runRepositorySuite(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("duplicate users are rejected", func(t *testing.T) {
		repo := newRepo(t)
		alice := User{Username: "alice", Email: "a@x.com", PasswordHash: "hash1"}
		require.NoError(t, repo.CreateUser(ctx, alice))

		err := repo.CreateUser(ctx, User{Username: "alice", Email: "other@x.com", PasswordHash: "hash2"})
		assert.ErrorIs(t, err, ErrDuplicateUser, "expected duplicate username to fail")

		err = repo.CreateUser(ctx, User{Username: "alice2", Email: "a@x.com", PasswordHash: "hash3"})
		assert.ErrorIs(t, err, ErrDuplicateUser, "expected duplicate email to fail")

		got, err := repo.GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, alice, got, "expected original user to be unchanged")

		exists, err := repo.UserExists(ctx, "alice2")
		require.NoError(t, err)
		assert.False(t, exists, "expected failed registration to leave no user behind")
	})

	t.Run("user lookups", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateUser(ctx, User{Username: "bob", Email: "b@x.com", PasswordHash: "hash"}))

		_, err := repo.GetUserByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, ErrUserNotFound)

		exists, err := repo.UserExists(ctx, "bob")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.UserExists(ctx, "carol")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("reading a thread acknowledges unread messages", func(t *testing.T) {
		repo := newRepo(t)
		sendAll(t, repo, 0, "alice", "bob", "hi")

		users, err := repo.Conversations(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, users)

		count, err := repo.UnreadCount(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		sendAll(t, repo, 1, "alice", "bob", "are you there?")
		count, err = repo.UnreadCount(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, 2, count, "expected unread count to grow by one per message")

		// the sender reading the thread must not acknowledge anything
		_, err = repo.MessagesBetween(ctx, "alice", "bob")
		require.NoError(t, err)
		count, err = repo.UnreadCount(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		msgs, err := repo.MessagesBetween(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"hi", "are you there?"}, bodies(msgs))

		count, err = repo.UnreadCount(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		msgs, err = repo.MessagesBetween(ctx, "bob", "alice")
		require.NoError(t, err)
		for _, m := range msgs {
			assert.True(t, m.IsRead, "expected message %q to be read", m.Body)
		}
	})

	t.Run("thread is ordered by send time in both directions", func(t *testing.T) {
		repo := newRepo(t)
		sendAll(t, repo, 0, "alice", "bob", "one")
		sendAll(t, repo, 1, "bob", "alice", "two")
		sendAll(t, repo, 2, "alice", "bob", "three")
		sendAll(t, repo, 3, "alice", "carol", "elsewhere")

		msgs, err := repo.MessagesBetween(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two", "three"}, bodies(msgs))
		assert.Equal(t, "alice", msgs[0].Sender)
		assert.Equal(t, "bob", msgs[0].Receiver)

		last, err := repo.LastMessage(ctx, "bob", "alice")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, "three", last.Body)

		last, err = repo.LastMessage(ctx, "bob", "carol")
		require.NoError(t, err)
		assert.Nil(t, last, "expected no last message between strangers")
	})

	t.Run("equal timestamps keep insertion order", func(t *testing.T) {
		repo := newRepo(t)
		for _, body := range []string{"first", "second", "third"} {
			_, err := repo.CreateMessage(ctx, "alice", "bob", body, baseTime)
			require.NoError(t, err)
		}

		msgs, err := repo.MessagesBetween(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "third"}, bodies(msgs))

		last, err := repo.LastMessage(ctx, "alice", "bob")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, "third", last.Body)
	})

	t.Run("conversations are distinct counterparties", func(t *testing.T) {
		repo := newRepo(t)
		sendAll(t, repo, 0, "alice", "bob", "a", "b")
		sendAll(t, repo, 2, "bob", "alice", "c")
		sendAll(t, repo, 3, "carol", "alice", "d")
		sendAll(t, repo, 4, "bob", "carol", "e")

		users, err := repo.Conversations(ctx, "alice")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"bob", "carol"}, users)

		users, err = repo.Conversations(ctx, "dave")
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("deleting a conversation hides it from one side only", func(t *testing.T) {
		repo := newRepo(t)
		sendAll(t, repo, 0, "alice", "bob", "hello", "again")
		sendAll(t, repo, 2, "bob", "alice", "reply")

		require.NoError(t, repo.DeleteConversation(ctx, "bob", "alice"))

		msgs, err := repo.MessagesBetween(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Empty(t, msgs, "expected bob's view to be empty")

		msgs, err = repo.MessagesBetween(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"hello", "again", "reply"}, bodies(msgs), "expected alice to still see the thread")

		sendAll(t, repo, 3, "alice", "bob", "still there?")
		msgs, err = repo.MessagesBetween(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"still there?"}, bodies(msgs), "expected new messages to show after a delete")
	})

	t.Run("messages deleted by both sides are purged", func(t *testing.T) {
		repo := newRepo(t)
		sendAll(t, repo, 0, "alice", "bob", "m1", "m2")
		sendAll(t, repo, 2, "alice", "carol", "keep")

		require.NoError(t, repo.DeleteConversation(ctx, "bob", "alice"))

		msgs, err := repo.MessagesBetween(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "m2"}, bodies(msgs))

		require.NoError(t, repo.DeleteConversation(ctx, "alice", "bob"))

		for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
			msgs, err := repo.MessagesBetween(ctx, pair[0], pair[1])
			require.NoError(t, err)
			assert.Empty(t, msgs)

			last, err := repo.LastMessage(ctx, pair[0], pair[1])
			require.NoError(t, err)
			assert.Nil(t, last, "expected purged messages to leave no trace")
		}

		users, err := repo.Conversations(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, users)

		msgs, err = repo.MessagesBetween(ctx, "carol", "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"keep"}, bodies(msgs), "expected other threads to be untouched")
	})

	t.Run("deleting twice from the same side purges nothing", func(t *testing.T) {
		repo := newRepo(t)
		sendAll(t, repo, 0, "alice", "bob", "m1")

		require.NoError(t, repo.DeleteConversation(ctx, "alice", "bob"))
		require.NoError(t, repo.DeleteConversation(ctx, "alice", "bob"))

		msgs, err := repo.MessagesBetween(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"m1"}, bodies(msgs))
	})

	t.Run("blocks are directional", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateBlock(ctx, "bob", "alice"))
		require.NoError(t, repo.CreateBlock(ctx, "bob", "alice"), "expected duplicate blocks to be tolerated")

		blocked, err := repo.IsBlocked(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.True(t, blocked)

		blocked, err = repo.IsBlocked(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.False(t, blocked)
	})
}
