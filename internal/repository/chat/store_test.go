package chat

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kazini/internal/config"
	"kazini/internal/model/chat"
	"kazini/internal/pkg/sqldb"
	"kazini/internal/repository"
)

type storeUnderTest interface {
	CreateConversation(ctx context.Context, userID string) (*chat.Conversation, error)
	FindConversation(ctx context.Context, id int64, userID string) (*chat.Conversation, error)
	TouchConversation(ctx context.Context, id int64, title string, at time.Time) error
	ListConversations(ctx context.Context, userID string, page, pageSize int) ([]*chat.Conversation, int64, error)
	DeleteConversation(ctx context.Context, id int64, userID string) error
	AppendMessage(ctx context.Context, conversationID int64, sender chat.Sender, text string) (*chat.Message, error)
	FindMessage(ctx context.Context, conversationID, messageID int64) (*chat.Message, error)
	ListMessages(ctx context.Context, conversationID int64) ([]*chat.Message, error)
	SetFeedback(ctx context.Context, conversationID, messageID int64, value int) error
	FindAssessment(ctx context.Context, userID string) (*chat.Assessment, error)
	SaveAssessment(ctx context.Context, a *chat.Assessment) error
}

func newSQLiteStore(t *testing.T) storeUnderTest {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sqldb.Open(&config.StoreConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close(db) })

	store := NewSQLStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func newMemoryStore(t *testing.T) storeUnderTest {
	t.Helper()
	return NewMemoryStore()
}

func TestStores(t *testing.T) {
	factories := map[string]func(t *testing.T) storeUnderTest{
		"sqlite": newSQLiteStore,
		"memory": newMemoryStore,
	}
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			runStoreContract(t, factory)
		})
	}
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) storeUnderTest) {
	ctx := context.Background()

	t.Run("create and find owned conversation", func(t *testing.T) {
		store := newStore(t)
		conv, err := store.CreateConversation(ctx, "alice")
		require.NoError(t, err)
		assert.NotZero(t, conv.ID)
		assert.Nil(t, conv.Title)

		found, err := store.FindConversation(ctx, conv.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, conv.ID, found.ID)
		assert.Equal(t, "alice", found.UserID)
	})

	t.Run("foreign owner is not found", func(t *testing.T) {
		store := newStore(t)
		conv, err := store.CreateConversation(ctx, "alice")
		require.NoError(t, err)

		_, err = store.FindConversation(ctx, conv.ID, "mallory")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		err = store.DeleteConversation(ctx, conv.ID, "mallory")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, err = store.FindConversation(ctx, conv.ID, "alice")
		assert.NoError(t, err)
	})

	t.Run("title is only set once", func(t *testing.T) {
		store := newStore(t)
		conv, err := store.CreateConversation(ctx, "alice")
		require.NoError(t, err)

		first := time.Now().Add(time.Minute)
		require.NoError(t, store.TouchConversation(ctx, conv.ID, "First reply", first))
		require.NoError(t, store.TouchConversation(ctx, conv.ID, "Second reply", first.Add(time.Minute)))

		found, err := store.FindConversation(ctx, conv.ID, "alice")
		require.NoError(t, err)
		require.NotNil(t, found.Title)
		assert.Equal(t, "First reply", *found.Title)
		assert.True(t, found.LastActivity.After(first))
	})

	t.Run("touch missing conversation", func(t *testing.T) {
		store := newStore(t)
		err := store.TouchConversation(ctx, 9999, "x", time.Now())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("list conversations by last activity with paging", func(t *testing.T) {
		store := newStore(t)
		base := time.Now()
		ids := make([]int64, 0, 3)
		for i := 0; i < 3; i++ {
			conv, err := store.CreateConversation(ctx, "alice")
			require.NoError(t, err)
			require.NoError(t, store.TouchConversation(ctx, conv.ID, "", base.Add(time.Duration(i)*time.Minute)))
			ids = append(ids, conv.ID)
		}
		_, err := store.CreateConversation(ctx, "bob")
		require.NoError(t, err)

		page1, total, err := store.ListConversations(ctx, "alice", 1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, page1, 2)
		assert.Equal(t, ids[2], page1[0].ID)
		assert.Equal(t, ids[1], page1[1].ID)

		page2, _, err := store.ListConversations(ctx, "alice", 2, 2)
		require.NoError(t, err)
		require.Len(t, page2, 1)
		assert.Equal(t, ids[0], page2[0].ID)

		page3, _, err := store.ListConversations(ctx, "alice", 3, 2)
		require.NoError(t, err)
		assert.Empty(t, page3)

		huge, total, err := store.ListConversations(ctx, "alice", math.MaxInt, 2)
		require.NoError(t, err)
		assert.Empty(t, huge)
		assert.Equal(t, int64(3), total)
	})

	t.Run("messages are ordered by creation", func(t *testing.T) {
		store := newStore(t)
		conv, err := store.CreateConversation(ctx, "alice")
		require.NoError(t, err)

		u, err := store.AppendMessage(ctx, conv.ID, chat.SenderUser, "hello")
		require.NoError(t, err)
		a, err := store.AppendMessage(ctx, conv.ID, chat.SenderAssistant, "hi there")
		require.NoError(t, err)

		msgs, err := store.ListMessages(ctx, conv.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, u.ID, msgs[0].ID)
		assert.Equal(t, chat.SenderUser, msgs[0].Sender)
		assert.Equal(t, a.ID, msgs[1].ID)
		assert.Equal(t, "hi there", msgs[1].Text)
		assert.Nil(t, msgs[1].Feedback)
	})

	t.Run("feedback overwrites and is scoped to conversation", func(t *testing.T) {
		store := newStore(t)
		conv, err := store.CreateConversation(ctx, "alice")
		require.NoError(t, err)
		other, err := store.CreateConversation(ctx, "alice")
		require.NoError(t, err)
		msg, err := store.AppendMessage(ctx, conv.ID, chat.SenderAssistant, "advice")
		require.NoError(t, err)

		require.NoError(t, store.SetFeedback(ctx, conv.ID, msg.ID, 1))
		require.NoError(t, store.SetFeedback(ctx, conv.ID, msg.ID, 0))

		found, err := store.FindMessage(ctx, conv.ID, msg.ID)
		require.NoError(t, err)
		require.NotNil(t, found.Feedback)
		assert.Equal(t, 0, *found.Feedback)

		assert.ErrorIs(t, store.SetFeedback(ctx, other.ID, msg.ID, 1), repository.ErrNotFound)
		_, err = store.FindMessage(ctx, other.ID, msg.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("delete cascades to messages", func(t *testing.T) {
		store := newStore(t)
		conv, err := store.CreateConversation(ctx, "alice")
		require.NoError(t, err)
		_, err = store.AppendMessage(ctx, conv.ID, chat.SenderUser, "hello")
		require.NoError(t, err)

		require.NoError(t, store.DeleteConversation(ctx, conv.ID, "alice"))

		_, err = store.FindConversation(ctx, conv.ID, "alice")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		msgs, err := store.ListMessages(ctx, conv.ID)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("assessment lookup", func(t *testing.T) {
		store := newStore(t)
		_, err := store.FindAssessment(ctx, "alice")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		gpa := 3.6
		require.NoError(t, store.SaveAssessment(ctx, &chat.Assessment{
			UserID: "alice",
			Field:  "Biology",
			GPA:    &gpa,
		}))

		a, err := store.FindAssessment(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "Biology", a.Field)
		require.NotNil(t, a.GPA)
		assert.InDelta(t, 3.6, *a.GPA, 1e-9)
		assert.Nil(t, a.CodingSkills)
	})
}
