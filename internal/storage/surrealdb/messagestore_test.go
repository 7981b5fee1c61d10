package surrealdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

func TestMessageStoreCreateAssignsTimestamp(t *testing.T) {
	db := testDB(t)
	store := NewMessageStore(db, testLogger())
	ctx := context.Background()

	created, err := store.Create(ctx, &models.Message{
		Text:   "gm everyone",
		UserID: "user1",
		Author: "trader",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "gm everyone", created.Text)
	assert.Equal(t, "trader", created.Author)
	require.NotNil(t, created.CreatedAt)
	assert.WithinDuration(t, time.Now(), *created.CreatedAt, time.Minute)
}

func TestMessageStoreListNewestFirst(t *testing.T) {
	db := testDB(t)
	store := NewMessageStore(db, testLogger())
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		_, err := store.Create(ctx, &models.Message{Text: text, UserID: "u", Author: "a"})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	messages, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "third", messages[0].Text)
	assert.Equal(t, "first", messages[2].Text)
}

func TestMessageStoreListEmpty(t *testing.T) {
	db := testDB(t)
	store := NewMessageStore(db, testLogger())

	messages, err := store.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, messages)
	assert.Empty(t, messages)
}

func TestMessageStoreSubscribeDeliversSnapshots(t *testing.T) {
	db := testDB(t)
	store := NewMessageStore(db, testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := store.Create(ctx, &models.Message{Text: "before", UserID: "u", Author: "a"})
	require.NoError(t, err)

	ch, release, err := store.Subscribe(ctx)
	require.NoError(t, err)
	defer release()

	// Initial snapshot carries existing messages
	select {
	case list := <-ch:
		require.Len(t, list, 1)
		assert.Equal(t, "before", list[0].Text)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	_, err = store.Create(ctx, &models.Message{Text: "after", UserID: "u", Author: "a"})
	require.NoError(t, err)

	// Change notification delivers the full list, newest first
	deadline := time.After(10 * time.Second)
	for {
		select {
		case list := <-ch:
			if len(list) == 2 {
				assert.Equal(t, "after", list[0].Text)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for change snapshot")
		}
	}
}

func TestMessageStoreSubscribeReleaseClosesChannel(t *testing.T) {
	db := testDB(t)
	store := NewMessageStore(db, testLogger())
	ctx := context.Background()

	ch, release, err := store.Subscribe(ctx)
	require.NoError(t, err)

	release()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after release")
		}
	}
}
