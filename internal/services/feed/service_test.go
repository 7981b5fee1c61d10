package feed

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/interfaces"
	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

// memMessageStore is an in-memory MessageStore for tests.
type memMessageStore struct {
	mu       sync.Mutex
	messages []*models.Message
	subs     []chan []*models.Message
}

func (s *memMessageStore) Create(_ context.Context, msg *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	stored := &models.Message{
		ID:        msg.ID,
		Text:      msg.Text,
		UserID:    msg.UserID,
		Author:    msg.Author,
		CreatedAt: &now,
	}
	if stored.ID == "" {
		stored.ID = "msg_test"
	}
	// Newest first
	s.messages = append([]*models.Message{stored}, s.messages...)
	for _, ch := range s.subs {
		list := make([]*models.Message, len(s.messages))
		copy(list, s.messages)
		select {
		case ch <- list:
		default:
		}
	}
	return stored, nil
}

func (s *memMessageStore) List(context.Context) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*models.Message, len(s.messages))
	copy(list, s.messages)
	return list, nil
}

func (s *memMessageStore) Subscribe(context.Context) (<-chan []*models.Message, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan []*models.Message, 1)
	s.subs = append(s.subs, ch)
	list := make([]*models.Message, len(s.messages))
	copy(list, s.messages)
	ch <- list
	return ch, func() {}, nil
}

type memStorage struct {
	messages *memMessageStore
}

func (s *memStorage) UserStore() interfaces.UserStore           { return nil }
func (s *memStorage) PortfolioStore() interfaces.PortfolioStore { return nil }
func (s *memStorage) MessageStore() interfaces.MessageStore     { return s.messages }
func (s *memStorage) Close() error                              { return nil }

func newTestService() (*Service, *memMessageStore) {
	store := &memMessageStore{}
	svc := NewService(&memStorage{messages: store}, common.NewSilentLogger())
	return svc, store
}

func authedCtx(userID, email string) context.Context {
	return common.WithUserContext(context.Background(), &common.UserContext{
		UserID:   userID,
		Email:    email,
		AuthTime: time.Now(),
	})
}

func TestPostRequiresAuth(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Post(context.Background(), "hello")
	assert.ErrorIs(t, err, models.ErrAuthRequired)
}

func TestPostRejectsEmptyText(t *testing.T) {
	svc, _ := newTestService()
	ctx := authedCtx("user1", "trader@example.com")

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := svc.Post(ctx, text)
		assert.ErrorIs(t, err, models.ErrValidation)
	}
}

func TestPostRejectsOversizedText(t *testing.T) {
	svc, _ := newTestService()
	ctx := authedCtx("user1", "trader@example.com")

	_, err := svc.Post(ctx, strings.Repeat("x", MaxMessageLength+1))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestPostTrimsAndStores(t *testing.T) {
	svc, store := newTestService()
	ctx := authedCtx("user1", "trader@example.com")

	msg, err := svc.Post(ctx, "  gm everyone  ")
	require.NoError(t, err)
	assert.Equal(t, "gm everyone", msg.Text)
	assert.Equal(t, "user1", msg.UserID)
	assert.Equal(t, "trader", msg.Author)
	assert.NotNil(t, msg.CreatedAt)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostAnonymousAuthorLabel(t *testing.T) {
	svc, _ := newTestService()
	ctx := authedCtx("user1", "")

	msg, err := svc.Post(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", msg.Author)
}

func TestListNewestFirst(t *testing.T) {
	svc, _ := newTestService()
	ctx := authedCtx("user1", "trader@example.com")

	_, err := svc.Post(ctx, "first")
	require.NoError(t, err)
	_, err = svc.Post(ctx, "second")
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Text)
}

func TestSubscribeDeliversFullList(t *testing.T) {
	svc, _ := newTestService()
	ctx := authedCtx("user1", "trader@example.com")

	ch, release, err := svc.Subscribe(ctx)
	require.NoError(t, err)
	defer release()

	// Initial snapshot
	list := <-ch
	assert.Empty(t, list)

	_, err = svc.Post(ctx, "hello")
	require.NoError(t, err)

	select {
	case list = <-ch:
		require.Len(t, list, 1)
		assert.Equal(t, "hello", list[0].Text)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for feed snapshot")
	}
}
