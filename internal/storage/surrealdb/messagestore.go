package surrealdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/interfaces"
	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

// messageSelectFields lists the fields to select from message, aliasing
// message_id to id for struct mapping.
const messageSelectFields = `message_id as id, text, user_id, author, created_at`

// MessageStore implements interfaces.MessageStore using SurrealDB.
// Messages are append-only; created_at is assigned by the database.
type MessageStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewMessageStore creates a new MessageStore.
func NewMessageStore(db *surrealdb.DB, logger *common.Logger) *MessageStore {
	return &MessageStore{
		db:     db,
		logger: logger,
	}
}

func (s *MessageStore) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg_%s", uuid.New().String()[:8])
	}

	sql := `CREATE type::record('message', $id) SET
		message_id = $message_id, text = $text, user_id = $user_id,
		author = $author, created_at = time::now()`
	vars := map[string]any{
		"id":         msg.ID,
		"message_id": msg.ID,
		"text":       msg.Text,
		"user_id":    msg.UserID,
		"author":     msg.Author,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return s.get(ctx, msg.ID)
}

func (s *MessageStore) get(ctx context.Context, id string) (*models.Message, error) {
	sql := "SELECT " + messageSelectFields + " FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("message", id)}

	results, err := surrealdb.Query[[]models.Message](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("message not found after create")
	}
	return &(*results)[0].Result[0], nil
}

// List returns all messages newest first. The message_id tiebreaker
// keeps ordering deterministic when timestamps collide.
func (s *MessageStore) List(ctx context.Context) ([]*models.Message, error) {
	sql := "SELECT " + messageSelectFields + " FROM message ORDER BY created_at DESC, message_id DESC"

	results, err := surrealdb.Query[[]models.Message](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := []*models.Message{}
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			messages = append(messages, &(*results)[0].Result[i])
		}
	}
	return messages, nil
}

// Subscribe opens a live query on the message table and delivers the
// full newest-first list on every change, starting with the current
// contents. The release function stops the live query; a slow consumer
// skips intermediate snapshots rather than blocking delivery.
func (s *MessageStore) Subscribe(ctx context.Context) (<-chan []*models.Message, func(), error) {
	liveID, err := surrealdb.Live(ctx, s.db, "message", false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start live query: %w", err)
	}

	notifications, err := s.db.LiveNotifications(liveID.String())
	if err != nil {
		_ = surrealdb.Kill(ctx, s.db, liveID.String())
		return nil, nil, fmt.Errorf("failed to open live notifications: %w", err)
	}

	out := make(chan []*models.Message, 1)
	done := make(chan struct{})

	release := func() {
		close(done)
		_ = surrealdb.Kill(context.Background(), s.db, liveID.String())
	}

	deliver := func() {
		list, err := s.List(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to refresh message list for subscriber")
			return
		}
		// Replace a pending snapshot instead of blocking
		select {
		case <-out:
		default:
		}
		select {
		case out <- list:
		default:
		}
	}

	go func() {
		defer close(out)

		// Initial snapshot
		deliver()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case _, ok := <-notifications:
				if !ok {
					return
				}
				deliver()
			}
		}
	}()

	return out, release, nil
}

// Compile-time check
var _ interfaces.MessageStore = (*MessageStore)(nil)
