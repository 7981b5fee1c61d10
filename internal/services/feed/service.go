// Package feed manages the community message feed.
package feed

import (
	"context"
	"strings"

	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/interfaces"
	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

// MaxMessageLength bounds a single feed message.
const MaxMessageLength = 1000

// Service implements FeedService on top of the message store.
// Reading and subscribing are open to everyone; posting requires an
// authenticated user in the request context.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new feed service.
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

func (s *Service) List(ctx context.Context) ([]*models.Message, error) {
	return s.storage.MessageStore().List(ctx)
}

// Post validates and stores a message for the authenticated user. The
// author label is derived from the user's email so readers never see
// raw account identifiers.
func (s *Service) Post(ctx context.Context, text string) (*models.Message, error) {
	uc := common.UserContextFromContext(ctx)
	if uc == nil || uc.UserID == "" {
		return nil, models.ErrAuthRequired
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.Validationf("message text is required")
	}
	if len(text) > MaxMessageLength {
		return nil, models.Validationf("message exceeds %d characters", MaxMessageLength)
	}

	msg, err := s.storage.MessageStore().Create(ctx, &models.Message{
		Text:   text,
		UserID: uc.UserID,
		Author: models.AuthorLabel(uc.Email),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", uc.UserID).
		Str("message_id", msg.ID).
		Msg("Feed message posted")

	return msg, nil
}

func (s *Service) Subscribe(ctx context.Context) (<-chan []*models.Message, func(), error) {
	return s.storage.MessageStore().Subscribe(ctx)
}

// Compile-time check
var _ interfaces.FeedService = (*Service)(nil)
