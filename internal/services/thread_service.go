package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chaptershq/chapters/internal/models"
	apperrors "github.com/chaptershq/chapters/pkg/errors"
	"github.com/chaptershq/chapters/pkg/metrics"
)

// MaxMessageRunes caps message content length, counted in runes.
const MaxMessageRunes = 1000

const (
	defaultMessagePageSize = 50
	maxMessagePageSize     = 200
)

// ThreadOption customises ThreadService behaviour.
type ThreadOption func(*ThreadService)

// WithThreadClock injects a custom clock for close timestamps.
func WithThreadClock(clock func() time.Time) ThreadOption {
	return func(s *ThreadService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// ThreadService manages open conversations: sending messages, reading them
// back in order, and closing. Messages are append-only; sequence numbers are
// assigned under a thread row lock so they are gapless and strictly increasing.
type ThreadService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewThreadService constructs a ThreadService.
func NewThreadService(db *gorm.DB, opts ...ThreadOption) (*ThreadService, error) {
	if db == nil {
		return nil, errors.New("thread service: db is required")
	}

	service := &ThreadService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Get loads a thread after verifying the caller takes part in it.
// Non-participants get ErrForbidden regardless of whether the thread exists.
func (s *ThreadService) Get(ctx context.Context, threadID, actorID string) (*models.BTLThread, error) {
	ctx = ensureContext(ctx)

	var thread models.BTLThread
	if err := s.db.WithContext(ctx).Take(&thread, "id = ?", threadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("thread service: load: %w", err)
	}
	if !thread.HasParticipant(actorID) {
		return nil, apperrors.ErrForbidden
	}
	return &thread, nil
}

// Send appends a message to an open thread. The thread row is locked for the
// duration of the write, so two concurrent sends serialise and receive
// distinct consecutive sequence numbers.
func (s *ThreadService) Send(ctx context.Context, threadID, senderID, content string) (*models.BTLMessage, error) {
	ctx = ensureContext(ctx)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.ErrContentEmpty
	}
	if utf8.RuneCountInString(content) > MaxMessageRunes {
		return nil, apperrors.ErrContentTooLong
	}

	var message models.BTLMessage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var thread models.BTLThread
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&thread, "id = ?", threadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("thread service: lock thread: %w", err)
		}
		if !thread.HasParticipant(senderID) {
			return apperrors.ErrForbidden
		}
		if thread.Status != models.ThreadStatusOpen {
			return apperrors.ErrThreadClosed
		}

		var maxSeq int64
		if err := tx.Model(&models.BTLMessage{}).
			Where("thread_id = ?", threadID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return fmt.Errorf("thread service: sequence: %w", err)
		}

		message = models.BTLMessage{
			ThreadID: threadID,
			SenderID: senderID,
			Content:  content,
			Seq:      maxSeq + 1,
		}
		return tx.Create(&message).Error
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListMessages returns messages in ascending sequence order, starting after
// afterSeq. The page size defaults to 50 and is capped at 200.
func (s *ThreadService) ListMessages(ctx context.Context, threadID, actorID string, afterSeq int64, limit int) ([]models.BTLMessage, error) {
	ctx = ensureContext(ctx)

	if _, err := s.Get(ctx, threadID, actorID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultMessagePageSize
	}
	if limit > maxMessagePageSize {
		limit = maxMessagePageSize
	}

	var messages []models.BTLMessage
	err := s.db.WithContext(ctx).
		Where("thread_id = ? AND seq > ?", threadID, afterSeq).
		Order("seq ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("thread service: list messages: %w", err)
	}
	return messages, nil
}

// Close transitions an open thread to closed. Closing an already closed thread
// is a no-op returning the thread unchanged; existing messages stay readable.
// Clearing the open key is what frees the pair to reconnect later.
func (s *ThreadService) Close(ctx context.Context, threadID, actorID string) (*models.BTLThread, error) {
	ctx = ensureContext(ctx)

	var thread models.BTLThread
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&thread, "id = ?", threadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("thread service: lock thread: %w", err)
		}
		if !thread.HasParticipant(actorID) {
			return apperrors.ErrForbidden
		}
		if thread.Status == models.ThreadStatusClosed {
			return nil
		}

		closedAt := s.now().UTC()
		if err := tx.Model(&models.BTLThread{}).
			Where("id = ?", thread.ID).
			Updates(map[string]any{
				"status":    models.ThreadStatusClosed,
				"open_key":  nil,
				"closed_at": closedAt,
				"closed_by": actorID,
			}).Error; err != nil {
			return fmt.Errorf("thread service: close: %w", err)
		}

		thread.Status = models.ThreadStatusClosed
		thread.OpenKey = nil
		thread.ClosedAt = &closedAt
		thread.ClosedBy = &actorID
		metrics.OpenThreads.Dec()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// ListForUser returns every thread the account takes part in, open first, then
// newest first.
func (s *ThreadService) ListForUser(ctx context.Context, accountID string) ([]models.BTLThread, error) {
	ctx = ensureContext(ctx)

	var threads []models.BTLThread
	err := s.db.WithContext(ctx).
		Where("participant_low_id = ? OR participant_high_id = ?", accountID, accountID).
		Order("status DESC").
		Order("created_at DESC").
		Find(&threads).Error
	if err != nil {
		return nil, fmt.Errorf("thread service: list: %w", err)
	}
	return threads, nil
}
