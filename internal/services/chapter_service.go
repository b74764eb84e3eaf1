package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/chaptershq/chapters/internal/models"
	apperrors "github.com/chaptershq/chapters/pkg/errors"
)

// PublishChapterInput carries a chapter submission.
type PublishChapterInput struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"required"`
	Mood  string `json:"mood" validate:"max=64"`
	Theme string `json:"theme" validate:"max=64"`
}

// ChapterService publishes and reads chapters. Publishing spends one Open
// Page; the quota decrement and the chapter insert share a transaction so a
// failed insert refunds the page automatically.
type ChapterService struct {
	db         *gorm.DB
	quota      *QuotaService
	moderation *ModerationService
}

// NewChapterService constructs a ChapterService.
func NewChapterService(db *gorm.DB, quota *QuotaService, moderation *ModerationService) (*ChapterService, error) {
	if db == nil {
		return nil, errors.New("chapter service: db is required")
	}
	if quota == nil {
		return nil, errors.New("chapter service: quota service is required")
	}
	if moderation == nil {
		return nil, errors.New("chapter service: moderation service is required")
	}
	return &ChapterService{db: db, quota: quota, moderation: moderation}, nil
}

// Publish creates a chapter for authorID and returns it together with the
// remaining Open Pages balance. The daily grant is applied first so a stale
// balance never blocks a legitimate publish.
func (s *ChapterService) Publish(ctx context.Context, authorID string, input PublishChapterInput) (*models.Chapter, int, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	body := strings.TrimSpace(input.Body)
	if title == "" || body == "" {
		return nil, 0, apperrors.NewBadRequest("A chapter needs a title and a body")
	}

	if _, err := s.quota.GrantDaily(ctx, authorID); err != nil {
		return nil, 0, err
	}

	chapter := &models.Chapter{
		AuthorID: authorID,
		Title:    title,
		Body:     body,
		Mood:     strings.TrimSpace(input.Mood),
		Theme:    strings.TrimSpace(input.Theme),
	}

	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if balance, err = s.quota.consume(tx, authorID); err != nil {
			return err
		}
		return tx.Create(chapter).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return chapter, balance, nil
}

// Get loads a chapter by ID. Chapters authored by an account the viewer has a
// block relation with are hidden as if they did not exist.
func (s *ChapterService) Get(ctx context.Context, chapterID, viewerID string) (*models.Chapter, error) {
	ctx = ensureContext(ctx)

	var chapter models.Chapter
	if err := s.db.WithContext(ctx).Take(&chapter, "id = ?", chapterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("chapter service: load: %w", err)
	}

	if viewerID != "" && viewerID != chapter.AuthorID {
		blocked, err := s.moderation.IsBlockedEitherDirection(ctx, viewerID, chapter.AuthorID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, apperrors.ErrNotFound
		}
	}
	return &chapter, nil
}

// ListByAuthor returns an author's chapters newest first. The listing is
// hidden entirely when a block exists between viewer and author.
func (s *ChapterService) ListByAuthor(ctx context.Context, authorID, viewerID string) ([]models.Chapter, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", authorID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("chapter service: load author: %w", err)
	}
	if count == 0 {
		return nil, apperrors.ErrNotFound
	}

	if viewerID != "" && viewerID != authorID {
		blocked, err := s.moderation.IsBlockedEitherDirection(ctx, viewerID, authorID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, apperrors.ErrNotFound
		}
	}

	var chapters []models.Chapter
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&chapters).Error
	if err != nil {
		return nil, fmt.Errorf("chapter service: list: %w", err)
	}
	return chapters, nil
}
