package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chaptershq/chapters/internal/models"
	apperrors "github.com/chaptershq/chapters/pkg/errors"
	"github.com/chaptershq/chapters/pkg/metrics"
)

// ModerationOption customises ModerationService behaviour.
type ModerationOption func(*ModerationService)

// WithModerationClock injects a custom clock.
func WithModerationClock(clock func() time.Time) ModerationOption {
	return func(s *ModerationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// CreateReportInput carries a report submission. Exactly one target must be
// set; the validate tags only bound lengths, the service enforces targeting.
type CreateReportInput struct {
	ThreadID          string `json:"thread_id" validate:"omitempty,uuid"`
	ReportedUserID    string `json:"reported_user_id" validate:"omitempty,uuid"`
	ReportedChapterID string `json:"reported_chapter_id" validate:"omitempty,uuid"`
	Reason            string `json:"reason" validate:"required,max=64"`
	Details           string `json:"details" validate:"max=2000"`
}

// ModerationService handles blocks and reports. Blocking severs the pair: it
// removes follow edges in both directions, declines pending invites, and
// closes any open conversation, all in one transaction.
type ModerationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewModerationService constructs a ModerationService.
func NewModerationService(db *gorm.DB, opts ...ModerationOption) (*ModerationService, error) {
	if db == nil {
		return nil, errors.New("moderation service: db is required")
	}

	service := &ModerationService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Block records a directed block and severs the relationship. Blocking an
// already blocked account is idempotent; the side effects rerun harmlessly.
func (s *ModerationService) Block(ctx context.Context, blockerID, blockedID string) (*models.Block, error) {
	ctx = ensureContext(ctx)

	if blockerID == blockedID {
		return nil, apperrors.NewBadRequest("You cannot block yourself")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", blockedID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("moderation: load account: %w", err)
	}
	if count == 0 {
		return nil, apperrors.ErrNotFound
	}

	block := &models.Block{BlockerID: blockerID, BlockedID: blockedID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
			FirstOrCreate(block).Error; err != nil {
			return fmt.Errorf("moderation: record block: %w", err)
		}

		if err := tx.Where("(follower_id = ? AND followed_id = ?) OR (follower_id = ? AND followed_id = ?)",
			blockerID, blockedID, blockedID, blockerID).
			Delete(&models.Follow{}).Error; err != nil {
			return fmt.Errorf("moderation: remove follows: %w", err)
		}

		respondedAt := s.now().UTC()
		if err := tx.Model(&models.BTLInvite{}).
			Where("status = ? AND ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))",
				models.InviteStatusPending, blockerID, blockedID, blockedID, blockerID).
			Updates(map[string]any{
				"status":       models.InviteStatusDeclined,
				"pending_key":  nil,
				"responded_at": respondedAt,
			}).Error; err != nil {
			return fmt.Errorf("moderation: decline invites: %w", err)
		}

		return s.closeOpenThread(tx, blockerID, blockedID)
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// closeOpenThread closes the pair's open conversation if one exists. The row
// lock keeps a concurrent message send from landing after the close decision.
func (s *ModerationService) closeOpenThread(tx *gorm.DB, blockerID, blockedID string) error {
	var thread models.BTLThread
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&thread, "open_key = ?", models.ThreadPairKey(blockerID, blockedID)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("moderation: lock thread: %w", err)
	}

	closedAt := s.now().UTC()
	if err := tx.Model(&models.BTLThread{}).
		Where("id = ?", thread.ID).
		Updates(map[string]any{
			"status":    models.ThreadStatusClosed,
			"open_key":  nil,
			"closed_at": closedAt,
			"closed_by": blockerID,
		}).Error; err != nil {
		return fmt.Errorf("moderation: close thread: %w", err)
	}
	metrics.OpenThreads.Dec()
	return nil
}

// Unblock removes a directed block. Returns ErrNotFound when no block exists.
func (s *ModerationService) Unblock(ctx context.Context, blockerID, blockedID string) error {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{})
	if res.Error != nil {
		return fmt.Errorf("moderation: unblock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListBlocks returns the accounts blocked by blockerID, newest first.
func (s *ModerationService) ListBlocks(ctx context.Context, blockerID string) ([]models.Block, error) {
	ctx = ensureContext(ctx)

	var blocks []models.Block
	err := s.db.WithContext(ctx).
		Where("blocker_id = ?", blockerID).
		Order("created_at DESC").
		Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("moderation: list blocks: %w", err)
	}
	return blocks, nil
}

// Report files a moderation report. Exactly one target must be supplied.
// Reporting a conversation requires being a participant in it; reports never
// mutate what they target.
func (s *ModerationService) Report(ctx context.Context, reporterID string, input CreateReportInput) (*models.Report, error) {
	ctx = ensureContext(ctx)

	targets := 0
	for _, t := range []string{input.ThreadID, input.ReportedUserID, input.ReportedChapterID} {
		if t != "" {
			targets++
		}
	}
	if targets != 1 {
		return nil, apperrors.NewBadRequest("A report must target exactly one conversation, account, or chapter")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, apperrors.NewBadRequest("A report reason is required")
	}

	report := &models.Report{
		ReporterID: reporterID,
		Reason:     strings.TrimSpace(input.Reason),
		Details:    strings.TrimSpace(input.Details),
		Status:     models.ReportStatusPending,
	}

	switch {
	case input.ThreadID != "":
		var thread models.BTLThread
		if err := s.db.WithContext(ctx).Take(&thread, "id = ?", input.ThreadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrNotFound
			}
			return nil, fmt.Errorf("moderation: load thread: %w", err)
		}
		if !thread.HasParticipant(reporterID) {
			return nil, apperrors.ErrForbidden
		}
		report.ThreadID = &thread.ID

	case input.ReportedUserID != "":
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", input.ReportedUserID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("moderation: load account: %w", err)
		}
		if count == 0 {
			return nil, apperrors.ErrNotFound
		}
		id := input.ReportedUserID
		report.ReportedUserID = &id

	default:
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Chapter{}).Where("id = ?", input.ReportedChapterID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("moderation: load chapter: %w", err)
		}
		if count == 0 {
			return nil, apperrors.ErrNotFound
		}
		id := input.ReportedChapterID
		report.ReportedChapterID = &id
	}

	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, fmt.Errorf("moderation: create report: %w", err)
	}
	return report, nil
}

// ListReports returns the reports filed by an account, newest first.
func (s *ModerationService) ListReports(ctx context.Context, reporterID string) ([]models.Report, error) {
	ctx = ensureContext(ctx)

	var reports []models.Report
	err := s.db.WithContext(ctx).
		Where("reporter_id = ?", reporterID).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("moderation: list reports: %w", err)
	}
	return reports, nil
}

// IsBlockedEitherDirection reports whether either account blocks the other.
func (s *ModerationService) IsBlockedEitherDirection(ctx context.Context, a, b string) (bool, error) {
	ctx = ensureContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("moderation: block check: %w", err)
	}
	return count > 0, nil
}
