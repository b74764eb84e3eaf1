package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/chaptershq/chapters/internal/models"
	apperrors "github.com/chaptershq/chapters/pkg/errors"
)

// Reason codes explaining why two accounts cannot connect. An empty reason
// means eligible.
const (
	ReasonNotMutualFollow     = "not-mutual-follow"
	ReasonInsufficientHistory = "insufficient-history"
	ReasonBlocked             = "blocked"
	ReasonAlreadyOpen         = "already-open"
)

// MinPublishedChapters is the publishing history each side needs before a
// Between the Lines conversation can open.
const MinPublishedChapters = 3

// EligibilityResult is the outcome of an eligibility check.
type EligibilityResult struct {
	Eligible bool   `json:"is_eligible"`
	Reason   string `json:"reason,omitempty"`
}

// EligibilityService evaluates whether two accounts may open a Between the
// Lines conversation. Checks run in a fixed order and the first failure wins,
// so clients always see the most actionable reason.
type EligibilityService struct {
	db *gorm.DB
}

// NewEligibilityService constructs an EligibilityService.
func NewEligibilityService(db *gorm.DB) (*EligibilityService, error) {
	if db == nil {
		return nil, errors.New("eligibility service: db is required")
	}
	return &EligibilityService{db: db}, nil
}

// CanConnect evaluates the pair (viewerID, otherID). The check is advisory;
// invite creation and acceptance re-verify under their own transactions.
func (s *EligibilityService) CanConnect(ctx context.Context, viewerID, otherID string) (EligibilityResult, error) {
	ctx = ensureContext(ctx)

	if viewerID == otherID {
		return EligibilityResult{Reason: ReasonNotMutualFollow}, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", otherID).Count(&count).Error; err != nil {
		return EligibilityResult{}, fmt.Errorf("eligibility: load account: %w", err)
	}
	if count == 0 {
		return EligibilityResult{}, apperrors.ErrNotFound
	}

	mutual, err := s.mutualFollow(ctx, viewerID, otherID)
	if err != nil {
		return EligibilityResult{}, err
	}
	if !mutual {
		return EligibilityResult{Reason: ReasonNotMutualFollow}, nil
	}

	for _, id := range []string{viewerID, otherID} {
		published, err := s.chapterCount(ctx, id)
		if err != nil {
			return EligibilityResult{}, err
		}
		if published < MinPublishedChapters {
			return EligibilityResult{Reason: ReasonInsufficientHistory}, nil
		}
	}

	blocked, err := s.blockedEitherDirection(ctx, viewerID, otherID)
	if err != nil {
		return EligibilityResult{}, err
	}
	if blocked {
		return EligibilityResult{Reason: ReasonBlocked}, nil
	}

	open, err := s.hasOpenThread(ctx, viewerID, otherID)
	if err != nil {
		return EligibilityResult{}, err
	}
	if open {
		return EligibilityResult{Reason: ReasonAlreadyOpen}, nil
	}

	return EligibilityResult{Eligible: true}, nil
}

func (s *EligibilityService) mutualFollow(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("(follower_id = ? AND followed_id = ?) OR (follower_id = ? AND followed_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("eligibility: follow edges: %w", err)
	}
	return count == 2, nil
}

func (s *EligibilityService) chapterCount(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Chapter{}).
		Where("author_id = ?", accountID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("eligibility: chapter count: %w", err)
	}
	return count, nil
}

func (s *EligibilityService) blockedEitherDirection(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("eligibility: block check: %w", err)
	}
	return count > 0, nil
}

func (s *EligibilityService) hasOpenThread(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.BTLThread{}).
		Where("open_key = ?", models.ThreadPairKey(a, b)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("eligibility: open thread check: %w", err)
	}
	return count > 0, nil
}
