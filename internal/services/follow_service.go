package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/chaptershq/chapters/internal/models"
	apperrors "github.com/chaptershq/chapters/pkg/errors"
)

// FollowService maintains the directed follow graph.
type FollowService struct {
	db         *gorm.DB
	moderation *ModerationService
}

// NewFollowService constructs a FollowService.
func NewFollowService(db *gorm.DB, moderation *ModerationService) (*FollowService, error) {
	if db == nil {
		return nil, errors.New("follow service: db is required")
	}
	if moderation == nil {
		return nil, errors.New("follow service: moderation service is required")
	}
	return &FollowService{db: db, moderation: moderation}, nil
}

// Follow records a directed follow edge. Following twice is idempotent.
// Following across a block is refused in either direction.
func (s *FollowService) Follow(ctx context.Context, followerID, followedID string) (*models.Follow, error) {
	ctx = ensureContext(ctx)

	if followerID == followedID {
		return nil, apperrors.NewBadRequest("You cannot follow yourself")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", followedID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("follow service: load account: %w", err)
	}
	if count == 0 {
		return nil, apperrors.ErrNotFound
	}

	blocked, err := s.moderation.IsBlockedEitherDirection(ctx, followerID, followedID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperrors.ErrForbidden
	}

	follow := &models.Follow{FollowerID: followerID, FollowedID: followedID}
	if err := s.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		FirstOrCreate(follow).Error; err != nil {
		if isUniqueConstraintError(err) {
			return follow, nil
		}
		return nil, fmt.Errorf("follow service: create: %w", err)
	}
	return follow, nil
}

// Unfollow removes a directed follow edge. Returns ErrNotFound when no edge exists.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followedID string) error {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return fmt.Errorf("follow service: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// IsMutual reports whether both directed edges exist between the pair.
func (s *FollowService) IsMutual(ctx context.Context, a, b string) (bool, error) {
	ctx = ensureContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("(follower_id = ? AND followed_id = ?) OR (follower_id = ? AND followed_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("follow service: mutual check: %w", err)
	}
	return count == 2, nil
}
