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

// MaxDailyInvites caps how many invites an account may send per UTC day.
const MaxDailyInvites = 3

// InviteOption customises BTLInviteService behaviour.
type InviteOption func(*BTLInviteService)

// WithInviteClock injects a custom clock for daily-cap windows.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *BTLInviteService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// CreateInviteInput carries the caller-supplied invite fields.
type CreateInviteInput struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid"`
	Note        string `json:"note" validate:"max=500"`
	QuotedLine  string `json:"quoted_line" validate:"max=500"`
}

// BTLInviteService manages the invite lifecycle: create, accept, decline.
// Every invite resolves exactly once; acceptance opens the conversation in the
// same transaction so no accepted invite is ever left without a thread.
type BTLInviteService struct {
	db          *gorm.DB
	eligibility *EligibilityService
	now         func() time.Time
}

// NewBTLInviteService constructs a BTLInviteService.
func NewBTLInviteService(db *gorm.DB, eligibility *EligibilityService, opts ...InviteOption) (*BTLInviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}
	if eligibility == nil {
		return nil, errors.New("invite service: eligibility service is required")
	}

	service := &BTLInviteService{db: db, eligibility: eligibility, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Create sends an invite from senderID. The eligibility check, daily cap, and
// duplicate-pending guard all run before the insert; the pending-key unique
// index catches the race two concurrent creates would otherwise win together.
func (s *BTLInviteService) Create(ctx context.Context, senderID string, input CreateInviteInput) (*models.BTLInvite, error) {
	ctx = ensureContext(ctx)

	note := strings.TrimSpace(input.Note)
	quoted := strings.TrimSpace(input.QuotedLine)
	if note == "" && quoted == "" {
		return nil, apperrors.NewBadRequest("An invite needs a note or a quoted line")
	}
	if input.RecipientID == senderID {
		return nil, apperrors.NewBadRequest("You cannot invite yourself")
	}

	result, err := s.eligibility.CanConnect(ctx, senderID, input.RecipientID)
	if err != nil {
		return nil, err
	}
	if !result.Eligible {
		metrics.InviteDecisions.WithLabelValues("rejected").Inc()
		return nil, notEligibleError(result.Reason)
	}

	sentToday, err := s.countSentSince(ctx, senderID, startOfDayUTC(s.now()))
	if err != nil {
		return nil, err
	}
	if sentToday >= MaxDailyInvites {
		metrics.InviteDecisions.WithLabelValues("capped").Inc()
		return nil, apperrors.ErrInviteCapReached
	}

	pendingKey := models.PendingPairKey(senderID, input.RecipientID)
	invite := &models.BTLInvite{
		SenderID:    senderID,
		RecipientID: input.RecipientID,
		Note:        note,
		QuotedLine:  quoted,
		Status:      models.InviteStatusPending,
		PendingKey:  &pendingKey,
	}

	if err := s.db.WithContext(ctx).Create(invite).Error; err != nil {
		if isUniqueConstraintError(err) {
			metrics.InviteDecisions.WithLabelValues("duplicate").Inc()
			return nil, apperrors.ErrInvitePending
		}
		return nil, fmt.Errorf("invite service: create: %w", err)
	}

	metrics.InviteDecisions.WithLabelValues("created").Inc()
	return invite, nil
}

// Accept resolves a pending invite and opens the conversation. Only the
// recipient may accept. The status flip is a guarded UPDATE, so concurrent
// accept and decline calls resolve the invite exactly once.
func (s *BTLInviteService) Accept(ctx context.Context, inviteID, actorID string) (*models.BTLInvite, *models.BTLThread, error) {
	ctx = ensureContext(ctx)

	var (
		invite models.BTLInvite
		thread models.BTLThread
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&invite, "id = ?", inviteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("invite service: load invite: %w", err)
		}
		if invite.RecipientID != actorID {
			return apperrors.ErrForbidden
		}

		if err := s.resolve(tx, &invite, models.InviteStatusAccepted); err != nil {
			return err
		}

		low, high := models.OrderPair(invite.SenderID, invite.RecipientID)
		pairKey := models.ThreadPairKey(low, high)
		openKey := pairKey
		thread = models.BTLThread{
			ParticipantLowID:  low,
			ParticipantHighID: high,
			PairKey:           pairKey,
			OpenKey:           &openKey,
			Status:            models.ThreadStatusOpen,
		}
		if err := tx.Create(&thread).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.ErrNotEligible.WithMessage("A conversation between these accounts is already open")
			}
			return fmt.Errorf("invite service: open thread: %w", err)
		}

		invite.ThreadID = &thread.ID
		return tx.Model(&models.BTLInvite{}).
			Where("id = ?", invite.ID).
			Update("thread_id", thread.ID).Error
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.InviteDecisions.WithLabelValues("accepted").Inc()
	metrics.OpenThreads.Inc()
	return &invite, &thread, nil
}

// Decline resolves a pending invite without opening a conversation. Only the
// recipient may decline.
func (s *BTLInviteService) Decline(ctx context.Context, inviteID, actorID string) (*models.BTLInvite, error) {
	ctx = ensureContext(ctx)

	var invite models.BTLInvite
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&invite, "id = ?", inviteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("invite service: load invite: %w", err)
		}
		if invite.RecipientID != actorID {
			return apperrors.ErrForbidden
		}
		return s.resolve(tx, &invite, models.InviteStatusDeclined)
	})
	if err != nil {
		return nil, err
	}

	metrics.InviteDecisions.WithLabelValues("declined").Inc()
	return &invite, nil
}

// resolve flips a pending invite to its terminal status. The WHERE clause on
// the current status makes the transition linearizable; zero rows affected
// means another request resolved the invite first.
func (s *BTLInviteService) resolve(tx *gorm.DB, invite *models.BTLInvite, status string) error {
	respondedAt := s.now().UTC()
	res := tx.Model(&models.BTLInvite{}).
		Where("id = ? AND status = ?", invite.ID, models.InviteStatusPending).
		Updates(map[string]any{
			"status":       status,
			"pending_key":  nil,
			"responded_at": respondedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("invite service: resolve: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrInviteResolved
	}

	invite.Status = status
	invite.PendingKey = nil
	invite.RespondedAt = &respondedAt
	return nil
}

// ListForUser returns the invites an account sent or received, newest first.
// Pass a status to filter; the empty string returns everything.
func (s *BTLInviteService) ListForUser(ctx context.Context, accountID, status string) ([]models.BTLInvite, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", accountID, accountID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var invites []models.BTLInvite
	if err := query.Order("created_at DESC").Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("invite service: list: %w", err)
	}
	return invites, nil
}

func (s *BTLInviteService) countSentSince(ctx context.Context, senderID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.BTLInvite{}).
		Where("sender_id = ? AND created_at >= ?", senderID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("invite service: daily count: %w", err)
	}
	return count, nil
}

func notEligibleError(reason string) *apperrors.AppError {
	switch reason {
	case ReasonNotMutualFollow:
		return apperrors.ErrNotEligible.WithMessage("Between the Lines requires a mutual follow")
	case ReasonInsufficientHistory:
		return apperrors.ErrNotEligible.WithMessage("Both accounts need at least 3 published chapters")
	case ReasonBlocked:
		return apperrors.ErrNotEligible.WithMessage("Between the Lines is not available with this account")
	case ReasonAlreadyOpen:
		return apperrors.ErrNotEligible.WithMessage("A conversation between these accounts is already open")
	default:
		return apperrors.ErrNotEligible
	}
}
