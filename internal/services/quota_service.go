package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chaptershq/chapters/internal/models"
	apperrors "github.com/chaptershq/chapters/pkg/errors"
	"github.com/chaptershq/chapters/pkg/metrics"
)

// QuotaOption customises QuotaService behaviour.
type QuotaOption func(*QuotaService)

// WithQuotaClock injects a custom clock, primarily for testing day boundaries.
func WithQuotaClock(clock func() time.Time) QuotaOption {
	return func(s *QuotaService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// QuotaService is the Open Pages ledger. Balances stay within [0, MaxOpenPages];
// one page is granted per elapsed UTC calendar day and one is consumed per
// published chapter.
type QuotaService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewQuotaService constructs a QuotaService.
func NewQuotaService(db *gorm.DB, opts ...QuotaOption) (*QuotaService, error) {
	if db == nil {
		return nil, errors.New("quota service: db is required")
	}

	service := &QuotaService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// GrantDaily credits one Open Page per elapsed UTC day since the last grant,
// capped at MaxOpenPages, and returns the resulting balance. Calling it twice
// on the same day is a no-op on the second call: the grant marker is stored at
// UTC midnight, so the elapsed-day count is zero until the next boundary.
func (s *QuotaService) GrantDaily(ctx context.Context, accountID string) (int, error) {
	ctx = ensureContext(ctx)
	today := startOfDayUTC(s.now())

	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&user, "id = ?", accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("quota service: load account: %w", err)
		}

		balance = user.OpenPages

		var elapsed int
		switch {
		case user.LastGrantAt == nil:
			// Fresh marker; accounts start with a full balance, so only the
			// marker needs recording unless pages were already spent.
			elapsed = 1
		default:
			elapsed = int(today.Sub(startOfDayUTC(*user.LastGrantAt)).Hours() / 24)
		}

		if elapsed <= 0 {
			return nil
		}

		balance = min(models.MaxOpenPages, balance+elapsed)
		return tx.Model(&user).Updates(map[string]any{
			"open_pages":    balance,
			"last_grant_at": today,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Balance returns the current Open Pages balance, lazily applying any pending
// daily grant first so displayed balances are always current.
func (s *QuotaService) Balance(ctx context.Context, accountID string) (int, error) {
	return s.GrantDaily(ctx, accountID)
}

// Consume spends one Open Page and returns the remaining balance. Two
// concurrent calls against a balance of one yield exactly one success: the
// decrement is a guarded UPDATE, so the database serialises the race.
func (s *QuotaService) Consume(ctx context.Context, accountID string) (int, error) {
	ctx = ensureContext(ctx)

	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = s.consume(tx, accountID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// consume runs the guarded decrement inside the caller's transaction. Chapter
// publishing calls this so the quota spend and the chapter insert commit or
// roll back together.
func (s *QuotaService) consume(tx *gorm.DB, accountID string) (int, error) {
	res := tx.Model(&models.User{}).
		Where("id = ? AND open_pages > 0", accountID).
		UpdateColumn("open_pages", gorm.Expr("open_pages - 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("quota service: consume: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
			return 0, fmt.Errorf("quota service: check account: %w", err)
		}
		if count == 0 {
			return 0, apperrors.ErrNotFound
		}
		metrics.QuotaConsumes.WithLabelValues("exhausted").Inc()
		return 0, apperrors.ErrQuotaExhausted
	}

	var user models.User
	if err := tx.Take(&user, "id = ?", accountID).Error; err != nil {
		return 0, fmt.Errorf("quota service: reload account: %w", err)
	}

	metrics.QuotaConsumes.WithLabelValues("success").Inc()
	return user.OpenPages, nil
}

// GrantAll sweeps every account, applying the daily grant. Run by the
// background scheduler; idempotent per UTC day. One failing account does not
// stop the sweep; failures are aggregated into the returned error.
func (s *QuotaService) GrantAll(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)

	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.User{}).Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("quota service: list accounts: %w", err)
	}

	var (
		granted int
		errs    error
	)
	for _, id := range ids {
		before, after, err := s.grantReportingChange(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("account %s: %w", id, err))
			continue
		}
		if after > before {
			granted++
		}
	}
	return granted, errs
}

func (s *QuotaService) grantReportingChange(ctx context.Context, accountID string) (before, after int, err error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("open_pages").Take(&user, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	before = user.OpenPages
	after, err = s.GrantDaily(ctx, accountID)
	return before, after, err
}
