package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/chaptershq/chapters/internal/models"
	"github.com/chaptershq/chapters/pkg/crypto"
	apperrors "github.com/chaptershq/chapters/pkg/errors"
	"github.com/chaptershq/chapters/pkg/metrics"
)

// ErrAccountExists signals a username or email collision on registration.
var ErrAccountExists = &apperrors.AppError{
	Code:       "auth.account_exists",
	Message:    "An account with that username or email already exists",
	StatusCode: http.StatusConflict,
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Username  string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	BookTitle string `json:"book_title" validate:"max=200"`
	Bio       string `json:"bio" validate:"max=2000"`
}

// UserService handles account registration, authentication, and profile reads.
type UserService struct {
	db    *gorm.DB
	quota *QuotaService
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, quota *QuotaService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if quota == nil {
		return nil, errors.New("user service: quota service is required")
	}
	return &UserService{db: db, quota: quota}, nil
}

// Register creates a new account. Usernames and emails are normalised to
// lowercase; collisions surface as ErrAccountExists via the unique indexes.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username:     strings.ToLower(strings.TrimSpace(input.Username)),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		BookTitle:    strings.TrimSpace(input.BookTitle),
		Bio:          strings.TrimSpace(input.Bio),
		OpenPages:    models.MaxOpenPages,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("user service: create: %w", err)
	}
	return user, nil
}

// Authenticate verifies credentials by username or email. The password check
// runs even for unknown accounts so response timing does not reveal whether
// the account exists.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	identifier = strings.ToLower(strings.TrimSpace(identifier))

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			crypto.VerifyPassword("$2a$10$000000000000000000000uGyyJdBemhzXzFCbBvyybUc0Yot2O8l2", password)
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user service: load account: %w", err)
	}

	if !crypto.VerifyPassword(user.PasswordHash, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &user, nil
}

// Get loads an account by ID with a freshly granted Open Pages balance.
func (s *UserService) Get(ctx context.Context, accountID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	if _, err := s.quota.GrantDaily(ctx, accountID); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("user service: load account: %w", err)
	}
	return &user, nil
}
