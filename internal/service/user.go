package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kwachapay/emi-platform/internal/domain"
	"github.com/kwachapay/emi-platform/internal/models"
	"github.com/kwachapay/emi-platform/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrInvalidRole        = errors.New("invalid user role")
)

// UserService manages accounts and authenticates logins.
type UserService struct {
	store QueryStore
	audit *AuditService
}

func NewUserService(store QueryStore) *UserService {
	return &UserService{store: store, audit: NewAuditService(store)}
}

type CreateUserRequest struct {
	Email          string
	Password       string
	FullName       string
	Role           string
	OrganizationID *uuid.UUID
	DailyLimit     int64 // merchant wallet limit in ngwee; 0 takes the default
	ActorID        uuid.UUID
}

const defaultDailyLimit = 10_000_000 // K100,000.00

// Create registers a user and, for merchants, provisions their wallet in the
// same transaction.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email: %q", req.Email)
	}
	if len(req.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	switch req.Role {
	case domain.RoleMerchant, domain.RoleCashier, domain.RoleFinance, domain.RoleAdmin:
	default:
		return nil, ErrInvalidRole
	}
	if req.Role == domain.RoleMerchant && req.OrganizationID == nil {
		return nil, errors.New("merchants must belong to an organization")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:             uuid.New(),
		Email:          email,
		PasswordHash:   string(hash),
		FullName:       req.FullName,
		Role:           req.Role,
		OrganizationID: req.OrganizationID,
		Active:         true,
	}

	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if err := qtx.CreateUser(ctx, user); err != nil {
			return err
		}
		if req.Role == domain.RoleMerchant {
			limit := req.DailyLimit
			if limit <= 0 {
				limit = defaultDailyLimit
			}
			wallet := &models.Wallet{
				ID:            uuid.New(),
				UserID:        user.ID,
				DailyLimit:    limit,
				LastResetDate: truncateToDay(time.Now()),
			}
			if err := qtx.CreateWallet(ctx, wallet); err != nil {
				return err
			}
		}
		return s.audit.Write(ctx, qtx, "user", user.ID, &req.ActorID, "created", "", user.Role, nil)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks the email/password pair for login.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.Queries().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrUserDisabled
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.Queries().GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, limit, offset int32) ([]models.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Queries().ListUsers(ctx, limit, offset)
}

// SetActive enables or disables a user account.
func (s *UserService) SetActive(ctx context.Context, id uuid.UUID, active bool, actorID uuid.UUID) error {
	return s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		rows, err := qtx.SetUserActive(ctx, repository.SetUserActiveParams{ID: id, Active: active})
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrUserNotFound
		}
		action := "disabled"
		if active {
			action = "enabled"
		}
		return s.audit.Write(ctx, qtx, "user", id, &actorID, action, "", "", nil)
	})
}
