package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kwachapay/emi-platform/internal/domain"
	"github.com/kwachapay/emi-platform/internal/models"
	"github.com/kwachapay/emi-platform/internal/repository"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrInvalidKYCTransition = errors.New("invalid kyc status transition")
)

// OrganizationService manages merchant organizations and their KYC review.
type OrganizationService struct {
	store QueryStore
	audit *AuditService
}

func NewOrganizationService(store QueryStore) *OrganizationService {
	return &OrganizationService{store: store, audit: NewAuditService(store)}
}

type CreateOrganizationRequest struct {
	BusinessName string
	PacraNumber  string
	ZraTPIN      string
	ActorID      uuid.UUID
}

// Create registers an organization in kyc pending state. PACRA registration
// number and ZRA TPIN are both required for Zambian businesses.
func (s *OrganizationService) Create(ctx context.Context, req CreateOrganizationRequest) (*models.Organization, error) {
	if req.BusinessName == "" {
		return nil, errors.New("business_name is required")
	}
	if req.PacraNumber == "" || req.ZraTPIN == "" {
		return nil, errors.New("pacra_number and zra_tpin are required")
	}

	org := &models.Organization{
		ID:           uuid.New(),
		BusinessName: req.BusinessName,
		PacraNumber:  req.PacraNumber,
		ZraTPIN:      req.ZraTPIN,
		KYCStatus:    domain.KYCStatusPending,
	}
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if err := qtx.CreateOrganization(ctx, org); err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, "organization", org.ID, &req.ActorID, "created", "", domain.KYCStatusPending, nil)
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

type ReviewKYCRequest struct {
	OrganizationID uuid.UUID
	NextStatus     string
	Notes          string
	ReviewerID     uuid.UUID
}

// ReviewKYC advances the organization through the KYC pipeline under lock so
// concurrent reviews cannot race past each other.
func (s *OrganizationService) ReviewKYC(ctx context.Context, req ReviewKYCRequest) (*models.Organization, error) {
	next := normalizeState(req.NextStatus)
	switch next {
	case domain.KYCStatusInReview, domain.KYCStatusVerified, domain.KYCStatusRejected:
	default:
		return nil, ErrInvalidKYCTransition
	}

	var reviewed *models.Organization
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		org, err := qtx.GetOrganizationForUpdate(ctx, req.OrganizationID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrganizationNotFound
			}
			return fmt.Errorf("lock organization: %w", err)
		}
		if !canTransition(kycTransitions, org.KYCStatus, next) {
			return ErrInvalidKYCTransition
		}

		rows, err := qtx.UpdateOrganizationKYCStatus(ctx, repository.UpdateOrganizationKYCStatusParams{
			ID:          req.OrganizationID,
			KYCStatus:   next,
			ReviewerID:  &req.ReviewerID,
			ReviewNotes: textParam(req.Notes),
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "update organization kyc status"); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, "organization", org.ID, &req.ReviewerID, "kyc_reviewed", org.KYCStatus, next, nil); err != nil {
			return err
		}

		org.KYCStatus = next
		org.KYCReviewerID = &req.ReviewerID
		org.KYCReviewNotes = textParam(req.Notes)
		reviewed = org
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}

func (s *OrganizationService) Get(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	org, err := s.store.Queries().GetOrganization(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return org, nil
}

func (s *OrganizationService) List(ctx context.Context, limit, offset int32) ([]models.Organization, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Queries().ListOrganizations(ctx, limit, offset)
}
