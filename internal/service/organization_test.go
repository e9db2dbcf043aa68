package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/domain"
	"github.com/kwachapay/emi-platform/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganizationCreateValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewOrganizationService(store)
	ctx := context.Background()
	actor := uuid.New()

	_, err := svc.Create(ctx, CreateOrganizationRequest{PacraNumber: "P1", ZraTPIN: "T1", ActorID: actor})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateOrganizationRequest{BusinessName: "Chilenje Grocers", ActorID: actor})
	require.Error(t, err)

	org, err := svc.Create(ctx, CreateOrganizationRequest{
		BusinessName: "Chilenje Grocers",
		PacraNumber:  "PACRA-120045",
		ZraTPIN:      "1002003004",
		ActorID:      actor,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KYCStatusPending, org.KYCStatus)
}

func TestKYCReviewPipeline(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewOrganizationService(store)
	ctx := context.Background()

	orgID := createTestOrganization(t, db, domain.KYCStatusPending)
	reviewer := createTestUser(t, db, domain.RoleFinance, nil)

	// pending -> verified skips in_review and is rejected.
	_, err := svc.ReviewKYC(ctx, ReviewKYCRequest{
		OrganizationID: orgID,
		NextStatus:     domain.KYCStatusVerified,
		ReviewerID:     reviewer,
	})
	require.ErrorIs(t, err, ErrInvalidKYCTransition)

	org, err := svc.ReviewKYC(ctx, ReviewKYCRequest{
		OrganizationID: orgID,
		NextStatus:     domain.KYCStatusInReview,
		ReviewerID:     reviewer,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KYCStatusInReview, org.KYCStatus)

	org, err = svc.ReviewKYC(ctx, ReviewKYCRequest{
		OrganizationID: orgID,
		NextStatus:     domain.KYCStatusVerified,
		Notes:          "pacra certificate and tpin confirmed",
		ReviewerID:     reviewer,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KYCStatusVerified, org.KYCStatus)
	require.NotNil(t, org.KYCReviewerID)
	assert.Equal(t, reviewer, *org.KYCReviewerID)

	// Verified is terminal.
	_, err = svc.ReviewKYC(ctx, ReviewKYCRequest{
		OrganizationID: orgID,
		NextStatus:     domain.KYCStatusRejected,
		ReviewerID:     reviewer,
	})
	require.ErrorIs(t, err, ErrInvalidKYCTransition)
}

func TestKYCRejectedCanBeReReviewed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewOrganizationService(store)
	ctx := context.Background()

	orgID := createTestOrganization(t, db, domain.KYCStatusRejected)
	reviewer := createTestUser(t, db, domain.RoleFinance, nil)

	org, err := svc.ReviewKYC(ctx, ReviewKYCRequest{
		OrganizationID: orgID,
		NextStatus:     domain.KYCStatusInReview,
		Notes:          "resubmitted documents received",
		ReviewerID:     reviewer,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KYCStatusInReview, org.KYCStatus)
}

func TestKYCReviewUnknownOrganization(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewOrganizationService(store)

	_, err := svc.ReviewKYC(context.Background(), ReviewKYCRequest{
		OrganizationID: uuid.New(),
		NextStatus:     domain.KYCStatusInReview,
		ReviewerID:     uuid.New(),
	})
	require.ErrorIs(t, err, ErrOrganizationNotFound)
}
