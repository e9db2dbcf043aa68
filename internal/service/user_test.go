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

func TestUserCreateAndAuthenticate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewUserService(store)
	ctx := context.Background()
	actor := uuid.New()

	orgID := createTestOrganization(t, db, domain.KYCStatusVerified)

	user, err := svc.Create(ctx, CreateUserRequest{
		Email:          "Mulenga@Example.COM",
		Password:       "correct-horse",
		FullName:       "Mulenga Banda",
		Role:           domain.RoleMerchant,
		OrganizationID: &orgID,
		ActorID:        actor,
	})
	require.NoError(t, err)
	assert.Equal(t, "mulenga@example.com", user.Email, "email is normalized")

	// Merchants get a wallet with the default limit in the same commit.
	wallet, err := repository.New(db).GetWalletByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(defaultDailyLimit), wallet.DailyLimit)
	assert.Equal(t, int64(0), wallet.Balance)

	authed, err := svc.Authenticate(ctx, "mulenga@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = svc.Authenticate(ctx, "mulenga@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.SetActive(ctx, user.ID, false, actor))
	_, err = svc.Authenticate(ctx, "mulenga@example.com", "correct-horse")
	require.ErrorIs(t, err, ErrUserDisabled)
}

func TestUserCreateValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewUserService(store)
	ctx := context.Background()
	actor := uuid.New()
	orgID := createTestOrganization(t, db, domain.KYCStatusVerified)

	cases := []struct {
		name string
		req  CreateUserRequest
	}{
		{"bad_email", CreateUserRequest{Email: "not-an-email", Password: "longenough", Role: domain.RoleCashier, ActorID: actor}},
		{"short_password", CreateUserRequest{Email: "a@b.com", Password: "short", Role: domain.RoleCashier, ActorID: actor}},
		{"bad_role", CreateUserRequest{Email: "a@b.com", Password: "longenough", Role: "superuser", ActorID: actor}},
		{"merchant_without_org", CreateUserRequest{Email: "a@b.com", Password: "longenough", Role: domain.RoleMerchant, ActorID: actor}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			require.Error(t, err)
		})
	}

	// Cashiers do not need an organization or a wallet.
	cashier, err := svc.Create(ctx, CreateUserRequest{
		Email:    "teller@example.com",
		Password: "longenough",
		FullName: "Teller One",
		Role:     domain.RoleCashier,
		ActorID:  actor,
	})
	require.NoError(t, err)
	_, err = repository.New(db).GetWalletByUser(ctx, cashier.ID)
	require.Error(t, err)

	// Custom wallet limit for merchants.
	merchant, err := svc.Create(ctx, CreateUserRequest{
		Email:          "shop@example.com",
		Password:       "longenough",
		Role:           domain.RoleMerchant,
		OrganizationID: &orgID,
		DailyLimit:     5_000_000,
		ActorID:        actor,
	})
	require.NoError(t, err)
	wallet, err := repository.New(db).GetWalletByUser(ctx, merchant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5_000_000), wallet.DailyLimit)
}
