package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"zarab-collections/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/crypto/bcrypt"
)

func newUser(email string) *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	return &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Store Admin",
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Feature: storefront, Property 30: Stored users are found by email and id
func TestProperty_UserRoundTrip(t *testing.T) {
	resetTables(t)
	repo := NewUserRepository(testDB)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("a created user is found by email and by id", prop.ForAll(
		func(local string) bool {
			ctx := context.Background()
			user := newUser(local + "-" + uuid.NewString()[:8] + "@zarab.example")

			if err := repo.Create(ctx, user); err != nil {
				return false
			}

			byEmail, err := repo.FindByEmail(ctx, user.Email)
			if err != nil {
				return false
			}
			byID, err := repo.FindByID(ctx, user.ID)
			if err != nil {
				return false
			}

			return byEmail.ID == user.ID &&
				byID.Email == user.Email &&
				byID.Role == domain.RoleAdmin &&
				bcrypt.CompareHashAndPassword([]byte(byID.PasswordHash), []byte("correct-horse")) == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" && len(s) < 40 }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	resetTables(t)
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("owner@zarab.example")))
	assert.ErrorIs(t, repo.Create(ctx, newUser("owner@zarab.example")), ErrUserAlreadyExists)
}

func TestUserRepository_NotFound(t *testing.T) {
	resetTables(t)
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	_, err := repo.FindByEmail(ctx, "ghost@zarab.example")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefreshTokenRepository_SessionLifecycle(t *testing.T) {
	resetTables(t)
	users := NewUserRepository(testDB)
	tokens := NewRefreshTokenRepository(testDB)
	ctx := context.Background()

	user := newUser("admin@zarab.example")
	require.NoError(t, users.Create(ctx, user))

	session := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now(),
	}
	require.NoError(t, tokens.Create(ctx, session))

	byToken, err := tokens.FindByToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, byToken.ID)

	byID, err := tokens.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byID.UserID)

	require.NoError(t, tokens.Revoke(ctx, session.ID))

	_, err = tokens.FindByID(ctx, session.ID)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
	_, err = tokens.FindByToken(ctx, session.Token)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	assert.ErrorIs(t, tokens.Revoke(ctx, uuid.New()), ErrRefreshTokenNotFound)
	_, err = tokens.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestRefreshTokenRepository_LookupFailures(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("refresh_tokens")

	cases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"not found", ErrRefreshTokenNotFound, codes.Unset},
		{"revoked", ErrRefreshTokenRevoked, codes.Unset},
		{"driver", errors.New("conn reset"), codes.Error},
	}
	for _, tc := range cases {
		_, span := tracer.Start(context.Background(), tc.name)
		assert.ErrorIs(t, recordScan(span, tc.err), tc.err)
		span.End()
	}

	ended := recorder.Ended()
	require.Len(t, ended, len(cases))
	for i, tc := range cases {
		assert.Equal(t, tc.code, ended[i].Status().Code, tc.name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRefreshTokenRepository(testDB).FindByID(ctx, uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to find refresh token")
}
