package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zarab-collections/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token has been revoked")
)

// RefreshTokenRepository defines the interface for refresh token data access
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

type refreshTokenRepository struct {
	db *sql.DB
}

// NewRefreshTokenRepository creates a new instance of RefreshTokenRepository
func NewRefreshTokenRepository(db *sql.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create inserts a new refresh token into the database using parameterized queries
func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	ctx, span := startSpan(ctx, "refresh_tokens.create")
	defer span.End()

	query := `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		token.ID,
		token.UserID,
		token.Token,
		token.ExpiresAt,
		token.CreatedAt,
		token.Revoked,
	)

	if err != nil {
		return record(span, fmt.Errorf("failed to create refresh token: %w", err))
	}

	return nil
}

func scanRefreshToken(row rowScanner) (*domain.RefreshToken, error) {
	refreshToken := &domain.RefreshToken{}
	err := row.Scan(
		&refreshToken.ID,
		&refreshToken.UserID,
		&refreshToken.Token,
		&refreshToken.ExpiresAt,
		&refreshToken.CreatedAt,
		&refreshToken.Revoked,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}

	if refreshToken.Revoked {
		return nil, ErrRefreshTokenRevoked
	}

	return refreshToken, nil
}

// recordScan marks the span failed for driver errors; missing and revoked
// sessions are expected outcomes
func recordScan(span trace.Span, err error) error {
	if err == nil || errors.Is(err, ErrRefreshTokenNotFound) || errors.Is(err, ErrRefreshTokenRevoked) {
		return err
	}
	return record(span, err)
}

// FindByToken retrieves an active refresh token by its token string
func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	ctx, span := startSpan(ctx, "refresh_tokens.find_by_token")
	defer span.End()

	query := `
		SELECT id, user_id, token, expires_at, created_at, revoked
		FROM refresh_tokens
		WHERE token = $1
	`

	refreshToken, err := scanRefreshToken(r.db.QueryRowContext(ctx, query, token))
	return refreshToken, recordScan(span, err)
}

// FindByID retrieves an active refresh token by its session id
func (r *refreshTokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	ctx, span := startSpan(ctx, "refresh_tokens.find_by_id")
	defer span.End()

	query := `
		SELECT id, user_id, token, expires_at, created_at, revoked
		FROM refresh_tokens
		WHERE id = $1
	`

	refreshToken, err := scanRefreshToken(r.db.QueryRowContext(ctx, query, id))
	return refreshToken, recordScan(span, err)
}

// Revoke marks the session's refresh token as revoked
func (r *refreshTokenRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	ctx, span := startSpan(ctx, "refresh_tokens.revoke")
	defer span.End()

	result, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE id = $1`, id)
	if err != nil {
		return record(span, fmt.Errorf("failed to revoke session: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return record(span, fmt.Errorf("failed to get rows affected: %w", err))
	}

	if rowsAffected == 0 {
		return ErrRefreshTokenNotFound
	}

	return nil
}
