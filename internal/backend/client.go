package backend

import (
	"context"
	"fmt"

	"zarab-collections/internal/config"
	"zarab-collections/internal/database"
	"zarab-collections/internal/repository"
	"zarab-collections/internal/service"

	"go.uber.org/zap"
)

// Client is the single entry point to the datastore and the session service
type Client struct {
	db       database.Service
	products repository.ProductRepository
	auth     service.AuthService
}

// New builds a client over an opened database
func New(db database.Service, jwt config.JWTConfig) *Client {
	sqlDB := db.DB()
	userRepo := repository.NewUserRepository(sqlDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB)

	return &Client{
		db:       db,
		products: repository.NewProductRepository(sqlDB),
		auth:     service.NewAuthService(userRepo, refreshTokenRepo, jwt.Secret, jwt.AccessTTL(), jwt.RefreshTTL()),
	}
}

// Connect opens the database described by cfg, applies migrations and
// bootstraps the admin account when credentials are configured
func Connect(ctx context.Context, cfg *config.Config, migrationsDir string, logger *zap.Logger) (*Client, error) {
	db, err := database.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	logger.Info("Database connection established")

	if err := database.RunMigrations(db.DB(), migrationsDir, logger); err != nil {
		db.Close()
		return nil, err
	}

	client := New(db, cfg.JWT)

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		user, created, err := client.auth.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
		}
		if created {
			logger.Info("Admin account created", zap.String("email", user.Email))
		}
	} else {
		logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin bootstrap")
	}

	return client, nil
}

// Products returns the catalog repository
func (c *Client) Products() repository.ProductRepository {
	return c.products
}

// Auth returns the session service
func (c *Client) Auth() service.AuthService {
	return c.auth
}

// Health reports the datastore status
func (c *Client) Health(ctx context.Context) map[string]string {
	return c.db.Health(ctx)
}

// Close releases the connection pool
func (c *Client) Close() error {
	return c.db.Close()
}
