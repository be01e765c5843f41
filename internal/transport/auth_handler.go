package transport

import (
	"context"
	"errors"
	"net/http"

	"zarab-collections/internal/dashboard"
	"zarab-collections/internal/middleware"
	"zarab-collections/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	SessionID    string      `json:"session_id"`
	User         UserProfile `json:"user"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// UserProfile represents the signed-in user
type UserProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
}

// SessionLookup resolves the session id carried by an access token
type SessionLookup func(ctx context.Context, id uuid.UUID) (dashboard.Session, error)

// AuthSessions adapts the session service to a SessionLookup
func AuthSessions(auth service.AuthService) SessionLookup {
	return func(ctx context.Context, id uuid.UUID) (dashboard.Session, error) {
		session, err := auth.Session(ctx, id)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

// requestSession resolves the caller's session from the token claims
func requestSession(r *http.Request, lookup SessionLookup) (dashboard.Session, error) {
	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return lookup(r.Context(), sessionID)
}

// AuthHandler handles sign in, token refresh and sign out
type AuthHandler struct {
	auth     service.AuthService
	sessions SessionLookup
	registry *dashboard.Registry
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth service.AuthService, registry *dashboard.Registry, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: AuthSessions(auth),
		registry: registry,
		logger:   logger,
	}
}

// RegisterRoutes registers all auth routes. limit, when set, guards login.
func (h *AuthHandler) RegisterRoutes(r chi.Router, authMiddleware, limit func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limit != nil {
				r.Use(limit)
			}
			r.Post("/login", h.Login)
		})
		r.Post("/refresh", h.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
		})
	})
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		respondDecodeError(w, err)
		return
	}

	tokens, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Debug("Login failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		h.logger.Error("Login failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	response := LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		SessionID:    tokens.SessionID.String(),
		User: UserProfile{
			ID:    user.ID.String(),
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
	}

	h.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("session_id", tokens.SessionID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// RefreshToken issues a new access token for the same session
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Refresh token validation failed", zap.Error(err))
		respondDecodeError(w, err)
		return
	}

	newAccessToken, err := h.auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.logger.Debug("Token refresh failed", zap.Error(err))

		switch {
		case errors.Is(err, service.ErrInvalidToken):
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid refresh token")
		case errors.Is(err, service.ErrTokenExpired):
			middleware.RespondWithError(w, http.StatusUnauthorized, "refresh token expired")
		default:
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to refresh token")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RefreshResponse{AccessToken: newAccessToken})
}

// Logout ends the session and closes its dashboard. A session that is
// already gone counts as signed out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := requestSession(r, h.sessions)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrTokenExpired) {
			if id, ok := middleware.GetSessionID(r.Context()); ok {
				h.registry.Close(id.String())
			}
			middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
			return
		}
		respondError(w, h.logger, err)
		return
	}

	if err := h.registry.Logout(r.Context(), session); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("User logged out", zap.String("session_id", session.ID()))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// Me returns the signed-in user of the current session
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, err := requestSession(r, h.sessions)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	user := session.User()
	role, _ := middleware.GetUserRole(r.Context())

	profile := UserProfile{
		ID:        user.ID(),
		Email:     user.Email(),
		Role:      role,
		SessionID: session.ID(),
	}

	if id, err := uuid.Parse(user.ID()); err == nil {
		if u, err := h.auth.GetUserByID(r.Context(), id); err == nil {
			profile.Name = u.Name
		}
	}

	middleware.RespondWithJSON(w, http.StatusOK, profile)
}
