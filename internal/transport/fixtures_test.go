package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"zarab-collections/internal/dashboard"
	"zarab-collections/internal/domain"
	"zarab-collections/internal/middleware"
	"zarab-collections/internal/repository"
	"zarab-collections/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret   = "transport-test-secret"
	testEmail    = "admin@zarab.example"
	testPassword = "correct-horse-battery"
)

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[email]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*domain.RefreshToken
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.ID] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.tokens {
		if rt.Token == token {
			if rt.Revoked {
				return nil, repository.ErrRefreshTokenRevoked
			}
			return rt, nil
		}
	}
	return nil, repository.ErrRefreshTokenNotFound
}

func (m *mockRefreshTokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tokens[id]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if rt.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return rt, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tokens[id]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	rt.Revoked = true
	return nil
}

// mockProductRepository is an in-memory catalog table
type mockProductRepository struct {
	mu       sync.Mutex
	products []domain.Product
	nextID   int64
	listErr  error
	writeErr error
	lists    int
	deletes  []int64
	creates  []domain.ProductInput
	updates  map[int64]domain.ProductInput
}

func newProductRepository() *mockProductRepository {
	base := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	return &mockProductRepository{
		nextID:  3,
		updates: make(map[int64]domain.ProductInput),
		products: []domain.Product{
			{ID: 1, Name: "Floral Print Dress", Description: "Summer dress", Price: 4990, Category: "Dresses", ImageURL: "/images/product-1.jpeg", Sizes: []domain.Size{"S", "M"}, CreatedAt: base},
			{ID: 2, Name: "Silk Blouse", Description: "Elegant blouse", Price: 3490, Category: "Tops", ImageURL: "/images/product-1.jpeg", Sizes: []domain.Size{}, CreatedAt: base.Add(time.Hour)},
			{ID: 3, Name: "Wide Leg Trousers", Description: "Comfortable", Price: 3990, Category: "Bottoms", ImageURL: "/images/product-1.jpeg", Sizes: []domain.Size{"L"}, CreatedAt: base.Add(2 * time.Hour)},
		},
	}
}

func (m *mockProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.Product(nil), m.products...), nil
}

func (m *mockProductRepository) Create(ctx context.Context, input domain.ProductInput) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return nil, m.writeErr
	}
	m.nextID++
	m.creates = append(m.creates, input)
	p := domain.Product{
		ID: m.nextID, Name: input.Name, Description: input.Description, Price: input.Price,
		ImageURL: input.ImageURL, ImageData: input.ImageData, Category: input.Category,
		Collection: input.Collection, Sizes: input.Sizes, CreatedAt: time.Now(),
	}
	m.products = append(m.products, p)
	return &p, nil
}

func (m *mockProductRepository) Update(ctx context.Context, id int64, input domain.ProductInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for i := range m.products {
		if m.products[i].ID == id {
			m.updates[id] = input
			m.products[i].Name = input.Name
			m.products[i].Price = input.Price
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.deletes = append(m.deletes, id)
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *mockProductRepository) deleteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deletes)
}

func (m *mockProductRepository) listCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

var errUnreachable = errors.New("connection refused")

// testAPI is the full HTTP surface over in-memory repositories
type testAPI struct {
	router   http.Handler
	auth     service.AuthService
	products *mockProductRepository
	tokens   *mockRefreshTokenRepository
	registry *dashboard.Registry
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	users := &mockUserRepository{users: make(map[string]*domain.User)}
	tokens := &mockRefreshTokenRepository{tokens: make(map[uuid.UUID]*domain.RefreshToken)}
	auth := service.NewAuthService(users, tokens, testSecret, time.Hour, 24*time.Hour)

	_, _, err := auth.EnsureAdmin(context.Background(), testEmail, testPassword, "Store Admin")
	require.NoError(t, err)

	products := newProductRepository()
	logger := zap.NewNop()
	registry := dashboard.NewRegistry(products, logger, time.Hour)
	authMiddleware := middleware.AuthMiddleware(auth, logger)

	r := chi.NewRouter()
	NewShopHandler(products, logger).RegisterRoutes(r, nil)
	NewAuthHandler(auth, registry, logger).RegisterRoutes(r, authMiddleware, nil)
	NewAdminHandler(AuthSessions(auth), registry, logger).RegisterRoutes(r, authMiddleware)

	return &testAPI{router: r, auth: auth, products: products, tokens: tokens, registry: registry}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) login(t *testing.T) LoginResponse {
	t.Helper()

	w := a.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: testEmail, Password: testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[middleware.ErrorResponse](t, w).Error.Message
}
