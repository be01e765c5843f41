package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"zarab-collections/internal/domain"
	"zarab-collections/internal/repository"
	"zarab-collections/internal/telemetry"

	"go.uber.org/zap"
)

// FilterAll disables the category filter
const FilterAll = "all"

// MessageEmpty is shown when the projection has no products
const MessageEmpty = "No products found."

var (
	ErrDeleteNotConfirmed = errors.New("delete was not confirmed")
	ErrUnknownSortKey     = errors.New("unknown sort key")
	ErrReadOnly           = errors.New("the shop view cannot delete products")
)

// SortKey orders the rendered products
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortPopular   SortKey = "popular"
)

// SortKeys lists the accepted keys in menu order
var SortKeys = []SortKey{SortNewest, SortPriceLow, SortPriceHigh, SortPopular}

// ParseSortKey maps a query value to a key; empty means newest
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortNewest, nil
	}
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
}

// Variant selects the failure policy of a view
type Variant int

const (
	// Shop falls back to sample products when the backend fails
	Shop Variant = iota
	// Admin shows an empty list and never fabricates data
	Admin
)

func (v Variant) String() string {
	if v == Admin {
		return "admin"
	}
	return "shop"
}

// Source lists the whole catalog
type Source interface {
	ListAll(ctx context.Context) ([]domain.Product, error)
}

// Repository is the catalog access an admin view needs
type Repository interface {
	Source
	Delete(ctx context.Context, id int64) error
}

// Confirmer asks the user before a destructive action
type Confirmer interface {
	Confirm(p domain.Product) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(p domain.Product) bool

func (f ConfirmFunc) Confirm(p domain.Product) bool { return f(p) }

// Page is one render of the view
type Page struct {
	Variant  string           `json:"variant"`
	Loading  bool             `json:"loading"`
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
	Summary  string           `json:"summary,omitempty"`
	Message  string           `json:"message,omitempty"`
	Filter   string           `json:"filter"`
	Sort     SortKey          `json:"sort"`
	Fallback bool             `json:"fallback,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// View holds the fetched collection and its presentation settings.
// Filtering and sorting are recomputed from the full collection on every render.
type View struct {
	mu      sync.Mutex
	repo    Repository
	variant Variant
	logger  *zap.Logger

	products []domain.Product
	inflight int
	gen      uint64
	fallback bool
	err      error
	filter   string
	sort     SortKey
}

// NewShopView creates a public catalog view
func NewShopView(source Source, logger *zap.Logger) *View {
	return newView(readOnly{source}, Shop, logger)
}

// NewAdminView creates the dashboard product list
func NewAdminView(repo Repository, logger *zap.Logger) *View {
	return newView(repo, Admin, logger)
}

func newView(repo Repository, variant Variant, logger *zap.Logger) *View {
	return &View{
		repo:    repo,
		variant: variant,
		logger:  logger.With(zap.String("view", variant.String())),
		filter:  FilterAll,
		sort:    SortNewest,
	}
}

type readOnly struct {
	Source
}

func (readOnly) Delete(context.Context, int64) error { return ErrReadOnly }

// Load re-fetches the whole collection. Only the latest of overlapping loads
// is kept.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	v.inflight++
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	products, err := v.repo.ListAll(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.inflight--

	if gen != v.gen {
		return err
	}

	v.err = err
	v.fallback = false

	if err == nil {
		v.products = products
		return nil
	}

	switch v.variant {
	case Shop:
		v.logger.Warn("Catalog fetch failed, showing sample products", zap.Error(err))
		telemetry.CatalogFallbacks.Inc()
		v.products = SampleProducts()
		v.fallback = true
	default:
		v.logger.Error("Catalog fetch failed", zap.Error(err))
		v.products = []domain.Product{}
	}

	return err
}

// SetFilter selects a category, or FilterAll
func (v *View) SetFilter(category string) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = FilterAll
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = category
}

// SetSort selects the order of the rendered list
func (v *View) SetSort(key SortKey) error {
	if _, err := ParseSortKey(string(key)); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.sort = key
	return nil
}

// Render projects the collection through the current filter and sort
func (v *View) Render() Page {
	v.mu.Lock()
	defer v.mu.Unlock()

	page := Page{
		Variant: v.variant.String(),
		Filter:  v.filter,
		Sort:    v.sort,
	}

	if v.inflight > 0 {
		page.Loading = true
		page.Products = []domain.Product{}
		return page
	}

	page.Products = Project(v.products, v.filter, v.sort)
	page.Total = len(page.Products)
	page.Summary = fmt.Sprintf("Showing 1-%d of %d products", page.Total, page.Total)
	if page.Total == 0 {
		page.Message = MessageEmpty
	}
	page.Fallback = v.fallback
	if v.err != nil {
		page.Error = v.err.Error()
	}

	return page
}

// Project filters and sorts a copy of products. The input is not modified.
func Project(products []domain.Product, filter string, key SortKey) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if filter == "" || strings.EqualFold(filter, FilterAll) || strings.EqualFold(p.Category, filter) {
			out = append(out, p)
		}
	}

	var less func(a, b domain.Product) bool
	switch key {
	case SortPriceLow:
		less = func(a, b domain.Product) bool { return a.Price < b.Price }
	case SortPriceHigh:
		less = func(a, b domain.Product) bool { return a.Price > b.Price }
	case SortPopular:
		less = func(a, b domain.Product) bool { return a.ID > b.ID }
	default:
		less = func(a, b domain.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Find returns the product with id from the fetched collection
func (v *View) Find(id int64) (domain.Product, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, p := range v.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// Delete removes a product after confirm agrees, then re-fetches. A declined
// confirmation issues no backend call.
func (v *View) Delete(ctx context.Context, id int64, confirm Confirmer) error {
	if v.variant != Admin {
		return ErrReadOnly
	}

	product, ok := v.Find(id)
	if !ok {
		return repository.ErrProductNotFound
	}

	if confirm == nil || !confirm.Confirm(product) {
		return ErrDeleteNotConfirmed
	}

	if err := v.repo.Delete(ctx, id); err != nil {
		v.logger.Error("Failed to delete product", zap.Int64("product_id", id), zap.Error(err))
		return err
	}

	v.logger.Info("Product deleted", zap.Int64("product_id", id))

	// A failed re-fetch is reported by the next render
	_ = v.Load(ctx)
	return nil
}
