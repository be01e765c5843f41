package transport

import (
	"net/http"

	"zarab-collections/internal/catalog"
	"zarab-collections/internal/domain"
	"zarab-collections/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var sortLabels = map[catalog.SortKey]string{
	catalog.SortNewest:    "Newest",
	catalog.SortPriceLow:  "Price: Low to High",
	catalog.SortPriceHigh: "Price: High to Low",
	catalog.SortPopular:   "Popularity",
}

// Option is one entry of a sidebar or sort menu
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FiltersResponse lists what the shop sidebar offers
type FiltersResponse struct {
	Categories []Option      `json:"categories"`
	Sizes      []domain.Size `json:"sizes"`
	Sort       []Option      `json:"sort"`
}

// ShopHandler serves the public catalog
type ShopHandler struct {
	source catalog.Source
	logger *zap.Logger
}

// NewShopHandler creates a new ShopHandler
func NewShopHandler(source catalog.Source, logger *zap.Logger) *ShopHandler {
	return &ShopHandler{
		source: source,
		logger: logger,
	}
}

// RegisterRoutes registers the shop routes. limit, when set, guards them.
func (h *ShopHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/api/shop", func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Get("/products", h.ListProducts)
		r.Get("/filters", h.Filters)
	})
}

// ListProducts renders one shop page. Each request gets its own view, so a
// failed fetch falls back to the sample products for that request only.
func (h *ShopHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	key, err := catalog.ParseSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	view := catalog.NewShopView(h.source, h.logger)
	view.SetFilter(r.URL.Query().Get("category"))
	if err := view.SetSort(key); err != nil {
		respondError(w, h.logger, err)
		return
	}

	// The shop view logs and falls back on its own
	_ = view.Load(r.Context())

	middleware.RespondWithJSON(w, http.StatusOK, view.Render())
}

// Filters returns the categories, sizes and sort keys
func (h *ShopHandler) Filters(w http.ResponseWriter, r *http.Request) {
	resp := FiltersResponse{
		Categories: []Option{{Value: catalog.FilterAll, Label: "All Products"}},
		Sizes:      domain.Sizes,
	}
	for _, c := range domain.Categories {
		resp.Categories = append(resp.Categories, Option{Value: c, Label: c})
	}
	for _, k := range catalog.SortKeys {
		resp.Sort = append(resp.Sort, Option{Value: string(k), Label: sortLabels[k]})
	}

	middleware.RespondWithJSON(w, http.StatusOK, resp)
}
