package transport

import (
	"net/http"
	"testing"

	"zarab-collections/internal/catalog"
	"zarab-collections/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productIDs(products []domain.Product) []int64 {
	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}

func TestShop_ListProductsNewestFirst(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, "GET", "/api/shop/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[catalog.Page](t, w)
	assert.Equal(t, []int64{3, 2, 1}, productIDs(page.Products))
	assert.Equal(t, "Showing 1-3 of 3 products", page.Summary)
	assert.False(t, page.Fallback)
}

func TestShop_FilterAndSort(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		query string
		ids   []int64
	}{
		{"?category=dresses", []int64{1}},
		{"?category=all&sort=price-low", []int64{2, 3, 1}},
		{"?sort=price-high", []int64{1, 3, 2}},
		{"?sort=popular", []int64{3, 2, 1}},
		{"?category=Outerwear", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := api.do(t, "GET", "/api/shop/products"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.ids, productIDs(decode[catalog.Page](t, w).Products))
		})
	}
}

func TestShop_EmptyCategoryShowsMessage(t *testing.T) {
	api := newTestAPI(t)

	page := decode[catalog.Page](t, api.do(t, "GET", "/api/shop/products?category=Outerwear", "", nil))
	assert.Equal(t, catalog.MessageEmpty, page.Message)
	assert.Equal(t, 0, page.Total)
}

func TestShop_FallsBackToSamplesOnBackendFailure(t *testing.T) {
	api := newTestAPI(t)
	api.products.listErr = domain.NewBackendError("list products", errUnreachable)

	w := api.do(t, "GET", "/api/shop/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	page := decode[catalog.Page](t, w)
	assert.True(t, page.Fallback)
	assert.Equal(t, []int64{4, 3, 2, 1}, productIDs(page.Products))
}

func TestShop_UnknownSortRejected(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, "GET", "/api/shop/products?sort=cheapest", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, api.products.listCount())
}

func TestShop_Filters(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, "GET", "/api/shop/filters", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	filters := decode[FiltersResponse](t, w)
	require.NotEmpty(t, filters.Categories)
	assert.Equal(t, Option{Value: "all", Label: "All Products"}, filters.Categories[0])
	assert.Len(t, filters.Categories, len(domain.Categories)+1)
	assert.Equal(t, domain.Sizes, filters.Sizes)
	require.Len(t, filters.Sort, 4)
	assert.Equal(t, Option{Value: "price-low", Label: "Price: Low to High"}, filters.Sort[1])
}

// Feature: storefront, Property 19: Shop responses are never empty when the backend fails
func TestProperty_ShopNeverEmptyOnFailure(t *testing.T) {
	properties := gopter.NewProperties(nil)
	api := newTestAPI(t)
	api.products.listErr = errUnreachable

	properties.Property("an unfiltered shop page always lists the samples", prop.ForAll(
		func(idx int) bool {
			key := catalog.SortKeys[idx]
			w := api.do(t, "GET", "/api/shop/products?sort="+string(key), "", nil)
			if w.Code != http.StatusOK {
				return false
			}
			page := decode[catalog.Page](t, w)
			return page.Fallback && page.Total == 4
		},
		gen.IntRange(0, len(catalog.SortKeys)-1),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
