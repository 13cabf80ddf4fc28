package shop

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelverk/internal/product"
)

type fakeCatalog struct {
	products map[product.Category][]product.Product
	err      error
	calls    int
}

func (f *fakeCatalog) ListByCategory(ctx context.Context, c product.Category) ([]product.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]product.Product{}, f.products[c]...), nil
}

func (f *fakeCatalog) ListAll(ctx context.Context) map[product.Category][]product.Product {
	f.calls++
	all := make(map[product.Category][]product.Product)
	for _, c := range product.Categories() {
		all[c] = append([]product.Product{}, f.products[c]...)
	}
	return all
}

func (f *fakeCatalog) GetByID(ctx context.Context, c product.Category, id string) (product.Product, bool, error) {
	f.calls++
	if f.err != nil {
		return product.Product{}, false, f.err
	}
	for _, p := range f.products[c] {
		if p.ID == id {
			return p, true, nil
		}
	}
	return product.Product{}, false, nil
}

func newTestMux(cat *fakeCatalog) (*http.ServeMux, *PageCache) {
	cache := NewPageCache()
	mux := http.NewServeMux()
	NewHandler(cat, cache).Register(mux)
	return mux, cache
}

func get(mux http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func moss() product.Product {
	return product.Product{ID: "moss-ring", Name: "Moss Ring", Price: "250 kr", Image: product.PlaceholderImage, Images: []string{}, Stock: 2}
}

func TestListAllSectionsInOrder(t *testing.T) {
	cat := &fakeCatalog{products: map[product.Category][]product.Product{product.Resin: {moss()}}}
	mux, _ := newTestMux(cat)

	rec := get(mux, "/api/shop")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool      `json:"success"`
		Data    []Section `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 3)
	assert.Equal(t, product.PixelParla, body.Data[0].Category)
	assert.Equal(t, "Resin & Natur", body.Data[1].Label)
	assert.Len(t, body.Data[1].Products, 1)
	assert.NotNil(t, body.Data[2].Products)
}

func TestCategoryAndProductPages(t *testing.T) {
	cat := &fakeCatalog{products: map[product.Category][]product.Product{product.Resin: {moss()}}}
	mux, _ := newTestMux(cat)

	rec := get(mux, "/api/shop/resin")
	require.Equal(t, http.StatusOK, rec.Code)
	var section struct {
		Data Section `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &section))
	assert.Equal(t, "moss-ring", section.Data.Products[0].ID)

	rec = get(mux, "/api/shop/resin/moss-ring")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data productPage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "Moss Ring", page.Data.Product.Name)
	assert.Equal(t, product.Resin, page.Data.Category)
}

func TestNotFoundPages(t *testing.T) {
	mux, _ := newTestMux(&fakeCatalog{})

	for _, path := range []string{"/api/shop/jewelry", "/api/shop/resin/missing", "/api/shop/jewelry/moss-ring"} {
		rec := get(mux, path)
		require.Equal(t, http.StatusNotFound, rec.Code, path)

		var body notFoundResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, "/shop", body.Back)
	}
}

func TestCatalogFailureIs500(t *testing.T) {
	mux, _ := newTestMux(&fakeCatalog{err: errors.New("disk gone")})

	assert.Equal(t, http.StatusInternalServerError, get(mux, "/api/shop/resin").Code)
	assert.Equal(t, http.StatusInternalServerError, get(mux, "/api/shop/resin/moss-ring").Code)
}

func TestPagesServedFromCacheUntilInvalidated(t *testing.T) {
	cat := &fakeCatalog{products: map[product.Category][]product.Product{product.Resin: {moss()}}}
	mux, cache := newTestMux(cat)

	get(mux, "/api/shop/resin")
	get(mux, "/api/shop/resin")
	assert.Equal(t, 1, cat.calls)

	cat.products[product.Resin] = append(cat.products[product.Resin], product.Product{ID: "leaf", Name: "Leaf"})
	cache.Invalidate(CategoryPath(product.Resin))

	rec := get(mux, "/api/shop/resin")
	assert.Equal(t, 2, cat.calls)
	var section struct {
		Data Section `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &section))
	assert.Len(t, section.Data.Products, 2)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/shop", ShopPath())
	assert.Equal(t, "/shop/junior", CategoryPath(product.Junior))
	assert.Equal(t, "/shop/junior/star", ProductPath(product.Junior, "star"))
}
