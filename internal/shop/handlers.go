// internal/shop/handlers.go
package shop

import (
	"context"
	"net/http"

	"pixelverk/internal/logger"
	"pixelverk/internal/middleware"
	"pixelverk/internal/product"
)

// Catalog is what the shop pages read from.
type Catalog interface {
	ListByCategory(ctx context.Context, category product.Category) ([]product.Product, error)
	ListAll(ctx context.Context) map[product.Category][]product.Product
	GetByID(ctx context.Context, category product.Category, productID string) (product.Product, bool, error)
}

// Section is one category block on the shop overview.
type Section struct {
	Category product.Category  `json:"category"`
	Label    string            `json:"label"`
	Products []product.Product `json:"products"`
}

type productPage struct {
	Category product.Category `json:"category"`
	Product  product.Product  `json:"product"`
}

type notFoundResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Back    string `json:"back"`
}

type Handler struct {
	catalog Catalog
	cache   *PageCache
}

func NewHandler(catalog Catalog, cache *PageCache) *Handler {
	return &Handler{catalog: catalog, cache: cache}
}

// Register mounts the read API on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/shop", h.ListAllHandler)
	mux.HandleFunc("GET /api/shop/{category}", h.CategoryHandler)
	mux.HandleFunc("GET /api/shop/{category}/{productId}", h.ProductHandler)
}

// ListAllHandler serves every category in display order.
func (h *Handler) ListAllHandler(w http.ResponseWriter, r *http.Request) {
	if page, ok := h.cache.Get(ShopPath()); ok {
		middleware.WriteAPISuccess(w, r, page)
		return
	}

	all := h.catalog.ListAll(r.Context())
	sections := make([]Section, 0, len(all))
	for _, c := range product.Categories() {
		sections = append(sections, Section{Category: c, Label: c.Label(), Products: all[c]})
	}

	h.cache.Put(ShopPath(), sections)
	middleware.WriteAPISuccess(w, r, sections)
}

// CategoryHandler serves one category listing.
func (h *Handler) CategoryHandler(w http.ResponseWriter, r *http.Request) {
	category, ok := product.ParseCategory(r.PathValue("category"))
	if !ok {
		writeNotFound(w, "Category not found")
		return
	}

	path := CategoryPath(category)
	if page, ok := h.cache.Get(path); ok {
		middleware.WriteAPISuccess(w, r, page)
		return
	}

	products, err := h.catalog.ListByCategory(r.Context(), category)
	if err != nil {
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "catalog_unavailable",
			"Could not load products", "")
		return
	}

	section := Section{Category: category, Label: category.Label(), Products: products}
	h.cache.Put(path, section)
	middleware.WriteAPISuccess(w, r, section)
}

// ProductHandler serves a product detail page. Unknown products get a
// not-found body with a link back to the shop rather than an error.
func (h *Handler) ProductHandler(w http.ResponseWriter, r *http.Request) {
	category, ok := product.ParseCategory(r.PathValue("category"))
	if !ok {
		writeNotFound(w, "Product not found")
		return
	}
	productID := r.PathValue("productId")

	path := ProductPath(category, productID)
	if page, ok := h.cache.Get(path); ok {
		middleware.WriteAPISuccess(w, r, page)
		return
	}

	p, found, err := h.catalog.GetByID(r.Context(), category, productID)
	if err != nil {
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "catalog_unavailable",
			"Could not load product", "")
		return
	}
	if !found {
		writeNotFound(w, "Product not found")
		return
	}

	page := productPage{Category: category, Product: p}
	h.cache.Put(path, page)
	middleware.WriteAPISuccess(w, r, page)
}

func writeNotFound(w http.ResponseWriter, message string) {
	middleware.WriteJSON(w, http.StatusNotFound, notFoundResponse{
		Success: false,
		Message: message,
		Back:    ShopPath(),
	})
}
