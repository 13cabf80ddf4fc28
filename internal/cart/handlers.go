// internal/cart/handlers.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pixelverk/internal/logger"
	"pixelverk/internal/middleware"
	"pixelverk/internal/product"
)

// CookieName holds the visitor id that keys a cart.
const CookieName = "cart_id"

const cookieMaxAge = 60 * 60 * 24 * 30 // 30 days

// ProductLookup resolves the live product behind a cart line.
type ProductLookup interface {
	GetByID(ctx context.Context, category product.Category, productID string) (product.Product, bool, error)
}

// View is the cart as returned to the browser.
type View struct {
	Items      []Item `json:"items"`
	TotalItems int    `json:"totalItems"`
	TotalPrice int64  `json:"totalPrice"`
}

// Order is returned when checkout completes.
type Order struct {
	OrderNumber string `json:"orderNumber"`
	Items       []Item `json:"items"`
	TotalItems  int    `json:"totalItems"`
	TotalPrice  int64  `json:"totalPrice"`
}

type addRequest struct {
	ID       string `json:"id"`
	Category string `json:"category"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// OrderNotifier is told about every completed order.
type OrderNotifier interface {
	NotifyOrder(ctx context.Context, order Order, placedAt time.Time) error
}

type Handler struct {
	store    Store
	products ProductLookup
	notifier OrderNotifier
	now      func() time.Time
}

type Option func(*Handler)

// WithOrderNotifier sends completed orders to n. A failed notification is
// logged; the order still completes.
func WithOrderNotifier(n OrderNotifier) Option {
	return func(h *Handler) { h.notifier = n }
}

func NewHandler(store Store, products ProductLookup, opts ...Option) *Handler {
	h := &Handler{store: store, products: products, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the cart API on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart", h.GetCartHandler)
	mux.HandleFunc("DELETE /api/cart", h.ClearHandler)
	mux.HandleFunc("POST /api/cart/items", h.AddItemHandler)
	mux.HandleFunc("PUT /api/cart/items/{category}/{productId}", h.SetQuantityHandler)
	mux.HandleFunc("DELETE /api/cart/items/{category}/{productId}", h.RemoveItemHandler)
	mux.HandleFunc("POST /api/checkout", h.CheckoutHandler)
}

func view(c *Cart) View {
	return View{Items: c.Items(), TotalItems: c.TotalItems(), TotalPrice: c.TotalPrice()}
}

// visitorKey returns the cart key for the request, issuing a new visitor
// cookie when the request has none or a forged one.
func visitorKey(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return Key(id.String())
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return Key(id)
}

// load reads the visitor's cart. A missing or unreadable record is an empty cart.
func (h *Handler) load(ctx context.Context, key string) (*Cart, error) {
	data, err := h.store.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return &Cart{}, nil
	}
	if err != nil {
		return nil, err
	}
	return Decode(data), nil
}

func (h *Handler) save(ctx context.Context, key string, c *Cart) error {
	data, err := c.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	return h.store.Save(ctx, key, data)
}

func (h *Handler) storageError(w http.ResponseWriter, r *http.Request, err error) {
	logger.LogHTTPError(r, http.StatusInternalServerError, err)
	middleware.WriteAPIError(w, r, http.StatusInternalServerError, "cart_unavailable",
		"The cart could not be updated. Please try again.", "")
}

// update loads the cart, applies fn and saves the result.
func (h *Handler) update(w http.ResponseWriter, r *http.Request, fn func(*Cart)) {
	key := visitorKey(w, r)
	c, err := h.load(r.Context(), key)
	if err != nil {
		h.storageError(w, r, err)
		return
	}

	fn(c)

	if err := h.save(r.Context(), key, c); err != nil {
		h.storageError(w, r, err)
		return
	}
	middleware.WriteAPISuccess(w, r, view(c))
}

// lookup finds the live product for a cart request, writing the error
// response itself when it cannot.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, rawCategory, productID string) (product.Category, product.Product, bool) {
	category, ok := product.ParseCategory(rawCategory)
	if !ok || !product.ValidID(productID) {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_item", "Unknown category or product", "")
		return "", product.Product{}, false
	}

	p, found, err := h.products.GetByID(r.Context(), category, productID)
	if err != nil {
		logger.LogHTTPError(r, http.StatusInternalServerError, err)
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "catalog_unavailable",
			"Could not load product", "")
		return "", product.Product{}, false
	}
	if !found {
		middleware.WriteAPIError(w, r, http.StatusNotFound, "product_not_found", "Product not found", "")
		return "", product.Product{}, false
	}
	return category, p, true
}

// GetCartHandler returns the visitor's cart and totals.
func (h *Handler) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.load(r.Context(), visitorKey(w, r))
	if err != nil {
		h.storageError(w, r, err)
		return
	}
	middleware.WriteAPISuccess(w, r, view(c))
}

// AddItemHandler adds one unit, capped at the product's current stock.
func (h *Handler) AddItemHandler(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := middleware.ParseJSONRequest(r, &req); err != nil {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_request", "Invalid request body", err.Error())
		return
	}

	category, p, ok := h.lookup(w, r, req.Category, req.ID)
	if !ok {
		return
	}

	// p.ID is the stored folder name, never the raw request value
	item := Item{
		ID:       p.ID,
		Category: string(category),
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.Image,
	}
	h.update(w, r, func(c *Cart) { c.AddWithin(item, p.Stock) })
}

// SetQuantityHandler sets a line's quantity, capped at current stock.
func (h *Handler) SetQuantityHandler(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := middleware.ParseJSONRequest(r, &req); err != nil {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "invalid_request", "Invalid request body", err.Error())
		return
	}

	category, p, ok := h.lookup(w, r, r.PathValue("category"), r.PathValue("productId"))
	if !ok {
		return
	}
	h.update(w, r, func(c *Cart) { c.SetQuantityWithin(p.ID, string(category), req.Quantity, p.Stock) })
}

// RemoveItemHandler drops a line. Removing something not in the cart is fine.
func (h *Handler) RemoveItemHandler(w http.ResponseWriter, r *http.Request) {
	category, productID := r.PathValue("category"), r.PathValue("productId")
	h.update(w, r, func(c *Cart) { c.Remove(productID, category) })
}

// ClearHandler empties the cart by dropping its record.
func (h *Handler) ClearHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), visitorKey(w, r)); err != nil {
		h.storageError(w, r, err)
		return
	}
	middleware.WriteAPISuccess(w, r, view(&Cart{}))
}

// CheckoutHandler completes an order: it issues an order number and
// empties the cart. No payment is taken.
func (h *Handler) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	key := visitorKey(w, r)
	c, err := h.load(r.Context(), key)
	if err != nil {
		h.storageError(w, r, err)
		return
	}
	if c.IsEmpty() {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "cart_empty", "Your cart is empty", "")
		return
	}

	placedAt := h.now()
	order := Order{
		OrderNumber: fmt.Sprintf("PV-%d", placedAt.UnixMilli()),
		Items:       c.Items(),
		TotalItems:  c.TotalItems(),
		TotalPrice:  c.TotalPrice(),
	}

	if err := h.store.Delete(r.Context(), key); err != nil {
		h.storageError(w, r, err)
		return
	}

	logger.LogInfo("Order %s completed: %d items, %d kr", order.OrderNumber, order.TotalItems, order.TotalPrice)
	if h.notifier != nil {
		if err := h.notifier.NotifyOrder(r.Context(), order, placedAt); err != nil {
			logger.LogError("Order %s notification failed: %v", order.OrderNumber, err)
		}
	}
	middleware.WriteAPISuccess(w, r, order)
}
