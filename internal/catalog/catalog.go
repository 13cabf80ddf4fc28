// internal/catalog/catalog.go
package catalog

import (
	"context"
	"errors"
	"fmt"

	"pixelverk/internal/logger"
	"pixelverk/internal/product"
	"pixelverk/internal/storage"
)

// Reader is the read side of the storage adapter.
type Reader interface {
	ReadMetadata(ctx context.Context, category, productID string) (product.Metadata, error)
	ListProductIDs(ctx context.Context, category string) ([]string, error)
	ListImages(ctx context.Context, category, productID string) ([]string, error)
}

// StockOverride rewrites the stock reported for a product. Tests use it to
// simulate sold-out items without touching storage.
type StockOverride func(category, productID string, stock int) int

type Option func(*Loader)

// WithStockOverride installs a stock override.
func WithStockOverride(fn StockOverride) Option {
	return func(l *Loader) { l.stockOverride = fn }
}

// Loader assembles Products from stored metadata and images.
type Loader struct {
	store         Reader
	stockOverride StockOverride
}

func NewLoader(store Reader, opts ...Option) *Loader {
	l := &Loader{store: store}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ListByCategory returns the products of one category ordered by storage key.
// Entries whose metadata is missing or unreadable are logged and skipped.
func (l *Loader) ListByCategory(ctx context.Context, category product.Category) ([]product.Product, error) {
	ids, err := l.store.ListProductIDs(ctx, string(category))
	if err != nil {
		return nil, err
	}

	products := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		p, err := l.load(ctx, category, id)
		if errors.Is(err, storage.ErrNotFound) {
			logger.LogWarn("info.json not found for product: %s/%s", category, id)
			continue
		}
		if err != nil {
			logger.LogError("Error loading product %s/%s: %v", category, id, err)
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// ListAll loads every category. A category that fails to list is reported as
// empty so one broken section does not take the others down.
func (l *Loader) ListAll(ctx context.Context) map[product.Category][]product.Product {
	all := make(map[product.Category][]product.Product, len(product.Categories()))
	for _, c := range product.Categories() {
		products, err := l.ListByCategory(ctx, c)
		if err != nil {
			logger.LogError("Failed to list category %s: %v", c, err)
			products = []product.Product{}
		}
		all[c] = products
	}
	return all
}

// GetByID reads a single product by key. ok is false when no usable metadata
// record exists or productID is not a plain folder name; err is reserved for
// storage failures.
func (l *Loader) GetByID(ctx context.Context, category product.Category, productID string) (p product.Product, ok bool, err error) {
	if !product.ValidID(productID) {
		return product.Product{}, false, nil
	}
	p, err = l.load(ctx, category, productID)
	switch {
	case err == nil:
		return p, true, nil
	case errors.Is(err, storage.ErrNotFound):
		return product.Product{}, false, nil
	case errors.Is(err, storage.ErrCorrupt):
		logger.LogWarn("Treating malformed product as missing: %v", err)
		return product.Product{}, false, nil
	default:
		return product.Product{}, false, err
	}
}

func (l *Loader) load(ctx context.Context, category product.Category, id string) (product.Product, error) {
	meta, err := l.store.ReadMetadata(ctx, string(category), id)
	if err != nil {
		return product.Product{}, err
	}

	images := meta.Images
	if images == nil {
		images, err = l.store.ListImages(ctx, string(category), id)
		if err != nil {
			return product.Product{}, fmt.Errorf("failed to list images: %w", err)
		}
	}

	p := product.FromMetadata(id, meta, images)
	if l.stockOverride != nil {
		p.Stock = l.stockOverride(string(category), id, p.Stock)
	}
	return p, nil
}
