// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"pixelverk/internal/logger"
	"pixelverk/internal/product"
)

var (
	// ErrNotFound is returned when a product has no metadata record.
	ErrNotFound = errors.New("product metadata not found")
	// ErrCorrupt is returned when a metadata record exists but cannot be parsed.
	ErrCorrupt = errors.New("product metadata is malformed")
	// ErrInvalidKey is returned for a category or product id that is not a
	// single path segment.
	ErrInvalidKey = errors.New("invalid product key")
)

const (
	BackendLocal = "local"
	BackendBlob  = "blob"

	metadataFile = "info.json"
	imagesDir    = "images"
	assetPrefix  = "products"
)

// Config selects and configures the storage backend
type Config struct {
	Backend       string // "local" or "blob"
	Directory     string // root for the local backend
	BucketURL     string // gocloud bucket URL for the blob backend
	PublicBaseURL string // optional public prefix for blob image URLs
}

// Image is one uploaded file waiting to be stored.
type Image struct {
	Name string
	Body io.Reader
}

// Store persists product metadata and images. Implementations also serve
// stored images under /products/.
type Store interface {
	SaveMetadata(ctx context.Context, category, productID string, meta product.Metadata) error
	SaveImages(ctx context.Context, category, productID string, images []Image, startIndex int) ([]string, error)
	ReadMetadata(ctx context.Context, category, productID string) (product.Metadata, error)
	MetadataExists(ctx context.Context, category, productID string) (bool, error)
	NextImageIndex(ctx context.Context, category, productID string) (int, error)
	ListProductIDs(ctx context.Context, category string) ([]string, error)
	ListImages(ctx context.Context, category, productID string) ([]string, error)

	http.Handler
	io.Closer
}

// New builds the configured backend. This is the only place the backend
// setting is inspected.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendLocal:
		logger.LogInfo("Using local product storage in %s", cfg.Directory)
		return NewLocalStore(cfg.Directory)
	case BackendBlob:
		logger.LogInfo("Using blob product storage at %s", cfg.BucketURL)
		return OpenBlobStore(ctx, cfg.BucketURL, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// checkKey rejects keys that would resolve outside <category>/<id>.
func checkKey(category, productID string) error {
	if !product.ValidID(category) || !product.ValidID(productID) {
		return fmt.Errorf("%w: %q/%q", ErrInvalidKey, category, productID)
	}
	return nil
}

// imageFileName numbers an upload, keeping an accepted extension.
func imageFileName(index int, original string) string {
	return fmt.Sprintf("%02d%s", index, product.ImageExtension(original))
}

// assetURL is the app-relative address of a stored image.
func assetURL(category, productID, file string) string {
	return "/" + path.Join(assetPrefix, category, productID, imagesDir, file)
}

// parseAssetPath splits /products/<category>/<id>/images/<file> and rejects
// anything else, including traversal attempts and non-image files.
func parseAssetPath(urlPath string) (category, productID, file string, ok bool) {
	parts := strings.Split(strings.TrimPrefix(urlPath, "/"), "/")
	if len(parts) != 5 || parts[0] != assetPrefix || parts[3] != imagesDir {
		return "", "", "", false
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.Contains(p, "\\") {
			return "", "", "", false
		}
	}
	if !product.IsImageFile(parts[4]) {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[4], true
}
