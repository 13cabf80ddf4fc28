// internal/storage/local.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"pixelverk/internal/logger"
	"pixelverk/internal/product"
)

// LocalStore keeps products under <root>/<category>/<id>/ on disk.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("products directory is not configured")
	}
	if err := os.MkdirAll(root, 0775); err != nil {
		return nil, fmt.Errorf("failed to create products directory %s: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) productDir(category, productID string) string {
	return filepath.Join(s.root, category, productID)
}

func (s *LocalStore) SaveMetadata(ctx context.Context, category, productID string, meta product.Metadata) error {
	if err := checkKey(category, productID); err != nil {
		return err
	}
	dir := s.productDir(category, productID)
	if err := os.MkdirAll(dir, 0775); err != nil {
		return fmt.Errorf("failed to create product directory: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0664); err != nil {
		return fmt.Errorf("failed to write metadata for %s/%s: %w", category, productID, err)
	}
	return nil
}

func (s *LocalStore) SaveImages(ctx context.Context, category, productID string, images []Image, startIndex int) ([]string, error) {
	if err := checkKey(category, productID); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.productDir(category, productID), imagesDir)
	if err := os.MkdirAll(dir, 0775); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}

	urls := make([]string, 0, len(images))
	for i, img := range images {
		name := imageFileName(startIndex+i, img.Name)
		if err := writeFile(filepath.Join(dir, name), img.Body); err != nil {
			return urls, fmt.Errorf("failed to save image %s: %w", name, err)
		}
		urls = append(urls, assetURL(category, productID, name))
	}
	return urls, nil
}

func writeFile(path string, body io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *LocalStore) ReadMetadata(ctx context.Context, category, productID string) (product.Metadata, error) {
	var meta product.Metadata
	if checkKey(category, productID) != nil {
		return meta, ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.productDir(category, productID), metadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return meta, ErrNotFound
	}
	if err != nil {
		return meta, fmt.Errorf("failed to read metadata for %s/%s: %w", category, productID, err)
	}

	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("%w: %s/%s: %v", ErrCorrupt, category, productID, err)
	}
	return meta, nil
}

func (s *LocalStore) MetadataExists(ctx context.Context, category, productID string) (bool, error) {
	if checkKey(category, productID) != nil {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(s.productDir(category, productID), metadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat metadata: %w", err)
	}
	return true, nil
}

func (s *LocalStore) NextImageIndex(ctx context.Context, category, productID string) (int, error) {
	if err := checkKey(category, productID); err != nil {
		return 0, err
	}
	names, err := s.imageNames(category, productID)
	if err != nil {
		return 0, err
	}
	return len(names) + 1, nil
}

func (s *LocalStore) ListProductIDs(ctx context.Context, category string) ([]string, error) {
	if !product.ValidID(category) {
		return nil, fmt.Errorf("%w: category %q", ErrInvalidKey, category)
	}
	dir := filepath.Join(s.root, category)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.LogWarn("Category directory not found: %s", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list category %s: %w", category, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *LocalStore) ListImages(ctx context.Context, category, productID string) ([]string, error) {
	if err := checkKey(category, productID); err != nil {
		return nil, err
	}
	names, err := s.imageNames(category, productID)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(names))
	for _, name := range names {
		urls = append(urls, assetURL(category, productID, name))
	}
	return urls, nil
}

// imageNames lists accepted image files in sorted order.
func (s *LocalStore) imageNames(category, productID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.productDir(category, productID), imagesDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list images for %s/%s: %w", category, productID, err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && product.IsImageFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ServeHTTP serves stored product images.
func (s *LocalStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	category, productID, file, ok := parseAssetPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.productDir(category, productID), imagesDir, file))
}

func (s *LocalStore) Close() error { return nil }
