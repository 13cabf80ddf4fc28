// internal/storage/blob.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"sort"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"pixelverk/internal/logger"
	"pixelverk/internal/product"
)

// BlobStore keeps products in an object bucket under products/<category>/<id>/.
type BlobStore struct {
	bucket        *blob.Bucket
	publicBaseURL string
}

// OpenBlobStore opens a bucket from a gocloud URL such as gs://shop-assets,
// file:///var/pixelverk or mem://.
func OpenBlobStore(ctx context.Context, bucketURL, publicBaseURL string) (*BlobStore, error) {
	if bucketURL == "" {
		return nil, fmt.Errorf("blob bucket URL is not configured")
	}
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", bucketURL, err)
	}
	return NewBlobStore(bucket, publicBaseURL), nil
}

// NewBlobStore wraps an already opened bucket.
func NewBlobStore(bucket *blob.Bucket, publicBaseURL string) *BlobStore {
	return &BlobStore{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func productKey(category, productID string, rest ...string) string {
	return path.Join(append([]string{assetPrefix, category, productID}, rest...)...)
}

func (s *BlobStore) url(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return "/" + key
}

func (s *BlobStore) SaveMetadata(ctx context.Context, category, productID string, meta product.Metadata) error {
	if err := checkKey(category, productID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	opts := &blob.WriterOptions{ContentType: "application/json"}
	if err := s.bucket.WriteAll(ctx, productKey(category, productID, metadataFile), data, opts); err != nil {
		return fmt.Errorf("failed to write metadata for %s/%s: %w", category, productID, err)
	}
	return nil
}

func (s *BlobStore) SaveImages(ctx context.Context, category, productID string, images []Image, startIndex int) ([]string, error) {
	if err := checkKey(category, productID); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(images))
	for i, img := range images {
		name := imageFileName(startIndex+i, img.Name)
		key := productKey(category, productID, imagesDir, name)
		if err := s.writeObject(ctx, key, img.Body); err != nil {
			return urls, fmt.Errorf("failed to upload image %s: %w", key, err)
		}
		urls = append(urls, s.url(key))
	}
	return urls, nil
}

func (s *BlobStore) writeObject(ctx context.Context, key string, body io.Reader) error {
	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{
		ContentType: mime.TypeByExtension(path.Ext(key)),
	})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (s *BlobStore) ReadMetadata(ctx context.Context, category, productID string) (product.Metadata, error) {
	var meta product.Metadata
	if checkKey(category, productID) != nil {
		return meta, ErrNotFound
	}

	data, err := s.bucket.ReadAll(ctx, productKey(category, productID, metadataFile))
	if gcerrors.Code(err) == gcerrors.NotFound {
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

func (s *BlobStore) MetadataExists(ctx context.Context, category, productID string) (bool, error) {
	if checkKey(category, productID) != nil {
		return false, nil
	}
	ok, err := s.bucket.Exists(ctx, productKey(category, productID, metadataFile))
	if err != nil {
		return false, fmt.Errorf("failed to check metadata: %w", err)
	}
	return ok, nil
}

func (s *BlobStore) NextImageIndex(ctx context.Context, category, productID string) (int, error) {
	if err := checkKey(category, productID); err != nil {
		return 0, err
	}
	keys, err := s.imageKeys(ctx, category, productID)
	if err != nil {
		return 0, err
	}
	return len(keys) + 1, nil
}

// ListProductIDs returns the "directories" directly below the category prefix.
// A prefix holding only images still shows up here and is skipped later for
// lacking metadata.
func (s *BlobStore) ListProductIDs(ctx context.Context, category string) ([]string, error) {
	if !product.ValidID(category) {
		return nil, fmt.Errorf("%w: category %q", ErrInvalidKey, category)
	}
	prefix := path.Join(assetPrefix, category) + "/"
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix, Delimiter: "/"})

	var ids []string
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list category %s: %w", category, err)
		}
		if !obj.IsDir {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), "/"))
	}

	if len(ids) == 0 {
		logger.LogWarn("Category prefix is empty: %s", prefix)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *BlobStore) ListImages(ctx context.Context, category, productID string) ([]string, error) {
	if err := checkKey(category, productID); err != nil {
		return nil, err
	}
	keys, err := s.imageKeys(ctx, category, productID)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		urls = append(urls, s.url(key))
	}
	return urls, nil
}

func (s *BlobStore) imageKeys(ctx context.Context, category, productID string) ([]string, error) {
	prefix := productKey(category, productID, imagesDir) + "/"
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix, Delimiter: "/"})

	var keys []string
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list images for %s/%s: %w", category, productID, err)
		}
		if !obj.IsDir && product.IsImageFile(obj.Key) {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ServeHTTP streams images for buckets that are not publicly readable.
func (s *BlobStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	category, productID, file, ok := parseAssetPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	reader, err := s.bucket.NewReader(r.Context(), productKey(category, productID, imagesDir, file), nil)
	if gcerrors.Code(err) == gcerrors.NotFound {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logger.LogHTTPError(r, http.StatusBadGateway, err)
		http.Error(w, "Image unavailable", http.StatusBadGateway)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", reader.ContentType())
	if _, err := io.Copy(w, reader); err != nil {
		logger.LogWarn("Failed to stream %s: %v", r.URL.Path, err)
	}
}

func (s *BlobStore) Close() error {
	return s.bucket.Close()
}
