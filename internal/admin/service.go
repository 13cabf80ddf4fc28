// internal/admin/service.go
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pixelverk/internal/logger"
	"pixelverk/internal/product"
	"pixelverk/internal/shop"
	"pixelverk/internal/storage"
)

var tracer = otel.Tracer("pixelverk/admin")

// Kind classifies the outcome of an admin action.
type Kind int

const (
	OK Kind = iota
	Unauthorized
	NotReady
	InvalidCategory
	InvalidProductID
	MissingRequiredField
	DuplicateProduct
	ProductNotFound
	NoImagesProvided
	InvalidWorkbook
	StorageFailure
)

var kindNames = map[Kind]string{
	OK:                   "ok",
	Unauthorized:         "unauthorized",
	NotReady:             "not_ready",
	InvalidCategory:      "invalid_category",
	InvalidProductID:     "invalid_product_id",
	MissingRequiredField: "missing_required_field",
	DuplicateProduct:     "duplicate_product",
	ProductNotFound:      "product_not_found",
	NoImagesProvided:     "no_images_provided",
	InvalidWorkbook:      "invalid_workbook",
	StorageFailure:       "storage_failure",
}

func (k Kind) String() string { return kindNames[k] }

// HTTPStatus maps an outcome onto a response code.
func (k Kind) HTTPStatus() int {
	switch k {
	case OK:
		return http.StatusOK
	case Unauthorized:
		return http.StatusUnauthorized
	case NotReady:
		return http.StatusServiceUnavailable
	case DuplicateProduct:
		return http.StatusConflict
	case ProductNotFound:
		return http.StatusNotFound
	case StorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Result is what every admin action reports back to the form.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    Kind   `json:"-"`
	err     error
}

// Err returns the storage error behind a StorageFailure result.
func (r Result) Err() error { return r.err }

func succeed(message string) Result {
	return Result{Success: true, Message: message, Kind: OK}
}

func fail(kind Kind, message string) Result {
	return Result{Success: false, Message: message, Kind: kind}
}

func storageFailure(err error) Result {
	r := fail(StorageFailure, "Something went wrong while saving. Please try again.")
	r.err = err
	return r
}

// Store is the storage surface the admin flow writes through.
type Store interface {
	SaveMetadata(ctx context.Context, category, productID string, meta product.Metadata) error
	SaveImages(ctx context.Context, category, productID string, images []storage.Image, startIndex int) ([]string, error)
	ReadMetadata(ctx context.Context, category, productID string) (product.Metadata, error)
	MetadataExists(ctx context.Context, category, productID string) (bool, error)
	NextImageIndex(ctx context.Context, category, productID string) (int, error)
	ListImages(ctx context.Context, category, productID string) ([]string, error)
}

// Invalidator marks rendered pages stale.
type Invalidator interface {
	Invalidate(paths ...string)
}

// CreateInput carries the raw form fields for a new product.
type CreateInput struct {
	Category    string
	ProductID   string
	Name        string
	Description string
	Price       string
	Stock       string
	Images      []storage.Image
}

// AppendInput carries the fields for adding images to a product.
type AppendInput struct {
	Category  string
	ProductID string
	Images    []storage.Image
}

// Service implements the admin product mutations. Duplicate checks and image
// numbering are read-then-write without locking; two simultaneous uploads for
// the same product can collide.
type Service struct {
	store       Store
	invalidator Invalidator
}

func NewService(store Store, invalidator Invalidator) *Service {
	return &Service{store: store, invalidator: invalidator}
}

func authorize(access Access) (Result, bool) {
	if !access.Ready {
		return fail(NotReady, "Admin is not configured. Set ADMIN_PASSWORD to enable it."), false
	}
	if !access.Authorized {
		return fail(Unauthorized, "Unauthorized request."), false
	}
	return Result{}, true
}

func invalidCategory() Result {
	return fail(InvalidCategory, fmt.Sprintf("Invalid category. Choose %s, %s or %s.",
		product.PixelParla.Label(), product.Resin.Label(), product.Junior.Label()))
}

// CreateProduct validates the form, rejects duplicates, stores images and
// then metadata, and invalidates the affected pages.
func (s *Service) CreateProduct(ctx context.Context, access Access, in CreateInput) Result {
	ctx, span := tracer.Start(ctx, "admin.CreateProduct")
	defer span.End()

	res := s.createProduct(ctx, access, in, span)
	recordResult(span, res)
	return res
}

func (s *Service) createProduct(ctx context.Context, access Access, in CreateInput, span trace.Span) Result {
	if res, ok := authorize(access); !ok {
		return res
	}

	category, ok := product.ParseCategory(in.Category)
	if !ok {
		return invalidCategory()
	}

	rawID := strings.TrimSpace(in.ProductID)
	if rawID == "" {
		rawID = in.Name
	}
	productID := Slugify(rawID)
	if productID == "" {
		return fail(InvalidProductID, "Enter a product ID (lower-case letters, digits and hyphens).")
	}
	span.SetAttributes(
		attribute.String("product.category", string(category)),
		attribute.String("product.id", productID),
	)

	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	price := strings.TrimSpace(in.Price)
	if name == "" || description == "" || price == "" {
		return fail(MissingRequiredField, "Name, description and price are required.")
	}
	stock := CoerceStock(in.Stock)

	exists, err := s.store.MetadataExists(ctx, string(category), productID)
	if err != nil {
		return storageFailure(err)
	}
	if exists {
		return fail(DuplicateProduct, "A product with the same ID already exists in this category.")
	}

	var urls []string
	if len(in.Images) > 0 {
		start, err := s.store.NextImageIndex(ctx, string(category), productID)
		if err != nil {
			return storageFailure(err)
		}
		urls, err = s.store.SaveImages(ctx, string(category), productID, in.Images, start)
		if err != nil {
			return storageFailure(err)
		}
	}

	meta := product.Metadata{
		ID:          productID,
		Name:        name,
		Description: description,
		Price:       FormatPrice(price),
		Stock:       stock,
		Category:    string(category),
		Images:      urls,
	}
	if err := s.store.SaveMetadata(ctx, string(category), productID, meta); err != nil {
		return storageFailure(err)
	}

	s.invalidate(category, productID)
	logger.LogInfo("Created product %s/%s with %d image(s)", category, productID, len(urls))
	return succeed(fmt.Sprintf("Product %q was added to %s.", name, category.Label()))
}

// AppendImages adds images to an existing product and records them in its
// metadata. The metadata update is read-modify-write and not atomic.
func (s *Service) AppendImages(ctx context.Context, access Access, in AppendInput) Result {
	ctx, span := tracer.Start(ctx, "admin.AppendImages")
	defer span.End()

	res := s.appendImages(ctx, access, in, span)
	recordResult(span, res)
	return res
}

func (s *Service) appendImages(ctx context.Context, access Access, in AppendInput, span trace.Span) Result {
	if res, ok := authorize(access); !ok {
		return res
	}

	category, ok := product.ParseCategory(in.Category)
	if !ok {
		return invalidCategory()
	}

	productID := Slugify(in.ProductID)
	if productID == "" {
		return fail(InvalidProductID, "Enter the product folder name (e.g. pixel-heart-earring).")
	}
	span.SetAttributes(
		attribute.String("product.category", string(category)),
		attribute.String("product.id", productID),
	)

	meta, err := s.store.ReadMetadata(ctx, string(category), productID)
	if errors.Is(err, storage.ErrCorrupt) {
		logger.LogWarn("Treating malformed product as missing: %v", err)
	}
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrCorrupt) {
		return fail(ProductNotFound, "Product not found. Check category and folder name.")
	}
	if err != nil {
		return storageFailure(err)
	}

	if len(in.Images) == 0 {
		return fail(NoImagesProvided, "Choose at least one image to upload.")
	}

	existing := meta.Images
	if existing == nil {
		existing, err = s.store.ListImages(ctx, string(category), productID)
		if err != nil {
			return storageFailure(err)
		}
	}

	start, err := s.store.NextImageIndex(ctx, string(category), productID)
	if err != nil {
		return storageFailure(err)
	}
	urls, err := s.store.SaveImages(ctx, string(category), productID, in.Images, start)
	if err != nil {
		return storageFailure(err)
	}

	merged := make([]string, 0, len(existing)+len(urls))
	merged = append(merged, existing...)
	meta.Images = append(merged, urls...)
	if err := s.store.SaveMetadata(ctx, string(category), productID, meta); err != nil {
		return storageFailure(err)
	}

	s.invalidate(category, productID)
	logger.LogInfo("Added %d image(s) to %s/%s", len(urls), category, productID)
	return succeed(fmt.Sprintf("%d image(s) added to %s.", len(urls), category.Label()))
}

func (s *Service) invalidate(category product.Category, productID string) {
	if s.invalidator == nil {
		return
	}
	s.invalidator.Invalidate(
		shop.ShopPath(),
		shop.CategoryPath(category),
		shop.ProductPath(category, productID),
	)
}

func recordResult(span trace.Span, res Result) {
	span.SetAttributes(attribute.String("admin.result", res.Kind.String()))
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
	}
}
