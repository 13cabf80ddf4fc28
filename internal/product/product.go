// internal/product/product.go
package product

import (
	"path"
	"strings"
)

// Category is one of the three fixed shop sections
type Category string

const (
	PixelParla Category = "pixelparla"
	Resin      Category = "resin"
	Junior     Category = "junior"
)

// PlaceholderImage is shown when a product has no images
const PlaceholderImage = "/placeholder.jpg"

// DefaultImageExtension replaces any extension we do not accept
const DefaultImageExtension = ".jpg"

var categories = []Category{PixelParla, Resin, Junior}

var categoryLabels = map[Category]string{
	PixelParla: "Pixel & Pärla",
	Resin:      "Resin & Natur",
	Junior:     "Pixelverk Junior",
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// Categories returns the shop categories in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory returns the category for value and whether it is one we sell.
func ParseCategory(value string) (Category, bool) {
	c := Category(strings.TrimSpace(value))
	_, ok := categoryLabels[c]
	return c, ok
}

// Label returns the human readable category name.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

func (c Category) String() string { return string(c) }

// ValidID reports whether id names exactly one product folder. Ids from
// requests that could climb out of a category, or alias another product
// ("./heart", "heart/."), are not valid.
func ValidID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\\x00")
}

// IsImageFile reports whether name carries one of the accepted image extensions.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

// ImageExtension returns the lower-cased extension of name, or the default
// extension when it is not an accepted image type.
func ImageExtension(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if imageExtensions[ext] {
		return ext
	}
	return DefaultImageExtension
}

// Metadata is the persisted info.json record for one product.
type Metadata struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Stock       int      `json:"stock"`
	Category    string   `json:"category"`
	Images      []string `json:"images,omitempty"`
}

// Product is what the shop pages render.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Image       string   `json:"image"`
	Images      []string `json:"images"`
	Stock       int      `json:"stock"`
}

// FromMetadata builds a Product for the record stored under id.
// images is the resolved image list; the first entry becomes the main image.
func FromMetadata(id string, meta Metadata, images []string) Product {
	if images == nil {
		images = []string{}
	}
	main := PlaceholderImage
	if len(images) > 0 {
		main = images[0]
	}
	stock := meta.Stock
	if stock < 0 {
		stock = 0
	}
	return Product{
		ID:          id,
		Name:        meta.Name,
		Description: meta.Description,
		Price:       meta.Price,
		Image:       main,
		Images:      images,
		Stock:       stock,
	}
}
