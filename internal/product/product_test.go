package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"pixelparla", PixelParla, true},
		{" resin ", Resin, true},
		{"junior", Junior, true},
		{"Resin", "", false},
		{"jewelry", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		assert.Equal(t, tt.ok, ok, "ParseCategory(%q)", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestCategoriesOrderAndLabels(t *testing.T) {
	assert.Equal(t, []Category{PixelParla, Resin, Junior}, Categories())
	assert.Equal(t, "Pixel & Pärla", PixelParla.Label())
	assert.Equal(t, "Resin & Natur", Resin.Label())
	assert.Equal(t, "Pixelverk Junior", Junior.Label())

	// callers cannot reorder the shared list
	cs := Categories()
	cs[0] = Junior
	assert.Equal(t, PixelParla, Categories()[0])
}

func TestImageExtension(t *testing.T) {
	assert.Equal(t, ".png", ImageExtension("photo.PNG"))
	assert.Equal(t, ".webp", ImageExtension("a.b.webp"))
	assert.Equal(t, ".jpg", ImageExtension("scan.bmp"))
	assert.Equal(t, ".jpg", ImageExtension("noext"))

	assert.True(t, IsImageFile("01.jpeg"))
	assert.False(t, IsImageFile("info.json"))
}

func TestFromMetadata(t *testing.T) {
	meta := Metadata{Name: "Moss Ring", Description: "Resin ring", Price: "250 kr", Stock: -4}

	p := FromMetadata("moss-ring", meta, nil)
	assert.Equal(t, "moss-ring", p.ID)
	assert.Equal(t, PlaceholderImage, p.Image)
	assert.NotNil(t, p.Images)
	assert.Empty(t, p.Images)
	assert.Equal(t, 0, p.Stock)

	p = FromMetadata("moss-ring", meta, []string{"/a/01.jpg", "/a/02.jpg"})
	assert.Equal(t, "/a/01.jpg", p.Image)
	assert.Len(t, p.Images, 2)
}

func TestValidID(t *testing.T) {
	for _, id := range []string{"heart", "pixel-heart-earring", "moss_ring", "01"} {
		assert.True(t, ValidID(id), id)
	}
	for _, id := range []string{"", ".", "..", "../../secret", "./heart", "heart/.", "a\\b", "a\x00b"} {
		assert.False(t, ValidID(id), "%q", id)
	}
}
