// internal/cart/cart.go
package cart

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Item is one cart line. A line is identified by (ID, Category) since
// product ids are only unique within a category.
type Item struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
}

// Cart is a visitor's list of items. The zero value is an empty cart.
// Stock limits are only applied at the moment of an update, using the
// ceiling supplied by the caller.
type Cart struct {
	items []Item
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

func (c *Cart) find(id, category string) int {
	for i, it := range c.items {
		if it.ID == id && it.Category == category {
			return i
		}
	}
	return -1
}

// Quantity returns how many of (id, category) are in the cart.
func (c *Cart) Quantity(id, category string) int {
	if i := c.find(id, category); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// Add puts one more of item in the cart with no stock limit.
func (c *Cart) Add(item Item) {
	c.add(item, 0, false)
}

// AddWithin puts one more of item in the cart unless that would exceed stock.
func (c *Cart) AddWithin(item Item, stock int) {
	c.add(item, stock, true)
}

func (c *Cart) add(item Item, ceiling int, limited bool) {
	if i := c.find(item.ID, item.Category); i >= 0 {
		if limited && c.items[i].Quantity >= ceiling {
			return
		}
		c.items[i].Quantity++
		return
	}
	if limited && ceiling <= 0 {
		return
	}
	item.Quantity = 1
	c.items = append(c.items, item)
}

// SetQuantity stores quantity for an existing line; zero or less removes it.
func (c *Cart) SetQuantity(id, category string, quantity int) {
	c.setQuantity(id, category, quantity, 0, false)
}

// SetQuantityWithin is SetQuantity clamped to stock.
func (c *Cart) SetQuantityWithin(id, category string, quantity, stock int) {
	c.setQuantity(id, category, quantity, stock, true)
}

func (c *Cart) setQuantity(id, category string, quantity, ceiling int, limited bool) {
	if limited && quantity > ceiling {
		quantity = ceiling
	}
	if quantity <= 0 {
		c.Remove(id, category)
		return
	}
	if i := c.find(id, category); i >= 0 {
		c.items[i].Quantity = quantity
	}
}

// Remove deletes the line for (id, category). Missing lines are ignored.
func (c *Cart) Remove(id, category string) {
	i := c.find(id, category)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
}

func (c *Cart) Clear() {
	c.items = nil
}

// TotalItems is the sum of all quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, it := range c.items {
		total += it.Quantity
	}
	return total
}

// TotalPrice sums the digits of each display price times its quantity.
// "120 kr" counts as 120; a price with no digits counts as 0.
func (c *Cart) TotalPrice() int64 {
	var total int64
	for _, it := range c.items {
		total += PriceValue(it.Price) * int64(it.Quantity)
	}
	return total
}

// PriceValue keeps only the digits of a display price.
func PriceValue(price string) int64 {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, price)
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Encode serializes the cart as a JSON array of items.
func (c *Cart) Encode() ([]byte, error) {
	items := c.items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(items)
}

// Decode restores a cart from stored data. Stored carts are untrusted and
// unversioned: anything that is not a well-formed item list yields an empty
// cart.
func Decode(data []byte) *Cart {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return &Cart{}
	}

	seen := make(map[[2]string]bool, len(items))
	for _, it := range items {
		key := [2]string{it.ID, it.Category}
		if strings.TrimSpace(it.ID) == "" || it.Category == "" || it.Quantity < 1 || seen[key] {
			return &Cart{}
		}
		seen[key] = true
	}
	return &Cart{items: items}
}
