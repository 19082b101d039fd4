// Package cart is the storefront pricing engine: line items, variant pricing,
// subtotal and grand total. Items mutations are pure; Cart adds write-through
// persistence on top of them.
package cart

import (
	"github.com/shopspring/decimal"
)

// noVariant identifies the line of a product added without a variant.
const noVariant = "no-variant"

type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Variant replaces the product base price on the line it is attached to.
// It never modifies the product itself.
type Variant struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

type Item struct {
	Product  Product  `json:"product"`
	Quantity int      `json:"quantity"`
	Notes    string   `json:"notes,omitempty"`
	Variant  *Variant `json:"variant,omitempty"`
}

func (i Item) VariantID() string {
	if i.Variant == nil {
		return noVariant
	}
	return i.Variant.ID
}

// UnitPrice is the variant price when a variant is selected, otherwise the
// product base price. The two are never added together.
func (i Item) UnitPrice() decimal.Decimal {
	if i.Variant != nil {
		return i.Variant.Price
	}
	return i.Product.Price
}

func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// matches reports whether the line is selected by (productID, variantID).
// An empty variantID selects every line of the product.
func (i Item) matches(productID, variantID string) bool {
	if i.Product.ID != productID {
		return false
	}
	return variantID == "" || i.VariantID() == variantID
}

// Items is an ordered cart line list. Every method returns a new list and
// leaves the receiver untouched.
type Items []Item

// Add merges into the line with the same (product, variant) identity or
// appends a new one. A quantity below 1 counts as 1. A non-empty note
// overwrites the existing one.
func (items Items) Add(p Product, quantity int, notes string, v *Variant) Items {
	if quantity < 1 {
		quantity = 1
	}
	next := items.clone()
	probe := Item{Product: p, Variant: v}
	for idx := range next {
		if next[idx].Product.ID == p.ID && next[idx].VariantID() == probe.VariantID() {
			next[idx].Quantity += quantity
			if notes != "" {
				next[idx].Notes = notes
			}
			return next
		}
	}
	var variant *Variant
	if v != nil {
		cp := *v
		variant = &cp
	}
	return append(next, Item{Product: p, Quantity: quantity, Notes: notes, Variant: variant})
}

// Remove drops the matching variant line, or every line of the product when
// variantID is empty. Removing something absent is a no-op.
func (items Items) Remove(productID, variantID string) Items {
	next := make(Items, 0, len(items))
	for _, it := range items {
		if !it.matches(productID, variantID) {
			next = append(next, it)
		}
	}
	return next
}

// UpdateQuantity sets quantity on the matching line(s) using the same rule as
// Remove; quantity <= 0 removes them.
func (items Items) UpdateQuantity(productID string, quantity int, variantID string) Items {
	if quantity <= 0 {
		return items.Remove(productID, variantID)
	}
	next := items.clone()
	for idx := range next {
		if next[idx].matches(productID, variantID) {
			next[idx].Quantity = quantity
		}
	}
	return next
}

func (items Items) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Total is subtotal + deliveryFee - discount. It is not clamped at zero.
func (items Items) Total(deliveryFee, discount decimal.Decimal) decimal.Decimal {
	return items.Subtotal().Add(deliveryFee).Sub(discount)
}

func (items Items) Count() int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// valid reports whether a restored list respects the line invariants.
func (items Items) valid() bool {
	for _, it := range items {
		if it.Product.ID == "" || it.Quantity < 1 {
			return false
		}
	}
	return true
}

func (items Items) clone() Items {
	next := make(Items, len(items))
	copy(next, items)
	return next
}
