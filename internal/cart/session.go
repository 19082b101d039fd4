package cart

import (
	"context"
	"errors"
	"time"

	"cardapio/api/internal/logger"

	"github.com/shopspring/decimal"
)

const persistTimeout = 2 * time.Second

// Cart is a line list bound to a store key. Every mutation is applied to the
// stored list through Store.Update, so concurrent writers on one key do not
// lose each other's changes. When the store fails the mutation still applies
// to the in-memory list and the failure is only logged.
type Cart struct {
	key   string
	store Store
	items Items
}

// Open restores the cart stored under key. Missing or corrupt data yields an
// empty cart.
func Open(ctx context.Context, store Store, key string) *Cart {
	c := &Cart{key: key, store: store}
	items, err := store.Load(ctx, key)
	switch {
	case err == nil:
		c.items = items
	case errors.Is(err, ErrNotFound):
	default:
		logger.Warnf("[CART] carrinho %s ilegível, iniciando vazio: %v", key, err)
	}
	return c
}

func (c *Cart) Key() string { return c.key }

func (c *Cart) Items() Items { return c.items.clone() }

func (c *Cart) Add(ctx context.Context, p Product, quantity int, notes string, v *Variant) {
	c.mutate(ctx, func(items Items) Items { return items.Add(p, quantity, notes, v) })
}

func (c *Cart) Remove(ctx context.Context, productID, variantID string) {
	c.mutate(ctx, func(items Items) Items { return items.Remove(productID, variantID) })
}

func (c *Cart) UpdateQuantity(ctx context.Context, productID string, quantity int, variantID string) {
	c.mutate(ctx, func(items Items) Items { return items.UpdateQuantity(productID, quantity, variantID) })
}

// Clear empties the cart and removes its key from the store.
func (c *Cart) Clear(ctx context.Context) {
	c.items = nil
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := c.store.Clear(ctx, c.key); err != nil {
		logger.Warnf("[CART] falha ao limpar carrinho %s: %v", c.key, err)
	}
}

func (c *Cart) Subtotal() decimal.Decimal { return c.items.Subtotal() }

func (c *Cart) Total(deliveryFee, discount decimal.Decimal) decimal.Decimal {
	return c.items.Total(deliveryFee, discount)
}

func (c *Cart) mutate(ctx context.Context, fn func(Items) Items) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	items, err := c.store.Update(ctx, c.key, fn)
	if err != nil {
		logger.Warnf("[CART] falha ao persistir carrinho %s: %v", c.key, err)
		c.items = fn(c.items)
		return
	}
	c.items = items
}
