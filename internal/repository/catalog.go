package repository

import (
	"context"
	"database/sql"
	"errors"

	"cardapio/api/internal/cart"
	"cardapio/api/internal/delivery"

	"github.com/shopspring/decimal"
)

func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ProductByID returns an active product, or nil, nil.
func ProductByID(ctx context.Context, db *sql.DB, id string) (*cart.Product, error) {
	var (
		p     cart.Product
		cents int64
	)
	err := db.QueryRowContext(ctx, `SELECT id, name, price_cents FROM products WHERE id = ? AND active = 1`, id).
		Scan(&p.ID, &p.Name, &cents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Price = centsToDecimal(cents)
	return &p, nil
}

// VariantByID returns the variant only when it belongs to productID.
func VariantByID(ctx context.Context, db *sql.DB, productID, variantID string) (*cart.Variant, error) {
	var (
		v     cart.Variant
		cents int64
	)
	err := db.QueryRowContext(ctx, `SELECT id, name, price_cents, COALESCE(image_url, '') FROM product_variants WHERE id = ? AND product_id = ?`,
		variantID, productID).Scan(&v.ID, &v.Name, &cents, &v.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.Price = centsToDecimal(cents)
	return &v, nil
}

func UpsertProduct(ctx context.Context, db *sql.DB, id, name string, priceCents int64, active bool) error {
	_, err := db.ExecContext(ctx, `INSERT INTO products (id, name, price_cents, active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, price_cents = excluded.price_cents, active = excluded.active`,
		id, name, priceCents, boolToInt(active))
	return err
}

func UpsertVariant(ctx context.Context, db *sql.DB, id, productID, name string, priceCents int64, image string) error {
	_, err := db.ExecContext(ctx, `INSERT INTO product_variants (id, product_id, name, price_cents, image_url) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET product_id = excluded.product_id, name = excluded.name,
		price_cents = excluded.price_cents, image_url = excluded.image_url`,
		id, productID, name, priceCents, image)
	return err
}

// ActiveZones lists active delivery zones ordered by range start.
func ActiveZones(ctx context.Context, db *sql.DB) ([]delivery.Zone, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, cep_start, cep_end, fee_cents, estimated_minutes
		FROM delivery_zones WHERE active = 1 ORDER BY cep_start`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var zones []delivery.Zone
	for rows.Next() {
		var (
			z     delivery.Zone
			cents int64
		)
		if err := rows.Scan(&z.ID, &z.RangeStart, &z.RangeEnd, &cents, &z.EstimatedTime); err != nil {
			return nil, err
		}
		z.Fee = centsToDecimal(cents)
		z.Active = true
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

func UpsertZone(ctx context.Context, db *sql.DB, z delivery.Zone) error {
	_, err := db.ExecContext(ctx, `INSERT INTO delivery_zones (id, cep_start, cep_end, fee_cents, estimated_minutes, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET cep_start = excluded.cep_start, cep_end = excluded.cep_end,
		fee_cents = excluded.fee_cents, estimated_minutes = excluded.estimated_minutes, active = excluded.active`,
		z.ID, z.RangeStart, z.RangeEnd, z.Fee.Shift(2).Round(0).IntPart(), z.EstimatedTime, boolToInt(z.Active))
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
