package seeds

import (
	"context"
	"database/sql"
	"fmt"

	"cardapio/api/internal/config"
	"cardapio/api/internal/delivery"
	"cardapio/api/internal/logger"
	"cardapio/api/internal/repository"

	"github.com/shopspring/decimal"
)

// Run clears seed-related data and inserts fresh seed data.
// Safe to run multiple times (resets to seed state).
func Run(ctx context.Context, db *sql.DB, cfg *config.Config) error {
	if err := clear(ctx, db); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	if err := insert(ctx, db); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if err := gatewaySettings(ctx, db, cfg); err != nil {
		return fmt.Errorf("gateway settings: %w", err)
	}
	return nil
}

func clear(ctx context.Context, db *sql.DB) error {
	tables := []string{
		"webhook_events", "order_status_history", "order_items", "orders",
		"product_variants", "products", "delivery_zones",
	}
	for _, t := range tables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("delete %s: %w", t, err)
		}
	}
	return nil
}

type variant struct {
	id    string
	name  string
	price int64
	image string
}

func insert(ctx context.Context, db *sql.DB) error {
	products := []struct {
		id       string
		name     string
		price    int64
		variants []variant
	}{
		{"seed-pizza-margherita", "Pizza Margherita", 4490, []variant{
			{"seed-pizza-margherita-broto", "Broto", 2990, ""},
			{"seed-pizza-margherita-grande", "Grande", 5990, ""},
		}},
		{"seed-pizza-calabresa", "Pizza Calabresa", 4790, []variant{
			{"seed-pizza-calabresa-grande", "Grande", 6290, ""},
		}},
		{"seed-hamburguer", "Hambúrguer da Casa", 3290, nil},
		{"seed-refrigerante", "Refrigerante Lata", 690, []variant{
			{"seed-refrigerante-zero", "Zero", 690, ""},
		}},
		{"seed-pudim", "Pudim", 1490, nil},
	}
	for _, p := range products {
		if err := repository.UpsertProduct(ctx, db, p.id, p.name, p.price, true); err != nil {
			return fmt.Errorf("insert product %s: %w", p.id, err)
		}
		for _, v := range p.variants {
			if err := repository.UpsertVariant(ctx, db, v.id, p.id, v.name, v.price, v.image); err != nil {
				return fmt.Errorf("insert variant %s: %w", v.id, err)
			}
		}
	}

	// Faixas de CEP da capital paulista; a ordem de inserção não importa.
	zones := []delivery.Zone{
		{ID: "seed-zona-centro", RangeStart: "01000000", RangeEnd: "01599999", Fee: decimal.RequireFromString("5.00"), EstimatedTime: 30, Active: true},
		{ID: "seed-zona-sul", RangeStart: "04000000", RangeEnd: "04999999", Fee: decimal.RequireFromString("8.50"), EstimatedTime: 45, Active: true},
		{ID: "seed-zona-oeste", RangeStart: "05000000", RangeEnd: "05899999", Fee: decimal.RequireFromString("9.90"), EstimatedTime: 50, Active: true},
		{ID: "seed-zona-norte", RangeStart: "02000000", RangeEnd: "02999999", Fee: decimal.RequireFromString("12.00"), EstimatedTime: 60, Active: false},
	}
	for _, z := range zones {
		if err := repository.UpsertZone(ctx, db, z); err != nil {
			return fmt.Errorf("insert zone %s: %w", z.ID, err)
		}
	}
	return nil
}

// gatewaySettings stores gateway credentials present in the environment.
// Missing ones are skipped so a partially configured store still seeds.
func gatewaySettings(ctx context.Context, db *sql.DB, cfg *config.Config) error {
	settings := []repository.GatewaySettings{
		{Gateway: "pagarme", BaseURL: cfg.PagarmeBaseURL, APIKey: cfg.PagarmeAPIKey},
		{Gateway: "pixapi", BaseURL: cfg.PixAPIBaseURL, APIKey: cfg.PixAPIKey},
	}
	for _, s := range settings {
		if s.BaseURL == "" || s.APIKey == "" {
			logger.Warnf("credenciais de %s ausentes, gateway não configurado", s.Gateway)
			continue
		}
		if err := repository.UpsertGatewaySettings(ctx, db, s); err != nil {
			return fmt.Errorf("upsert %s: %w", s.Gateway, err)
		}
	}
	return nil
}
