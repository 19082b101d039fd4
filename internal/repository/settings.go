package repository

import (
	"context"
	"database/sql"
	"errors"
)

// GatewaySettings are the merchant credentials for one gateway.
type GatewaySettings struct {
	Gateway string
	BaseURL string
	APIKey  string
}

// GatewaySettingsByName returns nil, nil when the gateway was never configured.
func GatewaySettingsByName(ctx context.Context, db *sql.DB, gateway string) (*GatewaySettings, error) {
	var s GatewaySettings
	err := db.QueryRowContext(ctx, `SELECT gateway, base_url, api_key FROM gateway_settings WHERE gateway = ?`, gateway).
		Scan(&s.Gateway, &s.BaseURL, &s.APIKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func UpsertGatewaySettings(ctx context.Context, db *sql.DB, s GatewaySettings) error {
	_, err := db.ExecContext(ctx, `INSERT INTO gateway_settings (gateway, base_url, api_key, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(gateway) DO UPDATE SET base_url = excluded.base_url, api_key = excluded.api_key, updated_at = excluded.updated_at`,
		s.Gateway, s.BaseURL, s.APIKey, now(),
	)
	return err
}
