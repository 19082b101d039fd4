package seeds

import (
	"context"
	"path/filepath"
	"testing"

	"cardapio/api/internal/config"
	"cardapio/api/internal/db"
	"cardapio/api/internal/delivery"
	"cardapio/api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, db.Migrate(conn))

	cfg := &config.Config{PagarmeBaseURL: "https://api.pagar.me/core/v5", PagarmeAPIKey: "sk_test"}

	// duas execuções seguidas devem deixar o mesmo estado
	require.NoError(t, Run(ctx, conn, cfg))
	require.NoError(t, Run(ctx, conn, cfg))

	zones, err := repository.ActiveZones(ctx, conn)
	require.NoError(t, err)
	assert.Len(t, zones, 3)
	assert.True(t, delivery.Resolve("01310-100", zones).Found)
	assert.False(t, delivery.Resolve("02010-000", zones).Found, "zona norte está inativa")

	p, err := repository.ProductByID(ctx, conn, "seed-pizza-margherita")
	require.NoError(t, err)
	require.NotNil(t, p)

	s, err := repository.GatewaySettingsByName(ctx, conn, "pagarme")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "sk_test", s.APIKey)

	s, err = repository.GatewaySettingsByName(ctx, conn, "pixapi")
	require.NoError(t, err)
	assert.Nil(t, s)
}
