package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"cardapio/api/internal/cart"
	"cardapio/api/internal/config"
	"cardapio/api/internal/db"
	"cardapio/api/internal/gateway"
	"cardapio/api/internal/httpapi"
	"cardapio/api/internal/logger"
	"cardapio/api/internal/pagarme"
	"cardapio/api/internal/pixapi"
	"cardapio/api/internal/repository"
	"cardapio/api/internal/telemetry"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file if it exists (ignores error if file is absent)
	_ = godotenv.Load()

	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatalf("erro ao iniciar telemetria: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Fatalf("erro ao criar diretório de dados: %v", err)
	}

	sqlite, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatalf("erro ao abrir banco de dados: %v", err)
	}
	defer sqlite.Close()

	if err := db.Migrate(sqlite); err != nil {
		logger.Fatalf("erro ao executar migrações: %v", err)
	}

	store, closeStore := cartStore(ctx, cfg)
	defer closeStore()

	registry := gateway.NewRegistry(
		pagarme.NewClient(gateway.NewCaller(pagarme.Name, cfg.GatewayTimeout), cfg.PixExpiration),
		pixapi.NewClient(gateway.NewCaller(pixapi.Name, cfg.GatewayTimeout), cfg.PixExpiration, postbackURL(cfg.PublicBaseURL)),
	)
	checkGatewaySettings(ctx, sqlite, registry)

	handler := httpapi.NewHandler(sqlite, registry, store).Routes(cfg.CORSOrigins)

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Infof("servidor HTTP escutando em %s", addr)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("erro no servidor: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("encerrando...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("erro ao encerrar servidor: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Errorf("erro ao encerrar telemetria: %v", err)
	}
	logger.Infof("servidor parado")
}

// cartStore prefers Redis when REDIS_ADDR is set; otherwise carts live as
// JSON files under CART_DIR.
func cartStore(ctx context.Context, cfg *config.Config) (cart.Store, func()) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Fatalf("erro ao conectar no redis: %v", err)
		}
		logger.Infof("carrinhos no redis em %s (ttl %s)", cfg.RedisAddr, cfg.CartTTL)
		return cart.NewRedisStore(client, cfg.CartTTL), func() { _ = client.Close() }
	}

	store, err := cart.NewFileStore(cfg.CartDir)
	if err != nil {
		logger.Fatalf("erro ao preparar diretório de carrinhos: %v", err)
	}
	logger.Infof("carrinhos em arquivo em %s", cfg.CartDir)
	return store, func() {}
}

func postbackURL(publicBaseURL string) string {
	if publicBaseURL == "" {
		return ""
	}
	return strings.TrimRight(publicBaseURL, "/") + "/v1/webhooks/" + pixapi.Name
}

// checkGatewaySettings only warns. Credentials are read per request, so a
// later seed run takes effect without a restart.
func checkGatewaySettings(ctx context.Context, sqlite *sql.DB, registry gateway.Registry) {
	for _, name := range registry.Names() {
		s, err := repository.GatewaySettingsByName(ctx, sqlite, name)
		if err != nil {
			logger.Warnf("erro ao ler configuração do gateway %s: %v", name, err)
			continue
		}
		if s == nil {
			logger.Warnf("gateway %s sem credenciais em gateway_settings, cobranças retornarão 503", name)
		}
	}
}
