package main

import (
	"context"
	"os"
	"path/filepath"

	"cardapio/api/internal/config"
	"cardapio/api/internal/db"
	"cardapio/api/internal/db/seeds"
	"cardapio/api/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

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

	logger.Infof("executando seeds...")
	if err := seeds.Run(context.Background(), sqlite, cfg); err != nil {
		logger.Fatalf("erro ao executar seeds: %v", err)
	}
	logger.Infof("seeds finalizados com sucesso")
}
