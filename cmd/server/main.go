package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/echowire/echowire/internal/archive/sqlite"
	"github.com/echowire/echowire/internal/blob"
	"github.com/echowire/echowire/internal/config"
	"github.com/echowire/echowire/internal/logger"
	"github.com/echowire/echowire/internal/server"
)

func main() {
	logger.Init(os.Stdout)

	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := sqlite.NewStore(cfg.Database)
	if err != nil {
		log.Fatalf("init archive: %v", err)
	}
	defer store.Close()

	blobs := blob.NewDirStore(cfg.UploadDir)

	app := server.NewApp(cfg, store, blobs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("server shutdown: %v", err)
	}
}
