package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/config"
	"github.com/Tobless-scripts/Snap-Card/internal/logger"
	"github.com/Tobless-scripts/Snap-Card/internal/services"
)

func main() {
	cfg := config.Load()
	lg := logger.New()
	if err := lg.Init(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	log := lg.Log.Named("moderation-worker")
	defer log.Sync()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if cfg.MongoURI == "" || cfg.StorageBucket == "" {
		log.Fatal("MONGO_URI and STORAGE_BUCKET are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := storage.NewClient(context.Background())
	if err != nil {
		log.Fatal("storage client", zap.Error(err))
	}
	defer client.Close()

	profiles, err := services.NewMongoProfileService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("mongo profiles", zap.Error(err))
	}
	defer profiles.Close(context.Background())

	flags, err := services.NewMongoUserFlagService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("mongo user flags", zap.Error(err))
	}
	defer flags.Close(context.Background())

	wk := &worker{
		objects: &services.GCSObjectStore{Client: client, Bucket: cfg.StorageBucket, Log: log},
		detect:  services.DetectSafeSearch,
		actions: &services.ModerationActions{Profiles: profiles, Flags: flags},
		bucket:  cfg.StorageBucket,
		log:     log,
		timeout: 60 * time.Second,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/events", wk.handleFinalize)

	log.Info("listening", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal("server", zap.Error(err))
	}
}
