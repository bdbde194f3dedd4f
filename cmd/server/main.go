package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/config"
	"github.com/Tobless-scripts/Snap-Card/internal/handlers"
	"github.com/Tobless-scripts/Snap-Card/internal/logger"
	appMiddleware "github.com/Tobless-scripts/Snap-Card/internal/middleware"
	"github.com/Tobless-scripts/Snap-Card/internal/qr"
	"github.com/Tobless-scripts/Snap-Card/internal/services"
	"github.com/Tobless-scripts/Snap-Card/internal/share"
	"github.com/Tobless-scripts/Snap-Card/internal/vcard"
)

func main() {
	cfg := config.Load()

	lg := logger.New()
	if err := lg.Init(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	log := lg.Log
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Firebase (ID token verification, Firestore contacts)
	var app *firebase.App
	if cfg.FirebaseProjectID != "" || cfg.FirebaseCredentialsJSON != "" {
		var err error
		app, err = appMiddleware.NewFirebaseApp(ctx, appMiddleware.FirebaseAuthConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsJSON: cfg.FirebaseCredentialsJSON,
		})
		if err != nil {
			log.Warn("firebase unavailable", zap.Error(err))
		}
	}

	var verifier appMiddleware.TokenVerifier
	var users handlers.UserLookup
	if app != nil {
		authClient, err := app.Auth(ctx)
		if err != nil {
			log.Warn("firebase auth client unavailable", zap.Error(err))
		} else {
			verifier = appMiddleware.FirebaseVerifier{Client: authClient}
			users = authClient
		}
	}
	if verifier == nil && cfg.JWTSecret != "" {
		log.Info("verifying HS256 development tokens")
		verifier = appMiddleware.JWTVerifier{Secret: []byte(cfg.JWTSecret)}
	}
	if verifier == nil {
		log.Warn("no token verifier configured; authenticated routes will return 503")
	}

	st, err := openStores(ctx, cfg, app, log)
	if err != nil {
		log.Fatal("open stores", zap.Error(err))
	}
	defer st.close()

	var moderator handlers.PhotoModerator
	if cfg.StorageBucket != "" {
		m, err := services.NewModerationService(ctx, cfg.StorageBucket, st.flags, logger.Named(log, "moderation"))
		if err != nil {
			log.Warn("photo moderation disabled", zap.Error(err))
		} else {
			moderator = m
		}
	}

	var sharer share.Sharer
	if cfg.SendGridAPIKey != "" && cfg.ShareFromEmail != "" {
		sharer = services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.ShareFromEmail)
	}

	ingest := services.NewIngestionService(st.contacts, logger.Named(log, "ingest"),
		services.WithDedupeOnWrite(cfg.DedupeOnWrite))
	exchange := services.NewExchangeService(ingest, logger.Named(log, "exchange"))

	qrOpts := qr.DefaultOptions()
	qrOpts.Size = cfg.QRSize
	qrOpts.Margin = cfg.QRMargin

	// Handlers
	profileHandler := handlers.NewProfileHandler(st.profiles, users, moderator, log)
	cardHandler := handlers.NewCardHandler(st.profiles, vcard.NewGenerator(), qrOpts, sharer, log)
	scanHandler := handlers.NewScanHandler(exchange, qr.NewReader(), sharer, handlers.ScanConfig{
		FPS:            cfg.ScanFPS,
		Timeout:        cfg.ScanTimeout,
		MaxUploadBytes: cfg.MaxUploadSizeMB << 20,
	}, logger.Named(log, "scan"))
	contactsHandler := handlers.NewContactsHandler(services.NewContactService(st.contacts), log)
	accountHandler := handlers.NewAccountHandler(services.NewAccountService(st.profiles, st.contacts), log)

	limiter := appMiddleware.NewIPRateLimiter(cfg.AnonScanRPS, cfg.AnonScanBurst)
	recaptcha := appMiddleware.NewRecaptcha(cfg.RecaptchaSecret, cfg.RecaptchaMinScore)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.WithRequestLogging(logger.Named(log, "http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", appMiddleware.RecaptchaHeader},
		ExposedHeaders:   []string{"Link", "Content-Disposition", handlers.SavedHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		// Scanning works signed out; signed-in scans are saved.
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.OptionalAuth(verifier))
			r.Use(appMiddleware.LimitAnonymous(limiter))
			r.Use(appMiddleware.RequireHumanIfAnonymous(recaptcha))

			r.Post("/scan", scanHandler.ScanImage)
			r.Post("/scan/text", scanHandler.ScanText)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(verifier))

			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpsertProfile)
			r.Get("/profile/{userId}", profileHandler.GetPublicProfileByUserID)

			r.Route("/card", func(r chi.Router) {
				r.Get("/vcard", cardHandler.GetVCard)
				r.Get("/qr", cardHandler.GetQRCode)
				r.Post("/share", cardHandler.ShareCard)
			})

			r.Get("/contacts", contactsHandler.ListContacts)
			r.Delete("/account", accountHandler.DeleteAccount)
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("snap card api listening",
		zap.String("addr", cfg.ServerAddress),
		zap.String("contact_store", cfg.ContactStore))

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	// Let background contact writes finish before the stores close.
	ingest.Wait()
}
