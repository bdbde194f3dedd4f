package main

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/config"
	"github.com/Tobless-scripts/Snap-Card/internal/services"
)

type stores struct {
	profiles services.ProfileStore
	contacts services.ContactStore
	flags    services.FlagStore
	closers  []func(ctx context.Context) error
	log      *zap.Logger
}

func (s *stores) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.log.Warn("close store", zap.Error(err))
		}
	}
}

// openStores picks the profile, contact and strike backends. Profiles and
// strikes live in MongoDB when MONGO_URI is set and in DATA_DIR otherwise;
// contacts follow CONTACT_STORE.
func openStores(ctx context.Context, cfg *config.Config, app *firebase.App, log *zap.Logger) (*stores, error) {
	st := &stores{log: log}

	connectCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if cfg.MongoURI != "" {
		profiles, err := services.NewMongoProfileService(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo profiles: %w", err)
		}
		st.profiles = profiles
		st.closers = append(st.closers, profiles.Close)

		flags, err := services.NewMongoUserFlagService(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("mongo user flags: %w", err)
		}
		st.flags = flags
		st.closers = append(st.closers, flags.Close)
	} else {
		profiles, err := services.NewFileProfileService(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("file profiles: %w", err)
		}
		st.profiles = profiles
		st.flags = services.NewMemoryUserFlagService()
	}

	switch cfg.ContactStore {
	case config.StoreMongo:
		if cfg.MongoURI == "" {
			st.close()
			return nil, fmt.Errorf("CONTACT_STORE=mongo requires MONGO_URI")
		}
		contacts, err := services.NewMongoContactStore(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("mongo contacts: %w", err)
		}
		st.contacts = contacts
		st.closers = append(st.closers, contacts.Close)
	case config.StoreFirestore:
		if app == nil {
			st.close()
			return nil, fmt.Errorf("CONTACT_STORE=firestore requires Firebase credentials")
		}
		client, err := app.Firestore(connectCtx)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		contacts := services.NewFirestoreContactStore(client)
		st.contacts = contacts
		st.closers = append(st.closers, func(context.Context) error { return contacts.Close() })
	case config.StoreFile:
		contacts, err := services.NewFileContactStore(cfg.DataDir)
		if err != nil {
			st.close()
			return nil, fmt.Errorf("file contacts: %w", err)
		}
		st.contacts = contacts
	default:
		st.close()
		return nil, fmt.Errorf("unknown CONTACT_STORE %q", cfg.ContactStore)
	}

	log.Info("stores ready",
		zap.Bool("mongo", cfg.MongoURI != ""),
		zap.String("contacts", cfg.ContactStore))
	return st, nil
}
