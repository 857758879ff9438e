package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/sma-report-card/pkg/config"
	"github.com/noah-isme/sma-report-card/pkg/database"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

const healthCollection = "_health"

// Open connects the document store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config) (DocumentStore, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, db, err := database.NewMongo(cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(client, db), nil
	case config.StoreFirestore:
		client, err := database.NewFirestore(ctx, cfg.Firestore)
		if err != nil {
			return nil, err
		}
		return NewFirestoreStore(client), nil
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		store := NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure documents schema: %w", err)
		}
		return store, nil
	case config.StoreMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// Ping checks that the store answers a point read. A missing document is healthy.
func Ping(ctx context.Context, store DocumentStore) error {
	_, err := store.Get(ctx, healthCollection, "ping")
	if err == nil || errors.Is(err, appErrors.ErrRecordNotFound) {
		return nil
	}
	return err
}
