package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultTimeout = 10 * time.Second
	appName        = "courier-tracking"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

func (c Config) clientOptions() *options.ClientOptions {
	return options.Client().
		ApplyURI(c.URI).
		SetAppName(appName).
		SetServerSelectionTimeout(c.timeout()).
		SetRetryWrites(true)
}

// Connect dials MongoDB and pings the primary before handing out the
// database. On a failed ping the client is disconnected.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	client, err := mongo.Connect(connectCtx, cfg.clientOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping %s: %w", cfg.Database, err)
	}

	return client, client.Database(cfg.Database), nil
}

// Indexer is implemented by repositories owning a collection.
type Indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// EnsureIndexes runs every indexer and stops at the first failure.
func EnsureIndexes(ctx context.Context, indexers ...Indexer) error {
	for _, ix := range indexers {
		if err := ix.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
	}
	return nil
}
