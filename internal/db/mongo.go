package db

import (
	"context"                         // Connection deadline
	"fmt"                             // Error wrapping
	"stroke_registry/internal/config" // Custom package for configuration
	"time"                            // Time durations

	"go.mongodb.org/mongo-driver/mongo"         // MongoDB client
	"go.mongodb.org/mongo-driver/mongo/options" // Client options
)

const mongoConnectTimeout = 10 * time.Second

// ConnectMongo creates the process-wide document store client and checks
// it can reach the server. The caller owns Disconnect.
func ConnectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}
