package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/getyoursite/getyoursite/internal/pkg/env"
)

var mongoClient *mongo.Client

// SetupMongo connects to MONGO_URL and returns the MONGO_DB database.
func SetupMongo(ctx context.Context) (*mongo.Database, error) {
	uri := env.GetEnv("MONGO_URL", "mongodb://localhost:27017")
	name := env.GetEnv("MONGO_DB", "getyoursite")

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second).
		SetAppName("getyoursite")

	var err error
	for i := 0; i < maxRetries; i++ {
		mongoClient, err = connectMongo(ctx, opts)
		if err == nil {
			log.Infof("Connected to MongoDB database %q", name)
			return mongoClient.Database(name), nil
		}

		log.Warnf("Failed to connect to MongoDB (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("connect mongo: %w", err)
}

func connectMongo(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// CloseMongo disconnects the client opened by SetupMongo.
func CloseMongo(ctx context.Context) error {
	if mongoClient == nil {
		return nil
	}
	return mongoClient.Disconnect(ctx)
}
