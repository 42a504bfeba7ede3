package config

import (
	"context"
	"fmt"

	"docbot-rag/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections used by the Mongo index backend.
const (
	IndexManifestCollection = "index_manifests"
	IndexChunksCollection   = "index_chunks"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := utils.WithTimeout(context.Background())
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	if err = createIndexes(ctx, client, cfg.DBName); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	chunkIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "index_id", Value: 1}, {Key: "ordinal", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection(IndexChunksCollection).Indexes().CreateMany(ctx, chunkIndexes); err != nil {
		return err
	}

	manifestIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	_, err := db.Collection(IndexManifestCollection).Indexes().CreateMany(ctx, manifestIndexes)
	return err
}
