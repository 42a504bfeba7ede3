package rag

import (
	"context"
	"errors"
	"fmt"

	"docbot-rag/internal/config"
	"docbot-rag/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoInsertBatch = 500

type chunkDocument struct {
	IndexID string    `bson:"index_id"`
	Ordinal int       `bson:"ordinal"`
	Page    int       `bson:"page"`
	Text    string    `bson:"text"`
	Vector  []float32 `bson:"vector"`
}

// MongoStore keeps the index in two collections. The manifest is written
// after all chunks, so a manifest always points at a complete chunk set.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) Location() string { return "mongodb:" + s.db.Name() }

func (s *MongoStore) Save(ctx context.Context, idx *Index, m Manifest) error {
	ctx, cancel := utils.WithLongTimeout(ctx)
	defer cancel()

	chunksCol := s.db.Collection(config.IndexChunksCollection)
	manifests := s.db.Collection(config.IndexManifestCollection)

	// Leftovers of an earlier interrupted save with the same id.
	if _, err := chunksCol.DeleteMany(ctx, bson.M{"index_id": m.IndexID}); err != nil {
		return err
	}

	batch := make([]interface{}, 0, mongoInsertBatch)
	for i, c := range idx.chunks {
		batch = append(batch, chunkDocument{
			IndexID: m.IndexID,
			Ordinal: c.Ordinal,
			Page:    c.Page,
			Text:    c.Text,
			Vector:  idx.Vector(i),
		})
		if len(batch) == mongoInsertBatch || i == len(idx.chunks)-1 {
			if _, err := chunksCol.InsertMany(ctx, batch); err != nil {
				return fmt.Errorf("insert chunks: %w", err)
			}
			batch = batch[:0]
		}
	}

	if _, err := manifests.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert manifest: %w", err)
	}

	// Older generations are garbage now; failures here only waste space.
	_, _ = manifests.DeleteMany(ctx, bson.M{"_id": bson.M{"$ne": m.IndexID}})
	_, _ = chunksCol.DeleteMany(ctx, bson.M{"index_id": bson.M{"$ne": m.IndexID}})
	return nil
}

func (s *MongoStore) Load(ctx context.Context) (*Index, Manifest, error) {
	ctx, cancel := utils.WithLongTimeout(ctx)
	defer cancel()

	var m Manifest
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	err := s.db.Collection(config.IndexManifestCollection).FindOne(ctx, bson.M{}, opts).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, m, ErrIndexNotFound
	}
	if err != nil {
		return nil, m, err
	}
	if err := checkManifest(m); err != nil {
		return nil, m, err
	}

	cur, err := s.db.Collection(config.IndexChunksCollection).Find(ctx,
		bson.M{"index_id": m.IndexID},
		options.Find().SetSort(bson.D{{Key: "ordinal", Value: 1}}),
	)
	if err != nil {
		return nil, m, err
	}
	defer cur.Close(ctx)

	chunks := make([]Chunk, 0, m.ChunkCount)
	flat := make([]float32, 0, m.ChunkCount*m.Dimension)
	for cur.Next(ctx) {
		var doc chunkDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, m, fmt.Errorf("%w: chunk: %v", ErrSchemaMismatch, err)
		}
		if len(doc.Vector) != m.Dimension {
			return nil, m, fmt.Errorf("%w: chunk %d has %d dimensions", ErrDimensionMismatch, doc.Ordinal, len(doc.Vector))
		}
		chunks = append(chunks, Chunk{Text: doc.Text, Page: doc.Page, Ordinal: doc.Ordinal})
		flat = append(flat, doc.Vector...)
	}
	if err := cur.Err(); err != nil {
		return nil, m, err
	}

	idx, err := restore(m, chunks, flat)
	if err != nil {
		return nil, m, err
	}
	return idx, m, nil
}
