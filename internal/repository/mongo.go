package repository

import (
	"context"
	"fmt"

	mongoInfra "github.com/RishiKendai/provenance/internal/infra/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	documentsCollection    = "documents"
	referencesCollection   = "reference_solutions"
	textReportsCollection  = "originality_reports"
	codeReportsCollection  = "code_reports"
	exactRecordsCollection = "exact_match_records"
)

type MongoRepository struct {
	db *mongo.Database
}

func NewMongoRepository(client *mongoInfra.Client) *MongoRepository {
	return &MongoRepository{
		db: client.Database,
	}
}

func (r *MongoRepository) InsertOne(ctx context.Context, collection string, document interface{}, opts ...*options.InsertOneOptions) error {
	_, err := r.db.Collection(collection).InsertOne(ctx, document, opts...)
	return err
}

func (r *MongoRepository) FindOne(ctx context.Context, collection string, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	return r.db.Collection(collection).FindOne(ctx, filter, opts...)
}

func (r *MongoRepository) FindMany(ctx context.Context, collection string, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return r.db.Collection(collection).Find(ctx, filter, opts...)
}

func (r *MongoRepository) UpdateOne(ctx context.Context, collection string, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return r.db.Collection(collection).UpdateOne(ctx, filter, update, opts...)
}

func (r *MongoRepository) CountDocuments(ctx context.Context, collection string, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return r.db.Collection(collection).CountDocuments(ctx, filter, opts...)
}

func (r *MongoRepository) GetCollection(collectionName string) *mongo.Collection {
	return r.db.Collection(collectionName)
}

// EnsureIndexes creates the lookup indexes every repository relies on.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	byAssignment := bson.D{{Key: "assignment_id", Value: 1}, {Key: "generated_at", Value: -1}}
	indexes := map[string][]mongo.IndexModel{
		documentsCollection: {
			{Keys: bson.D{{Key: "assignment_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		referencesCollection: {
			{Keys: bson.D{{Key: "assignment_id", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		textReportsCollection: {{Keys: byAssignment}},
		codeReportsCollection: {{Keys: byAssignment}},
	}

	for collection, specs := range indexes {
		if _, err := r.db.Collection(collection).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
