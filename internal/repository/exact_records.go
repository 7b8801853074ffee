package repository

import (
	"context"
	"fmt"

	"github.com/RishiKendai/provenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ExactRecordRepository stores exact-match records with the sentence hash as
// _id, so the first writer of a hash wins.
type ExactRecordRepository struct {
	mongoRepo *MongoRepository
}

func NewExactRecordRepository(mongoRepo *MongoRepository) *ExactRecordRepository {
	return &ExactRecordRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *ExactRecordRepository) InsertIfAbsent(ctx context.Context, record *models.ExactMatchRecord) (bool, error) {
	update := bson.M{"$setOnInsert": record}
	opts := options.Update().SetUpsert(true)

	res, err := r.mongoRepo.UpdateOne(ctx, exactRecordsCollection, bson.M{"_id": record.Hash}, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert exact record: %w", err)
	}
	return res.UpsertedCount == 1, nil
}

func (r *ExactRecordRepository) Get(ctx context.Context, hash string) (*models.ExactMatchRecord, error) {
	var record models.ExactMatchRecord
	err := r.mongoRepo.FindOne(ctx, exactRecordsCollection, bson.M{"_id": hash}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find exact record: %w", err)
	}
	return &record, nil
}

func (r *ExactRecordRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.mongoRepo.CountDocuments(ctx, exactRecordsCollection, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count exact records: %w", err)
	}
	return n, nil
}
