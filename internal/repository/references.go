package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/provenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReferenceRepository struct {
	mongoRepo *MongoRepository
}

func NewReferenceRepository(mongoRepo *MongoRepository) *ReferenceRepository {
	return &ReferenceRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *ReferenceRepository) AddReference(ctx context.Context, ref *models.ReferenceSolution) error {
	ref.CreatedAt = time.Now()
	if err := r.mongoRepo.InsertOne(ctx, referencesCollection, ref); err != nil {
		return fmt.Errorf("failed to insert reference solution: %w", err)
	}
	return nil
}

// GetReferences returns the solutions of an assignment in insertion order, so
// the first one added is the primary reference.
func (r *ReferenceRepository) GetReferences(ctx context.Context, assignmentID string) ([]models.ReferenceSolution, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.mongoRepo.FindMany(ctx, referencesCollection, bson.M{"assignment_id": assignmentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reference solutions: %w", err)
	}
	defer cursor.Close(ctx)

	refs := make([]models.ReferenceSolution, 0)
	if err := cursor.All(ctx, &refs); err != nil {
		return nil, fmt.Errorf("failed to decode reference solutions: %w", err)
	}
	return refs, nil
}
