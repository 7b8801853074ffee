package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/provenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type DocumentRepository struct {
	mongoRepo *MongoRepository
}

func NewDocumentRepository(mongoRepo *MongoRepository) *DocumentRepository {
	return &DocumentRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *DocumentRepository) SaveDocument(ctx context.Context, doc *models.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	if err := r.mongoRepo.InsertOne(ctx, documentsCollection, doc); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetDocument returns nil, nil when no document exists for the assignment.
func (r *DocumentRepository) GetDocument(ctx context.Context, assignmentID string) (*models.Document, error) {
	var doc models.Document
	err := r.mongoRepo.FindOne(ctx, documentsCollection, bson.M{"assignment_id": assignmentID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find document: %w", err)
	}
	return &doc, nil
}
