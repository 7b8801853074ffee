package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/provenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReportRepository struct {
	mongoRepo *MongoRepository
}

func NewReportRepository(mongoRepo *MongoRepository) *ReportRepository {
	return &ReportRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *ReportRepository) SaveReport(ctx context.Context, report *models.Report) error {
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now()
	}
	if err := r.mongoRepo.InsertOne(ctx, textReportsCollection, report); err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (r *ReportRepository) SaveCodeReport(ctx context.Context, report *models.CodeReport) error {
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now()
	}
	if err := r.mongoRepo.InsertOne(ctx, codeReportsCollection, report); err != nil {
		return fmt.Errorf("failed to insert code report: %w", err)
	}
	return nil
}

func latestFirst() *options.FindOneOptions {
	return options.FindOne().SetSort(bson.D{{Key: "generated_at", Value: -1}})
}

// GetLatestReport returns the newest text report, or nil, nil when none exists.
func (r *ReportRepository) GetLatestReport(ctx context.Context, assignmentID string) (*models.Report, error) {
	var report models.Report
	err := r.mongoRepo.FindOne(ctx, textReportsCollection, bson.M{"assignment_id": assignmentID}, latestFirst()).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find report: %w", err)
	}
	return &report, nil
}

func (r *ReportRepository) GetLatestCodeReport(ctx context.Context, assignmentID string) (*models.CodeReport, error) {
	var report models.CodeReport
	err := r.mongoRepo.FindOne(ctx, codeReportsCollection, bson.M{"assignment_id": assignmentID}, latestFirst()).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find code report: %w", err)
	}
	return &report, nil
}
