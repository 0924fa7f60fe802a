package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lightlink-network/ll-whale-tracker/database/models"
	"github.com/lightlink-network/ll-whale-tracker/tracker"
	"github.com/lightlink-network/ll-whale-tracker/types"
)

var _ tracker.Sink = &Database{}

// WriteRow stores one outcome. A second write for the same hash is ignored.
func (db *Database) WriteRow(ctx context.Context, row types.Row) error {
	_, err := db.outcomes().InsertOne(ctx, models.FromRow(row))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			db.logger.Debug("outcome already stored", "hash", row.Hash)
			return nil
		}
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

func (db *Database) GetOutcomeByHash(ctx context.Context, hash string) (*models.Outcome, error) {
	var outcome models.Outcome
	err := db.outcomes().FindOne(ctx, bson.D{{Key: "hash", Value: hash}}).Decode(&outcome)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}
	return &outcome, nil
}

// GetOutcomes returns one page of outcomes, newest first.
func (db *Database) GetOutcomes(ctx context.Context, filter models.Filter, page int64, pageSize int64) (*models.PaginatedResult, error) {
	page, pageSize = normalizePage(page, pageSize)
	mongoFilter := buildFilter(filter)
	skip := (page - 1) * pageSize

	collection := db.outcomes()
	totalCount, err := collection.CountDocuments(ctx, mongoFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "resolved_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(pageSize)

	cursor, err := collection.Find(ctx, mongoFilter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to find outcomes: %w", err)
	}
	defer cursor.Close(ctx)

	outcomes := make([]models.Outcome, 0, pageSize)
	if err := cursor.All(ctx, &outcomes); err != nil {
		return nil, fmt.Errorf("failed to decode outcomes: %w", err)
	}

	return &models.PaginatedResult{
		Items:      outcomes,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}
