package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mkadri-dev/autocare-backend/internal/apperr"
	"github.com/mkadri-dev/autocare-backend/internal/models"
)

// SparePartCollection defines the interface for spare-part record operations.
type SparePartCollection interface {
	InsertPart(ctx context.Context, part models.SparePart) error
	FindPartByID(ctx context.Context, id string) (*models.SparePart, error)
	FindParts(ctx context.Context, filter bson.M) ([]models.SparePart, error)
	FindPartsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.SparePart, error)
	UpdatePart(ctx context.Context, id string, part models.SparePart) error
	DeletePart(ctx context.Context, id string) error
}

// MongoSparePartCollection implements SparePartCollection for MongoDB.
type MongoSparePartCollection struct {
	Collection *mongo.Collection
}

// InsertPart inserts a spare part into the catalog.
func (c *MongoSparePartCollection) InsertPart(ctx context.Context, part models.SparePart) error {
	part.CreatedAt = time.Now()
	part.UpdatedAt = time.Now()
	if part.Suppliers == nil {
		part.Suppliers = []primitive.ObjectID{}
	}

	_, err := c.Collection.InsertOne(ctx, part)
	return err
}

// FindPartByID finds a spare part by its ID.
func (c *MongoSparePartCollection) FindPartByID(ctx context.Context, id string) (*models.SparePart, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("spare part not found")
	}

	var part models.SparePart
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&part)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("spare part not found")
		}
		return nil, err
	}

	return &part, nil
}

// FindParts queries spare parts matching the filter, newest first.
func (c *MongoSparePartCollection) FindParts(ctx context.Context, filter bson.M) ([]models.SparePart, error) {
	cursor, err := c.Collection.Find(ctx, filter, optionsFindNewestFirst())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var parts []models.SparePart
	if err := cursor.All(ctx, &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

// FindPartsByIDs batch-loads spare parts for reference population. Missing
// ids are silently absent from the result; readers tolerate orphan references.
func (c *MongoSparePartCollection) FindPartsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.SparePart, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return c.FindParts(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// UpdatePart replaces a spare part by its ID.
func (c *MongoSparePartCollection) UpdatePart(ctx context.Context, id string, part models.SparePart) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("spare part not found")
	}

	part.ID = objectID
	part.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, part)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("spare part not found")
	}
	return nil
}

// DeletePart deletes a spare part by its ID.
func (c *MongoSparePartCollection) DeletePart(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("spare part not found")
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperr.NotFound("spare part not found")
	}
	return nil
}
