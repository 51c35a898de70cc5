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

// TechnicianCollection defines the interface for technician record operations.
type TechnicianCollection interface {
	InsertTechnician(ctx context.Context, technician models.Technician) error
	FindTechnicianByID(ctx context.Context, id string) (*models.Technician, error)
	FindTechnicians(ctx context.Context, filter bson.M) ([]models.Technician, error)
	FindServicingBrand(ctx context.Context, brand string) ([]models.Technician, error)
	UpdateTechnician(ctx context.Context, id string, technician models.Technician) error
	DeleteTechnician(ctx context.Context, id string) error
}

// MongoTechnicianCollection implements TechnicianCollection for MongoDB.
type MongoTechnicianCollection struct {
	Collection *mongo.Collection
}

// InsertTechnician inserts a technician record.
func (c *MongoTechnicianCollection) InsertTechnician(ctx context.Context, technician models.Technician) error {
	technician.CreatedAt = time.Now()
	technician.UpdatedAt = time.Now()
	if technician.Cars == nil {
		technician.Cars = []string{}
	}

	_, err := c.Collection.InsertOne(ctx, technician)
	return err
}

// FindTechnicianByID finds a technician by its ID.
func (c *MongoTechnicianCollection) FindTechnicianByID(ctx context.Context, id string) (*models.Technician, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("technician not found")
	}

	var technician models.Technician
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&technician)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("technician not found")
		}
		return nil, err
	}

	return &technician, nil
}

// FindTechnicians queries technicians matching the filter, newest first.
func (c *MongoTechnicianCollection) FindTechnicians(ctx context.Context, filter bson.M) ([]models.Technician, error) {
	cursor, err := c.Collection.Find(ctx, filter, optionsFindNewestFirst())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var technicians []models.Technician
	if err := cursor.All(ctx, &technicians); err != nil {
		return nil, err
	}
	return technicians, nil
}

// FindServicingBrand lists technicians whose serviced-brand list contains the
// given brand. The match is an exact, case-sensitive string comparison.
func (c *MongoTechnicianCollection) FindServicingBrand(ctx context.Context, brand string) ([]models.Technician, error) {
	return c.FindTechnicians(ctx, bson.M{"cars": brand})
}

// UpdateTechnician replaces a technician by its ID.
func (c *MongoTechnicianCollection) UpdateTechnician(ctx context.Context, id string, technician models.Technician) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("technician not found")
	}

	technician.ID = objectID
	technician.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, technician)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("technician not found")
	}
	return nil
}

// DeleteTechnician deletes a technician by its ID.
func (c *MongoTechnicianCollection) DeleteTechnician(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("technician not found")
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperr.NotFound("technician not found")
	}
	return nil
}
