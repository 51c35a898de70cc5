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

// CarCollection defines the interface for car record operations.
type CarCollection interface {
	InsertCar(ctx context.Context, car models.Car) error
	FindCarByID(ctx context.Context, id string) (*models.Car, error)
	FindCars(ctx context.Context, filter bson.M) ([]models.Car, error)
	FindCarsByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Car, error)
	CountByOwner(ctx context.Context, owner primitive.ObjectID) (int64, error)
	UpdateCar(ctx context.Context, id string, car models.Car) error
	DeleteCar(ctx context.Context, id string) error
	BumpKilometrage(ctx context.Context, id string, kilometrage float64) (bool, error)
}

// MongoCarCollection implements CarCollection for MongoDB.
type MongoCarCollection struct {
	Collection *mongo.Collection
}

// InsertCar inserts a car record into the collection.
func (c *MongoCarCollection) InsertCar(ctx context.Context, car models.Car) error {
	car.CreatedAt = time.Now()
	car.UpdatedAt = time.Now()
	if car.SpareParts == nil {
		car.SpareParts = []models.Installation{}
	}

	_, err := c.Collection.InsertOne(ctx, car)
	return err
}

// FindCarByID finds a car by its ID.
func (c *MongoCarCollection) FindCarByID(ctx context.Context, id string) (*models.Car, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("car not found")
	}

	var car models.Car
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&car)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("car not found")
		}
		return nil, err
	}

	return &car, nil
}

// FindCars queries car records matching the filter, newest first.
func (c *MongoCarCollection) FindCars(ctx context.Context, filter bson.M) ([]models.Car, error) {
	opts := optionsFindNewestFirst()
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var cars []models.Car
	if err := cursor.All(ctx, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// FindCarsByOwner lists the cars owned by a user, newest first.
func (c *MongoCarCollection) FindCarsByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Car, error) {
	return c.FindCars(ctx, bson.M{"owner": owner})
}

// CountByOwner counts the cars owned by a user. Used by the registration quota.
func (c *MongoCarCollection) CountByOwner(ctx context.Context, owner primitive.ObjectID) (int64, error) {
	return c.Collection.CountDocuments(ctx, bson.M{"owner": owner})
}

// UpdateCar replaces a car record by its ID.
func (c *MongoCarCollection) UpdateCar(ctx context.Context, id string, car models.Car) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("car not found")
	}

	car.ID = objectID
	car.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, car)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("car not found")
	}
	return nil
}

// DeleteCar deletes a car by its ID.
func (c *MongoCarCollection) DeleteCar(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("car not found")
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperr.NotFound("car not found")
	}
	return nil
}

// BumpKilometrage raises the car's odometer to the given reading. The update
// is guarded so a stale or out-of-order reading never lowers the odometer.
// Returns false when no record was updated.
func (c *MongoCarCollection) BumpKilometrage(ctx context.Context, id string, kilometrage float64) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, apperr.NotFound("car not found")
	}

	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID, "kilometrage": bson.M{"$lt": kilometrage}},
		bson.M{"$set": bson.M{"kilometrage": kilometrage, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}
