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

// SupplierCollection defines the interface for supplier record operations.
// AddSparePart and RemoveSparePart are the set-valued link primitives used by
// the catalog synchronizer; both are idempotent.
type SupplierCollection interface {
	InsertSupplier(ctx context.Context, supplier models.Supplier) error
	FindSupplierByID(ctx context.Context, id string) (*models.Supplier, error)
	FindSupplierByEmail(ctx context.Context, email string, excludeID string) (*models.Supplier, error)
	FindSuppliers(ctx context.Context, filter bson.M) ([]models.Supplier, error)
	FindSuppliersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Supplier, error)
	UpdateSupplier(ctx context.Context, id string, supplier models.Supplier) error
	DeleteSupplier(ctx context.Context, id string) error
	AddSparePart(ctx context.Context, supplierIDs []primitive.ObjectID, partID primitive.ObjectID) error
	RemoveSparePart(ctx context.Context, supplierIDs []primitive.ObjectID, partID primitive.ObjectID) error
}

// MongoSupplierCollection implements SupplierCollection for MongoDB.
type MongoSupplierCollection struct {
	Collection *mongo.Collection
}

// InsertSupplier inserts a supplier record.
func (c *MongoSupplierCollection) InsertSupplier(ctx context.Context, supplier models.Supplier) error {
	supplier.CreatedAt = time.Now()
	supplier.UpdatedAt = time.Now()
	if supplier.SpareParts == nil {
		supplier.SpareParts = []primitive.ObjectID{}
	}

	_, err := c.Collection.InsertOne(ctx, supplier)
	return err
}

// FindSupplierByID finds a supplier by its ID.
func (c *MongoSupplierCollection) FindSupplierByID(ctx context.Context, id string) (*models.Supplier, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("supplier not found")
	}

	var supplier models.Supplier
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&supplier)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("supplier not found")
		}
		return nil, err
	}

	return &supplier, nil
}

// FindSupplierByEmail finds a supplier by email, optionally excluding one id.
// Used for the email uniqueness pre-check on create and update.
func (c *MongoSupplierCollection) FindSupplierByEmail(ctx context.Context, email string, excludeID string) (*models.Supplier, error) {
	filter := bson.M{"email": email}
	if excludeID != "" {
		if objectID, err := primitive.ObjectIDFromHex(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": objectID}
		}
	}

	var supplier models.Supplier
	err := c.Collection.FindOne(ctx, filter).Decode(&supplier)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("supplier not found")
		}
		return nil, err
	}

	return &supplier, nil
}

// FindSuppliers queries suppliers matching the filter, newest first.
func (c *MongoSupplierCollection) FindSuppliers(ctx context.Context, filter bson.M) ([]models.Supplier, error) {
	cursor, err := c.Collection.Find(ctx, filter, optionsFindNewestFirst())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var suppliers []models.Supplier
	if err := cursor.All(ctx, &suppliers); err != nil {
		return nil, err
	}
	return suppliers, nil
}

// FindSuppliersByIDs batch-loads suppliers for reference population.
func (c *MongoSupplierCollection) FindSuppliersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Supplier, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return c.FindSuppliers(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// UpdateSupplier replaces a supplier by its ID.
func (c *MongoSupplierCollection) UpdateSupplier(ctx context.Context, id string, supplier models.Supplier) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("supplier not found")
	}

	supplier.ID = objectID
	supplier.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, supplier)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.NotFound("supplier not found")
	}
	return nil
}

// DeleteSupplier deletes a supplier by its ID.
func (c *MongoSupplierCollection) DeleteSupplier(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("supplier not found")
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperr.NotFound("supplier not found")
	}
	return nil
}

// AddSparePart adds a part reference to each listed supplier ($addToSet).
func (c *MongoSupplierCollection) AddSparePart(ctx context.Context, supplierIDs []primitive.ObjectID, partID primitive.ObjectID) error {
	if len(supplierIDs) == 0 {
		return nil
	}
	_, err := c.Collection.UpdateMany(
		ctx,
		bson.M{"_id": bson.M{"$in": supplierIDs}},
		bson.M{"$addToSet": bson.M{"spare_parts": partID}, "$set": bson.M{"updated_at": time.Now()}},
	)
	return err
}

// RemoveSparePart pulls a part reference from each listed supplier.
func (c *MongoSupplierCollection) RemoveSparePart(ctx context.Context, supplierIDs []primitive.ObjectID, partID primitive.ObjectID) error {
	if len(supplierIDs) == 0 {
		return nil
	}
	_, err := c.Collection.UpdateMany(
		ctx,
		bson.M{"_id": bson.M{"$in": supplierIDs}},
		bson.M{"$pull": bson.M{"spare_parts": partID}, "$set": bson.M{"updated_at": time.Now()}},
	)
	return err
}
