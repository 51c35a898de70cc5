package catalog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkadri-dev/autocare-backend/internal/db"
)

// supplierSync keeps the SparePart.Suppliers and Supplier.SpareParts sides of
// the association symmetric. All writes go through the set-valued add/remove
// primitives, so a retried sync converges instead of duplicating links.
type supplierSync struct {
	suppliers db.SupplierCollection
}

// linkCreated records a new part on each of its suppliers.
func (s supplierSync) linkCreated(ctx context.Context, partID primitive.ObjectID, supplierIDs []primitive.ObjectID) error {
	return s.suppliers.AddSparePart(ctx, supplierIDs, partID)
}

// linkUpdated applies the delta between the old and new supplier lists.
func (s supplierSync) linkUpdated(ctx context.Context, partID primitive.ObjectID, oldIDs, newIDs []primitive.ObjectID) error {
	toRemove, toAdd := diffIDs(oldIDs, newIDs)
	if err := s.suppliers.RemoveSparePart(ctx, toRemove, partID); err != nil {
		return err
	}
	return s.suppliers.AddSparePart(ctx, toAdd, partID)
}

// linkDeleted pulls a deleted part from every supplier still referencing it.
func (s supplierSync) linkDeleted(ctx context.Context, partID primitive.ObjectID, supplierIDs []primitive.ObjectID) error {
	return s.suppliers.RemoveSparePart(ctx, supplierIDs, partID)
}

// diffIDs computes the set differences old−new and new−old.
func diffIDs(old, new []primitive.ObjectID) (toRemove, toAdd []primitive.ObjectID) {
	oldSet := make(map[primitive.ObjectID]struct{}, len(old))
	for _, id := range old {
		oldSet[id] = struct{}{}
	}
	newSet := make(map[primitive.ObjectID]struct{}, len(new))
	for _, id := range new {
		newSet[id] = struct{}{}
	}

	for _, id := range old {
		if _, ok := newSet[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range new {
		if _, ok := oldSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	return toRemove, toAdd
}
