package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Supplier is a parts vendor. SpareParts is the back-reference side of the
// SparePart.Suppliers association and must stay symmetric with it.
type Supplier struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name       string               `bson:"name" json:"name"`
	Phone      string               `bson:"phone,omitempty" json:"phone,omitempty"`
	Email      string               `bson:"email,omitempty" json:"email,omitempty"`
	Address    string               `bson:"address,omitempty" json:"address,omitempty"`
	Image      string               `bson:"image,omitempty" json:"image,omitempty"`
	SpareParts []primitive.ObjectID `bson:"spare_parts" json:"spare_parts"`
	CreatedAt  time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at" json:"updated_at"`
}
