package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PartCategory classifies a spare part in the catalog.
type PartCategory string

const (
	CategoryEngine     PartCategory = "engine"
	CategoryElectrical PartCategory = "electrical"
	CategoryBrakes     PartCategory = "brakes"
	CategoryBody       PartCategory = "body"
	CategoryOther      PartCategory = "other"
)

// SparePart is a catalog item. LifespanKm and LifespanMonths are the rated
// replacement intervals; either or both may be absent, and a part with neither
// produces no maintenance recommendation.
type SparePart struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name           string               `bson:"name" json:"name"`
	Category       PartCategory         `bson:"category" json:"category"`
	Brand          string               `bson:"brand" json:"brand"`
	Price          float64              `bson:"price" json:"price"`
	Stock          int                  `bson:"stock" json:"stock"`
	LifespanKm     *float64             `bson:"lifespan_km,omitempty" json:"lifespan_km,omitempty"`
	LifespanMonths *int                 `bson:"lifespan_months,omitempty" json:"lifespan_months,omitempty"`
	Image          string               `bson:"image,omitempty" json:"image,omitempty"`
	Suppliers      []primitive.ObjectID `bson:"suppliers" json:"suppliers"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`
}

// IsValidPartCategory checks if a category is valid.
func IsValidPartCategory(c PartCategory) bool {
	switch c {
	case CategoryEngine, CategoryElectrical, CategoryBrakes, CategoryBody, CategoryOther:
		return true
	default:
		return false
	}
}
