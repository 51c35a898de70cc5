package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FuelType represents the fuel system of a car.
type FuelType string

const (
	FuelGasoline FuelType = "gasoline"
	FuelDiesel   FuelType = "diesel"
	FuelElectric FuelType = "electric"
	FuelHybrid   FuelType = "hybrid"
)

// Installation records one spare-part replacement event on a car: which part,
// when it was changed and the odometer reading at that moment.
type Installation struct {
	PartID      primitive.ObjectID `bson:"part" json:"part_id"`
	ChangeMonth int                `bson:"change_month" json:"change_month"`
	ChangeYear  int                `bson:"change_year" json:"change_year"`
	Kilometrage float64            `bson:"kilometrage" json:"kilometrage"`
}

// Car represents a registered vehicle owned by a single user.
type Car struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Owner       primitive.ObjectID `bson:"owner" json:"owner"`
	Brand       string             `bson:"brand" json:"brand"`
	Model       string             `bson:"model" json:"model"`
	Year        int                `bson:"year,omitempty" json:"year,omitempty"`
	Kilometrage float64            `bson:"kilometrage" json:"kilometrage"`
	FuelType    FuelType           `bson:"fuel_type,omitempty" json:"fuel_type,omitempty"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	SpareParts  []Installation     `bson:"spare_parts" json:"spare_parts"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsValidFuelType checks if a fuel type is valid.
func IsValidFuelType(ft FuelType) bool {
	switch ft {
	case FuelGasoline, FuelDiesel, FuelElectric, FuelHybrid:
		return true
	default:
		return false
	}
}

// ValidateCarYear checks the model year range. Zero means "not provided".
func ValidateCarYear(year int, now time.Time) error {
	if year == 0 {
		return nil
	}
	if year < 1900 || year > now.Year() {
		return fmt.Errorf("year must be between 1900 and %d", now.Year())
	}
	return nil
}

// Validate checks an installation's change date and odometer reading.
func (i Installation) Validate(now time.Time) error {
	if i.PartID.IsZero() {
		return fmt.Errorf("installation requires a spare part reference")
	}
	if i.ChangeMonth < 1 || i.ChangeMonth > 12 {
		return fmt.Errorf("change month must be between 1 and 12")
	}
	if i.ChangeYear < 2000 || i.ChangeYear > now.Year()+1 {
		return fmt.Errorf("change year must be between 2000 and %d", now.Year()+1)
	}
	if i.Kilometrage < 0 {
		return fmt.Errorf("installation kilometrage cannot be negative")
	}
	return nil
}
