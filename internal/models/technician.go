package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Speciality classifies what kind of work a technician does.
type Speciality string

const (
	SpecialityMechanic    Speciality = "mechanic"
	SpecialityElectrician Speciality = "electrician"
)

// Technician is a service provider. Cars holds the car brand names the
// technician services; matching against a car is an exact string comparison,
// not a reference.
type Technician struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Speciality Speciality         `bson:"speciality" json:"speciality"`
	Cars       []string           `bson:"cars" json:"cars"`
	Email      string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address    string             `bson:"address,omitempty" json:"address,omitempty"`
	Website    string             `bson:"website,omitempty" json:"website,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsValidSpeciality checks if a speciality is valid.
func IsValidSpeciality(s Speciality) bool {
	switch s {
	case SpecialityMechanic, SpecialityElectrician:
		return true
	default:
		return false
	}
}
