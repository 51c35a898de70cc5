// Package recommend computes maintenance recommendations for a car's
// spare-part installations. It is a pure computation over already-loaded
// records: no I/O, no clock other than the instant passed in.
package recommend

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkadri-dev/autocare-backend/internal/models"
)

// Signal names which lifespan metric produced the dominant usage fraction.
type Signal string

const (
	SignalTime        Signal = "time"
	SignalKilometrage Signal = "kilometrage"
)

// Status classifies how urgently an installed part needs attention.
type Status string

const (
	StatusCritical Status = "critical"
	StatusWarning  Status = "warning"
	StatusCaution  Status = "caution"
	StatusGood     Status = "good"
)

const (
	messageCritical = "Replacement Overdue!"
	messageWarning  = "Replacement Recommended Soon"
	messageCaution  = "Monitor Condition"
	messageGood     = "In Good Condition"
)

// Input is one installation with its referenced part resolved, plus the
// part's supplier records and the car's current odometer reading.
type Input struct {
	Installation models.Installation
	Part         models.SparePart
	Suppliers    []models.Supplier
	CurrentKm    float64
}

// Recommendation is the per-installation result. Suppliers are attached only
// for critical and warning statuses, where contacting one is actionable.
type Recommendation struct {
	PartID            primitive.ObjectID `json:"part_id"`
	PartName          string             `json:"part_name"`
	Status            Status             `json:"status"`
	Message           string             `json:"message"`
	UsedPercent       int                `json:"used_percent"`
	Signal            Signal             `json:"recommendation_type"`
	Overdue           bool               `json:"overdue"`
	MonthsSinceChange int                `json:"months_since_change"`
	KmSinceChange     float64            `json:"km_since_change"`
	Suppliers         []models.Supplier  `json:"suppliers,omitempty"`
}

// Evaluate runs the engine over each installation. Installations that cannot
// produce a signal (no change date, or a part with neither lifespan metric)
// are omitted from the result, not errored.
func Evaluate(now time.Time, inputs []Input) []Recommendation {
	var recs []Recommendation
	for _, in := range inputs {
		if rec := evaluateInstallation(now, in); rec != nil {
			recs = append(recs, *rec)
		}
	}
	return recs
}

func evaluateInstallation(now time.Time, in Input) *Recommendation {
	inst := in.Installation
	if inst.ChangeMonth == 0 || inst.ChangeYear == 0 {
		return nil
	}

	monthsElapsed := (now.Year()-inst.ChangeYear)*12 + int(now.Month()) - inst.ChangeMonth
	if monthsElapsed < 0 {
		monthsElapsed = 0
	}
	kmElapsed := in.CurrentKm - inst.Kilometrage
	if kmElapsed < 0 {
		kmElapsed = 0
	}

	var (
		fraction float64
		signal   Signal
		overdue  bool
		computed bool
	)

	if in.Part.LifespanMonths != nil && *in.Part.LifespanMonths > 0 {
		fraction = float64(monthsElapsed) / float64(*in.Part.LifespanMonths)
		signal = SignalTime
		computed = true
		if monthsElapsed >= *in.Part.LifespanMonths {
			overdue = true
		}
	}

	if in.Part.LifespanKm != nil && *in.Part.LifespanKm > 0 {
		kmFraction := kmElapsed / *in.Part.LifespanKm
		if !computed || kmFraction > fraction {
			fraction = kmFraction
			signal = SignalKilometrage
			computed = true
		}
		if kmElapsed >= *in.Part.LifespanKm {
			overdue = true
		}
	}

	if !computed {
		return nil
	}

	percent := int(math.Round(fraction * 100))
	if percent > 100 {
		percent = 100
	}

	rec := &Recommendation{
		PartID:            in.Part.ID,
		PartName:          in.Part.Name,
		UsedPercent:       percent,
		Signal:            signal,
		Overdue:           overdue,
		MonthsSinceChange: monthsElapsed,
		KmSinceChange:     kmElapsed,
	}

	switch {
	case overdue || percent >= 100:
		rec.Status = StatusCritical
		rec.Message = messageCritical
		rec.UsedPercent = 100
	case percent >= 80:
		rec.Status = StatusWarning
		rec.Message = messageWarning
	case percent >= 50:
		rec.Status = StatusCaution
		rec.Message = messageCaution
	default:
		rec.Status = StatusGood
		rec.Message = messageGood
	}

	if rec.Status == StatusCritical || rec.Status == StatusWarning {
		rec.Suppliers = in.Suppliers
	}

	return rec
}
