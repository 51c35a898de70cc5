// Package garage mediates every car mutation so the ownership, quota and
// image-lifecycle invariants hold in one place.
package garage

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkadri-dev/autocare-backend/internal/apperr"
	"github.com/mkadri-dev/autocare-backend/internal/db"
	"github.com/mkadri-dev/autocare-backend/internal/models"
	"github.com/mkadri-dev/autocare-backend/internal/recommend"
	"github.com/mkadri-dev/autocare-backend/internal/storage"
)

// userCarLimit caps how many cars a regular (non-enterprise) user may own.
const userCarLimit = 2

// Service owns the car ledger: registration quotas, ownership checks, the
// bidirectional user<->car links and image lifecycle.
type Service struct {
	users       db.UserCollection
	cars        db.CarCollection
	parts       db.SparePartCollection
	suppliers   db.SupplierCollection
	technicians db.TechnicianCollection
	images      storage.ImageStore
}

// NewService creates a new garage service.
func NewService(
	users db.UserCollection,
	cars db.CarCollection,
	parts db.SparePartCollection,
	suppliers db.SupplierCollection,
	technicians db.TechnicianCollection,
	images storage.ImageStore,
) *Service {
	return &Service{
		users:       users,
		cars:        cars,
		parts:       parts,
		suppliers:   suppliers,
		technicians: technicians,
		images:      images,
	}
}

// RegisterCarRequest carries the car registration payload.
type RegisterCarRequest struct {
	Brand         string
	Model         string
	Year          int
	Kilometrage   *float64
	FuelType      models.FuelType
	Installations []models.Installation
}

// UpdateCarRequest carries a partial car update. Nil fields are left
// untouched; a non-nil Installations slice replaces the whole list.
type UpdateCarRequest struct {
	Brand         *string
	Model         *string
	Year          *int
	Kilometrage   *float64
	FuelType      *models.FuelType
	Installations *[]models.Installation
	DeleteImage   bool
}

// ImageUpload is an optional image attached to a register or update call.
type ImageUpload struct {
	Data []byte
	Ext  string
}

// CarDetail is the full car projection returned by detail reads: the record,
// its installations with resolved parts and suppliers, the maintenance
// recommendations and the technicians servicing the car's brand.
type CarDetail struct {
	Car                    models.Car                 `json:"car"`
	SpareParts             []InstallationDetail       `json:"spare_parts"`
	Recommendations        []recommend.Recommendation `json:"recommendations"`
	RecommendedTechnicians []models.Technician        `json:"recommended_technicians"`
}

// InstallationDetail is an installation with its part reference resolved.
// Part is nil when the catalog entry has been deleted; readers tolerate it.
type InstallationDetail struct {
	models.Installation
	Part      *models.SparePart `json:"part,omitempty"`
	Suppliers []models.Supplier `json:"part_suppliers,omitempty"`
}

// AdminCar pairs a car with its owner's account for the admin listing.
type AdminCar struct {
	models.Car
	OwnerAccount *models.User `json:"owner_account,omitempty"`
}

// RegisterCar creates a car for the given owner, enforcing the per-role
// quota and linking the car into the owner's car list.
func (s *Service) RegisterCar(ctx context.Context, owner *models.User, req RegisterCarRequest, image *ImageUpload) (*models.Car, error) {
	if err := validateRegister(req); err != nil {
		return nil, err
	}

	if owner.Role == models.RoleUser {
		count, err := s.cars.CountByOwner(ctx, owner.ID)
		if err != nil {
			return nil, err
		}
		if count >= userCarLimit {
			return nil, apperr.QuotaExceeded("regular users can only add up to %d cars; upgrade to enterprise for unlimited cars", userCarLimit)
		}
	}

	car := models.Car{
		ID:          primitive.NewObjectID(),
		Owner:       owner.ID,
		Brand:       req.Brand,
		Model:       req.Model,
		Year:        req.Year,
		Kilometrage: *req.Kilometrage,
		FuelType:    req.FuelType,
		SpareParts:  req.Installations,
	}
	if car.SpareParts == nil {
		car.SpareParts = []models.Installation{}
	}

	if image != nil {
		ref, err := s.images.Save(image.Data, image.Ext)
		if err != nil {
			return nil, apperr.Internal("failed to store car image", err)
		}
		car.Image = ref
	}

	if err := s.cars.InsertCar(ctx, car); err != nil {
		// Do not leave the freshly written image orphaned
		if car.Image != "" {
			if rmErr := s.images.Remove(car.Image); rmErr != nil {
				log.WithError(rmErr).Warn("failed to clean up car image after insert failure")
			}
		}
		return nil, err
	}

	if err := s.users.PushCar(ctx, owner.ID.Hex(), car.ID); err != nil {
		return nil, err
	}

	return &car, nil
}

// UpdateCar applies a partial update after verifying the requester owns the
// car. A provided installation list replaces the stored one wholesale; the
// record is persisted before any old image file is removed.
func (s *Service) UpdateCar(ctx context.Context, requester *models.User, carID string, req UpdateCarRequest, image *ImageUpload) (*models.Car, error) {
	car, err := s.cars.FindCarByID(ctx, carID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(requester, car); err != nil {
		return nil, err
	}

	if err := applyUpdate(car, req); err != nil {
		return nil, err
	}

	oldImage := ""
	newImage := ""
	if req.DeleteImage && car.Image != "" {
		oldImage = car.Image
		car.Image = ""
	}
	if image != nil {
		if car.Image != "" {
			oldImage = car.Image
		}
		newImage, err = s.images.Save(image.Data, image.Ext)
		if err != nil {
			return nil, apperr.Internal("failed to store car image", err)
		}
		car.Image = newImage
	}

	if err := s.cars.UpdateCar(ctx, carID, *car); err != nil {
		if newImage != "" {
			if rmErr := s.images.Remove(newImage); rmErr != nil {
				log.WithError(rmErr).Warn("failed to clean up car image after update failure")
			}
		}
		return nil, err
	}

	// Old file goes only after the record is durable
	if oldImage != "" {
		if err := s.images.Remove(oldImage); err != nil {
			log.WithError(err).WithField("image", oldImage).Warn("failed to remove replaced car image")
		}
	}

	return car, nil
}

// DeleteCar removes a car after verifying ownership, pulls it from the
// owner's car list and releases its image.
func (s *Service) DeleteCar(ctx context.Context, requester *models.User, carID string) error {
	car, err := s.cars.FindCarByID(ctx, carID)
	if err != nil {
		return err
	}
	if err := requireOwner(requester, car); err != nil {
		return err
	}
	return s.removeCar(ctx, car)
}

// GetCar returns the full detail projection for a car the requester owns.
func (s *Service) GetCar(ctx context.Context, requester *models.User, carID string) (*CarDetail, error) {
	car, err := s.cars.FindCarByID(ctx, carID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(requester, car); err != nil {
		return nil, err
	}
	return s.buildDetail(ctx, car)
}

// ListCars lists the requester's cars, newest first.
func (s *Service) ListCars(ctx context.Context, requester *models.User) ([]models.Car, error) {
	return s.cars.FindCarsByOwner(ctx, requester.ID)
}

// ListAvailableParts lists the spare-part catalog for car forms.
func (s *Service) ListAvailableParts(ctx context.Context) ([]models.SparePart, error) {
	return s.parts.FindParts(ctx, bson.M{})
}

// AdminListCars lists every car with its owner's account attached.
func (s *Service) AdminListCars(ctx context.Context) ([]AdminCar, error) {
	cars, err := s.cars.FindCars(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	owners := map[string]*models.User{}
	result := make([]AdminCar, 0, len(cars))
	for _, car := range cars {
		key := car.Owner.Hex()
		owner, seen := owners[key]
		if !seen {
			owner, err = s.users.FindUserByID(ctx, key)
			if err != nil {
				// Owner account deleted; list the car anyway
				owner = nil
			}
			owners[key] = owner
		}
		result = append(result, AdminCar{Car: car, OwnerAccount: owner})
	}
	return result, nil
}

// AdminGetCar returns the detail projection without an ownership check.
func (s *Service) AdminGetCar(ctx context.Context, carID string) (*CarDetail, error) {
	car, err := s.cars.FindCarByID(ctx, carID)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(ctx, car)
}

// AdminDeleteCar removes any car regardless of owner.
func (s *Service) AdminDeleteCar(ctx context.Context, carID string) error {
	car, err := s.cars.FindCarByID(ctx, carID)
	if err != nil {
		return err
	}
	return s.removeCar(ctx, car)
}

func (s *Service) removeCar(ctx context.Context, car *models.Car) error {
	if err := s.cars.DeleteCar(ctx, car.ID.Hex()); err != nil {
		return err
	}
	if err := s.users.PullCar(ctx, car.Owner.Hex(), car.ID); err != nil {
		log.WithError(err).WithField("car_id", car.ID.Hex()).Warn("failed to pull car from owner's list")
	}
	if car.Image != "" {
		if err := s.images.Remove(car.Image); err != nil {
			log.WithError(err).WithField("image", car.Image).Warn("failed to remove deleted car's image")
		}
	}
	return nil
}

// buildDetail resolves part and supplier references, runs the recommendation
// engine and looks up technicians by the car's brand.
func (s *Service) buildDetail(ctx context.Context, car *models.Car) (*CarDetail, error) {
	partIDs := make([]primitive.ObjectID, 0, len(car.SpareParts))
	for _, inst := range car.SpareParts {
		partIDs = append(partIDs, inst.PartID)
	}

	parts, err := s.parts.FindPartsByIDs(ctx, partIDs)
	if err != nil {
		return nil, err
	}
	partByID := make(map[primitive.ObjectID]models.SparePart, len(parts))
	supplierIDs := make([]primitive.ObjectID, 0)
	for _, part := range parts {
		partByID[part.ID] = part
		supplierIDs = append(supplierIDs, part.Suppliers...)
	}

	suppliers, err := s.suppliers.FindSuppliersByIDs(ctx, supplierIDs)
	if err != nil {
		return nil, err
	}
	supplierByID := make(map[primitive.ObjectID]models.Supplier, len(suppliers))
	for _, supplier := range suppliers {
		supplierByID[supplier.ID] = supplier
	}

	details := make([]InstallationDetail, 0, len(car.SpareParts))
	inputs := make([]recommend.Input, 0, len(car.SpareParts))
	for _, inst := range car.SpareParts {
		detail := InstallationDetail{Installation: inst}
		if part, ok := partByID[inst.PartID]; ok {
			partCopy := part
			detail.Part = &partCopy
			for _, sid := range part.Suppliers {
				if supplier, ok := supplierByID[sid]; ok {
					detail.Suppliers = append(detail.Suppliers, supplier)
				}
			}
			inputs = append(inputs, recommend.Input{
				Installation: inst,
				Part:         part,
				Suppliers:    detail.Suppliers,
				CurrentKm:    car.Kilometrage,
			})
		}
		details = append(details, detail)
	}

	technicians, err := s.technicians.FindServicingBrand(ctx, car.Brand)
	if err != nil {
		return nil, err
	}

	return &CarDetail{
		Car:                    *car,
		SpareParts:             details,
		Recommendations:        recommend.Evaluate(time.Now(), inputs),
		RecommendedTechnicians: technicians,
	}, nil
}

// requireOwner compares the requester's id to the car's owner as strings.
func requireOwner(requester *models.User, car *models.Car) error {
	if requester.ID.Hex() != car.Owner.Hex() {
		return apperr.Forbidden("not authorized to access this car")
	}
	return nil
}

func validateRegister(req RegisterCarRequest) error {
	if req.Brand == "" || req.Model == "" || req.Kilometrage == nil {
		return apperr.Validation("please provide brand, model and kilometrage")
	}
	if *req.Kilometrage < 0 {
		return apperr.Validation("kilometrage cannot be negative")
	}
	now := time.Now()
	if err := models.ValidateCarYear(req.Year, now); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	if req.FuelType != "" && !models.IsValidFuelType(req.FuelType) {
		return apperr.Validation("invalid fuel type")
	}
	for _, inst := range req.Installations {
		if err := inst.Validate(now); err != nil {
			return apperr.Validation("%s", err.Error())
		}
	}
	return nil
}

func applyUpdate(car *models.Car, req UpdateCarRequest) error {
	now := time.Now()
	if req.Brand != nil {
		if *req.Brand == "" {
			return apperr.Validation("brand cannot be empty")
		}
		car.Brand = *req.Brand
	}
	if req.Model != nil {
		if *req.Model == "" {
			return apperr.Validation("model cannot be empty")
		}
		car.Model = *req.Model
	}
	if req.Year != nil {
		if err := models.ValidateCarYear(*req.Year, now); err != nil {
			return apperr.Validation("%s", err.Error())
		}
		car.Year = *req.Year
	}
	if req.Kilometrage != nil {
		if *req.Kilometrage < 0 {
			return apperr.Validation("kilometrage cannot be negative")
		}
		car.Kilometrage = *req.Kilometrage
	}
	if req.FuelType != nil {
		if *req.FuelType != "" && !models.IsValidFuelType(*req.FuelType) {
			return apperr.Validation("invalid fuel type")
		}
		car.FuelType = *req.FuelType
	}
	if req.Installations != nil {
		// Wholesale replace; the update is not a merge
		for _, inst := range *req.Installations {
			if err := inst.Validate(now); err != nil {
				return apperr.Validation("%s", err.Error())
			}
		}
		car.SpareParts = *req.Installations
	}
	return nil
}
