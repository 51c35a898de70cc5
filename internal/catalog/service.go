// Package catalog implements the admin-managed side of the system: user
// accounts, the spare-part catalog, suppliers and technicians, plus the
// synchronizer that keeps the part<->supplier association symmetric.
package catalog

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkadri-dev/autocare-backend/internal/apperr"
	"github.com/mkadri-dev/autocare-backend/internal/auth"
	"github.com/mkadri-dev/autocare-backend/internal/db"
	"github.com/mkadri-dev/autocare-backend/internal/models"
	"github.com/mkadri-dev/autocare-backend/internal/storage"
)

// Service is the admin catalog service.
type Service struct {
	users       db.UserCollection
	parts       db.SparePartCollection
	suppliers   db.SupplierCollection
	technicians db.TechnicianCollection
	authService *auth.Service
	images      storage.ImageStore
	sync        supplierSync
}

// NewService creates a new catalog service.
func NewService(
	users db.UserCollection,
	parts db.SparePartCollection,
	suppliers db.SupplierCollection,
	technicians db.TechnicianCollection,
	authService *auth.Service,
	images storage.ImageStore,
) *Service {
	return &Service{
		users:       users,
		parts:       parts,
		suppliers:   suppliers,
		technicians: technicians,
		authService: authService,
		images:      images,
		sync:        supplierSync{suppliers: suppliers},
	}
}

//
// Users
//

// CreateUserRequest carries an admin user-create payload.
type CreateUserRequest struct {
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Password       string      `json:"password"`
	Role           models.Role `json:"role"`
	EnterpriseName string      `json:"enterprise_name"`
	Address        string      `json:"address"`
}

// UpdateUserRequest carries a partial admin user update. Nil fields keep the
// stored value.
type UpdateUserRequest struct {
	Name           *string      `json:"name"`
	Email          *string      `json:"email"`
	Password       *string      `json:"password"`
	Role           *models.Role `json:"role"`
	EnterpriseName *string      `json:"enterprise_name"`
	Address        *string      `json:"address"`
}

// ListUsers lists every account.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.FindUsers(ctx, bson.M{})
}

// CreateUser creates an account with an admin-chosen role.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, apperr.Validation("please fill all required fields (name, email, password)")
	}
	if err := s.authService.ValidateName(req.Name); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if err := s.authService.ValidateEmail(req.Email); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if err := s.authService.ValidatePassword(req.Password); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.IsValidRole(role) {
		return nil, apperr.Validation("invalid role")
	}

	if _, err := s.users.FindUserByEmail(ctx, req.Email); err == nil {
		return nil, apperr.Conflict("user with this email already exists")
	}

	hash, err := s.authService.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	user := models.User{
		ID:             primitive.NewObjectID(),
		Role:           role,
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   hash,
		EnterpriseName: req.EnterpriseName,
		Address:        req.Address,
		Cars:           []primitive.ObjectID{},
	}
	user.NormalizeRoleFields()

	if err := s.users.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies a partial account update. Changing the email re-checks
// uniqueness; changing the role re-normalizes the enterprise fields.
func (s *Service) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		if err := s.authService.ValidateEmail(*req.Email); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
		if existing, err := s.users.FindUserByEmail(ctx, *req.Email); err == nil && existing.ID.Hex() != id {
			return nil, apperr.Conflict("email is already taken by another user")
		}
		user.Email = *req.Email
	}
	if req.Name != nil {
		if err := s.authService.ValidateName(*req.Name); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
		user.Name = *req.Name
	}
	if req.Password != nil {
		if err := s.authService.ValidatePassword(*req.Password); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
		hash, err := s.authService.HashPassword(*req.Password)
		if err != nil {
			return nil, apperr.Internal("failed to hash password", err)
		}
		user.PasswordHash = hash
	}
	if req.Role != nil {
		if !models.IsValidRole(*req.Role) {
			return nil, apperr.Validation("invalid role")
		}
		user.Role = *req.Role
	}
	if req.EnterpriseName != nil {
		user.EnterpriseName = *req.EnterpriseName
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	user.NormalizeRoleFields()

	if err := s.users.UpdateUser(ctx, id, *user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account. Owned cars are deliberately not cascaded.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.users.FindUserByID(ctx, id); err != nil {
		return err
	}
	return s.users.DeleteUser(ctx, id)
}

//
// Spare parts
//

// PartRequest carries a spare-part create payload.
type PartRequest struct {
	Name           string              `json:"name"`
	Category       models.PartCategory `json:"category"`
	Brand          string              `json:"brand"`
	Price          float64             `json:"price"`
	Stock          int                 `json:"stock"`
	LifespanKm     *float64            `json:"lifespan_km"`
	LifespanMonths *int                `json:"lifespan_months"`
	Image          string              `json:"image"`
	Suppliers      []string            `json:"suppliers"`
}

// UpdatePartRequest carries a partial spare-part update. Nil fields keep the
// stored value; a zero lifespan value clears the metric.
type UpdatePartRequest struct {
	Name           *string              `json:"name"`
	Category       *models.PartCategory `json:"category"`
	Brand          *string              `json:"brand"`
	Price          *float64             `json:"price"`
	Stock          *int                 `json:"stock"`
	LifespanKm     *float64             `json:"lifespan_km"`
	LifespanMonths *int                 `json:"lifespan_months"`
	Image          *string              `json:"image"`
	Suppliers      *[]string            `json:"suppliers"`
}

// PartDetail is a spare part with its supplier references resolved.
type PartDetail struct {
	models.SparePart
	SupplierRecords []models.Supplier `json:"supplier_records,omitempty"`
}

// CreatePart adds a catalog item and links it on each named supplier.
func (s *Service) CreatePart(ctx context.Context, req PartRequest) (*PartDetail, error) {
	if req.Name == "" || req.Category == "" || req.Brand == "" {
		return nil, apperr.Validation("please fill all required fields (name, category, brand)")
	}
	if !models.IsValidPartCategory(req.Category) {
		return nil, apperr.Validation("invalid category")
	}
	if req.Price < 0 {
		return nil, apperr.Validation("price cannot be negative")
	}
	if req.Stock < 0 {
		return nil, apperr.Validation("stock cannot be negative")
	}
	if (req.LifespanKm != nil && *req.LifespanKm < 0) || (req.LifespanMonths != nil && *req.LifespanMonths < 0) {
		return nil, apperr.Validation("lifespan values cannot be negative")
	}

	supplierIDs, err := parseObjectIDs(req.Suppliers)
	if err != nil {
		return nil, err
	}

	part := models.SparePart{
		ID:             primitive.NewObjectID(),
		Name:           req.Name,
		Category:       req.Category,
		Brand:          req.Brand,
		Price:          req.Price,
		Stock:          req.Stock,
		LifespanKm:     req.LifespanKm,
		LifespanMonths: req.LifespanMonths,
		Image:          req.Image,
		Suppliers:      supplierIDs,
	}

	if err := s.parts.InsertPart(ctx, part); err != nil {
		return nil, err
	}
	if err := s.sync.linkCreated(ctx, part.ID, supplierIDs); err != nil {
		return nil, err
	}

	return s.partDetail(ctx, &part)
}

// ListParts lists the catalog with supplier references resolved.
func (s *Service) ListParts(ctx context.Context) ([]PartDetail, error) {
	parts, err := s.parts.FindParts(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	supplierIDs := make([]primitive.ObjectID, 0)
	for _, part := range parts {
		supplierIDs = append(supplierIDs, part.Suppliers...)
	}
	suppliers, err := s.suppliers.FindSuppliersByIDs(ctx, supplierIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.Supplier, len(suppliers))
	for _, supplier := range suppliers {
		byID[supplier.ID] = supplier
	}

	details := make([]PartDetail, 0, len(parts))
	for _, part := range parts {
		detail := PartDetail{SparePart: part}
		for _, id := range part.Suppliers {
			if supplier, ok := byID[id]; ok {
				detail.SupplierRecords = append(detail.SupplierRecords, supplier)
			}
		}
		details = append(details, detail)
	}
	return details, nil
}

// GetPart returns one catalog item with supplier references resolved.
func (s *Service) GetPart(ctx context.Context, id string) (*PartDetail, error) {
	part, err := s.parts.FindPartByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.partDetail(ctx, part)
}

// UpdatePart applies a partial update. A provided supplier list is diffed
// against the stored one and the delta is pushed to both sides of the
// association before the part record is confirmed.
func (s *Service) UpdatePart(ctx context.Context, id string, req UpdatePartRequest) (*PartDetail, error) {
	part, err := s.parts.FindPartByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		part.Name = *req.Name
	}
	if req.Category != nil {
		if !models.IsValidPartCategory(*req.Category) {
			return nil, apperr.Validation("invalid category")
		}
		part.Category = *req.Category
	}
	if req.Brand != nil {
		if *req.Brand == "" {
			return nil, apperr.Validation("brand cannot be empty")
		}
		part.Brand = *req.Brand
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, apperr.Validation("price cannot be negative")
		}
		part.Price = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, apperr.Validation("stock cannot be negative")
		}
		part.Stock = *req.Stock
	}
	if req.LifespanKm != nil {
		if *req.LifespanKm > 0 {
			part.LifespanKm = req.LifespanKm
		} else {
			part.LifespanKm = nil
		}
	}
	if req.LifespanMonths != nil {
		if *req.LifespanMonths > 0 {
			part.LifespanMonths = req.LifespanMonths
		} else {
			part.LifespanMonths = nil
		}
	}
	if req.Image != nil {
		part.Image = *req.Image
	}

	if req.Suppliers != nil {
		newIDs, err := parseObjectIDs(*req.Suppliers)
		if err != nil {
			return nil, err
		}
		if err := s.sync.linkUpdated(ctx, part.ID, part.Suppliers, newIDs); err != nil {
			return nil, err
		}
		part.Suppliers = newIDs
	}

	if err := s.parts.UpdatePart(ctx, id, *part); err != nil {
		return nil, err
	}
	return s.partDetail(ctx, part)
}

// DeletePart removes a catalog item and pulls it from every linked supplier.
func (s *Service) DeletePart(ctx context.Context, id string) error {
	part, err := s.parts.FindPartByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.sync.linkDeleted(ctx, part.ID, part.Suppliers); err != nil {
		return err
	}
	if err := s.parts.DeletePart(ctx, id); err != nil {
		return err
	}
	if part.Image != "" {
		if err := s.images.Remove(part.Image); err != nil {
			log.WithError(err).WithField("image", part.Image).Warn("failed to remove deleted part's image")
		}
	}
	return nil
}

func (s *Service) partDetail(ctx context.Context, part *models.SparePart) (*PartDetail, error) {
	suppliers, err := s.suppliers.FindSuppliersByIDs(ctx, part.Suppliers)
	if err != nil {
		return nil, err
	}
	return &PartDetail{SparePart: *part, SupplierRecords: suppliers}, nil
}

//
// Suppliers
//

// SupplierRequest carries a supplier create payload.
type SupplierRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Image   string `json:"image"`
}

// UpdateSupplierRequest carries a partial supplier update. The spare-part
// link list is never edited here; it belongs to the synchronizer.
type UpdateSupplierRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Image   *string `json:"image"`
}

// SupplierDetail is a supplier with its part references resolved.
type SupplierDetail struct {
	models.Supplier
	PartRecords []models.SparePart `json:"part_records,omitempty"`
}

// CreateSupplier adds a supplier. Email, when present, must be unique.
func (s *Service) CreateSupplier(ctx context.Context, req SupplierRequest) (*models.Supplier, error) {
	if req.Name == "" {
		return nil, apperr.Validation("supplier name is required")
	}
	if req.Email != "" {
		if _, err := s.suppliers.FindSupplierByEmail(ctx, req.Email, ""); err == nil {
			return nil, apperr.Conflict("supplier email already exists")
		}
	}

	supplier := models.Supplier{
		ID:         primitive.NewObjectID(),
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		Address:    req.Address,
		Image:      req.Image,
		SpareParts: []primitive.ObjectID{},
	}
	if err := s.suppliers.InsertSupplier(ctx, supplier); err != nil {
		return nil, err
	}
	return &supplier, nil
}

// ListSuppliers lists suppliers with their part references resolved.
func (s *Service) ListSuppliers(ctx context.Context) ([]SupplierDetail, error) {
	suppliers, err := s.suppliers.FindSuppliers(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	partIDs := make([]primitive.ObjectID, 0)
	for _, supplier := range suppliers {
		partIDs = append(partIDs, supplier.SpareParts...)
	}
	parts, err := s.parts.FindPartsByIDs(ctx, partIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.SparePart, len(parts))
	for _, part := range parts {
		byID[part.ID] = part
	}

	details := make([]SupplierDetail, 0, len(suppliers))
	for _, supplier := range suppliers {
		detail := SupplierDetail{Supplier: supplier}
		for _, id := range supplier.SpareParts {
			if part, ok := byID[id]; ok {
				detail.PartRecords = append(detail.PartRecords, part)
			}
		}
		details = append(details, detail)
	}
	return details, nil
}

// GetSupplier returns one supplier with its part references resolved.
// Orphaned part references are skipped, not errored.
func (s *Service) GetSupplier(ctx context.Context, id string) (*SupplierDetail, error) {
	supplier, err := s.suppliers.FindSupplierByID(ctx, id)
	if err != nil {
		return nil, err
	}
	parts, err := s.parts.FindPartsByIDs(ctx, supplier.SpareParts)
	if err != nil {
		return nil, err
	}
	return &SupplierDetail{Supplier: *supplier, PartRecords: parts}, nil
}

// UpdateSupplier applies a partial update, keeping the existing part links.
func (s *Service) UpdateSupplier(ctx context.Context, id string, req UpdateSupplierRequest) (*models.Supplier, error) {
	supplier, err := s.suppliers.FindSupplierByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != supplier.Email {
		if *req.Email != "" {
			if _, err := s.suppliers.FindSupplierByEmail(ctx, *req.Email, id); err == nil {
				return nil, apperr.Conflict("supplier email already exists")
			}
		}
		supplier.Email = *req.Email
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, apperr.Validation("supplier name is required")
		}
		supplier.Name = *req.Name
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.Image != nil {
		supplier.Image = *req.Image
	}

	if err := s.suppliers.UpdateSupplier(ctx, id, *supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

// DeleteSupplier removes a supplier. Parts keep their (now orphaned)
// reference; readers tolerate it.
func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	supplier, err := s.suppliers.FindSupplierByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.suppliers.DeleteSupplier(ctx, id); err != nil {
		return err
	}
	if supplier.Image != "" {
		if err := s.images.Remove(supplier.Image); err != nil {
			log.WithError(err).WithField("image", supplier.Image).Warn("failed to remove deleted supplier's image")
		}
	}
	return nil
}

//
// Technicians
//

// TechnicianRequest carries a technician create payload.
type TechnicianRequest struct {
	Name       string            `json:"name"`
	Speciality models.Speciality `json:"speciality"`
	Cars       []string          `json:"cars"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Address    string            `json:"address"`
	Website    string            `json:"website"`
}

// UpdateTechnicianRequest carries a partial technician update.
type UpdateTechnicianRequest struct {
	Name       *string            `json:"name"`
	Speciality *models.Speciality `json:"speciality"`
	Cars       *[]string          `json:"cars"`
	Email      *string            `json:"email"`
	Phone      *string            `json:"phone"`
	Address    *string            `json:"address"`
	Website    *string            `json:"website"`
}

// CreateTechnician adds a technician.
func (s *Service) CreateTechnician(ctx context.Context, req TechnicianRequest) (*models.Technician, error) {
	if req.Name == "" || req.Speciality == "" {
		return nil, apperr.Validation("please fill all required fields (name, speciality)")
	}
	if !models.IsValidSpeciality(req.Speciality) {
		return nil, apperr.Validation("invalid speciality")
	}

	technician := models.Technician{
		ID:         primitive.NewObjectID(),
		Name:       req.Name,
		Speciality: req.Speciality,
		Cars:       req.Cars,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		Website:    req.Website,
	}
	if technician.Cars == nil {
		technician.Cars = []string{}
	}
	if err := s.technicians.InsertTechnician(ctx, technician); err != nil {
		return nil, err
	}
	return &technician, nil
}

// ListTechnicians lists every technician.
func (s *Service) ListTechnicians(ctx context.Context) ([]models.Technician, error) {
	return s.technicians.FindTechnicians(ctx, bson.M{})
}

// GetTechnician returns one technician.
func (s *Service) GetTechnician(ctx context.Context, id string) (*models.Technician, error) {
	return s.technicians.FindTechnicianByID(ctx, id)
}

// UpdateTechnician applies a partial update.
func (s *Service) UpdateTechnician(ctx context.Context, id string, req UpdateTechnicianRequest) (*models.Technician, error) {
	technician, err := s.technicians.FindTechnicianByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, apperr.Validation("technician name is required")
		}
		technician.Name = *req.Name
	}
	if req.Speciality != nil {
		if !models.IsValidSpeciality(*req.Speciality) {
			return nil, apperr.Validation("invalid speciality")
		}
		technician.Speciality = *req.Speciality
	}
	if req.Cars != nil {
		technician.Cars = *req.Cars
	}
	if req.Email != nil {
		technician.Email = *req.Email
	}
	if req.Phone != nil {
		technician.Phone = *req.Phone
	}
	if req.Address != nil {
		technician.Address = *req.Address
	}
	if req.Website != nil {
		technician.Website = *req.Website
	}

	if err := s.technicians.UpdateTechnician(ctx, id, *technician); err != nil {
		return nil, err
	}
	return technician, nil
}

// DeleteTechnician removes a technician.
func (s *Service) DeleteTechnician(ctx context.Context, id string) error {
	if _, err := s.technicians.FindTechnicianByID(ctx, id); err != nil {
		return err
	}
	return s.technicians.DeleteTechnician(ctx, id)
}

// UploadImage stores image bytes and returns the reference path.
func (s *Service) UploadImage(data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", apperr.Validation("no image file uploaded")
	}
	ref, err := s.images.Save(data, ext)
	if err != nil {
		return "", apperr.Internal("failed to store image", err)
	}
	return ref, nil
}

func parseObjectIDs(hexIDs []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexIDs))
	for _, hexID := range hexIDs {
		id, err := primitive.ObjectIDFromHex(hexID)
		if err != nil {
			return nil, apperr.Validation("invalid supplier id: %s", hexID)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
