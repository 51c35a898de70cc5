// Package dbtest provides in-memory implementations of the db collection
// interfaces for service tests that should not need a running MongoDB.
// Set semantics on link fields match the real $addToSet/$pull operations.
package dbtest

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkadri-dev/autocare-backend/internal/apperr"
	"github.com/mkadri-dev/autocare-backend/internal/models"
)

// FakeUsers is an in-memory UserCollection.
type FakeUsers struct {
	mu    sync.Mutex
	users map[string]models.User
	order []string
}

// NewFakeUsers creates an empty user store.
func NewFakeUsers() *FakeUsers {
	return &FakeUsers{users: map[string]models.User{}}
}

func (f *FakeUsers) InsertUser(ctx context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	if user.Cars == nil {
		user.Cars = []primitive.ObjectID{}
	}
	key := user.ID.Hex()
	if _, ok := f.users[key]; !ok {
		f.order = append(f.order, key)
	}
	f.users[key] = user
	return nil
}

func (f *FakeUsers) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return &user, nil
}

func (f *FakeUsers) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range f.order {
		if user := f.users[key]; user.Email == email {
			return &user, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (f *FakeUsers) FindUsers(ctx context.Context, filter bson.M) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]models.User, 0, len(f.order))
	for _, key := range f.order {
		users = append(users, f.users[key])
	}
	return users, nil
}

func (f *FakeUsers) UpdateUser(ctx context.Context, id string, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	user.ID = existing.ID
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()
	f.users[id] = user
	return nil
}

func (f *FakeUsers) DeleteUser(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return apperr.NotFound("user not found")
	}
	delete(f.users, id)
	for i, key := range f.order {
		if key == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *FakeUsers) PushCar(ctx context.Context, userID string, carID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return apperr.NotFound("user not found")
	}
	for _, id := range user.Cars {
		if id == carID {
			return nil
		}
	}
	user.Cars = append(user.Cars, carID)
	f.users[userID] = user
	return nil
}

func (f *FakeUsers) PullCar(ctx context.Context, userID string, carID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return apperr.NotFound("user not found")
	}
	kept := user.Cars[:0]
	for _, id := range user.Cars {
		if id != carID {
			kept = append(kept, id)
		}
	}
	user.Cars = kept
	f.users[userID] = user
	return nil
}

// FakeCars is an in-memory CarCollection.
type FakeCars struct {
	mu    sync.Mutex
	cars  map[string]models.Car
	order []string
}

// NewFakeCars creates an empty car store.
func NewFakeCars() *FakeCars {
	return &FakeCars{cars: map[string]models.Car{}}
}

func (f *FakeCars) InsertCar(ctx context.Context, car models.Car) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if car.ID.IsZero() {
		car.ID = primitive.NewObjectID()
	}
	car.CreatedAt = time.Now()
	car.UpdatedAt = time.Now()
	if car.SpareParts == nil {
		car.SpareParts = []models.Installation{}
	}
	key := car.ID.Hex()
	if _, ok := f.cars[key]; !ok {
		f.order = append(f.order, key)
	}
	f.cars[key] = car
	return nil
}

func (f *FakeCars) FindCarByID(ctx context.Context, id string) (*models.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	car, ok := f.cars[id]
	if !ok {
		return nil, apperr.NotFound("car not found")
	}
	return &car, nil
}

func (f *FakeCars) FindCars(ctx context.Context, filter bson.M) ([]models.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, filterOwner := filter["owner"].(primitive.ObjectID)
	cars := make([]models.Car, 0, len(f.order))
	for _, key := range f.order {
		car := f.cars[key]
		if filterOwner && car.Owner != owner {
			continue
		}
		cars = append(cars, car)
	}
	return cars, nil
}

func (f *FakeCars) FindCarsByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Car, error) {
	return f.FindCars(ctx, bson.M{"owner": owner})
}

func (f *FakeCars) CountByOwner(ctx context.Context, owner primitive.ObjectID) (int64, error) {
	cars, err := f.FindCarsByOwner(ctx, owner)
	if err != nil {
		return 0, err
	}
	return int64(len(cars)), nil
}

func (f *FakeCars) UpdateCar(ctx context.Context, id string, car models.Car) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.cars[id]
	if !ok {
		return apperr.NotFound("car not found")
	}
	car.ID = existing.ID
	car.CreatedAt = existing.CreatedAt
	car.UpdatedAt = time.Now()
	f.cars[id] = car
	return nil
}

func (f *FakeCars) DeleteCar(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cars[id]; !ok {
		return apperr.NotFound("car not found")
	}
	delete(f.cars, id)
	for i, key := range f.order {
		if key == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *FakeCars) BumpKilometrage(ctx context.Context, id string, kilometrage float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	car, ok := f.cars[id]
	if !ok || car.Kilometrage >= kilometrage {
		return false, nil
	}
	car.Kilometrage = kilometrage
	car.UpdatedAt = time.Now()
	f.cars[id] = car
	return true, nil
}

// FakeParts is an in-memory SparePartCollection.
type FakeParts struct {
	mu    sync.Mutex
	parts map[string]models.SparePart
	order []string
}

// NewFakeParts creates an empty spare-part store.
func NewFakeParts() *FakeParts {
	return &FakeParts{parts: map[string]models.SparePart{}}
}

func (f *FakeParts) InsertPart(ctx context.Context, part models.SparePart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if part.ID.IsZero() {
		part.ID = primitive.NewObjectID()
	}
	part.CreatedAt = time.Now()
	part.UpdatedAt = time.Now()
	if part.Suppliers == nil {
		part.Suppliers = []primitive.ObjectID{}
	}
	key := part.ID.Hex()
	if _, ok := f.parts[key]; !ok {
		f.order = append(f.order, key)
	}
	f.parts[key] = part
	return nil
}

func (f *FakeParts) FindPartByID(ctx context.Context, id string) (*models.SparePart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	part, ok := f.parts[id]
	if !ok {
		return nil, apperr.NotFound("spare part not found")
	}
	return &part, nil
}

func (f *FakeParts) FindParts(ctx context.Context, filter bson.M) ([]models.SparePart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := make([]models.SparePart, 0, len(f.order))
	for _, key := range f.order {
		parts = append(parts, f.parts[key])
	}
	return parts, nil
}

func (f *FakeParts) FindPartsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.SparePart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var parts []models.SparePart
	for _, id := range ids {
		if part, ok := f.parts[id.Hex()]; ok {
			parts = append(parts, part)
		}
	}
	return parts, nil
}

func (f *FakeParts) UpdatePart(ctx context.Context, id string, part models.SparePart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.parts[id]
	if !ok {
		return apperr.NotFound("spare part not found")
	}
	part.ID = existing.ID
	part.CreatedAt = existing.CreatedAt
	part.UpdatedAt = time.Now()
	f.parts[id] = part
	return nil
}

func (f *FakeParts) DeletePart(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.parts[id]; !ok {
		return apperr.NotFound("spare part not found")
	}
	delete(f.parts, id)
	for i, key := range f.order {
		if key == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

// FakeSuppliers is an in-memory SupplierCollection.
type FakeSuppliers struct {
	mu        sync.Mutex
	suppliers map[string]models.Supplier
	order     []string
}

// NewFakeSuppliers creates an empty supplier store.
func NewFakeSuppliers() *FakeSuppliers {
	return &FakeSuppliers{suppliers: map[string]models.Supplier{}}
}

func (f *FakeSuppliers) InsertSupplier(ctx context.Context, supplier models.Supplier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if supplier.ID.IsZero() {
		supplier.ID = primitive.NewObjectID()
	}
	supplier.CreatedAt = time.Now()
	supplier.UpdatedAt = time.Now()
	if supplier.SpareParts == nil {
		supplier.SpareParts = []primitive.ObjectID{}
	}
	key := supplier.ID.Hex()
	if _, ok := f.suppliers[key]; !ok {
		f.order = append(f.order, key)
	}
	f.suppliers[key] = supplier
	return nil
}

func (f *FakeSuppliers) FindSupplierByID(ctx context.Context, id string) (*models.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	supplier, ok := f.suppliers[id]
	if !ok {
		return nil, apperr.NotFound("supplier not found")
	}
	return &supplier, nil
}

func (f *FakeSuppliers) FindSupplierByEmail(ctx context.Context, email string, excludeID string) (*models.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range f.order {
		if key == excludeID {
			continue
		}
		if supplier := f.suppliers[key]; supplier.Email == email {
			return &supplier, nil
		}
	}
	return nil, apperr.NotFound("supplier not found")
}

func (f *FakeSuppliers) FindSuppliers(ctx context.Context, filter bson.M) ([]models.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	suppliers := make([]models.Supplier, 0, len(f.order))
	for _, key := range f.order {
		suppliers = append(suppliers, f.suppliers[key])
	}
	return suppliers, nil
}

func (f *FakeSuppliers) FindSuppliersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var suppliers []models.Supplier
	for _, id := range ids {
		if supplier, ok := f.suppliers[id.Hex()]; ok {
			suppliers = append(suppliers, supplier)
		}
	}
	return suppliers, nil
}

func (f *FakeSuppliers) UpdateSupplier(ctx context.Context, id string, supplier models.Supplier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.suppliers[id]
	if !ok {
		return apperr.NotFound("supplier not found")
	}
	supplier.ID = existing.ID
	supplier.CreatedAt = existing.CreatedAt
	supplier.UpdatedAt = time.Now()
	f.suppliers[id] = supplier
	return nil
}

func (f *FakeSuppliers) DeleteSupplier(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.suppliers[id]; !ok {
		return apperr.NotFound("supplier not found")
	}
	delete(f.suppliers, id)
	for i, key := range f.order {
		if key == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *FakeSuppliers) AddSparePart(ctx context.Context, supplierIDs []primitive.ObjectID, partID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range supplierIDs {
		supplier, ok := f.suppliers[id.Hex()]
		if !ok {
			continue
		}
		present := false
		for _, existing := range supplier.SpareParts {
			if existing == partID {
				present = true
				break
			}
		}
		if !present {
			supplier.SpareParts = append(supplier.SpareParts, partID)
			f.suppliers[id.Hex()] = supplier
		}
	}
	return nil
}

func (f *FakeSuppliers) RemoveSparePart(ctx context.Context, supplierIDs []primitive.ObjectID, partID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range supplierIDs {
		supplier, ok := f.suppliers[id.Hex()]
		if !ok {
			continue
		}
		kept := supplier.SpareParts[:0]
		for _, existing := range supplier.SpareParts {
			if existing != partID {
				kept = append(kept, existing)
			}
		}
		supplier.SpareParts = kept
		f.suppliers[id.Hex()] = supplier
	}
	return nil
}

// FakeTechnicians is an in-memory TechnicianCollection.
type FakeTechnicians struct {
	mu          sync.Mutex
	technicians map[string]models.Technician
	order       []string
}

// NewFakeTechnicians creates an empty technician store.
func NewFakeTechnicians() *FakeTechnicians {
	return &FakeTechnicians{technicians: map[string]models.Technician{}}
}

func (f *FakeTechnicians) InsertTechnician(ctx context.Context, technician models.Technician) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if technician.ID.IsZero() {
		technician.ID = primitive.NewObjectID()
	}
	technician.CreatedAt = time.Now()
	technician.UpdatedAt = time.Now()
	if technician.Cars == nil {
		technician.Cars = []string{}
	}
	key := technician.ID.Hex()
	if _, ok := f.technicians[key]; !ok {
		f.order = append(f.order, key)
	}
	f.technicians[key] = technician
	return nil
}

func (f *FakeTechnicians) FindTechnicianByID(ctx context.Context, id string) (*models.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	technician, ok := f.technicians[id]
	if !ok {
		return nil, apperr.NotFound("technician not found")
	}
	return &technician, nil
}

func (f *FakeTechnicians) FindTechnicians(ctx context.Context, filter bson.M) ([]models.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	technicians := make([]models.Technician, 0, len(f.order))
	for _, key := range f.order {
		technicians = append(technicians, f.technicians[key])
	}
	return technicians, nil
}

func (f *FakeTechnicians) FindServicingBrand(ctx context.Context, brand string) ([]models.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var technicians []models.Technician
	for _, key := range f.order {
		technician := f.technicians[key]
		for _, serviced := range technician.Cars {
			if serviced == brand {
				technicians = append(technicians, technician)
				break
			}
		}
	}
	return technicians, nil
}

func (f *FakeTechnicians) UpdateTechnician(ctx context.Context, id string, technician models.Technician) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.technicians[id]
	if !ok {
		return apperr.NotFound("technician not found")
	}
	technician.ID = existing.ID
	technician.CreatedAt = existing.CreatedAt
	technician.UpdatedAt = time.Now()
	f.technicians[id] = technician
	return nil
}

func (f *FakeTechnicians) DeleteTechnician(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.technicians[id]; !ok {
		return apperr.NotFound("technician not found")
	}
	delete(f.technicians, id)
	for i, key := range f.order {
		if key == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}
