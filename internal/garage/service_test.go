package garage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkadri-dev/autocare-backend/internal/apperr"
	"github.com/mkadri-dev/autocare-backend/internal/db/dbtest"
	"github.com/mkadri-dev/autocare-backend/internal/models"
)

// fakeImages records image operations in order.
type fakeImages struct {
	saved   []string
	removed []string
	n       int
}

func (f *fakeImages) Save(data []byte, ext string) (string, error) {
	f.n++
	ref := fmt.Sprintf("/uploads/img-%d%s", f.n, ext)
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeImages) Remove(ref string) error {
	f.removed = append(f.removed, ref)
	return nil
}

type fixture struct {
	users   *dbtest.FakeUsers
	cars    *dbtest.FakeCars
	parts   *dbtest.FakeParts
	sups    *dbtest.FakeSuppliers
	techs   *dbtest.FakeTechnicians
	images  *fakeImages
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:  dbtest.NewFakeUsers(),
		cars:   dbtest.NewFakeCars(),
		parts:  dbtest.NewFakeParts(),
		sups:   dbtest.NewFakeSuppliers(),
		techs:  dbtest.NewFakeTechnicians(),
		images: &fakeImages{},
	}
	f.service = NewService(f.users, f.cars, f.parts, f.sups, f.techs, f.images)
	return f
}

func (f *fixture) addUser(t *testing.T, role models.Role) *models.User {
	t.Helper()
	user := models.User{
		ID:    primitive.NewObjectID(),
		Role:  role,
		Name:  "Test Owner",
		Email: fmt.Sprintf("%s@example.com", primitive.NewObjectID().Hex()),
	}
	require.NoError(t, f.users.InsertUser(context.Background(), user))
	return &user
}

func kmPtr(v float64) *float64 { return &v }

func basicCar() RegisterCarRequest {
	return RegisterCarRequest{
		Brand:       "Toyota",
		Model:       "Corolla",
		Year:        2020,
		Kilometrage: kmPtr(45000),
		FuelType:    models.FuelGasoline,
	}
}

func TestRegisterCar_Validation(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleUser)

	_, err := f.service.RegisterCar(context.Background(), owner, RegisterCarRequest{Model: "Corolla", Kilometrage: kmPtr(1)}, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.service.RegisterCar(context.Background(), owner, RegisterCarRequest{Brand: "Toyota", Model: "Corolla"}, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	bad := basicCar()
	bad.FuelType = "steam"
	_, err = f.service.RegisterCar(context.Background(), owner, bad, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	bad = basicCar()
	bad.Year = 1850
	_, err = f.service.RegisterCar(context.Background(), owner, bad, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	bad = basicCar()
	bad.Installations = []models.Installation{{PartID: primitive.NewObjectID(), ChangeMonth: 13, ChangeYear: 2024}}
	_, err = f.service.RegisterCar(context.Background(), owner, bad, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRegisterCar_Quota(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleUser)

	for i := 0; i < 2; i++ {
		_, err := f.service.RegisterCar(context.Background(), owner, basicCar(), nil)
		require.NoError(t, err)
	}

	// Third attempt must fail and leave the count unchanged
	_, err := f.service.RegisterCar(context.Background(), owner, basicCar(), nil)
	assert.True(t, apperr.IsKind(err, apperr.KindQuotaExceeded))

	count, err := f.cars.CountByOwner(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRegisterCar_EnterpriseUnbounded(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleEnterprise)

	for i := 0; i < 5; i++ {
		_, err := f.service.RegisterCar(context.Background(), owner, basicCar(), nil)
		require.NoError(t, err)
	}

	count, _ := f.cars.CountByOwner(context.Background(), owner.ID)
	assert.Equal(t, int64(5), count)
}

func TestRegisterCar_LinksOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleUser)

	car, err := f.service.RegisterCar(context.Background(), owner, basicCar(), &ImageUpload{Data: []byte("img"), Ext: ".jpg"})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, car.Owner)
	assert.NotEmpty(t, car.Image)

	stored, err := f.users.FindUserByID(context.Background(), owner.ID.Hex())
	require.NoError(t, err)
	assert.Contains(t, stored.Cars, car.ID)
}

func TestUpdateCar_OwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleUser)
	stranger := f.addUser(t, models.RoleUser)

	car, err := f.service.RegisterCar(context.Background(), owner, basicCar(), nil)
	require.NoError(t, err)

	brand := "BMW"
	_, err = f.service.UpdateCar(context.Background(), stranger, car.ID.Hex(), UpdateCarRequest{Brand: &brand}, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// Record unchanged
	stored, err := f.cars.FindCarByID(context.Background(), car.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Toyota", stored.Brand)
}

func TestUpdateCar_WholesaleInstallationReplace(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleUser)

	req := basicCar()
	req.Installations = []models.Installation{
		{PartID: primitive.NewObjectID(), ChangeMonth: 1, ChangeYear: 2024, Kilometrage: 30000},
		{PartID: primitive.NewObjectID(), ChangeMonth: 2, ChangeYear: 2024, Kilometrage: 31000},
	}
	car, err := f.service.RegisterCar(context.Background(), owner, req, nil)
	require.NoError(t, err)

	replacement := []models.Installation{
		{PartID: primitive.NewObjectID(), ChangeMonth: 5, ChangeYear: 2025, Kilometrage: 44000},
	}
	updated, err := f.service.UpdateCar(context.Background(), owner, car.ID.Hex(), UpdateCarRequest{Installations: &replacement}, nil)
	require.NoError(t, err)
	assert.Equal(t, replacement, updated.SpareParts)

	stored, _ := f.cars.FindCarByID(context.Background(), car.ID.Hex())
	assert.Len(t, stored.SpareParts, 1)
}

func TestUpdateCar_ImageReplace(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleUser)

	car, err := f.service.RegisterCar(context.Background(), owner, basicCar(), &ImageUpload{Data: []byte("a"), Ext: ".jpg"})
	require.NoError(t, err)
	oldRef := car.Image

	updated, err := f.service.UpdateCar(context.Background(), owner, car.ID.Hex(), UpdateCarRequest{}, &ImageUpload{Data: []byte("b"), Ext: ".png"})
	require.NoError(t, err)
	assert.NotEqual(t, oldRef, updated.Image)
	assert.Contains(t, f.images.removed, oldRef)

	stored, _ := f.cars.FindCarByID(context.Background(), car.ID.Hex())
	assert.Equal(t, updated.Image, stored.Image)
}

func TestUpdateCar_ImageDelete(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleUser)

	car, err := f.service.RegisterCar(context.Background(), owner, basicCar(), &ImageUpload{Data: []byte("a"), Ext: ".jpg"})
	require.NoError(t, err)

	updated, err := f.service.UpdateCar(context.Background(), owner, car.ID.Hex(), UpdateCarRequest{DeleteImage: true}, nil)
	require.NoError(t, err)
	assert.Empty(t, updated.Image)
	assert.Contains(t, f.images.removed, car.Image)
}

func TestDeleteCar(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleUser)
	stranger := f.addUser(t, models.RoleUser)

	car, err := f.service.RegisterCar(context.Background(), owner, basicCar(), &ImageUpload{Data: []byte("a"), Ext: ".jpg"})
	require.NoError(t, err)

	// Stranger cannot delete
	err = f.service.DeleteCar(context.Background(), stranger, car.ID.Hex())
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	_, err = f.cars.FindCarByID(context.Background(), car.ID.Hex())
	assert.NoError(t, err)

	// Owner can
	require.NoError(t, f.service.DeleteCar(context.Background(), owner, car.ID.Hex()))

	_, err = f.cars.FindCarByID(context.Background(), car.ID.Hex())
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	stored, _ := f.users.FindUserByID(context.Background(), owner.ID.Hex())
	assert.NotContains(t, stored.Cars, car.ID)
	assert.Contains(t, f.images.removed, car.Image)
}

func TestGetCar_Detail(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleUser)

	supplier := models.Supplier{ID: primitive.NewObjectID(), Name: "AutoParts Plus"}
	require.NoError(t, f.sups.InsertSupplier(context.Background(), supplier))

	months := 6
	part := models.SparePart{
		ID:             primitive.NewObjectID(),
		Name:           "Oil Filter",
		Category:       models.CategoryEngine,
		Brand:          "Bosch",
		LifespanMonths: &months,
		Suppliers:      []primitive.ObjectID{supplier.ID},
	}
	require.NoError(t, f.parts.InsertPart(context.Background(), part))

	require.NoError(t, f.techs.InsertTechnician(context.Background(), models.Technician{
		ID: primitive.NewObjectID(), Name: "Ali", Speciality: models.SpecialityMechanic, Cars: []string{"Toyota"},
	}))
	// Brand matching is case-sensitive: this one must not surface
	require.NoError(t, f.techs.InsertTechnician(context.Background(), models.Technician{
		ID: primitive.NewObjectID(), Name: "Marc", Speciality: models.SpecialityElectrician, Cars: []string{"toyota"},
	}))

	lastYear := time.Now().AddDate(-1, 0, 0)
	req := basicCar()
	req.Installations = []models.Installation{
		{PartID: part.ID, ChangeMonth: int(lastYear.Month()), ChangeYear: lastYear.Year(), Kilometrage: 30000},
		{PartID: primitive.NewObjectID(), ChangeMonth: 1, ChangeYear: 2024}, // orphan reference
	}
	car, err := f.service.RegisterCar(context.Background(), owner, req, nil)
	require.NoError(t, err)

	detail, err := f.service.GetCar(context.Background(), owner, car.ID.Hex())
	require.NoError(t, err)

	require.Len(t, detail.SpareParts, 2)
	require.NotNil(t, detail.SpareParts[0].Part)
	assert.Equal(t, "Oil Filter", detail.SpareParts[0].Part.Name)
	assert.Len(t, detail.SpareParts[0].Suppliers, 1)
	assert.Nil(t, detail.SpareParts[1].Part)

	// 12 months on a 6-month part: overdue
	require.Len(t, detail.Recommendations, 1)
	assert.Equal(t, 100, detail.Recommendations[0].UsedPercent)
	assert.True(t, detail.Recommendations[0].Overdue)
	assert.Equal(t, []models.Supplier{*mustFind(t, f.sups, supplier.ID)}, detail.Recommendations[0].Suppliers)

	require.Len(t, detail.RecommendedTechnicians, 1)
	assert.Equal(t, "Ali", detail.RecommendedTechnicians[0].Name)

	// Strangers cannot read the detail
	stranger := f.addUser(t, models.RoleUser)
	_, err = f.service.GetCar(context.Background(), stranger, car.ID.Hex())
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func mustFind(t *testing.T, sups *dbtest.FakeSuppliers, id primitive.ObjectID) *models.Supplier {
	t.Helper()
	supplier, err := sups.FindSupplierByID(context.Background(), id.Hex())
	require.NoError(t, err)
	return supplier
}

func TestAdminCarOperations(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleUser)
	admin := f.addUser(t, models.RoleAdmin)
	_ = admin

	car, err := f.service.RegisterCar(context.Background(), owner, basicCar(), nil)
	require.NoError(t, err)

	listed, err := f.service.AdminListCars(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].OwnerAccount)
	assert.Equal(t, owner.ID, listed[0].OwnerAccount.ID)

	detail, err := f.service.AdminGetCar(context.Background(), car.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, car.ID, detail.Car.ID)

	require.NoError(t, f.service.AdminDeleteCar(context.Background(), car.ID.Hex()))
	_, err = f.cars.FindCarByID(context.Background(), car.ID.Hex())
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	stored, _ := f.users.FindUserByID(context.Background(), owner.ID.Hex())
	assert.NotContains(t, stored.Cars, car.ID)
}
