package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkadri-dev/autocare-backend/internal/apperr"
	"github.com/mkadri-dev/autocare-backend/internal/auth"
	"github.com/mkadri-dev/autocare-backend/internal/db/dbtest"
	"github.com/mkadri-dev/autocare-backend/internal/models"
)

type recordingImages struct {
	saved   int
	removed []string
}

func (r *recordingImages) Save(data []byte, ext string) (string, error) {
	r.saved++
	return "/uploads/test-image" + ext, nil
}

func (r *recordingImages) Remove(ref string) error {
	r.removed = append(r.removed, ref)
	return nil
}

type fixture struct {
	users       *dbtest.FakeUsers
	parts       *dbtest.FakeParts
	suppliers   *dbtest.FakeSuppliers
	technicians *dbtest.FakeTechnicians
	images      *recordingImages
	service     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	authService, err := auth.NewService()
	require.NoError(t, err)

	f := &fixture{
		users:       dbtest.NewFakeUsers(),
		parts:       dbtest.NewFakeParts(),
		suppliers:   dbtest.NewFakeSuppliers(),
		technicians: dbtest.NewFakeTechnicians(),
		images:      &recordingImages{},
	}
	f.service = NewService(f.users, f.parts, f.suppliers, f.technicians, authService, f.images)
	return f
}

func (f *fixture) addSupplier(t *testing.T, name string) models.Supplier {
	t.Helper()
	supplier, err := f.service.CreateSupplier(context.Background(), SupplierRequest{Name: name})
	require.NoError(t, err)
	return *supplier
}

func (f *fixture) supplierParts(t *testing.T, id primitive.ObjectID) []primitive.ObjectID {
	t.Helper()
	supplier, err := f.suppliers.FindSupplierByID(context.Background(), id.Hex())
	require.NoError(t, err)
	return supplier.SpareParts
}

func strPtr(s string) *string            { return &s }
func rolePtr(r models.Role) *models.Role { return &r }
func floatPtr(v float64) *float64        { return &v }
func intPtr(v int) *int                  { return &v }

//
// Users
//

func TestCreateUser_DefaultsToUserRole(t *testing.T) {
	f := newFixture(t)

	user, err := f.service.CreateUser(context.Background(), CreateUserRequest{
		Name:     "Sami Ben Ali",
		Email:    "sami@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "secret123", user.PasswordHash)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateUser(ctx, CreateUserRequest{
		Name: "First User", Email: "dup@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, err = f.service.CreateUser(ctx, CreateUserRequest{
		Name: "Second User", Email: "dup@example.com", Password: "secret456",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreateUser_InvalidRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateUser(context.Background(), CreateUserRequest{
		Name: "Some User", Email: "some@example.com", Password: "secret123",
		Role: models.Role("superadmin"),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateUser_EnterpriseFieldsStrippedForPlainUser(t *testing.T) {
	f := newFixture(t)

	user, err := f.service.CreateUser(context.Background(), CreateUserRequest{
		Name: "Plain User", Email: "plain@example.com", Password: "secret123",
		Role:           models.RoleUser,
		EnterpriseName: "Ghost Corp",
		Address:        "1 Nowhere St",
	})
	require.NoError(t, err)
	assert.Empty(t, user.EnterpriseName)
	assert.Empty(t, user.Address)
}

func TestUpdateUser_RoleDowngradeClearsEnterpriseFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.service.CreateUser(ctx, CreateUserRequest{
		Name: "Fleet Manager", Email: "fleet@example.com", Password: "secret123",
		Role:           models.RoleEnterprise,
		EnterpriseName: "Rental Fleet SA",
		Address:        "12 Industrial Zone",
	})
	require.NoError(t, err)
	require.Equal(t, "Rental Fleet SA", user.EnterpriseName)

	updated, err := f.service.UpdateUser(ctx, user.ID.Hex(), UpdateUserRequest{
		Role: rolePtr(models.RoleUser),
	})
	require.NoError(t, err)
	assert.Empty(t, updated.EnterpriseName)
	assert.Empty(t, updated.Address)
}

func TestUpdateUser_EmailTakenByAnother(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateUser(ctx, CreateUserRequest{
		Name: "Holder", Email: "taken@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	other, err := f.service.CreateUser(ctx, CreateUserRequest{
		Name: "Other User", Email: "other@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, err = f.service.UpdateUser(ctx, other.ID.Hex(), UpdateUserRequest{
		Email: strPtr("taken@example.com"),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestUpdateUser_PasswordIsRehashed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.service.CreateUser(ctx, CreateUserRequest{
		Name: "Changer", Email: "changer@example.com", Password: "oldpass1",
	})
	require.NoError(t, err)
	oldHash := user.PasswordHash

	updated, err := f.service.UpdateUser(ctx, user.ID.Hex(), UpdateUserRequest{
		Password: strPtr("newpass1"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, updated.PasswordHash)
	assert.NotEqual(t, "newpass1", updated.PasswordHash)
}

func TestDeleteUser_NotFound(t *testing.T) {
	f := newFixture(t)
	err := f.service.DeleteUser(context.Background(), primitive.NewObjectID().Hex())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

//
// Spare parts and the supplier association
//

func TestCreatePart_LinksSuppliers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplierA := f.addSupplier(t, "AutoParts Plus")
	supplierB := f.addSupplier(t, "Pieces Express")

	part, err := f.service.CreatePart(ctx, PartRequest{
		Name:     "Brake Pads",
		Category: models.CategoryBrakes,
		Brand:    "Bosch",
		Price:    89.9,
		Stock:    12,
		Suppliers: []string{
			supplierA.ID.Hex(),
			supplierB.ID.Hex(),
		},
	})
	require.NoError(t, err)

	assert.Contains(t, f.supplierParts(t, supplierA.ID), part.ID)
	assert.Contains(t, f.supplierParts(t, supplierB.ID), part.ID)
	assert.Len(t, part.SupplierRecords, 2)
}

func TestUpdatePart_SupplierDiffKeepsSymmetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplierA := f.addSupplier(t, "Supplier A")
	supplierB := f.addSupplier(t, "Supplier B")
	supplierC := f.addSupplier(t, "Supplier C")

	part, err := f.service.CreatePart(ctx, PartRequest{
		Name:      "Oil Filter",
		Category:  models.CategoryEngine,
		Brand:     "Mann",
		Suppliers: []string{supplierA.ID.Hex(), supplierB.ID.Hex()},
	})
	require.NoError(t, err)

	newList := []string{supplierB.ID.Hex(), supplierC.ID.Hex()}
	updated, err := f.service.UpdatePart(ctx, part.ID.Hex(), UpdatePartRequest{
		Suppliers: &newList,
	})
	require.NoError(t, err)

	assert.NotContains(t, f.supplierParts(t, supplierA.ID), part.ID)
	assert.Contains(t, f.supplierParts(t, supplierB.ID), part.ID)
	assert.Contains(t, f.supplierParts(t, supplierC.ID), part.ID)
	assert.ElementsMatch(t,
		[]primitive.ObjectID{supplierB.ID, supplierC.ID},
		updated.Suppliers)
}

func TestUpdatePart_WithoutSupplierListKeepsLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplier := f.addSupplier(t, "Keeper")

	part, err := f.service.CreatePart(ctx, PartRequest{
		Name:      "Spark Plug",
		Category:  models.CategoryEngine,
		Brand:     "NGK",
		Suppliers: []string{supplier.ID.Hex()},
	})
	require.NoError(t, err)

	updated, err := f.service.UpdatePart(ctx, part.ID.Hex(), UpdatePartRequest{
		Price: floatPtr(14.5),
	})
	require.NoError(t, err)
	assert.Equal(t, 14.5, updated.Price)
	assert.Contains(t, f.supplierParts(t, supplier.ID), part.ID)
}

func TestUpdatePart_ZeroLifespanClearsMetric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	part, err := f.service.CreatePart(ctx, PartRequest{
		Name:           "Air Filter",
		Category:       models.CategoryEngine,
		Brand:          "Mahle",
		LifespanKm:     floatPtr(15000),
		LifespanMonths: intPtr(12),
	})
	require.NoError(t, err)

	updated, err := f.service.UpdatePart(ctx, part.ID.Hex(), UpdatePartRequest{
		LifespanKm:     floatPtr(0),
		LifespanMonths: intPtr(24),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.LifespanKm)
	require.NotNil(t, updated.LifespanMonths)
	assert.Equal(t, 24, *updated.LifespanMonths)
}

func TestDeletePart_PullsFromAllSuppliers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplierA := f.addSupplier(t, "Supplier A")
	supplierB := f.addSupplier(t, "Supplier B")

	part, err := f.service.CreatePart(ctx, PartRequest{
		Name:      "Battery",
		Category:  models.CategoryElectrical,
		Brand:     "Varta",
		Image:     "/uploads/battery.jpg",
		Suppliers: []string{supplierA.ID.Hex(), supplierB.ID.Hex()},
	})
	require.NoError(t, err)

	require.NoError(t, f.service.DeletePart(ctx, part.ID.Hex()))

	assert.Empty(t, f.supplierParts(t, supplierA.ID))
	assert.Empty(t, f.supplierParts(t, supplierB.ID))
	_, err = f.parts.FindPartByID(ctx, part.ID.Hex())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, f.images.removed, "/uploads/battery.jpg")
}

func TestCreatePart_InvalidSupplierID(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreatePart(context.Background(), PartRequest{
		Name:      "Alternator",
		Category:  models.CategoryElectrical,
		Brand:     "Valeo",
		Suppliers: []string{"not-a-hex-id"},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreatePart_InvalidCategory(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreatePart(context.Background(), PartRequest{
		Name:     "Mystery Part",
		Category: models.PartCategory("transmission"),
		Brand:    "Acme",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListParts_ResolvesSupplierRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplier := f.addSupplier(t, "Resolved")

	_, err := f.service.CreatePart(ctx, PartRequest{
		Name:      "Radiator",
		Category:  models.CategoryEngine,
		Brand:     "Nissens",
		Suppliers: []string{supplier.ID.Hex()},
	})
	require.NoError(t, err)

	parts, err := f.service.ListParts(ctx)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.Len(t, parts[0].SupplierRecords, 1)
	assert.Equal(t, "Resolved", parts[0].SupplierRecords[0].Name)
}

//
// Suppliers
//

func TestCreateSupplier_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateSupplier(ctx, SupplierRequest{
		Name: "First", Email: "contact@parts.tn",
	})
	require.NoError(t, err)

	_, err = f.service.CreateSupplier(ctx, SupplierRequest{
		Name: "Second", Email: "contact@parts.tn",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestUpdateSupplier_KeepsOwnEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	supplier, err := f.service.CreateSupplier(ctx, SupplierRequest{
		Name: "Self", Email: "self@parts.tn",
	})
	require.NoError(t, err)

	updated, err := f.service.UpdateSupplier(ctx, supplier.ID.Hex(), UpdateSupplierRequest{
		Name:  strPtr("Self Renamed"),
		Email: strPtr("self@parts.tn"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Self Renamed", updated.Name)
}

func TestDeleteSupplier_PartsKeepOrphanedReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplier := f.addSupplier(t, "Doomed")

	part, err := f.service.CreatePart(ctx, PartRequest{
		Name:      "Clutch Kit",
		Category:  models.CategoryOther,
		Brand:     "LuK",
		Suppliers: []string{supplier.ID.Hex()},
	})
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteSupplier(ctx, supplier.ID.Hex()))

	// the part record is untouched; readers skip the dangling id
	stored, err := f.parts.FindPartByID(ctx, part.ID.Hex())
	require.NoError(t, err)
	assert.Contains(t, stored.Suppliers, supplier.ID)

	detail, err := f.service.GetPart(ctx, part.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, detail.SupplierRecords)
}

func TestGetSupplier_ResolvesParts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplier := f.addSupplier(t, "Stocked")

	part, err := f.service.CreatePart(ctx, PartRequest{
		Name:      "Shock Absorber",
		Category:  models.CategoryBody,
		Brand:     "KYB",
		Suppliers: []string{supplier.ID.Hex()},
	})
	require.NoError(t, err)

	detail, err := f.service.GetSupplier(ctx, supplier.ID.Hex())
	require.NoError(t, err)
	require.Len(t, detail.PartRecords, 1)
	assert.Equal(t, part.ID, detail.PartRecords[0].ID)
}

//
// Technicians
//

func TestCreateTechnician_InvalidSpeciality(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateTechnician(context.Background(), TechnicianRequest{
		Name:       "Ali Garage",
		Speciality: models.Speciality("plumber"),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTechnicianLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.CreateTechnician(ctx, TechnicianRequest{
		Name:       "Ali Garage",
		Speciality: models.SpecialityMechanic,
		Cars:       []string{"Toyota", "Peugeot"},
		Phone:      "+216 20 000 000",
	})
	require.NoError(t, err)

	newCars := []string{"Toyota"}
	updated, err := f.service.UpdateTechnician(ctx, created.ID.Hex(), UpdateTechnicianRequest{
		Speciality: func() *models.Speciality { s := models.SpecialityElectrician; return &s }(),
		Cars:       &newCars,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SpecialityElectrician, updated.Speciality)
	assert.Equal(t, []string{"Toyota"}, updated.Cars)

	require.NoError(t, f.service.DeleteTechnician(ctx, created.ID.Hex()))
	_, err = f.service.GetTechnician(ctx, created.ID.Hex())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

//
// diff helper
//

func TestDiffIDs(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	c := primitive.NewObjectID()

	toRemove, toAdd := diffIDs(
		[]primitive.ObjectID{a, b},
		[]primitive.ObjectID{b, c},
	)
	assert.Equal(t, []primitive.ObjectID{a}, toRemove)
	assert.Equal(t, []primitive.ObjectID{c}, toAdd)

	toRemove, toAdd = diffIDs(nil, nil)
	assert.Empty(t, toRemove)
	assert.Empty(t, toAdd)

	toRemove, toAdd = diffIDs([]primitive.ObjectID{a}, []primitive.ObjectID{a})
	assert.Empty(t, toRemove)
	assert.Empty(t, toAdd)
}

func TestUploadImage_EmptyData(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.UploadImage(nil, ".jpg")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Zero(t, f.images.saved)
}
