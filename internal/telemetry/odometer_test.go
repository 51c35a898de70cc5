package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkadri-dev/autocare-backend/internal/db/dbtest"
	"github.com/mkadri-dev/autocare-backend/internal/models"
)

func seedCar(t *testing.T, cars *dbtest.FakeCars, kilometrage float64) string {
	t.Helper()
	car := models.Car{
		ID:          primitive.NewObjectID(),
		Brand:       "Toyota",
		Model:       "Corolla",
		Kilometrage: kilometrage,
	}
	require.NoError(t, cars.InsertCar(context.Background(), car))
	return car.ID.Hex()
}

func carKilometrage(t *testing.T, cars *dbtest.FakeCars, id string) float64 {
	t.Helper()
	car, err := cars.FindCarByID(context.Background(), id)
	require.NoError(t, err)
	return car.Kilometrage
}

func readingPayload(t *testing.T, carID string, km float64) []byte {
	t.Helper()
	payload, err := json.Marshal(OdometerReading{CarID: carID, Kilometrage: km})
	require.NoError(t, err)
	return payload
}

func TestApply_BumpsForwardOnly(t *testing.T) {
	cars := dbtest.NewFakeCars()
	feed := &OdometerFeed{cars: cars, topic: DefaultTopic}
	carID := seedCar(t, cars, 50000)
	ctx := context.Background()

	feed.apply(ctx, readingPayload(t, carID, 50120))
	assert.Equal(t, float64(50120), carKilometrage(t, cars, carID))

	// stale reading from a delayed publisher must not rewind the odometer
	feed.apply(ctx, readingPayload(t, carID, 49000))
	assert.Equal(t, float64(50120), carKilometrage(t, cars, carID))

	// equal reading is a no-op too
	feed.apply(ctx, readingPayload(t, carID, 50120))
	assert.Equal(t, float64(50120), carKilometrage(t, cars, carID))
}

func TestApply_UnknownCarIsIgnored(t *testing.T) {
	cars := dbtest.NewFakeCars()
	feed := &OdometerFeed{cars: cars, topic: DefaultTopic}

	feed.apply(context.Background(), readingPayload(t, primitive.NewObjectID().Hex(), 12345))
}

func TestApply_RejectsBadPayloads(t *testing.T) {
	cars := dbtest.NewFakeCars()
	feed := &OdometerFeed{cars: cars, topic: DefaultTopic}
	carID := seedCar(t, cars, 1000)
	ctx := context.Background()

	feed.apply(ctx, []byte("not json at all"))
	feed.apply(ctx, []byte(`{"kilometrage": 99999}`))
	feed.apply(ctx, []byte(fmt.Sprintf(`{"car_id": %q, "kilometrage": -5}`, carID)))

	assert.Equal(t, float64(1000), carKilometrage(t, cars, carID))
}
