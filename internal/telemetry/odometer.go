// Package telemetry ingests odometer readings published by vehicles (or the
// odosim tool) over MQTT and folds them into the car records.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/mkadri-dev/autocare-backend/internal/db"
)

// DefaultTopic is the topic the feed subscribes to when none is configured.
const DefaultTopic = "autocare/odometer"

// OdometerReading is the wire format of one published reading.
type OdometerReading struct {
	CarID       string  `json:"car_id"`
	Kilometrage float64 `json:"kilometrage"`
}

// OdometerFeed subscribes to an MQTT topic and applies readings to the car
// store. Stale or rewinding readings are dropped; the stored kilometrage only
// ever moves forward.
type OdometerFeed struct {
	cars   db.CarCollection
	client mqtt.Client
	topic  string
}

// NewOdometerFeed creates a feed for the given broker URL. The connection is
// not opened until Start.
func NewOdometerFeed(brokerURL, clientID, topic string, cars db.CarCollection) *OdometerFeed {
	if topic == "" {
		topic = DefaultTopic
	}
	feed := &OdometerFeed{cars: cars, topic: topic}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	opts.OnConnect = func(client mqtt.Client) {
		if token := client.Subscribe(feed.topic, 1, feed.handleMessage); token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).WithField("topic", feed.topic).Error("failed to subscribe to odometer topic")
			return
		}
		log.WithField("topic", feed.topic).Info("subscribed to odometer feed")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.WithError(err).Warn("odometer feed connection lost")
	}

	feed.client = mqtt.NewClient(opts)
	return feed
}

// Start connects to the broker. Subscription happens in the connect callback
// so it survives reconnects.
func (f *OdometerFeed) Start() error {
	if token := f.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", token.Error())
	}
	return nil
}

// Stop disconnects from the broker, allowing in-flight work to finish.
func (f *OdometerFeed) Stop() {
	f.client.Disconnect(250)
}

func (f *OdometerFeed) handleMessage(client mqtt.Client, msg mqtt.Message) {
	f.apply(context.Background(), msg.Payload())
}

// apply parses one reading and bumps the matching car's kilometrage.
func (f *OdometerFeed) apply(ctx context.Context, payload []byte) {
	var reading OdometerReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		log.WithError(err).Warn("discarding malformed odometer reading")
		return
	}
	if reading.CarID == "" || reading.Kilometrage < 0 {
		log.WithFields(log.Fields{
			"car_id":      reading.CarID,
			"kilometrage": reading.Kilometrage,
		}).Warn("discarding invalid odometer reading")
		return
	}

	bumped, err := f.cars.BumpKilometrage(ctx, reading.CarID, reading.Kilometrage)
	if err != nil {
		log.WithError(err).WithField("car_id", reading.CarID).Error("failed to apply odometer reading")
		return
	}
	if !bumped {
		log.WithFields(log.Fields{
			"car_id":      reading.CarID,
			"kilometrage": reading.Kilometrage,
		}).Debug("odometer reading not ahead of stored value, skipped")
		return
	}
	log.WithFields(log.Fields{
		"car_id":      reading.CarID,
		"kilometrage": reading.Kilometrage,
	}).Debug("odometer reading applied")
}
