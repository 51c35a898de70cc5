// odosim publishes synthetic odometer readings over MQTT so the backend's
// telemetry feed can be exercised without real vehicles. Each simulated car
// random-walks its kilometrage forward and publishes at a fixed interval.
package main

import (
	"encoding/json"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/mkadri-dev/autocare-backend/internal/telemetry"
)

type carState struct {
	id          string
	kilometrage float64
}

func publishReading(client mqtt.Client, topic string, s *carState) {
	payload, err := json.Marshal(telemetry.OdometerReading{
		CarID:       s.id,
		Kilometrage: s.kilometrage,
	})
	if err != nil {
		log.WithError(err).Error("failed to marshal reading")
		return
	}
	if token := client.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).WithField("car_id", s.id).Error("failed to publish reading")
		return
	}
	log.WithFields(log.Fields{
		"car_id":      s.id,
		"kilometrage": s.kilometrage,
	}).Info("published odometer reading")
}

func main() {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = "tcp://localhost:1883"
	}

	topic := os.Getenv("MQTT_TOPIC")
	if topic == "" {
		topic = telemetry.DefaultTopic
	}

	carIDs := strings.Split(os.Getenv("SIM_CAR_IDS"), ",")
	states := make([]*carState, 0, len(carIDs))
	for _, id := range carIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		states = append(states, &carState{
			id:          id,
			kilometrage: 20000 + rand.Float64()*80000,
		})
	}
	if len(states) == 0 {
		log.Fatal("SIM_CAR_IDS must list at least one car id")
	}

	interval := 5 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("autocare-odosim").
		SetConnectRetry(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Fatal("failed to connect to MQTT broker")
	}
	defer client.Disconnect(250)

	log.WithFields(log.Fields{
		"broker":   broker,
		"topic":    topic,
		"cars":     len(states),
		"interval": interval,
	}).Info("starting odometer simulation")

	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		for _, s := range states {
			// 0 to 3 km per tick, odometers never run backwards
			s.kilometrage += rand.Float64() * 3
			publishReading(client, topic, s)
		}
	}
}
