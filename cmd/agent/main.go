package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/road-monitor/internal/datasource"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()
	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	broker := envOr("AGENT_MQTT_BROKER", "tcp://localhost:1883")
	topic := envOr("AGENT_TOPIC", "agent_data")
	parkingTopic := envOr("AGENT_PARKING_TOPIC", "parking")

	userID := int64(12)
	if v := os.Getenv("AGENT_USER_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			userID = n
		}
	}

	interval := time.Second
	if v := os.Getenv("AGENT_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	ds := datasource.New(
		envOr("AGENT_ACCELEROMETER_FILE", "data/accelerometer.csv"),
		envOr("AGENT_GPS_FILE", "data/gps.csv"),
		envOr("AGENT_PARKING_FILE", "data/parking.csv"),
		userID,
	)
	if err := ds.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start datasource")
	}
	defer ds.Stop()

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("road-monitor-agent").
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Fatal("Failed to connect to MQTT broker")
	}
	defer client.Disconnect(250)

	log.WithFields(log.Fields{
		"broker":   broker,
		"topic":    topic,
		"user_id":  userID,
		"interval": interval,
	}).Info("Agent started, replaying recorded readings")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			log.Info("Agent stopping")
			return
		case <-ticker.C:
			data, err := ds.Read()
			if err != nil {
				log.WithError(err).Error("Failed to read from datasource")
				continue
			}
			payload, err := json.Marshal(data)
			if err != nil {
				log.WithError(err).Error("Failed to marshal reading")
				continue
			}
			if token := client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
				log.WithError(token.Error()).Error("Failed to publish reading")
				continue
			}
			log.WithFields(log.Fields{
				"y": data.Accelerometer.Y,
				"z": data.Accelerometer.Z,
			}).Debug("Published reading")

			parking, err := ds.ReadParking()
			if err != nil {
				log.WithError(err).Error("Failed to read parking marker")
				continue
			}
			if payload, err := json.Marshal(parking); err == nil {
				client.Publish(parkingTopic, 0, false, payload)
			}
		}
	}
}
