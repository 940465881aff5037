package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/road-monitor/internal/classifier"
	"github.com/ukydev/road-monitor/internal/models"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// saveBatch posts one ordered batch to the store API. Delivery is
// at-most-once: a failed post is logged and the batch dropped.
func saveBatch(client *resty.Client, apiURL string, batch []models.ProcessedAgentData) {
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(batch).
		Post(apiURL + "/processed_agent_data")
	if err != nil {
		log.WithError(err).Error("Failed to post batch to store")
		return
	}
	if resp.StatusCode() != 200 {
		log.WithFields(log.Fields{
			"status": resp.StatusCode(),
			"body":   resp.String(),
		}).Error("Store rejected batch")
		return
	}
	log.WithField("size", len(batch)).Info("Saved batch")
}

func main() {
	_ = godotenv.Load()
	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	broker := envOr("EDGE_MQTT_BROKER", "tcp://localhost:1883")
	topic := envOr("EDGE_TOPIC", "agent_data")
	apiURL := envOr("STORE_API_URL", "http://localhost:8000")

	batchSize := 10
	if v := os.Getenv("EDGE_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			batchSize = n
		}
	}
	flushInterval := 5 * time.Second
	if v := os.Getenv("EDGE_FLUSH_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			flushInterval = time.Duration(n) * time.Second
		}
	}

	httpClient := resty.New().SetTimeout(10 * time.Second)
	if token := os.Getenv("EDGE_AUTH_TOKEN"); token != "" {
		httpClient.SetAuthToken(token)
	}

	readings := make(chan models.AgentData, 256)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("road-monitor-edge").
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Fatal("Failed to connect to MQTT broker")
	}
	defer client.Disconnect(250)

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var data models.AgentData
		if err := json.Unmarshal(msg.Payload(), &data); err != nil {
			log.WithError(err).Warn("Skipping malformed reading")
			return
		}
		readings <- data
	})
	if token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Fatal("Failed to subscribe")
	}

	log.WithFields(log.Fields{
		"broker":     broker,
		"topic":      topic,
		"api_url":    apiURL,
		"batch_size": batchSize,
	}).Info("Edge started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var batch []models.ProcessedAgentData
	flush := func() {
		if len(batch) == 0 {
			return
		}
		saveBatch(httpClient, apiURL, batch)
		batch = nil
	}

	for {
		select {
		case <-sig:
			flush()
			log.Info("Edge stopping")
			return
		case data := <-readings:
			processed := classifier.Process(data)
			log.WithFields(log.Fields{
				"user_id":    processed.AgentData.UserID,
				"road_state": processed.RoadState,
			}).Debug("Classified reading")
			batch = append(batch, processed)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
