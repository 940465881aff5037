package main

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/road-monitor/internal/auth"
	"github.com/ukydev/road-monitor/internal/db"
	"github.com/ukydev/road-monitor/internal/fanout"
	"github.com/ukydev/road-monitor/internal/handlers"
	"github.com/ukydev/road-monitor/internal/middleware"
)

func main() {
	_ = godotenv.Load()
	configureLogging()

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	log.Info("Connected to MongoDB")

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "road_monitor"
	}
	database := client.Database(dbName)

	records := db.NewMongoRecordCollection(database)
	users := &db.MongoUserCollection{Collection: database.Collection("users")}

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}

	// The hub is owned here and handed to the handlers; it shares no state
	// with the record store.
	hub := fanout.NewHub()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	handlers.NewRecordsHandler(records, hub).RegisterRoutes(router)
	handlers.NewWSHandler(hub).RegisterRoutes(router)
	handlers.NewAuthHandler(authService, users).RegisterRoutes(router)

	var handler http.Handler = router
	handler = middleware.NewRateLimitMiddleware().RateLimit(600, 60)(handler)
	if os.Getenv("AUTH_ENABLED") == "true" {
		handler = middleware.NewAuthMiddleware(authService).Authenticate(handler)
		log.Info("API authentication enabled")
	}
	handler = cors.AllowAll().Handler(handler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	log.WithField("port", port).Info("Store service listening")
	log.Fatal(http.ListenAndServe(":"+port, handler))
}

func configureLogging() {
	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}
}
