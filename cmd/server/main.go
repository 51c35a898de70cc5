package main

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/mkadri-dev/autocare-backend/internal/auth"
	"github.com/mkadri-dev/autocare-backend/internal/catalog"
	"github.com/mkadri-dev/autocare-backend/internal/db"
	"github.com/mkadri-dev/autocare-backend/internal/garage"
	"github.com/mkadri-dev/autocare-backend/internal/handlers"
	"github.com/mkadri-dev/autocare-backend/internal/middleware"
	"github.com/mkadri-dev/autocare-backend/internal/models"
	"github.com/mkadri-dev/autocare-backend/internal/storage"
	"github.com/mkadri-dev/autocare-backend/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using environment variables")
	}

	log.SetFormatter(&log.JSONFormatter{})
	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	log.Info("connected to MongoDB")

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "autocare"
	}
	database := client.Database(dbName)

	users := &db.MongoUserCollection{Collection: database.Collection("users")}
	cars := &db.MongoCarCollection{Collection: database.Collection("cars")}
	parts := &db.MongoSparePartCollection{Collection: database.Collection("spare_parts")}
	suppliers := &db.MongoSupplierCollection{Collection: database.Collection("suppliers")}
	technicians := &db.MongoTechnicianCollection{Collection: database.Collection("technicians")}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	images, err := storage.NewDiskStore(uploadDir)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize image store")
	}

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("failed to initialize auth service")
	}

	garageService := garage.NewService(users, cars, parts, suppliers, technicians, images)
	catalogService := catalog.NewService(users, parts, suppliers, technicians, authService, images)

	authHandler := handlers.NewAuthHandler(authService, users)
	carHandler := handlers.NewCarHandler(garageService)
	adminHandler := handlers.NewAdminHandler(catalogService, garageService)
	publicHandler := handlers.NewPublicHandler(catalogService)
	authMiddleware := middleware.NewAuthMiddleware(authService, users)

	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		feed := telemetry.NewOdometerFeed(broker, "autocare-backend", os.Getenv("MQTT_TOPIC"), cars)
		if err := feed.Start(); err != nil {
			log.WithError(err).Error("odometer feed unavailable, continuing without it")
		} else {
			defer feed.Stop()
		}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health)

	// Uploaded images are served straight from disk
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir)))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)
				r.Get("/me", authHandler.Me)
			})
		})

		r.Route("/public", func(r chi.Router) {
			r.Get("/suppliers", publicHandler.Suppliers)
			r.Get("/suppliers/{id}", publicHandler.Supplier)
			r.Get("/technicians", publicHandler.Technicians)
			r.Get("/technicians/{id}", publicHandler.Technician)
		})

		r.Route("/cars", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/", carHandler.List)
			r.Post("/", carHandler.Create)
			r.Get("/spare-parts/all", carHandler.AvailableParts)
			r.Get("/{id}", carHandler.Get)
			r.Put("/{id}", carHandler.Update)
			r.Delete("/{id}", carHandler.Delete)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(authMiddleware.RequireRole(models.RoleAdmin))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", adminHandler.ListUsers)
				r.Post("/", adminHandler.CreateUser)
				r.Put("/{id}", adminHandler.UpdateUser)
				r.Delete("/{id}", adminHandler.DeleteUser)
			})
			r.Route("/spare-parts", func(r chi.Router) {
				r.Get("/", adminHandler.ListParts)
				r.Post("/", adminHandler.CreatePart)
				r.Get("/{id}", adminHandler.GetPart)
				r.Put("/{id}", adminHandler.UpdatePart)
				r.Delete("/{id}", adminHandler.DeletePart)
			})
			r.Route("/suppliers", func(r chi.Router) {
				r.Get("/", adminHandler.ListSuppliers)
				r.Post("/", adminHandler.CreateSupplier)
				r.Get("/{id}", adminHandler.GetSupplier)
				r.Put("/{id}", adminHandler.UpdateSupplier)
				r.Delete("/{id}", adminHandler.DeleteSupplier)
			})
			r.Route("/technicians", func(r chi.Router) {
				r.Get("/", adminHandler.ListTechnicians)
				r.Post("/", adminHandler.CreateTechnician)
				r.Get("/{id}", adminHandler.GetTechnician)
				r.Put("/{id}", adminHandler.UpdateTechnician)
				r.Delete("/{id}", adminHandler.DeleteTechnician)
			})
			r.Route("/cars", func(r chi.Router) {
				r.Get("/", adminHandler.ListCars)
				r.Get("/{id}", adminHandler.GetCar)
				r.Delete("/{id}", adminHandler.DeleteCar)
			})
			r.Post("/upload-image", adminHandler.UploadImage)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.WithField("port", port).Info("HTTP server listening")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
