package main

import (
	"log"
	"os"

	"github.com/eyespire/clinic-backend/config"
	"github.com/eyespire/clinic-backend/middlewares"
	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/router"
	"github.com/eyespire/clinic-backend/services"
	"github.com/eyespire/clinic-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	utils.InitLogger()

	requiredEnvVars := []string{
		"PAYOS_CLIENT_ID",
		"PAYOS_API_KEY",
		"PAYOS_CHECKSUM_KEY",
		"PAYOS_RETURN_URL",
		"PAYOS_CANCEL_URL",
	}
	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" {
			log.Printf("Warning: required environment variable %s is not set", envVar)
		}
	}
}

func main() {
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	payos := services.NewPayOSService()

	paymentService := services.NewPaymentService(db, payos)
	paymentService.StartTimeoutChecker()

	refundMonitor := services.NewRefundMonitor(db)
	refundMonitor.Start()
	defer refundMonitor.Stop()

	rateLimiter := middlewares.NewRateLimiter(50, 1)

	r := router.SetupRouter(db, payos)
	r.Use(rateLimiter.RateLimit())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Doctor{},
		&models.MedicalService{},
		&models.DoctorAvailability{},
		&models.Appointment{},
		&models.AppointmentInvoice{},
		&models.Payment{},
		&models.Refund{},
		&models.Order{},
		&models.OrderPayment{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
