package router

import (
	"net/http"

	"github.com/eyespire/clinic-backend/controllers"
	"github.com/eyespire/clinic-backend/middlewares"
	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, payos *services.PayOSService) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(db)
	doctorCtrl := controllers.NewDoctorController(db)
	serviceCtrl := controllers.NewMedicalServiceController(db)
	availabilityCtrl := controllers.NewAvailabilityController(db)
	appointmentCtrl := controllers.NewAppointmentController(db)
	paymentCtrl := controllers.NewPaymentController(db, payos)
	refundCtrl := controllers.NewRefundController(db)
	orderCtrl := controllers.NewOrderController(db, payos)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	auth := r.Group("/auth")
	auth.Use(middlewares.NewStrictRateLimiter())
	{
		auth.POST("/register", userCtrl.Register)
		auth.POST("/login", userCtrl.Login)
	}

	r.GET("/doctors", doctorCtrl.GetDoctors)
	r.GET("/doctors/:id", doctorCtrl.GetDoctor)
	r.GET("/doctors/:id/available", availabilityCtrl.CheckDoctorAvailability)
	r.GET("/doctors/:id/availabilities", availabilityCtrl.GetDoctorAvailabilities)
	r.GET("/services", serviceCtrl.GetServices)
	r.GET("/appointments/available-slots", availabilityCtrl.GetAvailableSlots)

	// Gateway-facing endpoints stay public: the patient redirect and the
	// server callback both end in an authoritative status re-query.
	r.POST("/payments/deposit", paymentCtrl.CreateDepositCheckout)
	r.GET("/payments/verify", paymentCtrl.VerifyReturn)
	r.POST("/payments/callback", paymentCtrl.Callback)
	r.GET("/payments/:transactionNo", paymentCtrl.GetPayment)

	r.POST("/orders", orderCtrl.CreateOrder)
	r.GET("/orders/payments/verify", orderCtrl.VerifyReturn)
	r.GET("/orders/:id", orderCtrl.GetOrder)
	r.POST("/orders/:id/checkout", orderCtrl.CreateCheckout)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	authorized := r.Group("/")
	authorized.Use(middlewares.AuthMiddleware())
	{
		authorized.GET("/profile", userCtrl.GetProfile)

		authorized.GET("/appointments/:id", appointmentCtrl.GetAppointment)
		authorized.GET("/appointments/:id/invoice", appointmentCtrl.GetInvoice)
		authorized.GET("/patients/:id/appointments", appointmentCtrl.GetPatientAppointments)
		authorized.GET("/patients/:id/refunds", refundCtrl.GetPatientRefunds)
		authorized.POST("/appointments/:id/cancel", appointmentCtrl.CancelAppointment)
		authorized.POST("/appointments/:id/final-checkout", paymentCtrl.CreateFinalCheckout)

		staff := authorized.Group("/")
		staff.Use(middlewares.RequireRoles(models.RoleReceptionist, models.RoleDoctor))
		{
			staff.POST("/appointments", appointmentCtrl.CreateAppointment)
			staff.GET("/appointments", appointmentCtrl.GetAppointmentsByStatus)
			staff.GET("/invoices/unpaid", appointmentCtrl.GetUnpaidInvoices)
			staff.PATCH("/appointments/:id/status", appointmentCtrl.UpdateStatus)
			staff.POST("/appointments/:id/finalize", appointmentCtrl.FinalizeInvoice)
			staff.POST("/appointments/:id/cash-payment", paymentCtrl.RecordCashPayment)
			staff.GET("/doctors/:id/appointments", appointmentCtrl.GetDoctorSchedule)

			staff.GET("/refunds", refundCtrl.GetRefunds)
			staff.GET("/refunds/stats", refundCtrl.GetStats)
			staff.GET("/appointments/:id/refund", refundCtrl.GetRefundByAppointment)
			staff.POST("/refunds/:id/complete", refundCtrl.CompleteRefund)
			staff.POST("/refunds/:id/reject", refundCtrl.RejectRefund)
			staff.POST("/refunds/backfill", refundCtrl.Backfill)
		}

		admin := authorized.Group("/")
		admin.Use(middlewares.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/doctors", doctorCtrl.CreateDoctor)
			admin.POST("/services", serviceCtrl.CreateService)
			admin.POST("/availabilities", availabilityCtrl.CreateAvailability)
			admin.PATCH("/availabilities/:id", availabilityCtrl.UpdateAvailabilityStatus)
			admin.DELETE("/availabilities/:id", availabilityCtrl.DeleteAvailability)
		}
	}

	return r
}
