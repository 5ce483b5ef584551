package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
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
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// fakeGateway stands in for PayOS. Status controls what the status
// endpoint reports; FailCreate makes link creation return HTTP 500.
type fakeGateway struct {
	mu         sync.Mutex
	Status     string
	FailCreate bool

	CreateCalls int
	StatusCalls int
	LastHeaders http.Header
	LastCreate  PaymentLinkRequest

	server *httptest.Server
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	fg := &fakeGateway{Status: PayosStatusPending}

	fg.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fg.mu.Lock()
		defer fg.mu.Unlock()
		fg.LastHeaders = r.Header.Clone()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/payment-requests":
			fg.CreateCalls++
			if fg.FailCreate {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"code":"99","desc":"internal error"}`)
				return
			}
			var req PaymentLinkRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fg.LastCreate = req
			resp := map[string]interface{}{
				"code": "00",
				"desc": "success",
				"data": map[string]interface{}{
					"checkoutUrl":   "https://pay.example.com/web/" + fmt.Sprint(req.OrderCode),
					"paymentLinkId": fmt.Sprintf("pl_%d", req.OrderCode),
					"orderCode":     req.OrderCode,
					"amount":        req.Amount,
					"status":        PayosStatusPending,
				},
			}
			json.NewEncoder(w).Encode(resp)

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/payment-requests/"):
			fg.StatusCalls++
			resp := map[string]interface{}{
				"code": "00",
				"desc": "success",
				"data": map[string]interface{}{
					"status": fg.Status,
				},
			}
			json.NewEncoder(w).Encode(resp)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(fg.server.Close)
	return fg
}

func (fg *fakeGateway) SetStatus(status string) {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	fg.Status = status
}

func (fg *fakeGateway) service() *PayOSService {
	return &PayOSService{
		ClientID:    "client-test",
		APIKey:      "key-test",
		ChecksumKey: "checksum-test",
		APIURL:      fg.server.URL,
		ReturnURL:   "https://clinic.example.com/return",
		CancelURL:   "https://clinic.example.com/cancel",
	}
}

func seedDoctorWithWindow(t *testing.T, db *gorm.DB, date, start, end string) *models.Doctor {
	t.Helper()
	doctor := models.Doctor{Name: "Dr. Lan", Specialization: "Ophthalmology"}
	if err := db.Create(&doctor).Error; err != nil {
		t.Fatalf("failed to seed doctor: %v", err)
	}
	window := models.DoctorAvailability{
		DoctorID:  doctor.ID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Status:    models.AvailabilityAvailable,
	}
	if err := db.Create(&window).Error; err != nil {
		t.Fatalf("failed to seed availability: %v", err)
	}
	return &doctor
}
