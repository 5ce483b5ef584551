package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/services"
	"github.com/eyespire/clinic-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db     *gorm.DB
	engine *gin.Engine
	payos  *httptest.Server
	status string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Doctor{}, &models.MedicalService{},
		&models.DoctorAvailability{}, &models.Appointment{},
		&models.AppointmentInvoice{}, &models.Payment{}, &models.Refund{},
		&models.Order{}, &models.OrderPayment{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	env := &testEnv{db: db, status: "PENDING"}
	env.payos = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var req services.PaymentLinkRequest
			json.NewDecoder(r.Body).Decode(&req)
			fmt.Fprintf(w, `{"code":"00","desc":"success","data":{"checkoutUrl":"https://pay.example.com/web/%d","paymentLinkId":"pl_%d","orderCode":%d,"amount":%d,"status":"PENDING"}}`,
				req.OrderCode, req.OrderCode, req.OrderCode, req.Amount)
			return
		}
		fmt.Fprintf(w, `{"code":"00","desc":"success","data":{"status":"%s"}}`, env.status)
	}))
	t.Cleanup(env.payos.Close)

	gateway := &services.PayOSService{
		ClientID:    "client-test",
		APIKey:      "key-test",
		ChecksumKey: "checksum-test",
		APIURL:      env.payos.URL,
		ReturnURL:   "https://clinic.example.com/return",
		CancelURL:   "https://clinic.example.com/cancel",
	}
	env.engine = SetupRouter(db, gateway)
	return env
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedUser(t *testing.T, role string) (uint, string) {
	t.Helper()
	hashed, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	user := models.User{
		Name:     "Test " + role,
		Email:    fmt.Sprintf("%s-%d@example.com", role, len(role)),
		Password: string(hashed),
		Role:     role,
	}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return user.ID, token
}

func (e *testEnv) seedSchedule(t *testing.T) *models.Doctor {
	t.Helper()
	doctor := models.Doctor{Name: "Dr. Lan", Specialization: "Ophthalmology"}
	if err := e.db.Create(&doctor).Error; err != nil {
		t.Fatalf("failed to seed doctor: %v", err)
	}
	window := models.DoctorAvailability{
		DoctorID: doctor.ID, Date: "2026-09-15",
		StartTime: "09:00", EndTime: "12:00",
		Status: models.AvailabilityAvailable,
	}
	if err := e.db.Create(&window).Error; err != nil {
		t.Fatalf("failed to seed availability: %v", err)
	}
	return &doctor
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Minh", "email": "minh@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.request(t, http.MethodPost, "/auth/login", "", gin.H{
		"email": "minh@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp utils.JSONResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Status)

	w = env.request(t, http.MethodPost, "/auth/login", "", gin.H{
		"email": "minh@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAvailableSlotsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)

	w := env.request(t, http.MethodGet, "/appointments/available-slots?date=2026-09-15", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/appointments/available-slots?date=nonsense", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDepositCheckoutAndVerifyFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)

	w := env.request(t, http.MethodPost, "/payments/deposit", "", gin.H{
		"doctorId": 1, "appointmentDate": "2026-09-15", "timeSlot": "10:00",
		"patientName": "Minh Tran", "patientEmail": "minh@example.com",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			TransactionNo string `json:"transactionNo"`
			CheckoutURL   string `json:"checkoutUrl"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.CheckoutURL)

	// Verify while the gateway still reports PENDING: nothing is booked.
	w = env.request(t, http.MethodGet, "/payments/verify?orderCode="+resp.Data.TransactionNo, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var apptCount int64
	env.db.Model(&models.Appointment{}).Count(&apptCount)
	assert.Equal(t, int64(0), apptCount)

	// Gateway flips to PAID: verification books the appointment.
	env.status = "PAID"
	w = env.request(t, http.MethodGet, "/payments/verify?orderCode="+resp.Data.TransactionNo, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	env.db.Model(&models.Appointment{}).Count(&apptCount)
	assert.Equal(t, int64(1), apptCount)

	var appt models.Appointment
	assert.NoError(t, env.db.First(&appt).Error)
	assert.Equal(t, models.AppointmentConfirmed, appt.Status)
}

func TestCallbackEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)

	w := env.request(t, http.MethodPost, "/payments/deposit", "", gin.H{
		"doctorId": 1, "appointmentDate": "2026-09-15", "timeSlot": "11:00",
		"patientName": "Minh Tran", "patientEmail": "minh@example.com",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data struct {
			TransactionNo string `json:"transactionNo"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	env.status = "PAID"
	var orderCode int64
	fmt.Sscan(resp.Data.TransactionNo, &orderCode)
	w = env.request(t, http.MethodPost, "/payments/callback", "", gin.H{
		"data": gin.H{"orderCode": orderCode, "status": "PAID"},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var apptCount int64
	env.db.Model(&models.Appointment{}).Count(&apptCount)
	assert.Equal(t, int64(1), apptCount)
}

func TestRoleEnforcement(t *testing.T) {
	env := newTestEnv(t)
	_, patientToken := env.seedUser(t, models.RolePatient)
	_, adminToken := env.seedUser(t, models.RoleAdmin)

	// Unauthenticated staff call.
	w := env.request(t, http.MethodGet, "/refunds", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Patient hitting a staff route.
	w = env.request(t, http.MethodGet, "/refunds", patientToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Patient hitting an admin route.
	w = env.request(t, http.MethodPost, "/doctors", patientToken, gin.H{"name": "Dr. X"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admin passes both.
	w = env.request(t, http.MethodPost, "/doctors", adminToken, gin.H{"name": "Dr. X"})
	assert.Equal(t, http.StatusCreated, w.Code)
	w = env.request(t, http.MethodGet, "/refunds", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancelAndRefundFlow(t *testing.T) {
	env := newTestEnv(t)
	doctor := env.seedSchedule(t)
	_, staffToken := env.seedUser(t, models.RoleReceptionist)

	w := env.request(t, http.MethodPost, "/appointments", staffToken, gin.H{
		"doctorId":        doctor.ID,
		"appointmentTime": "2026-09-15T10:00:00+07:00",
		"patientName":     "Minh Tran",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.Appointment `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = env.request(t, http.MethodPost, fmt.Sprintf("/appointments/%d/cancel", created.Data.ID), staffToken, gin.H{
		"reason": "patient request",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, fmt.Sprintf("/appointments/%d/refund", created.Data.ID), staffToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var refundResp struct {
		Data models.Refund `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &refundResp))
	assert.Equal(t, models.RefundPendingManual, refundResp.Data.RefundStatus)

	w = env.request(t, http.MethodPost, fmt.Sprintf("/refunds/%d/complete", refundResp.Data.ID), staffToken, gin.H{
		"method": models.RefundMethodCash,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// One refund per appointment: cancelling again conflicts.
	w = env.request(t, http.MethodPost, fmt.Sprintf("/appointments/%d/cancel", created.Data.ID), staffToken, gin.H{
		"reason": "again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetAppointmentNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, models.RolePatient)

	w := env.request(t, http.MethodGet, "/appointments/999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
