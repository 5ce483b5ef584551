package services

import (
	"testing"
	"time"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/utils"
	"github.com/stretchr/testify/assert"
)

func depositRequest(doctorID uint) DepositCheckoutRequest {
	return DepositCheckoutRequest{
		DoctorID:        doctorID,
		AppointmentDate: "2026-09-15",
		TimeSlot:        "10:00",
		PatientName:     "Minh Tran",
		PatientEmail:    "minh@example.com",
	}
}

func TestCreateDepositCheckout(t *testing.T) {
	db := setupTestDB(t)
	fg := newFakeGateway(t)
	svc := NewPaymentService(db, fg.service())
	doctor := seedDoctorWithWindow(t, db, "2026-09-15", "09:00", "12:00")

	checkout, err := svc.CreateDepositCheckout(depositRequest(doctor.ID))
	assert.NoError(t, err)
	assert.NotEmpty(t, checkout.TransactionNo)
	assert.Contains(t, checkout.CheckoutURL, "https://pay.example.com/web/")
	assert.Equal(t, float64(DefaultDepositAmount), checkout.Amount)

	var payment models.Payment
	assert.NoError(t, db.Where("transaction_no = ?", checkout.TransactionNo).First(&payment).Error)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, models.PaymentTypeDeposit, payment.PaymentType)
	assert.Equal(t, doctor.ID, *payment.DoctorID)
	assert.Equal(t, "2026-09-15", payment.AppointmentDate)
	assert.Equal(t, "10:00", payment.TimeSlot)

	// No appointment exists until the payment verifies.
	var count int64
	db.Model(&models.Appointment{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateDepositCheckoutDeletesOrphanOnGatewayFailure(t *testing.T) {
	db := setupTestDB(t)
	fg := newFakeGateway(t)
	fg.FailCreate = true
	svc := NewPaymentService(db, fg.service())
	doctor := seedDoctorWithWindow(t, db, "2026-09-15", "09:00", "12:00")

	_, err := svc.CreateDepositCheckout(depositRequest(doctor.ID))
	assert.Equal(t, utils.KindGateway, utils.KindOf(err))

	var count int64
	db.Model(&models.Payment{}).Count(&count)
	assert.Equal(t, int64(0), count, "failed gateway registration must not leave a payment row behind")
}

func TestVerifyPaymentReturnBooksAppointment(t *testing.T) {
	db := setupTestDB(t)
	fg := newFakeGateway(t)
	svc := NewPaymentService(db, fg.service())
	doctor := seedDoctorWithWindow(t, db, "2026-09-15", "09:00", "12:00")

	checkout, err := svc.CreateDepositCheckout(depositRequest(doctor.ID))
	assert.NoError(t, err)

	fg.SetStatus(PayosStatusPaid)
	result, err := svc.VerifyPaymentReturn(checkout.TransactionNo)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, result.Payment.Status)
	assert.NotNil(t, result.Payment.PaymentDate)
	assert.NotNil(t, result.Appointment)
	assert.Equal(t, models.AppointmentConfirmed, result.Appointment.Status)

	// The deposit invoice is open and settled.
	var invoice models.AppointmentInvoice
	assert.NoError(t, db.Where("appointment_id = ?", result.Appointment.ID).First(&invoice).Error)
	assert.Equal(t, float64(DefaultDepositAmount), invoice.DepositAmount)
	assert.True(t, invoice.IsFullyPaid)
}

func TestVerifyPaymentReturnIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	fg := newFakeGateway(t)
	svc := NewPaymentService(db, fg.service())
	doctor := seedDoctorWithWindow(t, db, "2026-09-15", "09:00", "12:00")

	checkout, err := svc.CreateDepositCheckout(depositRequest(doctor.ID))
	assert.NoError(t, err)

	fg.SetStatus(PayosStatusPaid)
	first, err := svc.VerifyPaymentReturn(checkout.TransactionNo)
	assert.NoError(t, err)

	queriesBefore := fg.StatusCalls
	second, err := svc.VerifyPaymentReturn(checkout.TransactionNo)
	assert.NoError(t, err)
	assert.Equal(t, first.Appointment.ID, second.Appointment.ID)
	assert.Equal(t, queriesBefore, fg.StatusCalls, "a settled payment must not be re-queried")

	var count int64
	db.Model(&models.Appointment{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestVerifyPaymentReturnDistrustsHint(t *testing.T) {
	db := setupTestDB(t)
	fg := newFakeGateway(t)
	svc := NewPaymentService(db, fg.service())
	doctor := seedDoctorWithWindow(t, db, "2026-09-15", "09:00", "12:00")

	checkout, err := svc.CreateDepositCheckout(depositRequest(doctor.ID))
	assert.NoError(t, err)

	// Gateway still says PENDING, whatever the redirect claimed.
	result, err := svc.VerifyPaymentReturn(checkout.TransactionNo)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPending, result.Payment.Status)
	assert.Nil(t, result.Appointment)

	var count int64
	db.Model(&models.Appointment{}).Count(&count)
	assert.Equal(t, int64(0), count, "no booking may happen until the gateway itself reports PAID")
}

func TestVerifyPaymentReturnRollsBackWhenSlotTaken(t *testing.T) {
	db := setupTestDB(t)
	fg := newFakeGateway(t)
	svc := NewPaymentService(db, fg.service())
	appointments := NewAppointmentService(db)
	doctor := seedDoctorWithWindow(t, db, "2026-09-15", "09:00", "12:00")

	checkout, err := svc.CreateDepositCheckout(depositRequest(doctor.ID))
	assert.NoError(t, err)

	// The slot is taken at the front desk while the patient is still on
	// the hosted payment page.
	blocker, err := appointments.CreateAppointment(CreateAppointmentRequest{
		DoctorID:        doctor.ID,
		AppointmentTime: time.Date(2026, 9, 15, 10, 0, 0, 0, time.Local),
	})
	assert.NoError(t, err)

	fg.SetStatus(PayosStatusPaid)
	_, err = svc.VerifyPaymentReturn(checkout.TransactionNo)
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))

	// The whole settlement rolled back: payment still pending, nothing
	// booked against it.
	var payment models.Payment
	assert.NoError(t, db.Where("transaction_no = ?", checkout.TransactionNo).First(&payment).Error)
	assert.Equal(t, models.PaymentPending, payment.Status)
	var count int64
	db.Model(&models.Appointment{}).Where("payment_id = ?", payment.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	// Once the slot frees up, verification retries the settlement.
	_, err = appointments.CancelAppointment(blocker.ID, "walk-in left")
	assert.NoError(t, err)

	result, err := svc.VerifyPaymentReturn(checkout.TransactionNo)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, result.Payment.Status)
	assert.NotNil(t, result.Appointment)
	assert.Equal(t, models.AppointmentConfirmed, result.Appointment.Status)
}

func TestVerifyPaymentReturnSettlesFailures(t *testing.T) {
	db := setupTestDB(t)
	fg := newFakeGateway(t)
	svc := NewPaymentService(db, fg.service())
	doctor := seedDoctorWithWindow(t, db, "2026-09-15", "09:00", "12:00")

	checkout, err := svc.CreateDepositCheckout(depositRequest(doctor.ID))
	assert.NoError(t, err)

	fg.SetStatus(PayosStatusCancelled)
	result, err := svc.VerifyPaymentReturn(checkout.TransactionNo)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, result.Payment.Status)

	checkout2, err := svc.CreateDepositCheckout(depositRequest(doctor.ID))
	assert.NoError(t, err)
	fg.SetStatus(PayosStatusFailed)
	result, err = svc.VerifyPaymentReturn(checkout2.TransactionNo)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, result.Payment.Status)
}

func TestFinalCheckoutAndSettlement(t *testing.T) {
	db := setupTestDB(t)
	fg := newFakeGateway(t)
	svc := NewPaymentService(db, fg.service())
	invoices := NewInvoiceService(db)
	doctor := seedDoctorWithWindow(t, db, "2026-09-15", "09:00", "12:00")

	// Deposit flow first.
	checkout, err := svc.CreateDepositCheckout(depositRequest(doctor.ID))
	assert.NoError(t, err)
	fg.SetStatus(PayosStatusPaid)
	result, err := svc.VerifyPaymentReturn(checkout.TransactionNo)
	assert.NoError(t, err)
	appointmentID := result.Appointment.ID

	_, err = invoices.FinalizeAfterDiagnosis(appointmentID, 250000)
	assert.NoError(t, err)

	fg.SetStatus(PayosStatusPending)
	final, err := svc.CreateFinalCheckout(appointmentID)
	assert.NoError(t, err)
	assert.Equal(t, 240000.0, final.Amount)

	fg.SetStatus(PayosStatusPaid)
	_, err = svc.VerifyPaymentReturn(final.TransactionNo)
	assert.NoError(t, err)

	invoice, err := invoices.GetByAppointment(appointmentID)
	assert.NoError(t, err)
	assert.True(t, invoice.IsFullyPaid)
	// Settlement keeps the recorded amounts as finalized.
	assert.Equal(t, 250000.0, invoice.TotalAmount)
	assert.Equal(t, float64(DefaultDepositAmount), invoice.DepositAmount)
	assert.Equal(t, 240000.0, invoice.RemainingAmount)

	var appt models.Appointment
	assert.NoError(t, db.First(&appt, appointmentID).Error)
	assert.Equal(t, models.AppointmentCompleted, appt.Status)

	// A second final checkout on a settled invoice conflicts.
	_, err = svc.CreateFinalCheckout(appointmentID)
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
}

func TestRecordCashPayment(t *testing.T) {
	db := setupTestDB(t)
	fg := newFakeGateway(t)
	svc := NewPaymentService(db, fg.service())
	invoices := NewInvoiceService(db)
	appt := seedAppointment(t, db, models.AppointmentConfirmed)

	_, err := invoices.CreateForAppointment(appt.ID, 10000, "tx-dep")
	assert.NoError(t, err)
	_, err = invoices.FinalizeAfterDiagnosis(appt.ID, 60000)
	assert.NoError(t, err)

	payment, err := svc.RecordCashPayment(appt.ID, "reception-1")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentTypeCash, payment.PaymentType)
	assert.Equal(t, models.PaymentCompleted, payment.Status)
	assert.Equal(t, 50000.0, payment.Amount)

	invoice, err := invoices.GetByAppointment(appt.ID)
	assert.NoError(t, err)
	assert.True(t, invoice.IsFullyPaid)

	_, err = svc.RecordCashPayment(appt.ID, "reception-1")
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
}

func TestVerifyUnknownPayment(t *testing.T) {
	db := setupTestDB(t)
	fg := newFakeGateway(t)
	svc := NewPaymentService(db, fg.service())

	_, err := svc.VerifyPaymentReturn("999999999")
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))
}
