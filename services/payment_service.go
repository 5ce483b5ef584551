package services

import (
	"fmt"
	"time"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/utils"
	"gorm.io/gorm"
)

// PaymentService owns the local payment lifecycle: creating checkouts,
// verifying gateway results and settling invoices.
type PaymentService struct {
	db           *gorm.DB
	payos        *PayOSService
	appointments *AppointmentService
	invoices     *InvoiceService
}

func NewPaymentService(db *gorm.DB, payos *PayOSService) *PaymentService {
	return &PaymentService{
		db:           db,
		payos:        payos,
		appointments: NewAppointmentService(db),
		invoices:     NewInvoiceService(db),
	}
}

// DepositCheckoutRequest describes the booking a patient wants to pay a
// deposit for. No appointment exists until that payment verifies.
type DepositCheckoutRequest struct {
	UserID          *uint
	DoctorID        uint
	ServiceID       *uint
	AppointmentDate string
	TimeSlot        string
	PatientName     string
	PatientEmail    string
	PatientPhone    string
	Notes           string
}

// CheckoutResponse is what the client needs to reach the hosted payment
// page and poll for the result.
type CheckoutResponse struct {
	PaymentID     uint    `json:"paymentId"`
	TransactionNo string  `json:"transactionNo"`
	CheckoutURL   string  `json:"checkoutUrl"`
	Amount        float64 `json:"amount"`
}

// CreateDepositCheckout opens a PENDING payment carrying the booking
// payload and registers it with the gateway. A payment whose gateway
// registration fails is deleted so no orphaned PENDING rows survive.
func (s *PaymentService) CreateDepositCheckout(req DepositCheckoutRequest) (*CheckoutResponse, error) {
	if req.DoctorID == 0 || req.AppointmentDate == "" || req.TimeSlot == "" {
		return nil, utils.ValidationError("doctorId, appointmentDate and timeSlot are required")
	}
	if _, err := time.ParseInLocation("2006-01-02 15:04", req.AppointmentDate+" "+req.TimeSlot, time.Local); err != nil {
		return nil, utils.ValidationError("appointmentDate must be YYYY-MM-DD and timeSlot HH:MM")
	}

	var doctor models.Doctor
	if err := s.db.First(&doctor, req.DoctorID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("doctor %d not found", req.DoctorID))
		}
		return nil, err
	}

	orderCode := GenerateOrderCode()
	payment := models.Payment{
		TransactionNo:   fmt.Sprint(orderCode),
		Amount:          DefaultDepositAmount,
		Status:          models.PaymentPending,
		PaymentType:     models.PaymentTypeDeposit,
		OrderInfo:       fmt.Sprintf("Deposit for appointment with %s on %s %s", doctor.Name, req.AppointmentDate, req.TimeSlot),
		UserID:          req.UserID,
		DoctorID:        &req.DoctorID,
		ServiceID:       req.ServiceID,
		AppointmentDate: req.AppointmentDate,
		TimeSlot:        req.TimeSlot,
		PatientName:     req.PatientName,
		PatientEmail:    req.PatientEmail,
		PatientPhone:    req.PatientPhone,
		Notes:           req.Notes,
	}
	if err := s.db.Create(&payment).Error; err != nil {
		return nil, err
	}

	link, err := s.payos.CreatePaymentLink(orderCode, int64(payment.Amount), payment.OrderInfo,
		PaymentBuyer{Name: req.PatientName, Email: req.PatientEmail, Phone: req.PatientPhone},
		map[string]string{
			"paymentType":     models.PaymentTypeDeposit,
			"appointmentDate": req.AppointmentDate,
			"timeSlot":        req.TimeSlot,
		})
	if err != nil {
		// The row is useless without a gateway record.
		if delErr := s.db.Delete(&payment).Error; delErr != nil {
			utils.ErrorLogger.Printf("Failed to delete orphaned payment %d: %v", payment.ID, delErr)
		}
		return nil, err
	}

	payment.PayosTransactionID = link.PaymentLinkID
	payment.ReturnURL = link.CheckoutURL
	if err := s.db.Save(&payment).Error; err != nil {
		return nil, err
	}
	return &CheckoutResponse{
		PaymentID:     payment.ID,
		TransactionNo: payment.TransactionNo,
		CheckoutURL:   link.CheckoutURL,
		Amount:        payment.Amount,
	}, nil
}

// CreateFinalCheckout opens a gateway payment for the remaining balance
// of an appointment waiting on its final invoice.
func (s *PaymentService) CreateFinalCheckout(appointmentID uint) (*CheckoutResponse, error) {
	invoice, err := s.invoices.GetByAppointment(appointmentID)
	if err != nil {
		return nil, err
	}
	if invoice.IsFullyPaid || invoice.RemainingAmount <= 0 {
		return nil, utils.ConflictError(fmt.Sprintf(
			"invoice for appointment %d has no remaining balance", appointmentID))
	}
	appointment, err := s.appointments.GetByID(appointmentID)
	if err != nil {
		return nil, err
	}

	orderCode := GenerateOrderCode()
	payment := models.Payment{
		TransactionNo: fmt.Sprint(orderCode),
		Amount:        invoice.RemainingAmount,
		Status:        models.PaymentPending,
		PaymentType:   models.PaymentTypeFinal,
		OrderInfo:     fmt.Sprintf("Final payment for appointment %d", appointmentID),
		InvoiceID:     &invoice.ID,
	}
	if err := s.db.Create(&payment).Error; err != nil {
		return nil, err
	}

	link, err := s.payos.CreatePaymentLink(orderCode, int64(payment.Amount), payment.OrderInfo,
		PaymentBuyer{Name: appointment.PatientName, Email: appointment.PatientEmail, Phone: appointment.PatientPhone},
		map[string]string{
			"paymentType":   models.PaymentTypeFinal,
			"appointmentId": fmt.Sprint(appointmentID),
		})
	if err != nil {
		if delErr := s.db.Delete(&payment).Error; delErr != nil {
			utils.ErrorLogger.Printf("Failed to delete orphaned payment %d: %v", payment.ID, delErr)
		}
		return nil, err
	}

	payment.PayosTransactionID = link.PaymentLinkID
	payment.ReturnURL = link.CheckoutURL
	if err := s.db.Save(&payment).Error; err != nil {
		return nil, err
	}
	return &CheckoutResponse{
		PaymentID:     payment.ID,
		TransactionNo: payment.TransactionNo,
		CheckoutURL:   link.CheckoutURL,
		Amount:        payment.Amount,
	}, nil
}

// VerifyResult is returned to the client after a return/callback was
// checked against the gateway.
type VerifyResult struct {
	Payment     *models.Payment     `json:"payment"`
	Appointment *models.Appointment `json:"appointment,omitempty"`
}

// VerifyPaymentReturn settles a payment after the patient came back from
// the hosted page or the gateway called back. The status carried by the
// redirect or callback is only a hint; the gateway record decides.
func (s *PaymentService) VerifyPaymentReturn(transactionNo string) (*VerifyResult, error) {
	var payment models.Payment
	if err := s.db.Where("transaction_no = ?", transactionNo).First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError("payment " + transactionNo + " not found")
		}
		return nil, err
	}

	// Already settled: just report the outcome again.
	if payment.Status == models.PaymentCompleted {
		return s.resultFor(&payment)
	}

	var orderCode int64
	if _, err := fmt.Sscan(transactionNo, &orderCode); err != nil {
		return nil, utils.ValidationError("invalid transaction number " + transactionNo)
	}

	gatewayStatus, err := s.payos.GetPaymentStatus(orderCode)
	if err != nil {
		return nil, err
	}

	switch gatewayStatus {
	case PayosStatusPaid:
		return s.settlePaid(&payment)
	case PayosStatusCancelled, PayosStatusExpired:
		payment.Status = models.PaymentCancelled
	case PayosStatusFailed:
		payment.Status = models.PaymentFailed
	default:
		// PENDING or PROCESSING: leave the local row alone.
		return &VerifyResult{Payment: &payment}, nil
	}

	if err := s.db.Save(&payment).Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Payment %s settled as %s (gateway %s)",
		payment.TransactionNo, payment.Status, gatewayStatus)
	return &VerifyResult{Payment: &payment}, nil
}

// settlePaid marks the payment completed and runs the follow-up the
// payment type requires: booking the appointment for a deposit, settling
// the invoice for a final payment. The payment write and its follow-up
// share one transaction, so a failed follow-up leaves the payment
// PENDING and a later verification retries the whole settlement.
func (s *PaymentService) settlePaid(payment *models.Payment) (*VerifyResult, error) {
	switch payment.PaymentType {
	case models.PaymentTypeDeposit:
		return s.settleDeposit(payment)
	case models.PaymentTypeFinal:
		return s.settleFinal(payment)
	}

	now := time.Now()
	payment.Status = models.PaymentCompleted
	payment.PaymentDate = &now
	if err := s.db.Save(payment).Error; err != nil {
		return nil, err
	}
	return &VerifyResult{Payment: payment}, nil
}

func (s *PaymentService) settleDeposit(payment *models.Payment) (*VerifyResult, error) {
	if payment.DoctorID == nil {
		return nil, utils.InvariantError(fmt.Sprintf(
			"deposit payment %s does not carry booking details", payment.TransactionNo))
	}

	mu := lockDoctor(*payment.DoctorID)
	mu.Lock()
	defer mu.Unlock()

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	now := time.Now()
	payment.Status = models.PaymentCompleted
	payment.PaymentDate = &now
	if err := tx.Save(payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	appointment, err := s.appointments.createFromPaymentTx(tx, payment)
	if err != nil {
		tx.Rollback()
		utils.ErrorLogger.Printf("Payment %s left pending, booking failed: %v", payment.TransactionNo, err)
		return nil, err
	}
	invoice, err := s.invoices.createForAppointmentTx(tx, appointment.ID, payment.Amount, payment.TransactionNo)
	if err != nil {
		tx.Rollback()
		utils.ErrorLogger.Printf("Payment %s left pending, invoice creation failed: %v", payment.TransactionNo, err)
		return nil, err
	}
	payment.InvoiceID = &invoice.ID
	if err := tx.Save(payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Payment %s completed, appointment %d booked", payment.TransactionNo, appointment.ID)
	return &VerifyResult{Payment: payment, Appointment: appointment}, nil
}

func (s *PaymentService) settleFinal(payment *models.Payment) (*VerifyResult, error) {
	if payment.InvoiceID == nil {
		return nil, utils.InvariantError(fmt.Sprintf(
			"final payment %s has no invoice reference", payment.TransactionNo))
	}
	var invoice models.AppointmentInvoice
	if err := s.db.First(&invoice, *payment.InvoiceID).Error; err != nil {
		return nil, err
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	now := time.Now()
	payment.Status = models.PaymentCompleted
	payment.PaymentDate = &now
	if err := tx.Save(payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := s.invoices.markFullyPaidTx(tx, invoice.AppointmentID, payment.TransactionNo); err != nil {
		tx.Rollback()
		utils.ErrorLogger.Printf("Payment %s left pending, settlement failed: %v", payment.TransactionNo, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return s.resultFor(payment)
}

// resultFor rebuilds the verify result for a settled payment.
func (s *PaymentService) resultFor(payment *models.Payment) (*VerifyResult, error) {
	res := &VerifyResult{Payment: payment}
	if payment.PaymentType == models.PaymentTypeDeposit {
		var appointment models.Appointment
		err := s.db.Preload("Doctor").Where("payment_id = ?", payment.ID).First(&appointment).Error
		if err == nil {
			res.Appointment = &appointment
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}
	return res, nil
}

// RecordCashPayment settles the remaining invoice balance paid at the
// front desk, without the gateway.
func (s *PaymentService) RecordCashPayment(appointmentID uint, receivedBy string) (*models.Payment, error) {
	invoice, err := s.invoices.GetByAppointment(appointmentID)
	if err != nil {
		return nil, err
	}
	if invoice.IsFullyPaid || invoice.RemainingAmount <= 0 {
		return nil, utils.ConflictError(fmt.Sprintf(
			"invoice for appointment %d has no remaining balance", appointmentID))
	}

	now := time.Now()
	payment := models.Payment{
		TransactionNo: fmt.Sprintf("CASH-%d", GenerateOrderCode()),
		Amount:        invoice.RemainingAmount,
		Status:        models.PaymentCompleted,
		PaymentType:   models.PaymentTypeCash,
		OrderInfo:     fmt.Sprintf("Cash payment for appointment %d received by %s", appointmentID, receivedBy),
		InvoiceID:     &invoice.ID,
		PaymentDate:   &now,
	}
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	if err := tx.Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := s.invoices.markFullyPaidTx(tx, appointmentID, payment.TransactionNo); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByTransactionNo loads a payment by its gateway order code.
func (s *PaymentService) GetByTransactionNo(transactionNo string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Where("transaction_no = ?", transactionNo).First(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError("payment " + transactionNo + " not found")
		}
		return nil, err
	}
	return &payment, nil
}

// ExpireStalePayments settles PENDING payments older than the cutoff by
// asking the gateway what actually happened to them.
func (s *PaymentService) ExpireStalePayments(olderThan time.Duration) {
	cutoff := time.Now().Add(-olderThan)
	var stale []models.Payment
	err := s.db.
		Where("status = ? AND created_at < ?", models.PaymentPending, cutoff).
		Find(&stale).Error
	if err != nil {
		utils.ErrorLogger.Printf("Error loading stale payments: %v", err)
		return
	}

	for i := range stale {
		if _, err := s.VerifyPaymentReturn(stale[i].TransactionNo); err != nil {
			utils.ErrorLogger.Printf("Error settling stale payment %s: %v", stale[i].TransactionNo, err)
		}
	}
}

// StartTimeoutChecker runs ExpireStalePayments on an interval.
func (s *PaymentService) StartTimeoutChecker() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			s.ExpireStalePayments(30 * time.Minute)
		}
	}()
	utils.InfoLogger.Println("Payment timeout checker started")
}
