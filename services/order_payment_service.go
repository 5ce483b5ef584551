package services

import (
	"fmt"
	"time"

	"github.com/eyespire/clinic-backend/models"
	"github.com/eyespire/clinic-backend/utils"
	"gorm.io/gorm"
)

// OrderPaymentService handles gateway payments for retail product orders.
// It mirrors the appointment deposit flow but settles an Order instead of
// creating a booking.
type OrderPaymentService struct {
	db    *gorm.DB
	payos *PayOSService
}

func NewOrderPaymentService(db *gorm.DB, payos *PayOSService) *OrderPaymentService {
	return &OrderPaymentService{db: db, payos: payos}
}

// CreateCheckout registers a payment link for a pending order.
func (s *OrderPaymentService) CreateCheckout(orderID uint) (*CheckoutResponse, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError(fmt.Sprintf("order %d not found", orderID))
		}
		return nil, err
	}
	if order.Status != models.OrderPending {
		return nil, utils.ConflictError(fmt.Sprintf(
			"order %d is %s, only pending orders can be paid", orderID, order.Status))
	}

	orderCode := GenerateOrderCode()
	payment := models.OrderPayment{
		OrderID:       order.ID,
		TransactionNo: fmt.Sprint(orderCode),
		Amount:        order.TotalAmount,
		Status:        models.PaymentPending,
	}
	if err := s.db.Create(&payment).Error; err != nil {
		return nil, err
	}

	var buyer PaymentBuyer
	if order.UserID != nil {
		var user models.User
		if err := s.db.First(&user, *order.UserID).Error; err == nil {
			buyer = PaymentBuyer{Name: user.Name, Email: user.Email, Phone: user.Phone}
		}
	}
	link, err := s.payos.CreatePaymentLink(orderCode, int64(payment.Amount),
		fmt.Sprintf("Order #%d", order.ID), buyer,
		map[string]string{"orderId": fmt.Sprint(order.ID)})
	if err != nil {
		if delErr := s.db.Delete(&payment).Error; delErr != nil {
			utils.ErrorLogger.Printf("Failed to delete orphaned order payment %d: %v", payment.ID, delErr)
		}
		return nil, err
	}

	payment.PayosTransactionID = link.PaymentLinkID
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

// VerifyReturn settles an order payment against the gateway record and
// marks the order paid on success.
func (s *OrderPaymentService) VerifyReturn(transactionNo string) (*models.OrderPayment, error) {
	var payment models.OrderPayment
	if err := s.db.Where("transaction_no = ?", transactionNo).First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.NotFoundError("order payment " + transactionNo + " not found")
		}
		return nil, err
	}
	if payment.Status == models.PaymentCompleted {
		return &payment, nil
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
		return s.settle(&payment)
	case PayosStatusCancelled, PayosStatusExpired:
		payment.Status = models.PaymentCancelled
	case PayosStatusFailed:
		payment.Status = models.PaymentFailed
	default:
		return &payment, nil
	}

	if err := s.db.Save(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *OrderPaymentService) settle(payment *models.OrderPayment) (*models.OrderPayment, error) {
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

	var order models.Order
	if err := tx.First(&order, payment.OrderID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if order.Status == models.OrderPending {
		order.Status = models.OrderPaid
		order.PaidAt = &now
		if err := tx.Save(&order).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Order %d paid via transaction %s", payment.OrderID, payment.TransactionNo)
	return payment, nil
}
