package services

import (
	"testing"

	"github.com/eyespire/clinic-backend/utils"
	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderCodeRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := GenerateOrderCode()
		assert.Greater(t, code, int64(0))
		assert.Less(t, code, int64(1)<<53, "order code must stay inside the gateway's integer range")
	}
}

func TestSignCanonicalOrder(t *testing.T) {
	svc := &PayOSService{ChecksumKey: "checksum-test"}

	sig := svc.Sign(10000, "https://c.example.com", "Deposit", 123456789, "https://r.example.com")
	// Same inputs, same signature.
	assert.Equal(t, sig, svc.Sign(10000, "https://c.example.com", "Deposit", 123456789, "https://r.example.com"))
	// Any field change breaks it.
	assert.NotEqual(t, sig, svc.Sign(10001, "https://c.example.com", "Deposit", 123456789, "https://r.example.com"))
	// Lowercase hex, 32 bytes.
	assert.Regexp(t, "^[0-9a-f]{64}$", sig)
}

func TestCreatePaymentLink(t *testing.T) {
	setupTestDB(t)
	fg := newFakeGateway(t)
	svc := fg.service()

	buyer := PaymentBuyer{Name: "Minh Tran", Email: "minh@example.com", Phone: "0900000001"}
	link, err := svc.CreatePaymentLink(123456789, 10000, "Deposit", buyer,
		map[string]string{"paymentType": "DEPOSIT"})
	assert.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/web/123456789", link.CheckoutURL)
	assert.Equal(t, "pl_123456789", link.PaymentLinkID)

	assert.Equal(t, "client-test", fg.LastHeaders.Get("x-client-id"))
	assert.Equal(t, "key-test", fg.LastHeaders.Get("x-api-key"))
	assert.Equal(t, "application/json", fg.LastHeaders.Get("Content-Type"))
}

func TestCreatePaymentLinkWireFields(t *testing.T) {
	setupTestDB(t)
	fg := newFakeGateway(t)
	svc := fg.service()

	buyer := PaymentBuyer{Name: "Minh Tran", Email: "minh@example.com", Phone: "0900000001"}
	_, err := svc.CreatePaymentLink(123456789, 10000, "Deposit", buyer,
		map[string]string{"paymentType": "DEPOSIT"})
	assert.NoError(t, err)

	sent := fg.LastCreate
	assert.Equal(t, "Minh Tran", sent.BuyerName)
	assert.Equal(t, "minh@example.com", sent.BuyerEmail)
	assert.Equal(t, "0900000001", sent.BuyerPhone)
	assert.Equal(t, "VND", sent.Currency)
	assert.Equal(t, "DEPOSIT", sent.Metadata["paymentType"])
	assert.Len(t, sent.Items, 1)
	assert.Equal(t, "Deposit", sent.Items[0].Name)
	assert.Equal(t, 1, sent.Items[0].Quantity)
	assert.Equal(t, int64(10000), sent.Items[0].Price)
	// The signature covers the canonical five fields only.
	assert.Equal(t, svc.Sign(10000, svc.CancelURL, "Deposit", 123456789, svc.ReturnURL), sent.Signature)
}

func TestCreatePaymentLinkGatewayFailure(t *testing.T) {
	setupTestDB(t)
	fg := newFakeGateway(t)
	fg.FailCreate = true
	svc := fg.service()

	_, err := svc.CreatePaymentLink(123456789, 10000, "Deposit", PaymentBuyer{}, nil)
	assert.Error(t, err)
	assert.Equal(t, utils.KindGateway, utils.KindOf(err))
}

func TestGetPaymentStatus(t *testing.T) {
	setupTestDB(t)
	fg := newFakeGateway(t)
	svc := fg.service()

	status, err := svc.GetPaymentStatus(123456789)
	assert.NoError(t, err)
	assert.Equal(t, PayosStatusPending, status)

	fg.SetStatus(PayosStatusPaid)
	status, err = svc.GetPaymentStatus(123456789)
	assert.NoError(t, err)
	assert.Equal(t, PayosStatusPaid, status)
}
