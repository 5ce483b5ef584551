package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/eyespire/clinic-backend/utils"
)

// Gateway transaction statuses as returned by PayOS.
const (
	PayosStatusPaid       = "PAID"
	PayosStatusPending    = "PENDING"
	PayosStatusProcessing = "PROCESSING"
	PayosStatusCancelled  = "CANCELLED"
	PayosStatusFailed     = "FAILED"
	PayosStatusExpired    = "EXPIRED"
)

// PayOSService talks to the PayOS REST API. It owns nothing but the wire
// protocol; local payment rows are handled by PaymentService.
type PayOSService struct {
	ClientID    string
	APIKey      string
	ChecksumKey string
	APIURL      string
	ReturnURL   string
	CancelURL   string

	httpClient *http.Client
}

// NewPayOSService builds a service from PAYOS_* environment variables.
func NewPayOSService() *PayOSService {
	apiURL := os.Getenv("PAYOS_API_URL")
	if apiURL == "" {
		apiURL = "https://api-merchant.payos.vn/v2"
	}
	return &PayOSService{
		ClientID:    os.Getenv("PAYOS_CLIENT_ID"),
		APIKey:      os.Getenv("PAYOS_API_KEY"),
		ChecksumKey: os.Getenv("PAYOS_CHECKSUM_KEY"),
		APIURL:      apiURL,
		ReturnURL:   os.Getenv("PAYOS_RETURN_URL"),
		CancelURL:   os.Getenv("PAYOS_CANCEL_URL"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// PaymentLinkRequest is the body of POST /payment-requests. The
// signature covers only the five canonical fields; buyer data, items and
// metadata ride along unsigned.
type PaymentLinkRequest struct {
	OrderCode   int64             `json:"orderCode"`
	Amount      int64             `json:"amount"`
	Description string            `json:"description"`
	BuyerName   string            `json:"buyerName,omitempty"`
	BuyerEmail  string            `json:"buyerEmail,omitempty"`
	BuyerPhone  string            `json:"buyerPhone,omitempty"`
	Items       []PaymentItem     `json:"items"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Currency    string            `json:"currency"`
	ReturnURL   string            `json:"returnUrl"`
	CancelURL   string            `json:"cancelUrl"`
	Signature   string            `json:"signature"`
}

// PaymentItem is one line on the hosted checkout page.
type PaymentItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// PaymentBuyer identifies the paying customer to the gateway.
type PaymentBuyer struct {
	Name  string
	Email string
	Phone string
}

// PaymentLinkData is the payload of a successful create response.
type PaymentLinkData struct {
	CheckoutURL   string `json:"checkoutUrl"`
	PaymentLinkID string `json:"paymentLinkId"`
	OrderCode     int64  `json:"orderCode"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	QRCode        string `json:"qrCode"`
}

type payosEnvelope struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// GenerateOrderCode builds a numeric order code from the trailing nine
// digits of the current unix millisecond timestamp plus a random suffix.
// The result stays well inside the 2^53-1 range PayOS requires.
func GenerateOrderCode() int64 {
	millis := time.Now().UnixMilli() % 1_000_000_000
	return millis*1000 + rand.Int63n(1000)
}

// Sign computes the lowercase hex HMAC-SHA256 over the canonical
// alphabetically ordered field string PayOS expects.
func (s *PayOSService) Sign(amount int64, cancelURL, description string, orderCode int64, returnURL string) string {
	payload := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		amount, cancelURL, description, orderCode, returnURL)
	mac := hmac.New(sha256.New, []byte(s.ChecksumKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreatePaymentLink registers a payment request with PayOS and returns
// the hosted checkout data.
func (s *PayOSService) CreatePaymentLink(orderCode, amount int64, description string, buyer PaymentBuyer, metadata map[string]string) (*PaymentLinkData, error) {
	reqBody := PaymentLinkRequest{
		OrderCode:   orderCode,
		Amount:      amount,
		Description: description,
		BuyerName:   buyer.Name,
		BuyerEmail:  buyer.Email,
		BuyerPhone:  buyer.Phone,
		Items:       []PaymentItem{{Name: description, Quantity: 1, Price: amount}},
		Metadata:    metadata,
		Currency:    "VND",
		ReturnURL:   s.ReturnURL,
		CancelURL:   s.CancelURL,
		Signature:   s.Sign(amount, s.CancelURL, description, orderCode, s.ReturnURL),
	}

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, utils.GatewayError("encode payment request", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.APIURL+"/payment-requests", bytes.NewReader(raw))
	if err != nil {
		return nil, utils.GatewayError("build payment request", err)
	}
	s.setHeaders(req)

	resp, err := s.client().Do(req)
	if err != nil {
		return nil, utils.GatewayError("call payment gateway", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.GatewayError("read gateway response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, utils.GatewayError(
			fmt.Sprintf("gateway returned HTTP %d: %s", resp.StatusCode, string(body)), nil)
	}

	var env payosEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, utils.GatewayError("decode gateway response", err)
	}
	if env.Code != "00" {
		return nil, utils.GatewayError(
			fmt.Sprintf("gateway rejected payment request: %s %s", env.Code, env.Desc), nil)
	}

	var data PaymentLinkData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, utils.GatewayError("decode payment link data", err)
	}
	utils.InfoLogger.Printf("Created PayOS payment link for order %d, amount %d", orderCode, amount)
	return &data, nil
}

// GetPaymentStatus queries PayOS for the authoritative status of an
// order code. Callback hints are never trusted without this call.
func (s *PayOSService) GetPaymentStatus(orderCode int64) (string, error) {
	url := fmt.Sprintf("%s/payment-requests/%d", s.APIURL, orderCode)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", utils.GatewayError("build status request", err)
	}
	s.setHeaders(req)

	resp, err := s.client().Do(req)
	if err != nil {
		return "", utils.GatewayError("call payment gateway", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", utils.GatewayError("read gateway response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", utils.GatewayError(
			fmt.Sprintf("gateway returned HTTP %d: %s", resp.StatusCode, string(body)), nil)
	}

	var env payosEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", utils.GatewayError("decode gateway response", err)
	}

	var data struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", utils.GatewayError("decode status data", err)
	}
	if data.Status == "" {
		return "", utils.GatewayError("gateway returned empty status for order "+fmt.Sprint(orderCode), nil)
	}
	return data.Status, nil
}

// CancelPaymentLink asks PayOS to cancel a pending payment request.
func (s *PayOSService) CancelPaymentLink(orderCode int64, reason string) error {
	payload, _ := json.Marshal(map[string]string{"cancellationReason": reason})
	url := fmt.Sprintf("%s/payment-requests/%d/cancel", s.APIURL, orderCode)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return utils.GatewayError("build cancel request", err)
	}
	s.setHeaders(req)

	resp, err := s.client().Do(req)
	if err != nil {
		return utils.GatewayError("call payment gateway", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return utils.GatewayError(
			fmt.Sprintf("gateway returned HTTP %d: %s", resp.StatusCode, string(body)), nil)
	}
	return nil
}

func (s *PayOSService) client() *http.Client {
	if s.httpClient == nil {
		return http.DefaultClient
	}
	return s.httpClient
}

func (s *PayOSService) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", s.ClientID)
	req.Header.Set("x-api-key", s.APIKey)
}
