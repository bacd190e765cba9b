package payments

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	config "github.com/seribro/backend/configs"
)

// ErrGatewayNotConfigured is returned when Razorpay credentials are missing.
// Callers are expected to degrade gracefully and keep the payment record in a
// recoverable pending state.
var ErrGatewayNotConfigured = errors.New("razorpay keys missing: set RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET")

type RazorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func gatewayKeys() (string, string, error) {
	keyID := config.Config("RAZORPAY_KEY_ID")
	keySecret := config.Config("RAZORPAY_KEY_SECRET")
	if keyID == "" || keySecret == "" {
		return "", "", ErrGatewayNotConfigured
	}
	return keyID, keySecret, nil
}

// CreateRazorpayOrder opens an order for the given rupee amount. Razorpay
// expects paise.
func CreateRazorpayOrder(amount float64, projectID, studentID string) (*RazorpayOrder, error) {
	keyID, keySecret, err := gatewayKeys()
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"amount":   int64(amount * 100),
		"currency": "INR",
		"receipt":  fmt.Sprintf("project_%s", projectID),
		"notes": map[string]string{
			"projectId": projectID,
			"studentId": studentID,
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequest("POST", "https://api.razorpay.com/v1/orders", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(keyID, keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to create razorpay order: %s", string(respBody))
	}

	var order RazorpayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifyPaymentSignature checks the gateway callback signature:
// HMAC-SHA256(orderId|paymentId) with the key secret.
func VerifyPaymentSignature(orderID, paymentID, signature string) (bool, error) {
	_, keySecret, err := gatewayKeys()
	if err != nil {
		return false, err
	}
	return verifySignatureWithSecret(orderID, paymentID, signature, keySecret), nil
}

func verifySignatureWithSecret(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
