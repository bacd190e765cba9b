package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignatureWithSecret(t *testing.T) {
	secret := "test_secret_key"
	orderID := "order_MkDemo123"
	paymentID := "pay_MkDemo456"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, verifySignatureWithSecret(orderID, paymentID, signature, secret))
	assert.False(t, verifySignatureWithSecret(orderID, paymentID, signature, "wrong_secret"))
	assert.False(t, verifySignatureWithSecret(orderID, "pay_other", signature, secret))
	assert.False(t, verifySignatureWithSecret(orderID, paymentID, "tampered", secret))
}
