package paymentprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signPayload(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	const secret = "test_secret"

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{
			name:      "valid signature",
			orderID:   "order_123",
			paymentID: "pay_456",
			signature: signPayload(secret, "order_123", "pay_456"),
			want:      true,
		},
		{
			name:      "tampered payment id",
			orderID:   "order_123",
			paymentID: "pay_999",
			signature: signPayload(secret, "order_123", "pay_456"),
			want:      false,
		},
		{
			name:      "signature for different secret",
			orderID:   "order_123",
			paymentID: "pay_456",
			signature: signPayload("other_secret", "order_123", "pay_456"),
			want:      false,
		},
		{
			name:      "empty signature",
			orderID:   "order_123",
			paymentID: "pay_456",
			signature: "",
			want:      false,
		},
		{
			name:      "not hex at all",
			orderID:   "order_123",
			paymentID: "pay_456",
			signature: "zzzz",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifySignature(secret, tt.orderID, tt.paymentID, tt.signature)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientVerifySignature(t *testing.T) {
	client := NewClient("rzp_test_key", "test_secret")
	sig := signPayload("test_secret", "order_1", "pay_1")
	assert.True(t, client.VerifySignature("order_1", "pay_1", sig))
	assert.False(t, client.VerifySignature("order_1", "pay_2", sig))
}
