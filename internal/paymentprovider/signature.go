package paymentprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature проверяет подпись результата оплаты: HMAC-SHA256 от строки
// "order_id|payment_id" на секретном ключе, в hex-кодировке. Это единственное
// подтверждение успешной оплаты, поэтому сравнение выполняется за постоянное
// время и не зависит от данных, контролируемых клиентом.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}

// VerifySignature проверяет подпись на заданном секрете.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
