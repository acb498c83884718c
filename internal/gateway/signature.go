package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// signHMAC computes the hex HMAC-SHA512 of the payload. Both providers
// sign webhook bodies this way, each with its own secret.
func signHMAC(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// checkHMAC compares a claimed signature in constant time.
func checkHMAC(secret string, payload []byte, claimed string) bool {
	if claimed == "" {
		return false
	}
	expected := signHMAC(secret, payload)
	return hmac.Equal([]byte(expected), []byte(claimed))
}
