package bitflyer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Signer produces the authentication headers of the private REST API.
type Signer struct {
	apiKey    string
	apiSecret string
}

// NewSigner creates a new Signer instance
func NewSigner(apiKey, apiSecret string) *Signer {
	return &Signer{apiKey: apiKey, apiSecret: apiSecret}
}

// GenerateHeaders signs one request at the current time.
// path includes the query string for GET requests; body is the JSON body or "".
func (s *Signer) GenerateHeaders(method, path, body string) map[string]string {
	return s.headersAt(strconv.FormatInt(time.Now().UnixMilli(), 10), method, path, body)
}

func (s *Signer) headersAt(timestamp, method, path, body string) map[string]string {
	return map[string]string{
		"ACCESS-KEY":       s.apiKey,
		"ACCESS-TIMESTAMP": timestamp,
		"ACCESS-SIGN":      computeHmacSha256(timestamp+method+path+body, s.apiSecret),
		"Content-Type":     "application/json",
	}
}

func computeHmacSha256(message string, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}
