package tuya

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const SignMethod = "HMAC-SHA256"

type Signer struct {
	accessID string
	secret   []byte
}

func NewSigner(accessID, secret string) *Signer {
	return &Signer{accessID: accessID, secret: []byte(secret)}
}

func (s *Signer) AccessID() string {
	return s.accessID
}

func ContentHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// StringToSign keeps the empty third line where signed headers would go.
func StringToSign(method, path, body string) string {
	return method + "\n" + ContentHash(body) + "\n" + "\n" + path
}

// Sign returns the upper-case hex HMAC-SHA256 of
// accessID + token + timestamp + StringToSign. token is empty when requesting
// the token itself. path includes the query string.
func (s *Signer) Sign(method, path, body, timestamp, token string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(s.accessID + token + timestamp + StringToSign(method, path, body)))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}
