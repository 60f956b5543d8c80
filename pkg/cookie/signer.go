package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

const signedPrefix = "s:"

var (
	// ErrNotSigned is returned when a cookie value lacks the signed prefix.
	ErrNotSigned = errors.New("cookie value is not signed")
	// ErrBadSignature is returned when the signature does not match the value.
	ErrBadSignature = errors.New("cookie signature mismatch")
)

// Signer produces and checks HMAC-SHA256 signed cookie values in the
// "s:<value>.<signature>" layout, signature being unpadded standard base64.
type Signer struct {
	secret []byte
}

// NewSigner constructs a signer with the provided secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the signed representation of value.
func (s *Signer) Sign(value string) string {
	return signedPrefix + value + "." + s.signature(value)
}

// Unsign validates a signed value and returns the original payload.
func (s *Signer) Unsign(signed string) (string, error) {
	if !strings.HasPrefix(signed, signedPrefix) {
		return "", ErrNotSigned
	}
	body := strings.TrimPrefix(signed, signedPrefix)
	idx := strings.LastIndexByte(body, '.')
	if idx < 0 {
		return "", ErrBadSignature
	}
	value, signature := body[:idx], body[idx+1:]
	if !hmac.Equal([]byte(s.signature(value)), []byte(signature)) {
		return "", ErrBadSignature
	}
	return value, nil
}

func (s *Signer) signature(value string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(value))
	return base64.RawStdEncoding.EncodeToString(mac.Sum(nil))
}
