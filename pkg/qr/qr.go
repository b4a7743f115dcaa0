// Package qr builds and verifies the signed payloads embedded in appointment
// check-in QR codes.
package qr

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
)

var (
	ErrMalformedPayload = errors.New("malformed qr payload")
	ErrBadSignature     = errors.New("qr signature mismatch")
)

// Payload is the verified content of a check-in QR code.
type Payload struct {
	AppointmentID string
	UserID        string
	UniqueCode    string
	IssuedAt      time.Time
}

// Signer issues and verifies HMAC-SHA256 signed QR payloads of the form
// appointmentID|userID|uniqueCode|timestamp|signature.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Encode returns the signed payload string for an appointment.
func (s *Signer) Encode(appointmentID, userID, uniqueCode string) string {
	data := fmt.Sprintf("%s|%s|%s|%d", appointmentID, userID, uniqueCode, time.Now().Unix())
	return data + "|" + s.sign(data)
}

// Decode verifies the signature and parses the payload fields.
func (s *Signer) Decode(payload string) (Payload, error) {
	idx := strings.LastIndex(payload, "|")
	if idx < 0 {
		return Payload{}, ErrMalformedPayload
	}
	data, sig := payload[:idx], payload[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(s.sign(data))) {
		return Payload{}, ErrBadSignature
	}
	parts := strings.Split(data, "|")
	if len(parts) != 4 {
		return Payload{}, ErrMalformedPayload
	}
	ts, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Payload{}, ErrMalformedPayload
	}
	return Payload{
		AppointmentID: parts[0],
		UserID:        parts[1],
		UniqueCode:    parts[2],
		IssuedAt:      time.Unix(ts, 0).UTC(),
	}, nil
}

func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// PNG renders the payload as a 256px QR image.
func PNG(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, 256)
}
