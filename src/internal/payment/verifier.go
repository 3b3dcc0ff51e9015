// Package payment implements the Payment Verifier: the collaborator the
// Reservation Engine consults during Confirm to decide whether a
// payment reference is good. Grounded on the HMAC signature pattern in
// AgileExecutives-ae-backend's booking_link_service.go
// (crypto/hmac + crypto/sha256 keyed MAC, constant-time compare) for
// signed-callback mode, generalized from a link-signing helper into a
// payment-callback verifier.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/seatvault/reservation-engine/src/internal/domain"
)

type Mode string

const (
	ModeSimulated      Mode = "simulated"
	ModeReference      Mode = "reference"
	ModeSignedCallback Mode = "signed-callback"
)

// acceptedPrefixes are the reference formats Reference/Simulated mode
// recognizes as well-formed before any gateway call.
var acceptedPrefixes = []string{"PAY-OK-", "PAY-FAIL-", "PAY-"}

// Gateway is the external payment gateway's verify endpoint, consulted
// in Reference mode. Production wiring points this at the real
// gateway's HTTP client; it is a narrow interface so tests can supply a
// fake without standing up a server.
type Gateway interface {
	// VerifyReference reports whether reference is captured and has
	// not already been consumed by a different booking.
	VerifyReference(reference string) (captured bool, err error)
}

// Verifier checks a proposed payment reference during Confirm.
type Verifier struct {
	mode         Mode
	gateway      Gateway
	sharedSecret []byte
}

func New(mode Mode, gateway Gateway, sharedSecret string) *Verifier {
	return &Verifier{mode: mode, gateway: gateway, sharedSecret: []byte(sharedSecret)}
}

// VerifyReference mode: validate reference format, then (in Reference
// mode) call out to the gateway; in Simulated mode, a "PAY-OK-" prefix
// always succeeds and anything else always fails, with no gateway call.
func (v *Verifier) VerifyReference(reference string) (string, error) {
	if !hasAcceptedPrefix(reference) {
		return "", domain.NewPaymentError("malformed payment reference", nil)
	}

	switch v.mode {
	case ModeSimulated:
		if strings.HasPrefix(reference, "PAY-OK-") {
			return reference, nil
		}
		return "", domain.NewPaymentError("payment not captured", nil)

	case ModeReference:
		captured, err := v.gateway.VerifyReference(reference)
		if err != nil {
			return "", domain.NewPaymentError("gateway verification failed", err)
		}
		if !captured {
			return "", domain.NewPaymentError("payment not captured", nil)
		}
		return reference, nil

	default:
		return "", domain.NewPaymentError(fmt.Sprintf("reference verification not supported in mode %q", v.mode), nil)
	}
}

// VerifySignedCallback mode: recompute the HMAC-SHA256 over
// "orderId|paymentId" with the shared secret and compare it to the
// supplied signature in constant time. On match, paymentId becomes the
// booking's payment reference.
func (v *Verifier) VerifySignedCallback(orderID, paymentID, signature string) (string, error) {
	if v.mode != ModeSignedCallback {
		return "", domain.NewPaymentError(fmt.Sprintf("signed-callback verification not supported in mode %q", v.mode), nil)
	}
	if orderID == "" || paymentID == "" || signature == "" {
		return "", domain.NewPaymentError("malformed payment callback", nil)
	}

	expected := v.sign(orderID, paymentID)

	got, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(got, expected) {
		return "", domain.NewPaymentError("invalid payment signature", nil)
	}

	return paymentID, nil
}

func (v *Verifier) sign(orderID, paymentID string) []byte {
	mac := hmac.New(sha256.New, v.sharedSecret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return mac.Sum(nil)
}

func hasAcceptedPrefix(reference string) bool {
	for _, prefix := range acceptedPrefixes {
		if strings.HasPrefix(reference, prefix) {
			return true
		}
	}
	return false
}
