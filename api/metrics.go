package api

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"formwall.dev/captcha"
)

var (
	challengesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "captcha_challenges_issued_total",
		Help: "Challenges issued to clients.",
	})
	verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captcha_verifications_total",
		Help: "Verification outcomes by endpoint and result.",
	}, []string{"endpoint", "result"})
)

// resultLabel maps a verification error onto a bounded metric label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, captcha.ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, captcha.ErrHashMismatch):
		return "hash_mismatch"
	case errors.Is(err, captcha.ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, captcha.ErrExpired):
		return "expired"
	case errors.Is(err, captcha.ErrNotVerified):
		return "not_verified"
	case errors.Is(err, captcha.ErrFieldsMismatch):
		return "fields_mismatch"
	default:
		return "error"
	}
}
