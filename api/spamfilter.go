package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"formwall.dev/captcha"
	"formwall.dev/captcha/config"
)

// -----------------------------------------------------------------------------
// Request / Response types
// -----------------------------------------------------------------------------

type SubmitFilteredOutput struct {
	Body struct {
		Success        bool              `json:"success" doc:"Whether the signed verdict verified and the submission was accepted"`
		Classification string            `json:"classification,omitempty" doc:"Classifier verdict (GOOD or BAD)"`
		Score          float64           `json:"score,omitempty" doc:"Classifier spam score"`
		Data           map[string]string `json:"data" doc:"Submitted form fields minus the captcha payload"`
	}
}

// -----------------------------------------------------------------------------
// Route registration
// -----------------------------------------------------------------------------

func RegisterSpamFilterRoutes(api huma.API, cfg *config.Config, log *zap.Logger) {
	huma.Register(api, huma.Operation{
		OperationID: "captcha-submit-filtered",
		Method:      http.MethodPost,
		Path:        "/api/captcha/submit-filtered",
		Summary:     "Submit a form with a signed spam-filter verdict",
		Description: "Accepts a URL-encoded form whose 'captcha' field holds the classifier's " +
			"signed verdict. The signature must validate against the exact signed bytes, the " +
			"classification must not be BAD, and when the verdict names fields, the submitted " +
			"values must still hash to the fieldsHash computed at classification time - a form " +
			"edited after classification is rejected.",
		Tags: []string{"Captcha"},
	}, func(ctx context.Context, input *SubmitInput) (*SubmitFilteredOutput, error) {
		form, payload, err := parseForm(input.RawBody)
		if err != nil {
			verifications.WithLabelValues("submit_filtered", "malformed").Inc()
			return nil, huma.Error400BadRequest("invalid form body")
		}
		if payload == "" {
			verifications.WithLabelValues("submit_filtered", "malformed").Inc()
			return nil, huma.Error400BadRequest("missing captcha field")
		}

		data, err := captcha.CheckServerSignature(payload, cfg.HMACKey)
		if err != nil {
			verifications.WithLabelValues("submit_filtered", resultLabel(err)).Inc()
			log.Info("server signature rejected", zap.String("reason", resultLabel(err)))
			if errors.Is(err, captcha.ErrMalformedPayload) {
				return nil, huma.Error400BadRequest("invalid captcha payload")
			}
			return nil, huma.Error403Forbidden("verification failed: " + resultLabel(err))
		}

		// A BAD verdict is rejected outright, before any field check.
		if data.Classification == captcha.ClassificationBad {
			verifications.WithLabelValues("submit_filtered", "spam").Inc()
			log.Info("submission classified as spam", zap.Float64("score", data.Score), zap.Strings("reasons", data.Reasons))
			return nil, huma.Error403Forbidden("classified as spam")
		}

		if data.FieldsHash != "" {
			if !captcha.VerifyFieldsHash(form, data.Fields, data.FieldsHash, data.Algorithm) {
				verifications.WithLabelValues("submit_filtered", resultLabel(captcha.ErrFieldsMismatch)).Inc()
				log.Info("fields hash mismatch", zap.Strings("fields", data.Fields))
				return nil, huma.Error403Forbidden("verification failed: " + resultLabel(captcha.ErrFieldsMismatch))
			}
		}

		verifications.WithLabelValues("submit_filtered", "ok").Inc()

		out := &SubmitFilteredOutput{}
		out.Body.Success = true
		out.Body.Classification = data.Classification
		out.Body.Score = data.Score
		out.Body.Data = formData(form)
		return out, nil
	})
}
