package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"formwall.dev/captcha"
	"formwall.dev/captcha/config"
)

// captchaField is the form field carrying the encoded payload. The rest of
// the form is application data and passes through untouched.
const captchaField = "captcha"

// -----------------------------------------------------------------------------
// Request / Response types
// -----------------------------------------------------------------------------

type SubmitInput struct {
	RawBody []byte `contentType:"application/x-www-form-urlencoded"`
}

type SubmitOutput struct {
	Body struct {
		Success bool              `json:"success" doc:"Whether the captcha verified"`
		Token   string            `json:"token,omitempty" doc:"Short-lived verification token, when token minting is enabled"`
		Data    map[string]string `json:"data" doc:"Submitted form fields minus the captcha payload"`
	}
}

// parseForm decodes a URL-encoded body and pulls out the captcha payload.
func parseForm(rawBody []byte) (url.Values, string, error) {
	form, err := url.ParseQuery(string(rawBody))
	if err != nil {
		return nil, "", err
	}
	return form, form.Get(captchaField), nil
}

func formData(form url.Values) map[string]string {
	data := make(map[string]string, len(form))
	for k := range form {
		if k == captchaField {
			continue
		}
		data[k] = form.Get(k)
	}
	return data
}

// -----------------------------------------------------------------------------
// Route registration
// -----------------------------------------------------------------------------

func RegisterSubmitRoutes(api huma.API, cfg *config.Config, log *zap.Logger) {
	huma.Register(api, huma.Operation{
		OperationID: "captcha-submit",
		Method:      http.MethodPost,
		Path:        "/api/captcha/submit",
		Summary:     "Submit a form with a solved challenge",
		Description: "Accepts a URL-encoded form whose 'captcha' field holds the base64 payload " +
			"of a solved challenge. The solution digest and the challenge signature must both " +
			"check out; a failed check means requesting a fresh challenge, there is no retry " +
			"of the same one.",
		Tags: []string{"Captcha"},
	}, func(ctx context.Context, input *SubmitInput) (*SubmitOutput, error) {
		form, payload, err := parseForm(input.RawBody)
		if err != nil {
			verifications.WithLabelValues("submit", "malformed").Inc()
			return nil, huma.Error400BadRequest("invalid form body")
		}
		if payload == "" {
			verifications.WithLabelValues("submit", "malformed").Inc()
			return nil, huma.Error400BadRequest("missing captcha field")
		}

		if err := captcha.CheckSolution(payload, cfg.HMACKey, true); err != nil {
			verifications.WithLabelValues("submit", resultLabel(err)).Inc()
			log.Info("solution rejected", zap.String("reason", resultLabel(err)))
			if errors.Is(err, captcha.ErrMalformedPayload) {
				return nil, huma.Error400BadRequest("invalid captcha payload")
			}
			return nil, huma.Error403Forbidden("captcha verification failed: " + resultLabel(err))
		}

		verifications.WithLabelValues("submit", "ok").Inc()

		out := &SubmitOutput{}
		out.Body.Success = true
		out.Body.Data = formData(form)

		if cfg.TokenTTL > 0 {
			token, err := captcha.IssueVerificationToken(payload, cfg.HMACKey, cfg.TokenTTL)
			if err != nil {
				log.Error("issue verification token", zap.Error(err))
				return nil, huma.Error500InternalServerError("failed to issue verification token")
			}
			out.Body.Token = token
		}
		return out, nil
	})
}
