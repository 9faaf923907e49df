package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"formwall.dev/captcha"
	"formwall.dev/captcha/config"
)

// -----------------------------------------------------------------------------
// Request / Response types
// -----------------------------------------------------------------------------

type ChallengeOutput struct {
	Body captcha.Challenge
}

// -----------------------------------------------------------------------------
// Route registration
// -----------------------------------------------------------------------------

func RegisterChallengeRoutes(api huma.API, cfg *config.Config, log *zap.Logger) {
	huma.Register(api, huma.Operation{
		OperationID: "captcha-challenge",
		Method:      http.MethodGet,
		Path:        "/api/captcha/challenge",
		Summary:     "Get a fresh proof-of-work challenge",
		Description: "Returns a signed puzzle: find the number in [0, maxnumber] whose digest " +
			"together with the salt equals the challenge, then submit the solved payload " +
			"base64-encoded in the 'captcha' form field. The server keeps no record of " +
			"issued challenges; the signature is what makes the puzzle verifiable later.",
		Tags: []string{"Captcha"},
	}, func(ctx context.Context, input *struct{}) (*ChallengeOutput, error) {
		opts := captcha.ChallengeOptions{
			Algorithm:  cfg.Algorithm,
			MaxNumber:  cfg.MaxNumber,
			SaltLength: cfg.SaltLength,
		}
		if cfg.Expires > 0 {
			opts.Expires = time.Now().Add(cfg.Expires)
		}

		challenge, err := captcha.CreateChallenge(opts, cfg.HMACKey)
		if err != nil {
			log.Error("create challenge", zap.Error(err))
			return nil, huma.Error500InternalServerError("failed to create challenge")
		}

		challengesIssued.Inc()
		return &ChallengeOutput{Body: *challenge}, nil
	})
}
