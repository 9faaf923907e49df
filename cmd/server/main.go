package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"formwall.dev/captcha/api"
	"formwall.dev/captcha/config"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}
	if cfg.GeneratedKey {
		log.Warn("CAPTCHA_HMAC_KEY not set, generated an ephemeral key; outstanding challenges will not survive a restart",
			zap.String("key_fp", cfg.KeyFingerprint()))
	}

	mux := http.NewServeMux()
	humaCfg := huma.DefaultConfig("Captcha API", "1.0.0")
	humaCfg.Info.Description = "Stateless proof-of-work captcha: challenge issuance, solution verification, " +
		"and signed spam-filter verdicts."
	humaAPI := humago.New(mux, humaCfg)

	api.RegisterChallengeRoutes(humaAPI, cfg, log)
	api.RegisterSubmitRoutes(humaAPI, cfg, log)
	api.RegisterSpamFilterRoutes(humaAPI, cfg, log)
	api.RegisterHealthRoutes(humaAPI)

	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           withCORS(cfg.CORSOrigins, withRequestID(log, mux)),
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening",
			zap.String("addr", cfg.Addr),
			zap.String("algorithm", string(cfg.Algorithm)),
			zap.Int64("max_number", cfg.MaxNumber),
			zap.Duration("expires", cfg.Expires))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("serve", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	log.Info("stopped")
}

// withCORS sets response CORS headers and answers preflight requests. The
// transport owns CORS; the captcha core never sees it.
func withCORS(origins []string, next http.Handler) http.Handler {
	allowAll := len(origins) == 1 && origins[0] == "*"
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestID tags every request with a UUID for log correlation.
func withRequestID(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		log.Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}
