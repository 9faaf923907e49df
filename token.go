package captcha

// Verification tokens let downstream form handlers accept a solved captcha
// without re-running the check. The token binds the exact payload that was
// verified via a fingerprint, so it cannot be reused for a different
// submission blob.

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerificationClaims are carried by tokens minted after a successful
// solution check.
type VerificationClaims struct {
	jwt.RegisteredClaims
	PayloadFingerprint string `json:"payload_fp"`
}

// IssueVerificationToken mints a short-lived HS256 token for a payload that
// already passed CheckSolution. signingKey is the server's HMAC key.
func IssueVerificationToken(encodedPayload string, signingKey []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	fp := sha256.Sum256([]byte(encodedPayload))
	claims := VerificationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "captcha",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		PayloadFingerprint: hex.EncodeToString(fp[:]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}

// ValidateVerificationToken parses and validates a token minted by
// IssueVerificationToken.
func ValidateVerificationToken(tokenString string, signingKey []byte) (*VerificationClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &VerificationClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*VerificationClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
