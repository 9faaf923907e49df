package captcha

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Payload is a client's claimed solution, transported as base64-encoded JSON
// in a form field so it survives transmission unmodified.
type Payload struct {
	Algorithm string `json:"algorithm"`
	Challenge string `json:"challenge"`
	Number    int64  `json:"number"`
	Salt      string `json:"salt"`
	Signature string `json:"signature"`
}

// DecodePayload decodes the transport encoding. Anything undecodable is
// reported as ErrMalformedPayload, never as a panic.
func DecodePayload(encoded string) (*Payload, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Challenge == "" || p.Salt == "" || p.Signature == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrMalformedPayload)
	}
	return &p, nil
}

// CheckSolution validates a claimed solution against hmacKey and reports why
// it fails, or nil when it verifies. Both the puzzle digest and the HMAC
// signature must match: the digest proves the client did the work, the
// signature proves the challenge itself came from this server. A party
// without the key cannot fabricate a pair that passes, which is what makes
// the scheme safe without a challenge store.
func CheckSolution(encoded string, hmacKey []byte, checkExpires bool) error {
	p, err := DecodePayload(encoded)
	if err != nil {
		return err
	}

	alg := Algorithm(p.Algorithm)
	expected, err := alg.hashHex([]byte(p.Salt + strconv.FormatInt(p.Number, 10)))
	if err != nil {
		// An unknown algorithm in a submitted payload is bad input,
		// not server misconfiguration.
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	signature, err := alg.hmacHex(hmacKey, []byte(p.Challenge))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	// Run both comparisons before branching so a wrong solution and a
	// forged signature are indistinguishable by timing.
	hashOK := equalHex(expected, p.Challenge)
	signatureOK := equalHex(signature, p.Signature)
	if !hashOK {
		return ErrHashMismatch
	}
	if !signatureOK {
		return ErrSignatureMismatch
	}

	if checkExpires {
		if deadline, ok := saltExpires(p.Salt); ok && time.Now().After(deadline) {
			return ErrExpired
		}
	}
	return nil
}

// VerifySolution degrades CheckSolution to a boolean for callers that do not
// care about the reason.
func VerifySolution(encoded string, hmacKey []byte, checkExpires bool) bool {
	return CheckSolution(encoded, hmacKey, checkExpires) == nil
}

// saltExpires extracts the expiry deadline embedded in a salt query suffix,
// if one is present and well-formed.
func saltExpires(salt string) (time.Time, bool) {
	_, query, ok := strings.Cut(salt, "?")
	if !ok {
		return time.Time{}, false
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return time.Time{}, false
	}
	raw := values.Get("expires")
	if raw == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}
