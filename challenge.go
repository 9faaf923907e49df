// Package captcha implements a stateless proof-of-work captcha.
//
// The server issues a signed puzzle: a random salt plus the digest of
// salt+number for a secret number drawn from [0, maxnumber]. The client must
// brute-force the number; the server re-checks the digest and the HMAC
// signature in a single bounded computation, with no record of the challenge
// kept between issuance and verification. An optional expiry deadline is
// embedded in the salt itself so stale challenges can be rejected without a
// store.
//
// The same HMAC key also authenticates externally produced spam
// classifications and the field-binding hashes that tie a classified
// submission to the form that is finally posted.
package captcha

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"time"
)

// Defaults applied by CreateChallenge when the corresponding option is zero.
const (
	DefaultMaxNumber  = 1_000_000
	DefaultSaltLength = 12
	DefaultAlgorithm  = SHA256
)

// Challenge is the puzzle handed to a client. Solving it means finding the
// number whose digest together with the salt equals Challenge; the Signature
// proves the pair was issued by this server and was not altered.
type Challenge struct {
	Algorithm string `json:"algorithm"`
	Challenge string `json:"challenge"`
	MaxNumber int64  `json:"maxnumber"`
	Salt      string `json:"salt"`
	Signature string `json:"signature"`
}

// ChallengeOptions control a single issuance.
type ChallengeOptions struct {
	Algorithm  Algorithm
	MaxNumber  int64      // inclusive upper bound of the search space
	SaltLength int        // random salt bytes before hex encoding
	Expires    time.Time  // zero means no expiry marker in the salt
	Params     url.Values // extra values carried in the salt query suffix
	Number     *int64     // pins the secret number, for deterministic tests
}

// CreateChallenge issues a new puzzle signed with hmacKey. The secret number
// is discarded after hashing; only a brute-force search recovers it, which
// is the work the client has to prove. A challenge verifies only against the
// key that issued it.
func CreateChallenge(opts ChallengeOptions, hmacKey []byte) (*Challenge, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}
	if opts.MaxNumber == 0 {
		opts.MaxNumber = DefaultMaxNumber
	}
	if opts.SaltLength == 0 {
		opts.SaltLength = DefaultSaltLength
	}
	if opts.MaxNumber < 0 {
		return nil, fmt.Errorf("%w: maxnumber must be positive, got %d", ErrConfiguration, opts.MaxNumber)
	}
	if opts.SaltLength < 0 {
		return nil, fmt.Errorf("%w: salt length must be positive, got %d", ErrConfiguration, opts.SaltLength)
	}
	if _, err := opts.Algorithm.hasher(); err != nil {
		return nil, err
	}

	salt, err := newSalt(opts.SaltLength, opts.Expires, opts.Params)
	if err != nil {
		return nil, err
	}

	var number int64
	if opts.Number != nil {
		number = *opts.Number
		if number < 0 || number > opts.MaxNumber {
			return nil, fmt.Errorf("%w: pinned number %d outside [0, %d]", ErrConfiguration, number, opts.MaxNumber)
		}
	} else {
		number, err = randomInt64(opts.MaxNumber)
		if err != nil {
			return nil, err
		}
	}

	challenge, err := opts.Algorithm.hashHex([]byte(salt + strconv.FormatInt(number, 10)))
	if err != nil {
		return nil, err
	}
	signature, err := opts.Algorithm.hmacHex(hmacKey, []byte(challenge))
	if err != nil {
		return nil, err
	}

	return &Challenge{
		Algorithm: string(opts.Algorithm),
		Challenge: challenge,
		MaxNumber: opts.MaxNumber,
		Salt:      salt,
		Signature: signature,
	}, nil
}

// newSalt builds the unpredictable salt, appending the expiry marker and any
// extra params as a URL query suffix so verification can read them back
// without server-side state.
func newSalt(length int, expires time.Time, params url.Values) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	salt := hex.EncodeToString(b)

	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if !expires.IsZero() {
		q.Set("expires", strconv.FormatInt(expires.Unix(), 10))
	}
	if len(q) > 0 {
		salt += "?" + q.Encode()
	}
	return salt, nil
}

// randomInt64 draws uniformly from [0, max] using crypto/rand.
func randomInt64(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max+1))
	if err != nil {
		return 0, fmt.Errorf("generate number: %w", err)
	}
	return n.Int64(), nil
}
