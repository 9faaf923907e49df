package captcha

import "errors"

// Verification failures always degrade to one of these sentinels so callers
// can reject a request with a reason without ever seeing a panic or an
// uncaught fault. Callers that only need a boolean can use VerifySolution or
// VerifyServerSignature instead.
var (
	// ErrMalformedPayload means the submitted blob could not be decoded
	// into a payload at all.
	ErrMalformedPayload = errors.New("captcha: malformed payload")

	// ErrHashMismatch means the claimed number does not solve the puzzle.
	ErrHashMismatch = errors.New("captcha: challenge hash mismatch")

	// ErrSignatureMismatch means the HMAC does not match, i.e. the
	// challenge or verification data was forged or altered.
	ErrSignatureMismatch = errors.New("captcha: signature mismatch")

	// ErrExpired means the deadline embedded in the salt (or the
	// classifier's expire marker) has passed.
	ErrExpired = errors.New("captcha: challenge expired")

	// ErrNotVerified means the classifier's record does not carry a
	// positive verified flag.
	ErrNotVerified = errors.New("captcha: payload not verified by classifier")

	// ErrFieldsMismatch means the submitted form no longer matches the
	// field values the classifier hashed.
	ErrFieldsMismatch = errors.New("captcha: submitted fields do not match classified fields")

	// ErrConfiguration covers invalid issuance parameters. It is the only
	// error meant to be fatal at startup rather than per request.
	ErrConfiguration = errors.New("captcha: invalid configuration")
)
