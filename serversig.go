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

// Spam classifications. Anything other than BAD is accepted by route logic;
// only the classifier assigns these.
const (
	ClassificationGood = "GOOD"
	ClassificationBad  = "BAD"
)

// VerificationData is an external classifier's decision about one
// submission. It travels as a canonical URL-encoded string together with its
// own HMAC signature; once the signature checks out the record is trusted
// exactly as signed.
type VerificationData struct {
	Classification string
	Fields         []string
	FieldsHash     string
	Reasons        []string
	Score          float64
	Time           int64
	Expire         int64
	Verified       bool

	// Algorithm is taken from the payload envelope during verification so
	// the caller can recompute the fields hash with the same digest. It is
	// not part of the signed record.
	Algorithm Algorithm
}

// ServerSignaturePayload wraps the canonical VerificationData string with
// its signature, transported as base64-encoded JSON.
type ServerSignaturePayload struct {
	Algorithm        string `json:"algorithm"`
	VerificationData string `json:"verificationData"`
	Signature        string `json:"signature"`
	Verified         bool   `json:"verified"`
}

// Encode renders d in the canonical form that gets signed: URL-encoded
// key=value pairs sorted by key, empty values omitted. Signer and verifier
// must agree on these bytes exactly - url.Values.Encode supplies the stable
// ordering and escaping.
func (d VerificationData) Encode() string {
	v := url.Values{}
	if d.Classification != "" {
		v.Set("classification", d.Classification)
	}
	if d.Expire > 0 {
		v.Set("expire", strconv.FormatInt(d.Expire, 10))
	}
	if len(d.Fields) > 0 {
		v.Set("fields", strings.Join(d.Fields, ","))
	}
	if d.FieldsHash != "" {
		v.Set("fieldsHash", d.FieldsHash)
	}
	if len(d.Reasons) > 0 {
		v.Set("reasons", strings.Join(d.Reasons, ","))
	}
	if d.Score != 0 {
		v.Set("score", strconv.FormatFloat(d.Score, 'f', -1, 64))
	}
	if d.Time > 0 {
		v.Set("time", strconv.FormatInt(d.Time, 10))
	}
	v.Set("verified", strconv.FormatBool(d.Verified))
	return v.Encode()
}

func decodeVerificationData(raw string) (*VerificationData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	d := &VerificationData{
		Classification: values.Get("classification"),
		FieldsHash:     values.Get("fieldsHash"),
		Verified:       values.Get("verified") == "true",
	}
	if f := values.Get("fields"); f != "" {
		d.Fields = strings.Split(f, ",")
	}
	if r := values.Get("reasons"); r != "" {
		d.Reasons = strings.Split(r, ",")
	}
	if sc := values.Get("score"); sc != "" {
		d.Score, _ = strconv.ParseFloat(sc, 64)
	}
	if t := values.Get("time"); t != "" {
		d.Time, _ = strconv.ParseInt(t, 10, 64)
	}
	if e := values.Get("expire"); e != "" {
		d.Expire, _ = strconv.ParseInt(e, 10, 64)
	}
	return d, nil
}

// SignVerificationData produces the signature the verifier expects: the HMAC
// over the raw digest of the canonical encoding. This is the signer half of
// the contract, used by the classifier side and by tests.
func SignVerificationData(d VerificationData, alg Algorithm, hmacKey []byte) (string, error) {
	raw, err := alg.hashRaw([]byte(d.Encode()))
	if err != nil {
		return "", err
	}
	return alg.hmacHex(hmacKey, raw)
}

// EncodeServerSignaturePayload signs d and packs it into the transport
// encoding CheckServerSignature accepts.
func EncodeServerSignaturePayload(d VerificationData, alg Algorithm, hmacKey []byte) (string, error) {
	signature, err := SignVerificationData(d, alg, hmacKey)
	if err != nil {
		return "", err
	}
	p := ServerSignaturePayload{
		Algorithm:        string(alg),
		VerificationData: d.Encode(),
		Signature:        signature,
		Verified:         d.Verified,
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// CheckServerSignature validates an externally signed classification record.
// The signature is checked against the exact serialized bytes, so mutating a
// single character of the record invalidates it. Only on a match is the
// parsed record returned as trusted; it is additionally rejected when its
// verified flag is unset or its expire marker has passed.
func CheckServerSignature(encoded string, hmacKey []byte) (*VerificationData, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var p ServerSignaturePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.VerificationData == "" || p.Signature == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrMalformedPayload)
	}

	alg := Algorithm(p.Algorithm)
	digest, err := alg.hashRaw([]byte(p.VerificationData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	expected, err := alg.hmacHex(hmacKey, digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !equalHex(expected, p.Signature) {
		return nil, ErrSignatureMismatch
	}

	d, err := decodeVerificationData(p.VerificationData)
	if err != nil {
		return nil, err
	}
	d.Algorithm = alg
	if !d.Verified {
		return nil, ErrNotVerified
	}
	if d.Expire > 0 && time.Now().After(time.Unix(d.Expire, 0)) {
		return nil, ErrExpired
	}
	return d, nil
}

// VerifyServerSignature degrades CheckServerSignature to the verified/data
// pair. The record is only returned when it can be trusted.
func VerifyServerSignature(encoded string, hmacKey []byte) (bool, *VerificationData) {
	d, err := CheckServerSignature(encoded, hmacKey)
	if err != nil {
		return false, nil
	}
	return true, d
}
