package captcha

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVerificationData() VerificationData {
	return VerificationData{
		Classification: ClassificationGood,
		Fields:         []string{"email", "message"},
		FieldsHash:     "0123abcd",
		Score:          1.5,
		Time:           time.Now().Unix(),
		Verified:       true,
	}
}

func TestVerificationDataEncodeDeterministic(t *testing.T) {
	d := testVerificationData()
	first := d.Encode()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, d.Encode())
	}
	// Keys come out sorted, so signer and verifier agree bit for bit.
	assert.Less(t, strings.Index(first, "classification="), strings.Index(first, "fields="))
	assert.Less(t, strings.Index(first, "fields="), strings.Index(first, "verified="))
}

func TestCheckServerSignatureRoundTrip(t *testing.T) {
	d := testVerificationData()
	encoded, err := EncodeServerSignaturePayload(d, SHA256, testKey)
	require.NoError(t, err)

	got, err := CheckServerSignature(encoded, testKey)
	require.NoError(t, err)
	assert.Equal(t, d.Classification, got.Classification)
	assert.Equal(t, d.Fields, got.Fields)
	assert.Equal(t, d.FieldsHash, got.FieldsHash)
	assert.Equal(t, d.Score, got.Score)
	assert.True(t, got.Verified)
	assert.Equal(t, SHA256, got.Algorithm)

	ok, data := VerifyServerSignature(encoded, testKey)
	assert.True(t, ok)
	require.NotNil(t, data)
}

func TestCheckServerSignatureBadVerdict(t *testing.T) {
	// A BAD classification is still a validly signed record; rejecting the
	// submission is route logic, not the verifier's call.
	d := testVerificationData()
	d.Classification = ClassificationBad
	encoded, err := EncodeServerSignaturePayload(d, SHA256, testKey)
	require.NoError(t, err)

	got, err := CheckServerSignature(encoded, testKey)
	require.NoError(t, err)
	assert.Equal(t, ClassificationBad, got.Classification)
}

func TestCheckServerSignatureMutatedRecord(t *testing.T) {
	d := testVerificationData()
	signature, err := SignVerificationData(d, SHA256, testKey)
	require.NoError(t, err)

	// Flip one character of the signed record after signing.
	mutated := strings.Replace(d.Encode(), "classification=GOOD", "classification=GOOt", 1)
	require.NotEqual(t, d.Encode(), mutated)

	b, err := json.Marshal(ServerSignaturePayload{
		Algorithm:        string(SHA256),
		VerificationData: mutated,
		Signature:        signature,
		Verified:         true,
	})
	require.NoError(t, err)
	_, err = CheckServerSignature(base64.StdEncoding.EncodeToString(b), testKey)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestCheckServerSignatureWrongKey(t *testing.T) {
	encoded, err := EncodeServerSignaturePayload(testVerificationData(), SHA256, []byte("other-key"))
	require.NoError(t, err)

	_, err = CheckServerSignature(encoded, testKey)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	ok, data := VerifyServerSignature(encoded, testKey)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestCheckServerSignatureUnverified(t *testing.T) {
	d := testVerificationData()
	d.Verified = false
	encoded, err := EncodeServerSignaturePayload(d, SHA256, testKey)
	require.NoError(t, err)

	_, err = CheckServerSignature(encoded, testKey)
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestCheckServerSignatureExpired(t *testing.T) {
	d := testVerificationData()
	d.Expire = time.Now().Add(-time.Hour).Unix()
	encoded, err := EncodeServerSignaturePayload(d, SHA256, testKey)
	require.NoError(t, err)

	_, err = CheckServerSignature(encoded, testKey)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCheckServerSignatureMalformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"not base64", "% %"},
		{"not json", base64.StdEncoding.EncodeToString([]byte("x"))},
		{"missing fields", base64.StdEncoding.EncodeToString([]byte(`{"algorithm":"SHA-256"}`))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CheckServerSignature(tc.encoded, testKey)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}
