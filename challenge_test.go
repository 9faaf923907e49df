package captcha

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-secret-key")

func ptr[T any](v T) *T { return &v }

func TestCreateChallengeDefaults(t *testing.T) {
	ch, err := CreateChallenge(ChallengeOptions{}, testKey)
	require.NoError(t, err)

	assert.Equal(t, string(SHA256), ch.Algorithm)
	assert.EqualValues(t, DefaultMaxNumber, ch.MaxNumber)
	assert.Len(t, ch.Salt, DefaultSaltLength*2)
	assert.NotEmpty(t, ch.Challenge)

	sig, err := SHA256.hmacHex(testKey, []byte(ch.Challenge))
	require.NoError(t, err)
	assert.Equal(t, sig, ch.Signature)
}

func TestCreateChallengeSolvable(t *testing.T) {
	ch, err := CreateChallenge(ChallengeOptions{MaxNumber: 1000}, testKey)
	require.NoError(t, err)

	n, ok := solve(ch)
	require.True(t, ok, "number must be findable within [0, maxnumber]")
	assert.GreaterOrEqual(t, n, int64(0))
	assert.LessOrEqual(t, n, ch.MaxNumber)
}

func TestCreateChallengeExpiryMarker(t *testing.T) {
	expires := time.Now().Add(5 * time.Minute)
	ch, err := CreateChallenge(ChallengeOptions{MaxNumber: 100, Expires: expires}, testKey)
	require.NoError(t, err)

	_, query, ok := strings.Cut(ch.Salt, "?")
	require.True(t, ok, "salt must carry the expiry suffix")
	values, err := url.ParseQuery(query)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(expires.Unix(), 10), values.Get("expires"))
}

func TestCreateChallengeParams(t *testing.T) {
	params := url.Values{"purpose": {"signup"}}
	ch, err := CreateChallenge(ChallengeOptions{MaxNumber: 100, Params: params}, testKey)
	require.NoError(t, err)
	assert.Contains(t, ch.Salt, "purpose=signup")
}

func TestCreateChallengeUnpredictableSalt(t *testing.T) {
	a, err := CreateChallenge(ChallengeOptions{MaxNumber: 100}, testKey)
	require.NoError(t, err)
	b, err := CreateChallenge(ChallengeOptions{MaxNumber: 100}, testKey)
	require.NoError(t, err)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Challenge, b.Challenge)
}

func TestCreateChallengeConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		opts ChallengeOptions
	}{
		{"negative maxnumber", ChallengeOptions{MaxNumber: -1}},
		{"negative salt length", ChallengeOptions{SaltLength: -2}},
		{"unknown algorithm", ChallengeOptions{Algorithm: "MD5"}},
		{"pinned number out of range", ChallengeOptions{MaxNumber: 10, Number: ptr(int64(11))}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateChallenge(tc.opts, testKey)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}
