package captcha

import (
	"net/url"
	"strings"
)

// VerifyFieldsHash reports whether the submitted form still matches the
// field values the classifier hashed: the named fields, in that order, are
// joined with newlines and digested. Missing fields count as empty values so
// the hash stays computable; a swapped or edited value changes the digest
// and the comparison fails.
func VerifyFieldsHash(form url.Values, fields []string, expectedHash string, alg Algorithm) bool {
	lines := make([]string, len(fields))
	for i, field := range fields {
		lines[i] = form.Get(field)
	}
	sum, err := alg.hashHex([]byte(strings.Join(lines, "\n")))
	if err != nil {
		return false
	}
	return equalHex(sum, expectedHash)
}
