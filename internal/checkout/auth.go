package checkout

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Credential is the merchant identity notifications must present over HTTP
// Basic auth. The integrating application supplies it per request; this
// module never stores it.
type Credential struct {
	MerchantID  string
	MerchantKey string
}

// CredentialFunc resolves the expected merchant credential for a request.
type CredentialFunc func(ctx context.Context) (Credential, error)

var (
	// ErrMissingAuthorization marks a request with no Authorization header.
	ErrMissingAuthorization = errors.New("checkout: missing Authorization header")
	// ErrBadCredential marks a decoded credential that does not match the
	// configured merchant identity.
	ErrBadCredential = errors.New("checkout: merchant credential mismatch")
	// ErrEmptyBody marks an authenticated request with no payload.
	ErrEmptyBody = errors.New("checkout: empty notification body")
)

// Authenticate validates an inbound notification request, short-circuiting
// on the first failure: header present, header decodes as Basic, credential
// matches, body non-empty. A malformed header is surfaced as a wrapped
// decode error rather than silently treated as a mismatch.
func (c Credential) Authenticate(r *http.Request, body []byte) error {
	header := r.Header.Get("Authorization")
	if strings.TrimSpace(header) == "" {
		return ErrMissingAuthorization
	}
	id, key, err := parseBasic(header)
	if err != nil {
		return fmt.Errorf("checkout: malformed Authorization header: %w", err)
	}
	idOK := subtle.ConstantTimeCompare([]byte(id), []byte(c.MerchantID))
	keyOK := subtle.ConstantTimeCompare([]byte(key), []byte(c.MerchantKey))
	if idOK&keyOK != 1 {
		return ErrBadCredential
	}
	if len(body) == 0 {
		return ErrEmptyBody
	}
	return nil
}

func parseBasic(header string) (id, key string, err error) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", errors.New("not a Basic authorization scheme")
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return "", "", err
	}
	id, key, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", errors.New("credential has no id:key separator")
	}
	return id, key, nil
}
