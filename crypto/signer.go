// SPDX-License-Identifier: GPL-3.0-only

package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"vulnmgr-server/commons"
)

var (
	ErrInvalidSignature = errors.New("invalid token signature")

	errPasswordMismatch = errors.New("password verification failed")
)

const signatureSeparator = "."

// NewSigner builds a Signer keyed with the process-wide SECRET_KEY.
// Rotating the key invalidates every previously issued signed token.
func NewSigner() *Signer {
	secret := commons.GetEnv("SECRET_KEY", "insecure-dev-secret-key")
	return &Signer{secret: []byte(secret)}
}

// Sign appends a keyed MAC to the raw token so the credential can be
// checked for tampering before any store lookup. The raw token must not
// contain the separator; session secrets generated here never do.
func (s *Signer) Sign(rawToken string) string {
	encoded := base64.RawURLEncoding.EncodeToString(s.mac(rawToken))
	return rawToken + signatureSeparator + encoded
}

// Verify splits on the last separator, recomputes the MAC for the
// left-hand part and compares in constant time. Malformed structure and
// wrong signatures share a single failure path.
func (s *Signer) Verify(signedToken string) (string, error) {
	idx := strings.LastIndex(signedToken, signatureSeparator)
	if idx < 0 {
		return "", ErrInvalidSignature
	}
	rawToken := signedToken[:idx]
	encodedSig := signedToken[idx+1:]

	expected := base64.RawURLEncoding.EncodeToString(s.mac(rawToken))
	if !hmac.Equal([]byte(padBase64(encodedSig)), []byte(padBase64(expected))) {
		return "", ErrInvalidSignature
	}
	return rawToken, nil
}

func (s *Signer) mac(rawToken string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(rawToken))
	return h.Sum(nil)
}

// padBase64 re-pads an unpadded base64 string to a 4-byte block boundary
// so both sides of the comparison have a common length.
func padBase64(v string) string {
	if rem := len(v) % 4; rem != 0 {
		return v + strings.Repeat("=", 4-rem)
	}
	return v
}
