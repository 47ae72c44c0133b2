// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"testing"
	"time"
)

func TestApiTokenIsValid(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	cases := []struct {
		name      string
		expiresAt *time.Time
		revokedAt *time.Time
		want      bool
	}{
		{"no expiry, not revoked", nil, nil, true},
		{"future expiry, not revoked", &future, nil, true},
		{"past expiry", &past, nil, false},
		{"revoked, no expiry", nil, &past, false},
		{"revoked beats future expiry", &future, &past, false},
	}
	for _, tc := range cases {
		token := ApiToken{ExpiresAt: tc.expiresAt, RevokedAt: tc.revokedAt}
		if got := token.IsValid(); got != tc.want {
			t.Errorf("%s: IsValid() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestApiTokenHasScope(t *testing.T) {
	token := ApiToken{Scopes: []string{"read:vulns", "export:doc"}}

	if !token.HasScope("read:vulns") {
		t.Error("Expected read:vulns to be granted")
	}
	if token.HasScope("write:vulns") {
		t.Error("write:vulns should not be granted")
	}
	if token.HasScope("read") {
		t.Error("Scope matching must be exact, not a prefix")
	}
}
