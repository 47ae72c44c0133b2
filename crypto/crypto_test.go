// SPDX-License-Identifier: GPL-3.0-only

package crypto

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	crypto := NewCrypto()
	password := "testpassword123"

	hash, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == "" {
		t.Error("Hash should not be empty")
	}

	hash2, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("Second HashPassword failed: %v", err)
	}

	if hash == hash2 {
		t.Error("Two hashes of same password should be different (due to salt)")
	}
}

func TestVerifyPassword(t *testing.T) {
	crypto := NewCrypto()
	password := "testpassword123"
	wrongPassword := "wrongpassword"

	hash, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	err = crypto.VerifyPassword(password, hash)
	if err != nil {
		t.Errorf("VerifyPassword failed for correct password: %v", err)
	}

	err = crypto.VerifyPassword(wrongPassword, hash)
	if err == nil {
		t.Error("VerifyPassword should fail for wrong password")
	}

	err = crypto.VerifyPassword(password, "invalid-hash")
	if err == nil {
		t.Error("VerifyPassword should fail for invalid hash")
	}

	err = crypto.VerifyPassword(password, "")
	if err == nil {
		t.Error("VerifyPassword should fail for empty hash")
	}
}

func TestHashToken(t *testing.T) {
	hash := HashToken("vm_0123456789abcdef")

	if len(hash) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(hash))
	}

	if hash != HashToken("vm_0123456789abcdef") {
		t.Error("Same token should produce same hash")
	}

	if hash == HashToken("vm_0123456789abcdee") {
		t.Error("Different tokens should produce different hashes")
	}
}

func TestGenerateSessionSecret(t *testing.T) {
	secret, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("GenerateSessionSecret failed: %v", err)
	}

	if secret == "" {
		t.Fatal("Secret should not be empty")
	}
	if strings.Contains(secret, ".") {
		t.Error("Secret must not contain the signature separator")
	}

	secret2, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("Second GenerateSessionSecret failed: %v", err)
	}
	if secret == secret2 {
		t.Error("Two secrets should differ")
	}
}

func TestGenerateAPIToken(t *testing.T) {
	token, err := GenerateAPIToken()
	if err != nil {
		t.Fatalf("GenerateAPIToken failed: %v", err)
	}

	if !strings.HasPrefix(token, "vm_") {
		t.Errorf("Expected vm_ prefix, got %s", token)
	}
	if len(token) != 43 {
		t.Errorf("Expected 43 chars (vm_ + 40 hex), got %d", len(token))
	}
	for _, r := range token[3:] {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("Expected lowercase hex after prefix, got %q", r)
			break
		}
	}

	token2, err := GenerateAPIToken()
	if err != nil {
		t.Fatalf("Second GenerateAPIToken failed: %v", err)
	}
	if token == token2 {
		t.Error("Two tokens should differ")
	}
}
