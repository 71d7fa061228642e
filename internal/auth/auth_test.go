package auth

import (
	"strings"
	"testing"
)

func TestIssueVerifyRoundtrip(t *testing.T) {
	tokens := NewTokens("secret", "zema-catalog", "zema-admin")

	signed, err := tokens.Issue("admin-123")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.Count(signed, ".") != 2 {
		t.Errorf("token is not a JWT: %q", signed)
	}

	subject, err := tokens.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "admin-123" {
		t.Errorf("subject = %q, want admin-123", subject)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokens("secret-a", "zema-catalog", "zema-admin").Issue("admin-123")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokens("secret-b", "zema-catalog", "zema-admin").Verify(signed); err == nil {
		t.Error("token signed with a different secret verified")
	}
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	signed, err := NewTokens("secret", "zema-catalog", "other-audience").Issue("admin-123")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokens("secret", "zema-catalog", "zema-admin").Verify(signed); err == nil {
		t.Error("token for a different audience verified")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	tokens := NewTokens("secret", "zema-catalog", "zema-admin")
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := tokens.Verify(tok); err == nil {
			t.Errorf("garbage token %q verified", tok)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret123" {
		t.Error("hash equals the plaintext")
	}
	if !CheckPassword(hash, "secret123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h1, _ := HashPassword("secret123")
	h2, _ := HashPassword("secret123")
	if h1 == h2 {
		t.Error("two hashes of the same password are identical")
	}
}
