package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := HashPassword("pw123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hashed == "pw123" {
		t.Fatalf("expected hash, got plaintext")
	}
	if !CheckPassword(hashed, "pw123") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hashed, "pw1234") {
		t.Fatalf("expected wrong password to fail")
	}
	if CheckPassword("", "pw123") {
		t.Fatalf("expected empty hash to never match")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
