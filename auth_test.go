package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestAuth(t *testing.T, adminHash string) *Auth {
	t.Helper()
	a, err := NewAuth(nil, "", "admin", adminHash, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	return a
}

func TestReconnectTokenRoundTrip(t *testing.T) {
	a := newTestAuth(t, "")
	token, err := a.IssueReconnectToken("Pilot", "conn-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := a.ValidateReconnectToken(token, "Pilot"); err != nil {
		t.Errorf("expected valid token, got %v", err)
	}
	if err := a.ValidateReconnectToken(token, "Other"); !errors.Is(err, errTokenName) {
		t.Errorf("expected errTokenName, got %v", err)
	}
	if err := a.ValidateReconnectToken(token+"x", "Pilot"); err == nil {
		t.Error("tampered token should fail")
	}
	if err := a.ValidateReconnectToken("not-a-token", "Pilot"); err == nil {
		t.Error("garbage should fail")
	}

	other := newTestAuth(t, "")
	if err := other.ValidateReconnectToken(token, "Pilot"); err == nil {
		t.Error("token signed with another secret should fail")
	}
}

func TestNewAuthSecretOverride(t *testing.T) {
	if _, err := NewAuth(nil, "zz", "admin", "", zerolog.Nop()); err == nil {
		t.Error("expected error for non-hex secret")
	}
	if _, err := NewAuth(nil, "abcd", "admin", "", zerolog.Nop()); err == nil {
		t.Error("expected error for short secret")
	}

	const secret = "00112233445566778899aabbccddeeff"
	a, err := NewAuth(nil, secret, "admin", "", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	b, _ := NewAuth(nil, secret, "admin", "", zerolog.Nop())
	token, _ := a.IssueReconnectToken("X", "c1")
	if err := b.ValidateReconnectToken(token, "X"); err != nil {
		t.Errorf("shared secret should validate across instances: %v", err)
	}
}

func TestAuthSecretPersisted(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()

	first, err := NewAuth(db, "", "admin", "", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if got := db.GetSetting(settingJWTSecret); len(got) != 64 {
		t.Fatalf("expected 32-byte hex secret stored, got %q", got)
	}
	token, _ := first.IssueReconnectToken("X", "c1")

	second, err := NewAuth(db, "", "admin", "", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := second.ValidateReconnectToken(token, "X"); err != nil {
		t.Errorf("restarted auth should reuse the stored secret: %v", err)
	}
}

func TestCheckAdmin(t *testing.T) {
	if _, err := HashAdminPassword("abc"); err == nil {
		t.Error("expected error for short password")
	}
	hash, err := HashAdminPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	a := newTestAuth(t, hash)
	if !a.CheckAdmin("admin", "hunter22", "1.2.3.4") {
		t.Error("expected valid credentials to pass")
	}
	if a.CheckAdmin("admin", "wrong", "1.2.3.4") {
		t.Error("wrong password should fail")
	}
	if a.CheckAdmin("root", "hunter22", "1.2.3.4") {
		t.Error("wrong user should fail")
	}

	noHash := newTestAuth(t, "")
	if noHash.CheckAdmin("admin", "", "1.2.3.4") {
		t.Error("admin must be disabled without a hash")
	}
}

func TestCheckAdminRateLimit(t *testing.T) {
	hash, err := HashAdminPassword("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	a := newTestAuth(t, hash)
	for i := 0; i < maxLoginAttempts; i++ {
		a.CheckAdmin("nobody", "x", "9.9.9.9")
	}
	if a.CheckAdmin("admin", "hunter22", "9.9.9.9") {
		t.Error("attempt over the limit should be rejected")
	}
	if !a.CheckAdmin("admin", "hunter22", "8.8.8.8") {
		t.Error("other addresses keep their own budget")
	}
}
