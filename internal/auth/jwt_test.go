package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("u1", "student", "ST101", "hostelhub", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := Parse(pair.AccessToken, "secret", "hostelhub")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "u1" {
		t.Errorf("subject = %q", claims.Subject)
	}
	if claims.Role != "student" || claims.StudentCode != "ST101" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseWrongKey(t *testing.T) {
	pair, err := Issue("u1", "student", "", "hostelhub", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(pair.AccessToken, "other-secret", "hostelhub"); err == nil {
		t.Fatal("token signed with a different key must not parse")
	}
}

func TestParseIssuerMismatch(t *testing.T) {
	pair, err := Issue("u1", "admin", "", "someone-else", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(pair.AccessToken, "secret", "hostelhub"); err == nil {
		t.Fatal("issuer mismatch must be rejected")
	}
}

func TestParseExpired(t *testing.T) {
	pair, err := Issue("u1", "student", "", "hostelhub", "secret", -time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(pair.AccessToken, "secret", "hostelhub"); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "hunter23") {
		t.Error("wrong password accepted")
	}
}
