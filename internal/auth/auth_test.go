package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("op-001", "Prisca MINTSA MI-OBIANG", "RECEPTION", "reception-desk", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := Parse(pair.AccessToken, "secret", "reception-desk")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "op-001" || claims.Role != "RECEPTION" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := Parse(pair.AccessToken, "wrong-key", "reception-desk"); err == nil {
		t.Error("token accepted with wrong key")
	}
	if _, err := Parse(pair.AccessToken, "secret", "other-issuer"); err == nil {
		t.Error("token accepted with wrong issuer")
	}
}

func TestParseExpiredToken(t *testing.T) {
	pair, err := Issue("op-001", "Prisca", "RECEPTION", "reception-desk", "secret", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "secret", "reception-desk"); err == nil {
		t.Error("expired token accepted")
	}
}

func TestAuthenticateDemoUsers(t *testing.T) {
	user, ok := Authenticate("accueil", "accueil2024")
	if !ok {
		t.Fatal("valid demo credentials rejected")
	}
	if user.Role != "RECEPTION" || user.Capabilities.CanManagePersonnel {
		t.Errorf("user = %+v", user)
	}

	admin, ok := Authenticate("admin", "admin2024")
	if !ok || !admin.Capabilities.CanManagePersonnel || !admin.Capabilities.CanBulkSelectFromGrid {
		t.Errorf("admin = %+v, ok = %v", admin, ok)
	}

	if _, ok := Authenticate("accueil", "wrong"); ok {
		t.Error("bad password accepted")
	}
	if _, ok := Authenticate("ghost", "accueil2024"); ok {
		t.Error("unknown user accepted")
	}
}
