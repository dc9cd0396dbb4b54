package api

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestIdentityFromToken(t *testing.T) {
	token := signed(t, &Claims{
		UserID: "u1",
		Name:   "Nila",
		Photo:  "https://cdn.example/u1.png",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	id, err := IdentityFromToken(token)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if id.ID != "u1" || id.Name != "Nila" || id.Photo == "" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestIdentityMissingUserID(t *testing.T) {
	token := signed(t, &Claims{Name: "nobody"})
	if _, err := IdentityFromToken(token); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("expected ErrNoIdentity, got %v", err)
	}
}

func TestIdentityGarbageToken(t *testing.T) {
	if _, err := IdentityFromToken("not-a-jwt"); err == nil {
		t.Error("expected parse error for garbage token")
	}
}
