package echoapi

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/modelaedu/modela/core"
	"github.com/modelaedu/modela/core/user"
)

func TestToken_roundTrip(t *testing.T) {
	conf := &core.Config{
		AppName:   "Modela",
		SecretKey: "test-secret-key",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
	}
	usr := user.User{ID: 7, Username: "ada.lovelace", Email: "ada@test.br"}

	token, err := GenerateToken(GetUserClaims(usr, conf), conf)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(conf.SecretKey), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("parsing token: %v", err)
	}

	if claims.UserID != usr.ID {
		t.Errorf("UserID = %d; want %d", claims.UserID, usr.ID)
	}
	if claims.Username != usr.Username {
		t.Errorf("Username = %q; want %q", claims.Username, usr.Username)
	}
	if claims.Issuer != conf.AppName {
		t.Errorf("Issuer = %q; want %q", claims.Issuer, conf.AppName)
	}
	if claims.ExpiresAt <= time.Now().Unix() {
		t.Error("token already expired")
	}
}

func TestToken_badSignature(t *testing.T) {
	conf := &core.Config{SecretKey: "key-one", Server: core.ServerConfig{JWTExpirationDelta: time.Hour}}
	token, err := GenerateToken(GetUserClaims(user.User{ID: 1}, conf), conf)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	_, err = jwt.ParseWithClaims(token, new(Claims), func(*jwt.Token) (interface{}, error) {
		return []byte("another-key"), nil
	})
	if err == nil {
		t.Error("token with a wrong key parsed as valid")
	}
}
