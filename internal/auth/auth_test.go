package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestOwnerID(t *testing.T) {
	if _, ok := OwnerID(context.Background()); ok {
		t.Fatal("expected no owner on empty context")
	}
	if _, ok := OwnerID(WithOwner(context.Background(), "  ")); ok {
		t.Fatal("blank owner must count as absent")
	}
	id, ok := OwnerID(WithOwner(context.Background(), "user-1"))
	if !ok || id != "user-1" {
		t.Fatalf("OwnerID = %q, %v", id, ok)
	}
}

func TestSignAndVerify(t *testing.T) {
	signer := NewSigner(testSecret, "fxledger", time.Hour)
	token, err := signer.Sign("user-1", "Ada")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := NewVerifier(testSecret, "fxledger").ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "user-1" || claims.Name != "Ada" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejects(t *testing.T) {
	signer := NewSigner(testSecret, "fxledger", time.Hour)
	good, _ := signer.Sign("user-1", "")

	expiredSigner := NewSigner(testSecret, "fxledger", time.Minute)
	expiredSigner.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _ := expiredSigner.Sign("user-1", "")

	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "fxledger",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "fxledger",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name     string
		verifier *Verifier
		token    string
	}{
		{"wrong secret", NewVerifier("another-secret-of-some-length", "fxledger"), good},
		{"wrong issuer", NewVerifier(testSecret, "someone-else"), good},
		{"expired", NewVerifier(testSecret, "fxledger"), expired},
		{"missing subject", NewVerifier(testSecret, "fxledger"), noSub},
		{"alg none", NewVerifier(testSecret, "fxledger"), none},
		{"garbage", NewVerifier(testSecret, "fxledger"), "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.verifier.ParseAndValidate(tt.token); err != ErrInvalidToken {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	token, err := NewSigner(testSecret, "fxledger", time.Hour).Sign("user-42", "")
	if err != nil {
		t.Fatal(err)
	}
	mw := Middleware(NewVerifier(testSecret, "fxledger"))

	var gotOwner string
	var gotOK bool
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner, gotOK = OwnerID(r.Context())
	}))

	tests := []struct {
		name      string
		setup     func(r *http.Request)
		wantOwner string
		wantOK    bool
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, "user-42", true},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) }, "user-42", true},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: token}) }, "user-42", true},
		{"no token", func(r *http.Request) {}, "", false},
		{"invalid token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotOwner, gotOK = "", false
			req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
			tt.setup(req)
			h.ServeHTTP(httptest.NewRecorder(), req)
			if gotOwner != tt.wantOwner || gotOK != tt.wantOK {
				t.Fatalf("owner = %q, %v; want %q, %v", gotOwner, gotOK, tt.wantOwner, tt.wantOK)
			}
		})
	}
}
