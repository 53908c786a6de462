package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func testTokens() TokenService {
	return TokenService{Secret: []byte("test-secret"), Issuer: "storyhub", Duration: time.Hour}
}

func TestSignAndParse(t *testing.T) {
	ts := testTokens()
	raw, exp, err := ts.Sign(Subject{UserID: "u1", Username: "reader", AdultVerified: true})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatal("expiry should be in the future")
	}

	claims, err := ts.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "reader" || !claims.AdultVerified {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	ts := testTokens()
	raw, _, err := ts.Sign(Subject{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	other := ts
	other.Secret = []byte("another-secret")
	if _, err := other.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: got %v", err)
	}

	otherIssuer := ts
	otherIssuer.Issuer = "someone-else"
	if _, err := otherIssuer.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong issuer: got %v", err)
	}

	expired := ts
	expired.Duration = -time.Minute
	old, _, err := expired.Sign(Subject{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Parse(old); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired: got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Parse(unsigned); err == nil {
		t.Fatal("alg none must be rejected")
	}

	if _, _, err := ts.Sign(Subject{}); err == nil {
		t.Fatal("empty user id must not be signed")
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ts := testTokens()
	good, _, _ := ts.Sign(Subject{UserID: "u1"})

	r := gin.New()
	whoami := func(c *gin.Context) {
		if claims := MustGetClaims(c); claims != nil {
			c.String(http.StatusOK, claims.UserID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	}
	r.GET("/required", RequireAuth(ts), whoami)
	r.GET("/optional", OptionalAuth(ts), whoami)

	tests := []struct {
		path   string
		header string
		status int
		body   string
	}{
		{"/required", "", http.StatusUnauthorized, ""},
		{"/required", "Bearer garbage", http.StatusUnauthorized, ""},
		{"/required", "Bearer " + good, http.StatusOK, "u1"},
		{"/optional", "", http.StatusOK, "anonymous"},
		{"/optional", "Bearer garbage", http.StatusUnauthorized, ""},
		{"/optional", "bearer " + good, http.StatusOK, "u1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != tt.status {
			t.Errorf("%s %q: status %d, want %d", tt.path, tt.header, w.Code, tt.status)
			continue
		}
		if tt.body != "" && w.Body.String() != tt.body {
			t.Errorf("%s %q: body %q, want %q", tt.path, tt.header, w.Body.String(), tt.body)
		}
	}
}
